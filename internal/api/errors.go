package api

import (
	"errors"
	"net/http"

	"shareit/internal/domain"
	"shareit/internal/logging"
)

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBusinessRule):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err for the client. Internal failures are logged
// and reported without detail.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal server error")
		return
	}
	writeError(w, code, err.Error())
}
