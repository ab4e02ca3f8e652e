package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/logging"
	"shareit/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Server validates client requests, applies the per-user rate limit and
// proxies accepted requests to the core.
type Server struct {
	cfg       config.GatewayConfig
	client    *CoreClient
	limiter   domain.RateLimiter
	validator *Validator
	server    *http.Server
	logger    *zerolog.Logger
}

func NewServer(cfg config.GatewayConfig, client *CoreClient, limiter domain.RateLimiter, validator *Validator, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		client:    client,
		limiter:   limiter,
		validator: validator,
		logger:    logging.Component(logger, "gateway"),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.RequestLogging(s.logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Timeout * time.Duration(cfg.Retry.MaxRetries+2),
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /bookings", s.handleAddBooking)
	mux.HandleFunc("PATCH /bookings/{bookingId}", s.handleSetApproval)
	mux.HandleFunc("GET /bookings/{bookingId}", s.handleGetBooking)
	mux.HandleFunc("GET /bookings", s.handleListBookings)
	mux.HandleFunc("GET /bookings/owner", s.handleListBookings)

	mux.HandleFunc("POST /items", s.handleCreateItem)
	mux.HandleFunc("PATCH /items/{itemId}", s.handleUpdateItem)
	mux.HandleFunc("GET /items/{itemId}", s.handleGetItem)
	mux.HandleFunc("GET /items", s.handleUserScoped)
	mux.HandleFunc("GET /items/search", s.handleUserScoped)

	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/{userId}", s.handleGetUser)
	mux.HandleFunc("PATCH /users/{userId}", s.handleUpdateUser)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Str("core_url", s.cfg.CoreURL).Msg("gateway listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleAddBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.check(w, s.validator.Booking(body)) {
		return
	}
	s.forward(w, r, userID, body)
}

func (s *Server) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if _, err := s.validator.PathID("bookingId", r.PathValue("bookingId")); !s.check(w, err) {
		return
	}
	if !s.check(w, s.validator.Approved(r.URL.Query().Get("approved"))) {
		return
	}
	s.forward(w, r, userID, nil)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if _, err := s.validator.PathID("bookingId", r.PathValue("bookingId")); !s.check(w, err) {
		return
	}
	s.forward(w, r, userID, nil)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if !s.check(w, s.validator.State(r.URL.Query().Get("state"))) {
		return
	}
	s.forward(w, r, userID, nil)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.check(w, s.validator.NewItem(body)) {
		return
	}
	s.forward(w, r, userID, body)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if _, err := s.validator.PathID("itemId", r.PathValue("itemId")); !s.check(w, err) {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.check(w, s.validator.ItemPatch(body)) {
		return
	}
	s.forward(w, r, userID, body)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if _, err := s.validator.PathID("itemId", r.PathValue("itemId")); !s.check(w, err) {
		return
	}
	s.forward(w, r, userID, nil)
}

func (s *Server) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	s.forward(w, r, userID, nil)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.check(w, s.validator.NewUser(body)) {
		return
	}
	s.forward(w, r, 0, body)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if _, err := s.validator.PathID("userId", r.PathValue("userId")); !s.check(w, err) {
		return
	}
	s.forward(w, r, 0, nil)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if _, err := s.validator.PathID("userId", r.PathValue("userId")); !s.check(w, err) {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.check(w, s.validator.UserPatch(body)) {
		return
	}
	s.forward(w, r, 0, body)
}

// userID validates the identity header and applies the per-user rate limit.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := s.validator.UserID(r.Header.Get(api.UserIDHeader))
	if !s.check(w, err) {
		return 0, false
	}

	allowed, err := s.limiter.CheckRateLimit(r.Context(), userID, s.cfg.RateLimit.Requests, s.cfg.RateLimit.Window)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).Int64("user_id", userID).Msg("rate limit check failed")
		return userID, true
	}
	if !allowed {
		metrics.IncGatewayRejected("rate_limit")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return 0, false
	}
	return userID, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.IncGatewayRejected("validation")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return body, true
}

// check writes a 400 for a validation failure and reports whether to continue.
func (s *Server) check(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	metrics.IncGatewayRejected("validation")
	writeError(w, http.StatusBadRequest, err.Error())
	return false
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request, userID int64, body []byte) {
	resp, err := s.client.Forward(r.Context(), CoreRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		RawQuery:  r.URL.RawQuery,
		UserID:    userID,
		RequestID: w.Header().Get(api.RequestIDHeader),
		Body:      body,
	})
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).Str("path", r.URL.Path).Msg("core unavailable")
		metrics.IncGatewayRejected("core_unavailable")
		writeError(w, http.StatusBadGateway, "core service unavailable")
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
