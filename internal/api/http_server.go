package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// UserIDHeader carries the acting user's id on every domain request.
	UserIDHeader    = "X-Sharer-User-Id"
	RequestIDHeader = "X-Request-Id"

	maxBodyBytes = 1 << 20
)

// Pinger reports store readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services bundles what the HTTP layer dispatches to.
type Services struct {
	Bookings *service.BookingService
	Items    *service.ItemService
	Users    *service.UserService
	Store    Pinger
}

// HTTPServer exposes the booking, item and user operations over JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	services Services
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, services Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		services: services,
		auth:     NewHTTPAuth(cfg),
		logger:   logging.Component(logger, "http"),
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           RequestLogging(srv.logger, srv.auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /bookings", s.handleAddBooking)
	mux.HandleFunc("PATCH /bookings/{bookingId}", s.handleSetApproval)
	mux.HandleFunc("GET /bookings/{bookingId}", s.handleGetBooking)
	mux.HandleFunc("GET /bookings", s.handleListForBooker)
	mux.HandleFunc("GET /bookings/owner", s.handleListForOwner)

	mux.HandleFunc("POST /items", s.handleCreateItem)
	mux.HandleFunc("PATCH /items/{itemId}", s.handleUpdateItem)
	mux.HandleFunc("GET /items/{itemId}", s.handleGetItem)
	mux.HandleFunc("GET /items", s.handleOwnerItems)
	mux.HandleFunc("GET /items/search", s.handleSearchItems)

	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/{userId}", s.handleGetUser)
	mux.HandleFunc("PATCH /users/{userId}", s.handleUpdateUser)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.services.Store == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.services.Store.PingContext(ctx); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn().Err(err).Msg("store not ready")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequestLogging assigns a request id, stores a request-scoped logger in the
// context and logs every completed request.
func RequestLogging(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		r = r.WithContext(logging.WithRequestID(r.Context(), logger, requestID))

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// actorID reads the acting user from the identity header.
func actorID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return 0, fmt.Errorf("%s header is required", UserIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s header must be an integer", UserIDHeader)
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
