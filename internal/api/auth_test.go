package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shareit/internal/config"

	"github.com/stretchr/testify/assert"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "gateway-key", Extra: "gateway-extra", Name: "gateway"},
				{Key: "reader-key", Extra: "reader-extra", Name: "reader", Permissions: []string{"read:items", "read:bookings"}},
			},
		},
	}
}

func serveAuth(auth *HTTPAuth, req *http.Request) int {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	auth.Wrap(next).ServeHTTP(rec, req)
	return rec.Code
}

func TestHTTPAuth(t *testing.T) {
	auth := NewHTTPAuth(authConfig())

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		extra  string
		want   int
	}{
		{"ValidFullAccess", http.MethodPost, "/bookings", "gateway-key", "gateway-extra", http.StatusNoContent},
		{"MissingHeaders", http.MethodGet, "/items", "", "", http.StatusUnauthorized},
		{"UnknownKey", http.MethodGet, "/items", "nope", "gateway-extra", http.StatusUnauthorized},
		{"WrongExtra", http.MethodGet, "/items", "gateway-key", "wrong", http.StatusUnauthorized},
		{"ReaderCanRead", http.MethodGet, "/bookings/owner", "reader-key", "reader-extra", http.StatusNoContent},
		{"ReaderCannotWrite", http.MethodPatch, "/bookings/1", "reader-key", "reader-extra", http.StatusForbidden},
		{"ReaderCannotReadUsers", http.MethodGet, "/users/1", "reader-key", "reader-extra", http.StatusForbidden},
		{"ProbeBypassesAuth", http.MethodGet, "/healthz", "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			if tt.extra != "" {
				req.Header.Set("x-api-extra", tt.extra)
			}
			assert.Equal(t, tt.want, serveAuth(auth, req))
		})
	}
}

func TestHTTPAuthDisabled(t *testing.T) {
	auth := NewHTTPAuth(config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	assert.Equal(t, http.StatusNoContent, serveAuth(auth, req))
}

func TestHTTPRateLimit(t *testing.T) {
	cfg := authConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	auth := NewHTTPAuth(cfg)

	newReq := func(key, extra string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.Header.Set("x-api-key", key)
		req.Header.Set("x-api-extra", extra)
		return req
	}

	assert.Equal(t, http.StatusNoContent, serveAuth(auth, newReq("gateway-key", "gateway-extra")))
	assert.Equal(t, http.StatusTooManyRequests, serveAuth(auth, newReq("gateway-key", "gateway-extra")))
	// buckets are per client
	assert.Equal(t, http.StatusNoContent, serveAuth(auth, newReq("reader-key", "reader-extra")))
}

func TestRequiredPermission(t *testing.T) {
	cases := map[string]string{
		"GET /bookings":     permReadBookings,
		"POST /bookings":    permWriteBookings,
		"PATCH /items/3":    permWriteItems,
		"GET /items/search": permReadItems,
		"POST /users":       permWriteUsers,
		"GET /users/1":      permReadUsers,
		"GET /something":    "",
	}
	for route, want := range cases {
		method, path, _ := strings.Cut(route, " ")
		req := httptest.NewRequest(method, path, nil)
		assert.Equal(t, want, requiredPermission(req), route)
	}
}
