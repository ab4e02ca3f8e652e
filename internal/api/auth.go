package api

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"shareit/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadBookings  = "read:bookings"
	permWriteBookings = "write:bookings"
	permReadItems     = "read:items"
	permWriteItems    = "write:items"
	permReadUsers     = "read:users"
	permWriteUsers    = "write:users"
)

var (
	errMissingAPIKey    = errors.New("missing api key headers")
	errInvalidAPIKey    = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// HTTPAuth provides API-key auth and per-client rate limiting for the core API.
// Health probes bypass both.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	extra := strings.TrimSpace(r.Header.Get(a.extraHeader()))
	if apiKey == "" || extra == "" {
		return errMissingAPIKey
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}

	return checkPermissions(client, requiredPermission(r))
}

func checkPermissions(client config.APIClientKey, required string) error {
	if required == "" {
		return nil
	}
	// An empty permission list allows everything.
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	write := r.Method != http.MethodGet && r.Method != http.MethodHead

	var resource string
	switch {
	case strings.HasPrefix(r.URL.Path, "/bookings"):
		resource = "bookings"
	case strings.HasPrefix(r.URL.Path, "/items"):
		resource = "items"
	case strings.HasPrefix(r.URL.Path, "/users"):
		resource = "users"
	default:
		return ""
	}

	switch {
	case resource == "bookings" && write:
		return permWriteBookings
	case resource == "bookings":
		return permReadBookings
	case resource == "items" && write:
		return permWriteItems
	case resource == "items":
		return permReadItems
	case resource == "users" && write:
		return permWriteUsers
	default:
		return permReadUsers
	}
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func (a *HTTPAuth) apiKeyHeader() string {
	if h := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey); h != "" {
		return h
	}
	return apiKeyHeaderDefault
}

func (a *HTTPAuth) extraHeader() string {
	if h := strings.TrimSpace(a.cfg.Auth.HeaderExtra); h != "" {
		return h
	}
	return apiExtraHeaderDefault
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz"
}
