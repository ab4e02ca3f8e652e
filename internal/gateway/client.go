package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/api"
	"shareit/internal/config"

	"github.com/rs/zerolog"
)

// CoreRequest is one call forwarded to the core service.
type CoreRequest struct {
	Method    string
	Path      string
	RawQuery  string
	UserID    int64 // zero omits the identity header
	RequestID string
	Body      []byte
}

// CoreResponse is the core's reply, passed back to the caller unchanged.
type CoreResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// CoreClient calls the core HTTP API with the gateway's API key.
type CoreClient struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zerolog.Logger
}

func NewCoreClient(cfg config.GatewayConfig, logger *zerolog.Logger) *CoreClient {
	return &CoreClient{
		baseURL:    strings.TrimRight(cfg.CoreURL, "/"),
		apiKey:     cfg.APIKey,
		apiExtra:   cfg.APIExtra,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      NewRetryPolicy(cfg.Retry),
		logger:     logger,
	}
}

// Forward sends req to the core. GET requests are retried on transport
// failures; anything the core answers is returned as is.
func (c *CoreClient) Forward(ctx context.Context, req CoreRequest) (*CoreResponse, error) {
	attempts := 1
	if req.Method == http.MethodGet && c.retry.MaxRetries > 0 {
		attempts += c.retry.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.retry.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Str("method", req.Method).Str("path", req.Path).Int("attempt", attempt).Msg("core request failed")
	}
	return nil, fmt.Errorf("core request %s %s: %w", req.Method, req.Path, lastErr)
}

func (c *CoreClient) do(ctx context.Context, req CoreRequest) (*CoreResponse, error) {
	endpoint := c.baseURL + req.Path
	if req.RawQuery != "" {
		endpoint += "?" + req.RawQuery
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.UserID != 0 {
		httpReq.Header.Set(api.UserIDHeader, strconv.FormatInt(req.UserID, 10))
	}
	if req.RequestID != "" {
		httpReq.Header.Set(api.RequestIDHeader, req.RequestID)
	}
	c.addHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read core response: %w", err)
	}

	return &CoreResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func (c *CoreClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
}
