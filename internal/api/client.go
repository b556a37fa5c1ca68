// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// SessionStore supplies the bearer token for outbound requests and is
// cleared when the backend answers 401.
type SessionStore interface {
	Token() string
	Clear() error
}

// Config holds client configuration.
type Config struct {
	// BaseURL of the backend, e.g. "http://localhost:8080". Required.
	BaseURL string
	// Sessions supplies and owns the bearer token. Required.
	Sessions SessionStore
	// OnUnauthorized runs after a 401 response clears the session. The
	// caller uses it to force navigation back to login. Optional.
	OnUnauthorized func()
	// HTTPClient overrides the default 30s-timeout client. Optional.
	HTTPClient *http.Client
	// Limiter throttles outbound requests. Optional.
	Limiter *rate.Limiter
}

// Client performs all storefront network operations against the backend.
// Every operation is fire-once: no retries, no backoff.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	sessions       SessionStore
	onUnauthorized func()
	limiter        *rate.Limiter
	tracer         trace.Tracer
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("Sessions is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:     httpClient,
		sessions:       cfg.Sessions,
		onUnauthorized: cfg.OnUnauthorized,
		limiter:        cfg.Limiter,
		tracer:         otel.Tracer("bookhub/api"),
	}, nil
}

// do performs one request and returns the raw response body. Policies applied
// here hold for every operation: bearer-token attachment, the process-wide
// 401 reaction, and uniform error shaping.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "api."+method+" "+path,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	var reqBody io.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
		}
		reqBody = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, &Error{Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	var clearErr error
	if resp.StatusCode == http.StatusUnauthorized {
		// Process-wide reaction, independent of which call triggered it.
		clearErr = c.sessions.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(resp.StatusCode, respBody)
		if clearErr != nil {
			// A stale token that cannot be cleared will ride along on the
			// next request; the caller needs to know.
			apiErr.Message = fmt.Sprintf("%s (clear session: %v)", apiErr.Message, clearErr)
		}
		span.RecordError(apiErr)
		return nil, apiErr
	}

	return respBody, nil
}
