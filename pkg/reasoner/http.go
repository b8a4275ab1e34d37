package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/verdict/pkg/telemetry/tracing"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 4 << 10

// HTTPClient sends JSON requests to a provider API. It pools connections,
// maps failures to the typed errors of this package and never retries.
type HTTPClient struct {
	provider string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPClient creates a client for the named provider.
func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		provider: cfg.Name,
		timeout:  cfg.Timeout,
		// The per-call deadline comes from the context; the client timeout
		// is a backstop for callers that pass none.
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// PostJSON marshals reqBody, posts it to url and decodes a 2xx response into
// respBody.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, headers map[string]string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	tracing.Inject(ctx, req.Header)

	c.logger.Debug("Sending request to provider", "provider", c.provider, "url", url)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return &TimeoutError{Provider: c.provider, Timeout: c.timeout}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ProviderError{Provider: c.provider, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.statusError(resp, string(errorBody))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: c.provider, Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return &ParseError{
			Provider:    c.provider,
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

// CloseIdleConnections releases pooled connections.
func (c *HTTPClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

func (c *HTTPClient) statusError(resp *http.Response, body string) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Provider: c.provider, Message: body}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   c.provider,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    body,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &TimeoutError{Provider: c.provider, Timeout: c.timeout}
	default:
		return &ProviderError{Provider: c.provider, StatusCode: resp.StatusCode, Message: body}
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// parseRetryAfter parses delay-seconds or HTTP-date values.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
