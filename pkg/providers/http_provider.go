package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider is the shared base for HTTP-based adapters. It owns the
// pooled client and the common request plumbing: a single attempt per
// call, with status codes classified into typed errors. Retry and
// failover decisions belong to the caller, not the transport.
type HTTPProvider struct {
	config Config
	client *http.Client
}

// NewHTTPProvider creates the base adapter with a pooled HTTP transport.
func NewHTTPProvider(config Config) *HTTPProvider {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Name returns the provider instance name.
func (p *HTTPProvider) Name() string {
	return p.config.Name
}

// Type returns the adapter type.
func (p *HTTPProvider) Type() string {
	return p.config.Type
}

// Config returns the provider configuration.
func (p *HTTPProvider) Config() Config {
	return p.config
}

// Post sends one JSON request and returns the response if the status is
// 2xx. Non-2xx statuses are classified: 401/403 into AuthError, 429 into
// RateLimitError with the Retry-After hint, everything else into
// ProviderError. Exactly one attempt; no retries here.
//
// The caller owns resp.Body and must close it.
func (p *HTTPProvider) Post(ctx context.Context, path string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{
			Provider: p.config.Name,
			Message:  "request failed",
			Cause:    err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Provider: p.config.Name, Message: string(errorBody)}
	case http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    string(errorBody),
		}
	default:
		return nil, &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
	}
}

// PostJSON sends a JSON request and decodes the 2xx response into out.
func (p *HTTPProvider) PostJSON(ctx context.Context, path string, in, out interface{}, headers map[string]string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.Post(ctx, path, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("read response: %w", err)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// Close releases pooled connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// ParseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form. Returns 0 when the header is absent or unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
