package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"sentinel-hq/sentinel/pkg/providers"
)

const (
	messagesPath = "/v1/messages"
	apiVersion   = "2023-06-01"
)

// Client is the Anthropic adapter. It speaks the messages API and
// normalizes both response shapes onto the agnostic types.
type Client struct {
	*providers.HTTPProvider
}

// New creates an Anthropic adapter from the provider configuration.
func New(config providers.Config) *Client {
	return &Client{HTTPProvider: providers.NewHTTPProvider(config)}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.Config().APIKey,
		"anthropic-version": apiVersion,
	}
}

// Complete performs one non-streaming completion attempt.
func (c *Client) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	wireReq, err := toWire(req, false)
	if err != nil {
		return nil, &providers.ProviderError{Provider: c.Name(), Message: err.Error(), StatusCode: http.StatusBadRequest}
	}

	var wireResp messagesResponse
	if err := c.PostJSON(ctx, messagesPath, wireReq, &wireResp, c.headers()); err != nil {
		return nil, err
	}
	return fromWire(&wireResp, c.Name()), nil
}

// Stream performs one streaming completion attempt. The response is an
// SSE sequence of named event blocks; decodeStream normalizes them.
func (c *Client) Stream(ctx context.Context, req *providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	wireReq, err := toWire(req, true)
	if err != nil {
		return nil, &providers.ProviderError{Provider: c.Name(), Message: err.Error(), StatusCode: http.StatusBadRequest}
	}
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, &providers.ProviderError{Provider: c.Name(), Message: "marshal request", Cause: err}
	}

	resp, err := c.Post(ctx, messagesPath, body, c.headers())
	if err != nil {
		return nil, err
	}

	out := make(chan providers.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		decodeStream(ctx, resp.Body, c.Name(), out)
	}()
	return out, nil
}

// HealthCheck verifies the endpoint answers at all. Any HTTP response,
// including 4xx, counts as reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Config().BaseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.Config().APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	httpClient := &http.Client{Timeout: c.Config().Timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &providers.ProviderError{Provider: c.Name(), Message: "health check failed", Cause: err}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return nil
}
