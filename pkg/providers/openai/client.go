package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"sentinel-hq/sentinel/pkg/providers"
)

const completionsPath = "/v1/chat/completions"

// Client is the OpenAI adapter. It speaks the chat completions API and
// normalizes both response shapes onto the agnostic types.
type Client struct {
	*providers.HTTPProvider
}

// New creates an OpenAI adapter from the provider configuration.
func New(config providers.Config) *Client {
	return &Client{HTTPProvider: providers.NewHTTPProvider(config)}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.Config().APIKey,
	}
}

// Complete performs one non-streaming completion attempt.
func (c *Client) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	var wireResp chatResponse
	if err := c.PostJSON(ctx, completionsPath, toWire(req, false), &wireResp, c.headers()); err != nil {
		return nil, err
	}

	resp, err := fromWire(&wireResp, c.Name())
	if err != nil {
		return nil, &providers.ParseError{Provider: c.Name(), Cause: err}
	}
	return resp, nil
}

// Stream performs one streaming completion attempt. The response is an
// SSE sequence of `data: <json>` lines ending with the literal `[DONE]`
// sentinel; decodeStream normalizes it chunk by chunk.
func (c *Client) Stream(ctx context.Context, req *providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	body, err := json.Marshal(toWire(req, true))
	if err != nil {
		return nil, &providers.ProviderError{Provider: c.Name(), Message: "marshal request", Cause: err}
	}

	resp, err := c.Post(ctx, completionsPath, body, c.headers())
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
	req.Header.Set("Authorization", "Bearer "+c.Config().APIKey)

	httpClient := &http.Client{Timeout: c.Config().Timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &providers.ProviderError{Provider: c.Name(), Message: "health check failed", Cause: err}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return nil
}
