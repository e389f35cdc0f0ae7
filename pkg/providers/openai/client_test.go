package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel-hq/sentinel/pkg/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(providers.Config{
		Name:    "openai",
		Type:    providers.TypeOpenAI,
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestComplete_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}

		var wire chatRequest
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if wire.Stream {
			t.Error("non-streaming call set stream=true")
		}
		if wire.N != 1 {
			t.Errorf("n = %d, want 1", wire.N)
		}

		json.NewEncoder(w).Encode(chatResponse{
			ID:      "cc-123",
			Model:   wire.Model,
			Created: 1700000000,
			Choices: []chatChoice{{
				Message:      chatMessage{Role: "assistant", Content: "Hello there"},
				FinishReason: "stop",
			}},
			Usage: chatUsage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13},
		})
	})

	resp, err := client.Complete(context.Background(), &providers.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Hello there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 13 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
	if resp.Provider != "openai" {
		t.Errorf("provider = %q", resp.Provider)
	}
}

func TestComplete_AuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := client.Complete(context.Background(), &providers.CompletionRequest{Model: "gpt-4o"})
	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthError, got %T: %v", err, err)
	}
	if providers.IsRetryable(err) {
		t.Error("auth errors must not be retryable")
	}
}

func TestComplete_RateLimitCarriesRetryAfter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), &providers.CompletionRequest{Model: "gpt-4o"})
	var rlErr *providers.RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("want RateLimitError, got %T: %v", err, err)
	}
	if rlErr.RetryAfter != 12*time.Second {
		t.Errorf("retry after = %s, want 12s", rlErr.RetryAfter)
	}
}

func TestComplete_ServerErrorIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), &providers.CompletionRequest{Model: "gpt-4o"})
	if err == nil {
		t.Fatal("want error")
	}
	if !providers.IsRetryable(err) {
		t.Errorf("502 should be retryable, got %v", err)
	}
}

func TestStream_EndToEnd(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var wire chatRequest
		json.NewDecoder(r.Body).Decode(&wire)
		if !wire.Stream {
			t.Error("streaming call did not set stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			deltaFrame("Hel"), deltaFrame("lo"), deltaFrame(", world"),
			"data: [DONE]\n\n",
		} {
			w.Write([]byte(frame))
			flusher.Flush()
		}
	})

	chunks, err := client.Stream(context.Background(), &providers.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var text string
	terminals := 0
	for chunk := range chunks {
		if chunk.Done {
			terminals++
			continue
		}
		text += chunk.Delta
	}
	if text != "Hello, world" {
		t.Errorf("assembled text = %q", text)
	}
	if terminals != 1 {
		t.Errorf("terminal chunks = %d, want 1", terminals)
	}
}

func TestStream_UpstreamRejectionReturnsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Stream(context.Background(), &providers.CompletionRequest{Model: "gpt-4o"})
	if err == nil {
		t.Fatal("rejected stream should return an error, not a channel")
	}
}
