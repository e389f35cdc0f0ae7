//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel-hq/sentinel/internal/upstream"
	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/server"
)

// newGateway wires a full gateway in front of a scripted mock upstream.
func newGateway(t *testing.T, mock *upstream.Mock, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"openai": {
				BaseURL: mock.URL(),
				APIKey:  "sk-test",
				Timeout: 5 * time.Second,
			},
		},
		Routing: config.RoutingConfig{Preference: []string{"openai"}},
	}
	config.ApplyDefaults(cfg)
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(cfg, logger)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postCompletion(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url+"/v1/chat/completions", "application/json",
		bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

const chatBody = `{"model": "gpt-4o", "messages": [{"role": "user", "content": "hello"}]}`

// ===== End-to-End =====

func TestGatewayCompletion(t *testing.T) {
	mock := upstream.NewMock()
	defer mock.Close()
	mock.Script(upstream.Response{Content: "integration reply"})

	gw := newGateway(t, mock, nil)
	resp, body := postCompletion(t, gw.URL, chatBody)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Choices) != 1 || out.Choices[0].Message.Content != "integration reply" {
		t.Errorf("choices = %+v", out.Choices)
	}

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "" {
		t.Error("missing X-RateLimit-Remaining")
	}
}

func TestGatewayCaching(t *testing.T) {
	mock := upstream.NewMock()
	defer mock.Close()

	gw := newGateway(t, mock, nil)

	if resp, _ := postCompletion(t, gw.URL, chatBody); resp.StatusCode != http.StatusOK {
		t.Fatal("seed request failed")
	}
	resp, _ := postCompletion(t, gw.URL, chatBody)

	if got := resp.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if mock.Requests() != 1 {
		t.Errorf("upstream requests = %d, want 1", mock.Requests())
	}
}

func TestGatewayStreaming(t *testing.T) {
	mock := upstream.NewMock()
	defer mock.Close()
	mock.Script(upstream.Response{StreamChunks: []string{"Hello", ", ", "world"}})

	gw := newGateway(t, mock, nil)
	body := `{"model": "gpt-4o", "messages": [{"role": "user", "content": "hello"}], "stream": true}`
	resp, data := postCompletion(t, gw.URL, body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	text := string(data)
	if !strings.HasSuffix(strings.TrimSpace(text), "data: [DONE]") {
		t.Errorf("stream did not end with [DONE]: %q", text)
	}
	if strings.Count(text, "data: [DONE]") != 1 {
		t.Error("more than one terminal marker")
	}
	for _, want := range []string{"Hello", "world"} {
		if !strings.Contains(text, want) {
			t.Errorf("stream missing delta %q", want)
		}
	}
}

func TestGatewayRateLimit(t *testing.T) {
	mock := upstream.NewMock()
	defer mock.Close()

	gw := newGateway(t, mock, func(cfg *config.Config) {
		cfg.Limits.MaxRequests = 1
		cfg.Cache.Enabled = new(bool) // disable so both requests reach admission
	})

	if resp, _ := postCompletion(t, gw.URL, chatBody); resp.StatusCode != http.StatusOK {
		t.Fatal("first request failed")
	}

	resp, _ := postCompletion(t, gw.URL, chatBody)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestGatewayUpstreamFailure(t *testing.T) {
	mock := upstream.NewMock()
	defer mock.Close()
	mock.Script(upstream.Response{StatusCode: http.StatusInternalServerError})

	gw := newGateway(t, mock, func(cfg *config.Config) {
		cfg.Retry.MaxAttempts = 1
	})

	resp, body := postCompletion(t, gw.URL, chatBody)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestGatewayPIIBlock(t *testing.T) {
	mock := upstream.NewMock()
	defer mock.Close()

	gw := newGateway(t, mock, func(cfg *config.Config) {
		cfg.Shield.PIIAction = "block"
	})

	body := `{"model": "gpt-4o", "messages": [{"role": "user", "content": "card 4111 1111 1111 1111"}]}`
	resp, _ := postCompletion(t, gw.URL, body)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if mock.Requests() != 0 {
		t.Error("blocked request reached upstream")
	}
}
