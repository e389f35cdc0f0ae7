// Package upstream provides a mock LLM provider server for tests. It
// speaks the OpenAI chat completions wire format, including Server-Sent
// Events streaming, and can be scripted to fail.
package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Response configures what the mock returns for a request.
type Response struct {
	// StatusCode of the reply. Zero means 200.
	StatusCode int

	// Content is the completion text for non-streaming replies.
	Content string

	// StreamChunks are the delta texts emitted for streaming replies,
	// followed by a finish chunk and the [DONE] sentinel.
	StreamChunks []string

	// Delay is applied before the reply starts.
	Delay time.Duration

	// Headers are added to the reply.
	Headers map[string]string
}

// Mock is a scripted OpenAI-compatible upstream.
type Mock struct {
	server   *httptest.Server
	mu       sync.Mutex
	response Response
	requests int
}

// NewMock starts a mock upstream returning a default successful reply.
func NewMock() *Mock {
	m := &Mock{
		response: Response{Content: "mock completion"},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock's base URL.
func (m *Mock) URL() string {
	return m.server.URL
}

// Close shuts the mock down.
func (m *Mock) Close() {
	m.server.Close()
}

// Script replaces the configured response for subsequent requests.
func (m *Mock) Script(r Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = r
}

// Requests reports how many requests the mock has served.
func (m *Mock) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *Mock) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests++
	resp := m.response
	m.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}

	if resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": fmt.Sprintf("scripted failure %d", resp.StatusCode),
				"type":    "server_error",
			},
		})
		return
	}

	var req struct {
		Stream bool `json:"stream"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Stream {
		m.streamReply(w, resp)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "mock-1",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "gpt-4o",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": resp.Content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     9,
			"completion_tokens": 12,
			"total_tokens":      21,
		},
	})
}

func (m *Mock) streamReply(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)

	chunks := resp.StreamChunks
	if len(chunks) == 0 {
		chunks = strings.SplitAfter(resp.Content, " ")
	}

	for _, text := range chunks {
		frame := map[string]any{
			"id":      "mock-1",
			"object":  "chat.completion.chunk",
			"model":   "gpt-4o",
			"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": text}}},
		}
		payload, _ := json.Marshal(frame)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}

	finish := map[string]any{
		"id":      "mock-1",
		"object":  "chat.completion.chunk",
		"model":   "gpt-4o",
		"choices": []map[string]any{{"index": 0, "delta": map[string]any{}, "finish_reason": "stop"}},
	}
	payload, _ := json.Marshal(finish)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
