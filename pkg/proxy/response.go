package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/proxy/types"
	"sentinel-hq/sentinel/pkg/ratelimit"
)

const (
	// ProcessTimeHeader reports gateway processing time in milliseconds.
	ProcessTimeHeader = "X-Process-Time"

	// RateLimitLimitHeader reports the client's rate-limit ceiling.
	RateLimitLimitHeader = "X-RateLimit-Limit"

	// RateLimitRemainingHeader reports the client's remaining allowance.
	RateLimitRemainingHeader = "X-RateLimit-Remaining"

	// CacheStatusHeader reports whether the response came from cache.
	CacheStatusHeader = "X-Cache"

	// sseDone is the terminal sentinel frame of a streaming response.
	sseDone = "data: [DONE]\n\n"
)

// NewResponseID generates a completion identifier in chatcmpl-<uuid> form.
func NewResponseID() string {
	return "chatcmpl-" + uuid.NewString()
}

// FormatChatCompletionResponse converts a provider response to the outbound
// wire format. The requested model name is echoed back regardless of which
// provider served the request.
func FormatChatCompletionResponse(resp *providers.CompletionResponse, requestedModel string) *types.ChatCompletionResponse {
	id := resp.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &types.ChatCompletionResponse{
		ID:      "chatcmpl-" + id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   requestedModel,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.ChatMessage{
					Role:    providers.RoleAssistant,
					Content: resp.Content,
				},
				FinishReason: resp.FinishReason,
			},
		},
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// FormatStreamChunk converts a canonical stream chunk to the outbound SSE
// frame format.
func FormatStreamChunk(chunk *providers.StreamChunk, requestedModel, responseID string) *types.ChatCompletionChunk {
	out := &types.ChatCompletionChunk{
		ID:      responseID,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   requestedModel,
		Choices: []types.StreamChoice{
			{
				Index: 0,
				Delta: types.Delta{Content: chunk.Delta},
			},
		},
	}

	if chunk.FinishReason != "" {
		reason := chunk.FinishReason
		out.Choices[0].FinishReason = &reason
	}

	return out
}

// WriteJSONResponse writes data as a JSON response body with the given status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes an error response with the status code implied by
// its error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) {
	_ = WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// SetSSEHeaders prepares the response for a Server-Sent Events stream.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteSSEChunk writes one data frame and flushes it to the client.
func WriteSSEChunk(w http.ResponseWriter, chunk *types.ChatCompletionChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal stream chunk: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// WriteSSEDone writes the terminal [DONE] frame and flushes it.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, sseDone); err != nil {
		return err
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// SetRateLimitHeaders attaches rate-limit metadata to the response. When the
// request was rejected, a Retry-After header is included as well.
func SetRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set(RateLimitLimitHeader, strconv.FormatInt(d.Limit, 10))
	w.Header().Set(RateLimitRemainingHeader, strconv.FormatInt(d.Remaining, 10))

	if !d.Allowed && d.RetryAfter > 0 {
		secs := int(d.RetryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
}

// SetProcessTime records elapsed gateway processing time on the response.
func SetProcessTime(w http.ResponseWriter, start time.Time) {
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	w.Header().Set(ProcessTimeHeader, strconv.FormatFloat(ms, 'f', 2, 64))
}
