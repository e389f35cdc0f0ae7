package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"sentinel-hq/sentinel/pkg/providers"
)

// doneSentinel terminates the OpenAI SSE stream.
const doneSentinel = "[DONE]"

// decodeStream reads OpenAI's SSE framing from r and emits normalized
// chunks on out. Framing: each event is a `data: <json>` line; the
// literal `data: [DONE]` closes the stream.
//
// Decoding rules:
//   - empty deltas are dropped, never emitted
//   - non-data lines (comments, event names) are ignored
//   - a malformed data line is skipped; the rest of the stream continues
//   - exactly one terminal chunk is emitted, whether the stream finished
//     with the sentinel, hit EOF, failed mid-read, or was cancelled
//
// The caller owns closing r.
func decodeStream(ctx context.Context, r io.Reader, provider string, out chan<- providers.StreamChunk) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var finishReason string
	var usage *providers.TokenUsage

	terminal := func(err error) providers.StreamChunk {
		return providers.StreamChunk{
			FinishReason: finishReason,
			Usage:        usage,
			Done:         true,
			Err:          err,
			Created:      time.Now().Unix(),
		}
	}

	emit := func(chunk providers.StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			emitNonBlocking(out, terminal(ctx.Err()))
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == doneSentinel {
			emit(terminal(nil))
			return
		}

		var wire streamResponse
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			// One bad fragment does not abort the stream.
			continue
		}
		if len(wire.Choices) == 0 {
			continue
		}
		choice := wire.Choices[0]

		if choice.FinishReason != "" {
			finishReason = normalizeFinishReason(choice.FinishReason)
		}
		if wire.Usage != nil {
			usage = &providers.TokenUsage{
				PromptTokens:     wire.Usage.PromptTokens,
				CompletionTokens: wire.Usage.CompletionTokens,
				TotalTokens:      wire.Usage.TotalTokens,
			}
		}
		if choice.Delta.Content == "" {
			continue
		}

		if !emit(providers.StreamChunk{
			ID:      wire.ID,
			Model:   wire.Model,
			Delta:   choice.Delta.Content,
			Created: wire.Created,
		}) {
			emitNonBlocking(out, terminal(ctx.Err()))
			return
		}
	}

	// Stream ended without the sentinel: dropped connection or read error.
	if err := scanner.Err(); err != nil {
		emit(terminal(&providers.StreamError{
			Provider: provider,
			Message:  "stream read failed",
			Cause:    err,
		}))
		return
	}
	emit(terminal(nil))
}

// emitNonBlocking delivers the terminal chunk if a receiver is waiting,
// so cancelled streams still end with a terminal when possible.
func emitNonBlocking(out chan<- providers.StreamChunk, chunk providers.StreamChunk) {
	select {
	case out <- chunk:
	default:
	}
}
