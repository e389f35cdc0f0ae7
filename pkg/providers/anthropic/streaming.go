package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"sentinel-hq/sentinel/pkg/providers"
)

// decodeStream reads Anthropic's SSE framing from r and emits normalized
// chunks on out. Framing: events are blocks of `event: <name>` and
// `data: <json>` lines separated by blank lines; the data payload is
// interpreted according to the event name, and message_stop closes the
// stream.
//
// Decoding rules match the OpenAI decoder: empty deltas dropped, unknown
// event types ignored, malformed data skipped without aborting, and
// exactly one terminal chunk however the stream ends.
//
// The caller owns closing r.
func decodeStream(ctx context.Context, r io.Reader, provider string, out chan<- providers.StreamChunk) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var id, model, finishReason string
	var usage *providers.TokenUsage
	var streamErr error

	terminal := func(err error) providers.StreamChunk {
		return providers.StreamChunk{
			ID:           id,
			Model:        model,
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

	var eventName string
	for scanner.Scan() {
		if ctx.Err() != nil {
			select {
			case out <- terminal(ctx.Err()):
			default:
			}
			return
		}

		line := scanner.Text()
		if line == "" {
			// Blank line ends the event block; the next block starts fresh.
			eventName = ""
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// One bad fragment does not abort the stream.
			continue
		}
		// The payload's type field is authoritative over the event line.
		name := event.Type
		if name == "" {
			name = eventName
		}

		switch name {
		case "message_start":
			if event.Message != nil {
				id = event.Message.ID
				model = event.Message.Model
			}

		case "content_block_delta":
			if event.Delta == nil || event.Delta.Text == "" {
				continue
			}
			if !emit(providers.StreamChunk{
				ID:      id,
				Model:   model,
				Delta:   event.Delta.Text,
				Created: time.Now().Unix(),
			}) {
				select {
				case out <- terminal(ctx.Err()):
				default:
				}
				return
			}

		case "message_delta":
			if event.Delta != nil && event.Delta.StopReason != "" {
				finishReason = normalizeStopReason(event.Delta.StopReason)
			}
			if event.Usage != nil {
				usage = &providers.TokenUsage{
					CompletionTokens: event.Usage.OutputTokens,
					TotalTokens:      event.Usage.InputTokens + event.Usage.OutputTokens,
					PromptTokens:     event.Usage.InputTokens,
				}
			}

		case "message_stop":
			emit(terminal(streamErr))
			return

		case "error":
			// Remember the failure; the terminal chunk carries it so no
			// error text ever lands in the content channel.
			if event.Error != nil {
				streamErr = &providers.StreamError{
					Provider: provider,
					Message:  event.Error.Message,
				}
			}

		default:
			// ping, content_block_start, content_block_stop, future events
		}
	}

	if err := scanner.Err(); err != nil {
		emit(terminal(&providers.StreamError{
			Provider: provider,
			Message:  "stream read failed",
			Cause:    err,
		}))
		return
	}
	// Connection closed without message_stop.
	emit(terminal(streamErr))
}
