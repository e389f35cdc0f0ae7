// Package anthropic implements the Anthropic messages adapter.
//
// The adapter transforms agnostic requests to the messages wire format:
// system messages move to the dedicated system field, remaining turns
// must alternate user/assistant, and max_tokens always gets a value
// since the API requires it.
//
// Streaming uses named SSE event blocks (`event:` plus `data:` lines).
// The decoder interprets each data payload by event name:
// content_block_delta carries text, message_delta carries the stop
// reason and usage, message_stop terminates the stream. Unknown events
// such as ping are ignored.
package anthropic
