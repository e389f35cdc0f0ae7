package providers

import "context"

// Provider is the adapter contract every upstream implements. Adapters
// transform the agnostic request into the provider's wire format, perform
// exactly one upstream attempt per call, and normalize the result.
//
// Methods must honor context cancellation and return promptly once the
// context is done. Retry and failover live above this interface.
type Provider interface {
	// Complete performs a non-streaming completion. Failures come back as
	// the typed errors in this package so callers can classify them.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream performs a streaming completion. The returned channel yields
	// canonical chunks and always ends with exactly one terminal chunk:
	// either Done set after a clean finish, or Err set after a mid-stream
	// failure. The channel is closed after the terminal chunk.
	//
	// An error return means the request never produced a stream (the
	// upstream rejected it before any bytes arrived); in that case no
	// channel is returned.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)

	// Name returns the provider instance name used in routing and logs.
	Name() string

	// Type returns the adapter type (openai or anthropic).
	Type() string

	// Close releases adapter resources. The provider must not be used
	// afterwards.
	Close() error
}
