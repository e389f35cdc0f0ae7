package providers

import "time"

// Message is a single turn in a conversation. It is provider-agnostic;
// adapters transform it to each provider's wire format.
type Message struct {
	// Role identifies the sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`

	// Name optionally names the sender in multi-party conversations
	Name string `json:"name,omitempty"`
}

// TokenUsage tracks token consumption for a completed request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens generated
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is prompt plus completion
	TotalTokens int `json:"total_tokens"`
}

// CompletionRequest is the provider-agnostic form of a chat completion
// request. Adapters transform it to the provider's wire format.
type CompletionRequest struct {
	// Model is the model identifier (e.g. "gpt-4o", "claude-3-5-sonnet")
	Model string `json:"model"`

	// Messages is the conversation history in order
	Messages []Message `json:"messages"`

	// Temperature controls sampling randomness
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling
	TopP float64 `json:"top_p,omitempty"`

	// Stream requests an incremental SSE response
	Stream bool `json:"stream,omitempty"`

	// Stop sequences halt generation when produced
	Stop []string `json:"stop,omitempty"`

	// User is an optional caller identifier for abuse monitoring
	User string `json:"user,omitempty"`

	// Metadata carries internal request context (client key, request ID).
	// Never sent to the provider.
	Metadata map[string]string `json:"-"`
}

// CompletionResponse is the normalized form of a provider's completion
// response.
type CompletionResponse struct {
	// ID is the provider's response identifier
	ID string `json:"id"`

	// Model is the model that produced the response
	Model string `json:"model"`

	// Content is the generated text
	Content string `json:"content"`

	// FinishReason says why generation stopped (stop, length, content_filter)
	FinishReason string `json:"finish_reason"`

	// Usage holds token counts when the provider reports them
	Usage TokenUsage `json:"usage"`

	// Provider is the name of the provider that served the request
	Provider string `json:"-"`

	// Created is the Unix timestamp of response creation
	Created int64 `json:"created"`
}

// StreamChunk is one canonical event in a streaming response. Every
// provider's stream grammar is normalized into a sequence of chunks
// ending with exactly one chunk where Done is true.
type StreamChunk struct {
	// ID is the response identifier, stable across chunks
	ID string `json:"id"`

	// Model is the model generating the response
	Model string `json:"model"`

	// Delta is the incremental text in this chunk. Empty for the terminal
	// chunk and for chunks that carry only a finish reason.
	Delta string `json:"delta"`

	// FinishReason is set on the chunk that closes generation
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is set on the final chunk when the provider reports it
	Usage *TokenUsage `json:"usage,omitempty"`

	// Done marks the single terminal chunk of the stream
	Done bool `json:"-"`

	// Err reports a mid-stream failure. A chunk with Err set is always
	// the last chunk delivered.
	Err error `json:"-"`

	// Created is the Unix timestamp of the chunk
	Created int64 `json:"created"`
}

// Config holds the per-provider settings adapters need. It is a subset of
// the gateway configuration.
type Config struct {
	// Name is the provider instance name used in routing and logs
	Name string

	// Type selects the adapter (openai or anthropic)
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey authenticates requests to the provider
	APIKey string

	// Timeout bounds a single upstream attempt
	Timeout time.Duration

	// MaxIdleConns caps idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout evicts idle connections after this duration
	IdleConnTimeout time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// Provider type constants
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
)
