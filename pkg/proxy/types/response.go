package types

// ChatCompletionResponse is the outbound wire format for a non-streaming
// completion.
type ChatCompletionResponse struct {
	// ID uniquely identifies the completion (format: chatcmpl-<id>).
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp when the response was generated.
	Created int64 `json:"created"`

	// Model is the model name the client asked for.
	Model string `json:"model"`

	// Choices holds the generated completion. Exactly one entry.
	Choices []Choice `json:"choices"`

	// Usage reports token consumption for the request.
	Usage Usage `json:"usage"`
}

// Choice is a single completion alternative.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage reports token counts for billing and limits.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is a single Server-Sent Events frame for a streaming
// completion.
type ChatCompletionChunk struct {
	// ID matches across all chunks of one completion.
	ID string `json:"id,omitempty"`

	// Object is always "chat.completion.chunk".
	Object string `json:"object,omitempty"`

	// Created is the Unix timestamp of the chunk.
	Created int64 `json:"created,omitempty"`

	// Model is the model name the client asked for.
	Model string `json:"model,omitempty"`

	// Choices carries the incremental delta. Exactly one entry.
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is the per-chunk counterpart of Choice.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Delta holds the incremental content of a streaming chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}
