package anthropic

import (
	"fmt"

	"sentinel-hq/sentinel/pkg/providers"
)

// Wire types for the Anthropic messages API.

type messagesRequest struct {
	Model         string        `json:"model"`
	Messages      []wireMessage `json:"messages"`
	System        string        `json:"system,omitempty"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   float64       `json:"temperature,omitempty"`
	TopP          float64       `json:"top_p,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      wireUsage      `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Streaming wire types. Each SSE event block carries a typed payload;
// the `type` field repeats the event name from the `event:` line.

type streamEvent struct {
	Type         string             `json:"type"`
	Index        int                `json:"index,omitempty"`
	Message      *messagesResponse  `json:"message,omitempty"`
	ContentBlock *contentBlock      `json:"content_block,omitempty"`
	Delta        *streamDelta       `json:"delta,omitempty"`
	Usage        *wireUsage         `json:"usage,omitempty"`
	Error        *streamErrorDetail `json:"error,omitempty"`
}

// streamDelta is shared by content_block_delta (text) and message_delta
// (stop_reason); the type field disambiguates.
type streamDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

type streamErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// defaultMaxTokens applies when the caller leaves max_tokens unset; the
// messages API requires the field.
const defaultMaxTokens = 4096

// toWire converts the agnostic request to the Anthropic wire format.
// System messages move to the dedicated system field, and the remaining
// turns must alternate user/assistant starting with user.
func toWire(req *providers.CompletionRequest, stream bool) (*messagesRequest, error) {
	out := &messagesRequest{
		Model:         req.Model,
		Messages:      make([]wireMessage, 0, len(req.Messages)),
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stream:        stream,
		StopSequences: req.Stop,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = defaultMaxTokens
	}

	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			out.System = msg.Content
			continue
		}
		out.Messages = append(out.Messages, wireMessage{Role: msg.Role, Content: msg.Content})
	}

	if err := validateAlternation(out.Messages); err != nil {
		return nil, err
	}
	return out, nil
}

// validateAlternation enforces the messages API's turn rules: first turn
// from the user, then strict user/assistant alternation.
func validateAlternation(messages []wireMessage) error {
	if len(messages) == 0 {
		return nil
	}
	if messages[0].Role != providers.RoleUser {
		return fmt.Errorf("first message must be from user")
	}
	for i := 1; i < len(messages); i++ {
		if messages[i-1].Role == messages[i].Role {
			return fmt.Errorf("consecutive %s messages at index %d", messages[i].Role, i)
		}
	}
	return nil
}

// fromWire normalizes an Anthropic response, concatenating text blocks.
func fromWire(resp *messagesResponse, provider string) *providers.CompletionResponse {
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      content,
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Provider: provider,
	}
}

// normalizeStopReason maps Anthropic stop reasons to the agnostic set.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	default:
		return reason
	}
}
