package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// AuthorizationHeader carries the client API key.
	AuthorizationHeader = "Authorization"

	// APIKeyHeader is an alternative header for the client API key.
	APIKeyHeader = "X-API-Key"

	// UserIDHeader carries an opaque end-user identifier.
	UserIDHeader = "X-User-ID"
)

// RequestError is a validation or parse failure on an inbound request.
type RequestError struct {
	Message string
	Param   string
	Code    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts the request error to the wire error format.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}

// ParseChatCompletionRequest decodes and validates an inbound chat completion
// request. The body is capped at MaxRequestBodySize.
func ParseChatCompletionRequest(r *http.Request) (*types.ChatCompletionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("failed to read request body: %v", err),
			Param:   "body",
			Code:    types.CodeInvalidJSON,
		}
	}

	if len(body) > MaxRequestBodySize {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Param:   "body",
			Code:    types.CodeRequestTooLarge,
		}
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Param:   "body",
			Code:    types.CodeInvalidJSON,
		}
	}

	if err := req.Validate(); err != nil {
		if valErr, ok := err.(*types.ValidationError); ok {
			return nil, &RequestError{
				Message: valErr.Message,
				Param:   valErr.Field,
				Code:    types.CodeInvalidValue,
			}
		}
		return nil, err
	}

	return &req, nil
}

// ToCompletionRequest converts the wire request to the provider-neutral form.
func ToCompletionRequest(req *types.ChatCompletionRequest) *providers.CompletionRequest {
	out := &providers.CompletionRequest{
		Model:    req.Model,
		Messages: make([]providers.Message, 0, len(req.Messages)),
		Stream:   req.Stream,
		User:     req.User,
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, providers.Message{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		})
	}

	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		out.TopP = *req.TopP
	}
	if len(req.Stop) > 0 {
		out.Stop = req.Stop
	}

	return out
}

// ClientKey derives the rate-limit identity for a request. It prefers the
// API key (Authorization bearer token or X-API-Key), then the X-User-ID
// header, then the remote IP address.
func ClientKey(r *http.Request) string {
	if auth := r.Header.Get(AuthorizationHeader); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
		return auth
	}

	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}

	if uid := r.Header.Get(UserIDHeader); uid != "" {
		return uid
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
