package types

import "net/http"

// Error type constants used in the "type" field of error responses.
const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeContentPolicy indicates the request was rejected by a
	// content policy, such as a sensitive-data block (400).
	ErrorTypeContentPolicy = "content_policy_violation"

	// ErrorTypeRateLimitExceeded indicates the client exceeded its rate limit (429).
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"

	// ErrorTypeServer indicates an internal gateway error (500).
	ErrorTypeServer = "server_error"

	// ErrorTypeBadGateway indicates an upstream provider failure (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates no provider is currently
	// accepting traffic, typically because circuit breakers are open (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeGatewayTimeout indicates the upstream provider timed out (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"
)

// Error code constants used in the "code" field of error responses.
const (
	CodeInvalidJSON       = "invalid_json"
	CodeInvalidValue      = "invalid_value"
	CodeRequestTooLarge   = "request_too_large"
	CodeSensitiveContent  = "sensitive_content_detected"
	CodeInjectionDetected = "prompt_injection_detected"
	CodeUnknownProvider   = "unknown_provider"
	CodeRateLimited       = "rate_limit_exceeded"
	CodeBreakerOpen       = "circuit_open"
	CodeUpstreamFailed    = "upstream_failed"
	CodeUpstreamTimeout   = "upstream_timeout"
)

// ErrorResponse is the wire format for all error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error payload.
type ErrorDetail struct {
	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Type classifies the error (see ErrorType* constants).
	Type string `json:"type"`

	// Param names the request parameter at fault, if any.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code (see Code* constants).
	Code string `json:"code,omitempty"`
}

// HTTPStatusCode maps the error type to an HTTP status code.
func (d *ErrorDetail) HTTPStatusCode() int {
	switch d.Type {
	case ErrorTypeInvalidRequest, ErrorTypeContentPolicy:
		return http.StatusBadRequest
	case ErrorTypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse constructs an ErrorResponse with all fields.
func NewErrorResponse(message, errType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError builds a 400 invalid-request error.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewContentPolicyError builds a 400 content-policy error.
func NewContentPolicyError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeContentPolicy, "", code)
}

// NewRateLimitError builds a 429 rate-limit error.
func NewRateLimitError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeRateLimitExceeded, "", CodeRateLimited)
}

// NewServerError builds a 500 internal error.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServer, "", "")
}

// NewBadGatewayError builds a 502 upstream-failure error.
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeUpstreamFailed)
}

// NewServiceUnavailableError builds a 503 no-provider-available error.
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeBreakerOpen)
}

// NewGatewayTimeoutError builds a 504 upstream-timeout error.
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeUpstreamTimeout)
}
