package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinel-hq/sentinel/pkg/breaker"
	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/proxy/types"
	"sentinel-hq/sentinel/pkg/routing"
)

// HandleError converts pipeline and provider errors to wire error responses.
//
// Mapping:
//   - request/validation errors        -> 400 invalid_request_error
//   - breaker.OpenError                -> 503 service_unavailable
//   - providers.TimeoutError           -> 504 gateway_timeout
//   - upstream rate limit (429)        -> 429 rate_limit_exceeded
//   - other provider failures          -> 502 bad_gateway
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var noProvider *routing.NoProviderError
	if errors.As(err, &noProvider) {
		return types.NewInvalidRequestError(noProvider.Error(), "provider", types.CodeUnknownProvider)
	}

	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		return types.NewServiceUnavailableError(
			fmt.Sprintf("provider %s is temporarily unavailable", openErr.Provider),
		)
	}

	var allFailed *routing.AllFailedError
	if errors.As(err, &allFailed) {
		// Surface the final failure's classification when it is more
		// specific than a generic upstream error.
		if resp := classifyUpstream(allFailed.Last); resp != nil {
			return resp
		}
		return types.NewBadGatewayError(allFailed.Error())
	}

	if resp := classifyUpstream(err); resp != nil {
		return resp
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewGatewayTimeoutError("request timed out")
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

// classifyUpstream maps provider-level errors to wire responses. Returns nil
// for errors that are not provider errors.
func classifyUpstream(err error) *types.ErrorResponse {
	if err == nil {
		return nil
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) {
		return types.NewGatewayTimeoutError("upstream provider timed out")
	}

	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return types.NewRateLimitError("upstream provider rate limit exceeded, please retry later")
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		// Upstream credentials belong to the gateway, not the client.
		return types.NewBadGatewayError("upstream provider rejected gateway credentials")
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("upstream provider error (status %d)", provErr.StatusCode),
		)
	}

	var streamErr *providers.StreamError
	if errors.As(err, &streamErr) {
		return types.NewBadGatewayError("upstream stream failed")
	}

	return nil
}

// RetryAfter extracts a retry hint from breaker and upstream rate-limit
// errors, for use in the Retry-After response header.
func RetryAfter(err error) (time.Duration, bool) {
	var openErr *breaker.OpenError
	if errors.As(err, &openErr) && openErr.RetryAfter > 0 {
		return openErr.RetryAfter, true
	}

	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		return rateErr.RetryAfter, true
	}

	var allFailed *routing.AllFailedError
	if errors.As(err, &allFailed) && allFailed.Last != nil {
		return RetryAfter(allFailed.Last)
	}

	return 0, false
}
