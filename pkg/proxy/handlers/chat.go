package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sentinel-hq/sentinel/pkg/cache"
	"sentinel-hq/sentinel/pkg/processing/costs"
	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/proxy"
	"sentinel-hq/sentinel/pkg/proxy/middleware"
	"sentinel-hq/sentinel/pkg/proxy/types"
	"sentinel-hq/sentinel/pkg/ratelimit"
	"sentinel-hq/sentinel/pkg/routing"
	"sentinel-hq/sentinel/pkg/shield"
	"sentinel-hq/sentinel/pkg/telemetry/metrics"
)

// ChatHandler serves POST /v1/chat/completions. Each request runs the
// pipeline in order: rate-limit admission, content shield, cache lookup,
// then a provider call through the router on a miss. Non-streaming
// responses are cached; streaming responses are relayed chunk by chunk
// and optionally cached as aggregated text after a clean finish.
type ChatHandler struct {
	limiter   *ratelimit.Limiter
	shield    *shield.Shield
	injection *shield.InjectionDetector
	cache     *cache.Cache
	router    *routing.Router
	costs     *costs.Calculator
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// cacheStreams enables caching the aggregated text of streaming
	// completions after a clean terminal.
	cacheStreams bool

	// coalesce shares one upstream call among concurrent identical
	// cache misses.
	coalesce bool
}

// ChatConfig wires the pipeline components into the handler. Router is
// required; every other component is optional and its stage is skipped
// when nil.
type ChatConfig struct {
	Limiter      *ratelimit.Limiter
	Shield       *shield.Shield
	Injection    *shield.InjectionDetector
	Cache        *cache.Cache
	Router       *routing.Router
	Costs        *costs.Calculator
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	CacheStreams bool
	Coalesce     bool
}

// NewChatHandler creates the chat completions handler.
func NewChatHandler(cfg ChatConfig) *ChatHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		limiter:      cfg.Limiter,
		shield:       cfg.Shield,
		injection:    cfg.Injection,
		cache:        cfg.Cache,
		router:       cfg.Router,
		costs:        cfg.Costs,
		metrics:      cfg.Metrics,
		logger:       logger.With("component", "chat_handler"),
		cacheStreams: cfg.CacheStreams,
		coalesce:     cfg.Coalesce,
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		proxy.WriteErrorResponse(w, types.NewInvalidRequestError(
			"method not allowed, use POST", "", "",
		))
		return
	}

	req, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		proxy.SetProcessTime(w, start)
		proxy.WriteErrorResponse(w, proxy.HandleError(err))
		return
	}

	// Admission control runs before any provider work.
	if h.limiter != nil {
		decision := h.limiter.Admit(ctx, proxy.ClientKey(r))
		proxy.SetRateLimitHeaders(w, decision)
		if !decision.Allowed {
			if h.metrics != nil {
				h.metrics.RateLimitRejections.Inc()
			}
			h.logger.InfoContext(ctx, "request rate limited",
				"request_id", requestID)
			proxy.SetProcessTime(w, start)
			proxy.WriteErrorResponse(w, types.NewRateLimitError(
				"rate limit exceeded, please retry later",
			))
			return
		}
	}

	if !h.applyShield(ctx, w, start, req, requestID) {
		return
	}

	completionReq := proxy.ToCompletionRequest(req)
	fingerprint := cache.Fingerprint(completionReq)

	if req.Stream {
		h.serveStream(w, r, req, completionReq, fingerprint, start, requestID)
		return
	}
	h.serveCompletion(w, r, req, completionReq, fingerprint, start, requestID)
}

// applyShield runs sensitive-data and injection scanning over every message.
// Returns false after writing the rejection response.
func (h *ChatHandler) applyShield(ctx context.Context, w http.ResponseWriter, start time.Time, req *types.ChatCompletionRequest, requestID string) bool {
	if h.shield != nil {
		for i := range req.Messages {
			result := h.shield.Apply(req.Messages[i].Content)

			if h.metrics != nil {
				for _, e := range result.Findings {
					h.metrics.ShieldDetections.WithLabelValues(string(e.Type)).Inc()
				}
			}

			if result.Blocked {
				if h.metrics != nil {
					h.metrics.ShieldBlocks.Inc()
				}
				h.logger.InfoContext(ctx, "request blocked by shield",
					"request_id", requestID,
					"entities", entityTypes(result.Findings),
				)
				proxy.SetProcessTime(w, start)
				proxy.WriteErrorResponse(w, types.NewContentPolicyError(
					"request contains sensitive data and was blocked",
					types.CodeSensitiveContent,
				))
				return false
			}

			req.Messages[i].Content = result.Text
		}
	}

	if h.injection != nil {
		for _, msg := range req.Messages {
			if msg.Role != providers.RoleUser {
				continue
			}

			scan := h.injection.Scan(msg.Content)
			if !scan.Suspicious {
				continue
			}

			h.logger.WarnContext(ctx, "prompt injection detected",
				"request_id", requestID,
				"risk_score", scan.RiskScore,
				"rules", scan.MatchedRules,
				"action", string(scan.Action),
			)

			if scan.Action == shield.InjectionBlock {
				proxy.SetProcessTime(w, start)
				proxy.WriteErrorResponse(w, types.NewContentPolicyError(
					"request was flagged as a prompt injection attempt",
					types.CodeInjectionDetected,
				))
				return false
			}
		}
	}

	return true
}

// serveCompletion handles the non-streaming path: cache lookup, coalesced
// provider call on miss, then a JSON response.
func (h *ChatHandler) serveCompletion(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest, completionReq *providers.CompletionRequest, fingerprint string, start time.Time, requestID string) {
	ctx := r.Context()

	if h.cache != nil {
		if cached, ok := h.cache.Get(ctx, fingerprint); ok {
			if h.metrics != nil {
				h.metrics.CacheHits.Inc()
			}
			w.Header().Set(proxy.CacheStatusHeader, "HIT")
			proxy.SetProcessTime(w, start)
			_ = proxy.WriteJSONResponse(w, http.StatusOK,
				proxy.FormatChatCompletionResponse(cached, req.Model))
			return
		}
		if h.metrics != nil {
			h.metrics.CacheMisses.Inc()
		}
	}
	w.Header().Set(proxy.CacheStatusHeader, "MISS")

	fetch := func(ctx context.Context) (*providers.CompletionResponse, error) {
		return h.router.Complete(ctx, req.Provider, completionReq)
	}

	var resp *providers.CompletionResponse
	var err error
	switch {
	case h.cache != nil && h.coalesce:
		resp, _, err = h.cache.Fetch(ctx, fingerprint, fetch)
	case h.cache != nil:
		resp, err = fetch(ctx)
		if err == nil {
			h.cache.Put(context.WithoutCancel(ctx), fingerprint, resp)
		}
	default:
		resp, err = fetch(ctx)
	}

	if err != nil {
		h.writeUpstreamError(w, ctx, start, requestID, err)
		return
	}

	h.recordOutcome(ctx, resp.Provider, req.Model, resp.Usage, requestID)
	proxy.SetProcessTime(w, start)
	_ = proxy.WriteJSONResponse(w, http.StatusOK,
		proxy.FormatChatCompletionResponse(resp, req.Model))
}

// serveStream handles the streaming path. A cache hit is replayed as a
// single synthetic data frame followed by the terminal marker. A miss
// relays normalized chunks as they arrive; with stream caching enabled,
// the aggregated text is stored after a clean finish.
func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest, completionReq *providers.CompletionRequest, fingerprint string, start time.Time, requestID string) {
	ctx := r.Context()
	responseID := proxy.NewResponseID()

	if h.cache != nil {
		if cached, ok := h.cache.Get(ctx, fingerprint); ok {
			if h.metrics != nil {
				h.metrics.CacheHits.Inc()
			}
			w.Header().Set(proxy.CacheStatusHeader, "HIT")
			proxy.SetProcessTime(w, start)
			proxy.SetSSEHeaders(w)

			chunk := proxy.FormatStreamChunk(&providers.StreamChunk{
				Delta:        cached.Content,
				FinishReason: cached.FinishReason,
			}, req.Model, responseID)
			_ = proxy.WriteSSEChunk(w, chunk)
			_ = proxy.WriteSSEDone(w)
			return
		}
		if h.metrics != nil {
			h.metrics.CacheMisses.Inc()
		}
	}

	providerName, chunks, err := h.router.Stream(ctx, req.Provider, completionReq)
	if err != nil {
		h.writeUpstreamError(w, ctx, start, requestID, err)
		return
	}

	w.Header().Set(proxy.CacheStatusHeader, "MISS")
	proxy.SetProcessTime(w, start)
	proxy.SetSSEHeaders(w)

	var text strings.Builder
	var finishReason string
	var usage providers.TokenUsage
	clean := false

	for chunk := range chunks {
		if chunk.Done {
			if chunk.Err != nil {
				// The error never enters the content channel; the stream
				// still ends with exactly one terminal marker.
				h.logger.ErrorContext(ctx, "stream failed",
					"request_id", requestID,
					"provider", providerName,
					"error", chunk.Err,
				)
				break
			}
			finishReason = chunk.FinishReason
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
			if finishReason != "" {
				_ = proxy.WriteSSEChunk(w,
					proxy.FormatStreamChunk(&chunk, req.Model, responseID))
			}
			clean = true
			break
		}

		if chunk.Delta == "" {
			continue
		}
		text.WriteString(chunk.Delta)
		if err := proxy.WriteSSEChunk(w,
			proxy.FormatStreamChunk(&chunk, req.Model, responseID)); err != nil {
			// Client is gone; the context cancellation tears down the
			// upstream read.
			h.logger.DebugContext(ctx, "client disconnected mid-stream",
				"request_id", requestID)
			return
		}
	}

	_ = proxy.WriteSSEDone(w)

	if clean {
		h.recordOutcome(ctx, providerName, req.Model, usage, requestID)

		if h.cacheStreams && h.cache != nil && text.Len() > 0 {
			h.cache.Put(context.WithoutCancel(ctx), fingerprint, &providers.CompletionResponse{
				ID:           strings.TrimPrefix(responseID, "chatcmpl-"),
				Model:        req.Model,
				Content:      text.String(),
				FinishReason: finishReason,
				Usage:        usage,
				Created:      time.Now().Unix(),
			})
		}
	}
}

// writeUpstreamError maps a pipeline failure to the wire format, attaching
// Retry-After when the failure carries a retry hint.
func (h *ChatHandler) writeUpstreamError(w http.ResponseWriter, ctx context.Context, start time.Time, requestID string, err error) {
	h.logger.ErrorContext(ctx, "completion failed",
		"request_id", requestID,
		"error", err,
	)

	if retryAfter, ok := proxy.RetryAfter(err); ok {
		secs := int(retryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	proxy.SetProcessTime(w, start)

	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to write.
		return
	}

	proxy.WriteErrorResponse(w, proxy.HandleError(err))
}

// recordOutcome updates usage metrics and the cost ledger for a successful
// completion.
func (h *ChatHandler) recordOutcome(ctx context.Context, provider, model string, usage providers.TokenUsage, requestID string) {
	if h.metrics != nil {
		if provider != "" {
			h.metrics.ProviderRequests.WithLabelValues(provider, "success").Inc()
		}
		h.metrics.TokensTotal.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
		h.metrics.TokensTotal.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	}

	if h.costs != nil {
		cost := h.costs.Calculate(model, usage)
		if h.metrics != nil && cost.Known {
			h.metrics.CostUSD.WithLabelValues(model).Add(cost.TotalCost)
		}
		h.logger.DebugContext(ctx, "completion cost",
			"request_id", requestID,
			"model", model,
			"total_tokens", usage.TotalTokens,
			"cost_usd", cost.TotalCost,
		)
	}
}

// entityTypes extracts just the type names for logging; matched text never
// reaches the logs.
func entityTypes(entities []shield.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = string(e.Type)
	}
	return out
}
