package handlers

import (
	"context"
	"net/http"
	"time"

	"sentinel-hq/sentinel/pkg/breaker"
	"sentinel-hq/sentinel/pkg/proxy"
	"sentinel-hq/sentinel/pkg/store"
)

// HealthStatus is the wire format of the readiness endpoint.
type HealthStatus struct {
	// Status is "ok" when the gateway can serve traffic, "degraded" when
	// the shared store is unreachable or every breaker is open.
	Status string `json:"status"`

	// Store reports shared store reachability ("ok" or "unavailable").
	Store string `json:"store"`

	// Breakers maps provider name to current breaker state.
	Breakers map[string]string `json:"breakers,omitempty"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store    store.Store
	breakers *breaker.Table
}

// NewHealthHandler creates the health endpoints over the shared store and
// breaker table. Either dependency may be nil.
func NewHealthHandler(st store.Store, breakers *breaker.Table) *HealthHandler {
	return &HealthHandler{store: st, breakers: breakers}
}

// Liveness reports process health. It always returns 200 while the process
// can serve HTTP at all.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports whether the gateway can usefully serve traffic. The
// store is probed with a short timeout; store failure degrades rather than
// fails readiness because both rate limiting and caching fail open.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "ok", Store: "ok"}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, _, err := h.store.Get(ctx, "health:probe"); err != nil {
			status.Store = "unavailable"
			status.Status = "degraded"
		}
	}

	if h.breakers != nil {
		states := h.breakers.States()
		if len(states) > 0 {
			status.Breakers = make(map[string]string, len(states))
			allOpen := true
			for name, st := range states {
				status.Breakers[name] = st.String()
				if st != breaker.StateOpen {
					allOpen = false
				}
			}
			if allOpen {
				status.Status = "degraded"
			}
		}
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	_ = proxy.WriteJSONResponse(w, code, status)
}
