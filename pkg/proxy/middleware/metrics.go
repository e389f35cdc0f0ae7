package middleware

import (
	"net/http"
	"time"

	"sentinel-hq/sentinel/pkg/telemetry/metrics"
)

// Metrics records request counts and latency per path and status code.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			m.ObserveRequest(r.URL.Path, rw.statusCode, time.Since(start))
		})
	}
}
