package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/metrics"
)

// MetricsMiddleware observes request latency by route pattern and tracks
// requests in flight. It must wrap the router so the pattern is resolved.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method,
			routePattern(r),
			strconv.Itoa(statusOf(ww)),
		).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
