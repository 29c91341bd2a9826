package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/metrics"
)

// Backbone is the narrow view of *backbone.Backbone the HTTP surface
// depends on: admission, lookup, and the live-record count the health
// endpoint reports.
type Backbone interface {
	admitter
	fileFetcher
	backboneCounter
}

// Deps bundles everything the router needs to construct its handlers:
// one field per collaborator the routes depend on.
type Deps struct {
	Backbone          Backbone
	Metrics           *metrics.Metrics
	Readiness         *Readiness
	MaxFileNameLength int
	RequestTimeout    time.Duration
	TriggerShutdown   func()
}

// NewRouter builds the chi router serving spec.md §6's HTTP surface plus
// the ambient health/metrics/stop endpoints (SPEC_FULL.md §5), with
// middleware ordered request id, real ip, a custom request logger, panic
// recovery, then a request timeout.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Metrics))
	r.Use(middleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	health := NewHealthHandler(deps.Backbone, deps.Readiness)
	r.Get("/health", health.Liveness)
	r.Get("/healthz", health.Liveness)
	r.Get("/livez", health.Liveness)
	r.Get("/readyz", health.Readiness)
	r.Get("/startupz", health.Readiness)

	if deps.Metrics != nil && deps.Metrics.Registry() != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	yeet := NewYeetHandler(deps.Backbone, deps.Metrics, deps.Readiness, deps.MaxFileNameLength)
	r.Post("/yeet", yeet.ServeHTTP)

	yoink := NewYoinkHandler(deps.Backbone)
	r.Get("/yoink/{id}", yoink.ServeHTTP)

	if deps.TriggerShutdown != nil {
		stop := NewStopHandler(deps.Readiness, deps.TriggerShutdown)
		r.Post("/stop", stop.ServeHTTP)
	}

	return r
}

// requestLogger logs every request through internal/logger and records
// its duration in the HTTP request histogram.
func requestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("request started",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			logger.Info("request completed",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", duration.String(),
			)
			m.ObserveHTTPRequest(r.Method, routePattern(r), ww.Status(), duration)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
