package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climadex/pkg/logging"
)

// RouterOptions configures the HTTP surface around the factory routes
type RouterOptions struct {
	CORSOrigins []string
	Compression CompressionConfig
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *RateLimiter
	// MetricsHandler serves /metrics; defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

// NewRouter wires the API routes, docs and metrics behind the middleware chain:
// compression, CORS, request id, rate limit, then per-route request logging.
func NewRouter(h *FactoryHandler, logger *logging.StructuredLogger, opts RouterOptions) http.Handler {
	router := mux.NewRouter()
	router.Use(NewRequestLoggingMiddleware(logger))

	h.RegisterRoutes(router)

	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods(http.MethodGet)
	router.HandleFunc("/api/docs", SwaggerUI).Methods(http.MethodGet)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	var handler http.Handler = router
	if opts.RateLimiter != nil {
		handler = opts.RateLimiter.Middleware(handler)
	}
	handler = RequestID(handler)
	handler = NewCORSMiddleware(opts.CORSOrigins)(handler)
	handler = NewCompressionMiddleware(opts.Compression)(handler)

	return handler
}
