// Package router assembles the gin engine: middleware stack and routes.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"github.com/tempcover/backend/internal/infrastructure/logger"
	"github.com/tempcover/backend/internal/interfaces/http/handler"
	"github.com/tempcover/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the route owners mounted by the router. Any of them may be
// nil, in which case its routes are not registered.
type Handlers struct {
	Health      *handler.HealthHandler
	Webhook     *handler.WebhookHandler
	InternalPDF *handler.InternalPDFHandler
	Policy      *handler.PolicyHandler
	Vehicle     *handler.VehicleHandler

	// DevDocuments serves in-memory documents when object storage is absent
	DevDocuments *handler.DevDocumentHandler
	// Docs serves the Swagger UI under /swagger
	Docs gin.HandlerFunc
}

// Router owns the gin engine and the rate limiters it created
type Router struct {
	engine     *gin.Engine
	cfg        config.HTTPConfig
	apiVersion string
	limiters   []*middleware.RateLimiter
	logger     *zap.Logger
	tracing    middleware.TracingConfig
	meter      metric.Meter
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithTracing mounts the otelgin server span middleware
func WithTracing(serviceName string) RouterOption {
	return func(r *Router) {
		r.tracing = middleware.TracingConfig{ServiceName: serviceName, Enabled: true}
	}
}

// WithMetrics records HTTP metrics on meter
func WithMetrics(meter metric.Meter) RouterOption {
	return func(r *Router) {
		r.meter = meter
	}
}

// NewRouter creates the engine and applies the common middleware stack:
// request id, panic recovery, tracing and metrics when enabled, request
// logging, security headers, CORS and the body size limit.
func NewRouter(cfg config.HTTPConfig, opts ...RouterOption) *Router {
	r := &Router{
		engine:     gin.New(),
		cfg:        cfg,
		apiVersion: "v1",
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	if len(cfg.TrustedProxies) > 0 {
		if err := r.engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			r.logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r.engine.Use(middleware.RequestID())
	r.engine.Use(logger.Recovery(r.logger))
	r.engine.Use(middleware.Tracing(r.tracing)...)
	if r.meter != nil {
		r.engine.Use(middleware.HTTPMetrics(r.meter))
	}

	r.engine.Use(logger.GinMiddleware(r.logger))
	r.engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	r.engine.Use(middleware.CORSWithConfig(corsConfig(cfg)))
	if cfg.MaxBodySize > 0 {
		r.engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return r
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

// Setup mounts every handler's routes.
//
//	GET  /health, /ping
//	POST /api/webhooks/stripe
//	POST /api/internal/pdf/{certificate,proposal}
//	POST /api/v1/policies/{retrieve,resend}   per-IP retrieval limit
//	POST /api/v1/vehicle/lookup
//	GET  /dev/documents/*key                  in-memory storage only
//	GET  /swagger/*any                        when docs are enabled
func (r *Router) Setup(h Handlers) *gin.Engine {
	if h.Health != nil {
		h.Health.RegisterRoutes(r.engine)
	}
	if h.DevDocuments != nil {
		h.DevDocuments.RegisterRoutes(r.engine)
	}
	if h.Docs != nil {
		r.engine.GET("/swagger/*any", h.Docs)
	}

	api := r.engine.Group("/api")
	if h.Webhook != nil {
		h.Webhook.RegisterRoutes(api)
	}
	if h.InternalPDF != nil {
		h.InternalPDF.RegisterRoutes(api)
	}

	public := api.Group("/" + r.apiVersion)
	if r.cfg.RateLimitEnabled {
		public.Use(middleware.RateLimit(r.newLimiter(r.cfg.RateLimitRequests, r.cfg.RateLimitWindow)))
		r.logger.Info("Rate limiting enabled",
			zap.Int("requests", r.cfg.RateLimitRequests),
			zap.Duration("window", r.cfg.RateLimitWindow))
	}
	if h.Policy != nil {
		var retrievalLimit gin.HandlerFunc
		if r.cfg.RetrievalLimitRequests > 0 {
			retrievalLimit = middleware.RateLimit(r.newLimiter(r.cfg.RetrievalLimitRequests, r.cfg.RetrievalLimitWindow))
		}
		h.Policy.RegisterRoutes(public, retrievalLimit)
	}
	if h.Vehicle != nil {
		h.Vehicle.RegisterRoutes(public)
	}
	return r.engine
}

func (r *Router) newLimiter(limit int, window time.Duration) *middleware.RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	l := middleware.NewRateLimiter(limit, window)
	r.limiters = append(r.limiters, l)
	return l
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Close stops the rate limiters' cleanup loops
func (r *Router) Close() {
	for _, l := range r.limiters {
		l.Stop()
	}
}
