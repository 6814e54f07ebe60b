package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/service"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/health"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/middleware"
)

// ServiceName labels metrics and spans.
const ServiceName = "backoffice"

// Services are the application services exposed over HTTP.
type Services struct {
	Catalog     *service.CatalogService
	Checkout    *service.CheckoutService
	Fulfillment *service.FulfillmentService
	Carts       *service.CartService
}

// RouterOptions tunes the operational surface of the router.
type RouterOptions struct {
	PprofAllowedCIDRs []string
	// CORSAllowedOrigins are the browser origins of the back-office UIs.
	CORSAllowedOrigins []string
	// RateLimitRPS throttles /api/v1 per client; zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
	// RequestTimeout bounds each /api/v1 request; zero means 30s.
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all back-office routes registered.
// HTTP metrics are registered with reg; /metrics serves reg together with
// the default registry.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	reg *prometheus.Registry,
	logger *slog.Logger,
	opts RouterOptions,
) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.NewHTTPMetrics(reg, ServiceName).Middleware)
	r.Use(chimw.Compress(5))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.CORSAllowedOrigins)))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{reg, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	))
	middleware.RegisterPprof(r, opts.PprofAllowedCIDRs, logger)

	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)
	checkoutHandler := NewCheckoutHandler(svcs.Checkout, logger)
	fulfillmentHandler := NewFulfillmentHandler(svcs.Fulfillment, logger)
	cartHandler := NewCartHandler(svcs.Carts, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, logger))
		r.Use(middleware.RequireJSON)
		r.Use(chimw.Timeout(opts.RequestTimeout))

		// Register
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Get("/items", catalogHandler.SearchItems)
		r.Get("/items/{sku}", catalogHandler.GetItem)

		// Cart sessions
		r.Get("/carts/{sessionID}", cartHandler.GetCart)
		r.Put("/carts/{sessionID}", cartHandler.SetCart)
		r.Delete("/carts/{sessionID}", cartHandler.ClearCart)
		r.Post("/carts/{sessionID}/checkout", cartHandler.Checkout)

		// Fulfillment dashboard
		r.Get("/fulfillment/orders", fulfillmentHandler.ListOrders)
		r.Post("/orders/update-field", fulfillmentHandler.UpdateField)
		r.Get("/orders/{id}", fulfillmentHandler.GetOrder)
		r.Get("/orders/{id}/receipt", fulfillmentHandler.Receipt)
	})

	return r
}
