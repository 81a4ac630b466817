package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/security"
)

const maxPreviewBody = 64 << 10

type routerDeps struct {
	Logger         zerolog.Logger
	Metrics        *obs.HTTPMetrics
	AllowedOrigins []string
	Tracing        bool
	Health         health.Handler
	Catalog        *catalog.Handler
	Checkout       *checkout.Handler
	RateLimit      *ratelimit.Handler
	MetricsHandler http.Handler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)
	r.Get("/healthz", d.Health.Ready)
	r.Get("/health/live", d.Health.Live)

	r.Route("/v1", func(v chi.Router) {
		v.Get("/products", d.Catalog.Products)
		v.Get("/products/{sku}", d.Catalog.ProductDetail)

		preview := v.With(security.BodyLimit{Max: maxPreviewBody}.Middleware)
		if d.RateLimit != nil {
			preview = preview.With(d.RateLimit.Middleware)
		}
		preview.Post("/purchases/preview", d.Checkout.Preview)
	})

	if d.Tracing {
		return otelhttp.NewHandler(r, "toko-pricing")
	}
	return r
}
