package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	resilience.MustRegisterMetrics(cfg.MetricsNamespace, nil)
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, cfg.HTTPBucketsMS, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-pricing",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	var lookup catalog.Lookup = products
	checks := map[string]health.Check{}
	var limiterClient redis.Cmdable

	if cfg.RedisURL != "" {
		redisClient, err := newRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		lookup = catalog.NewCached(products, catalog.NewCache(redisClient, cfg.CatalogCacheTTL), &logger)
		checks["redis"] = health.RedisCheck(redisClient)
		limiterClient = redisClient
	}

	promos, err := loadPromos(cfg.PromoCodes)
	if err != nil {
		logger.Fatal().Err(err).Msg("load promo codes")
	}
	quotes, err := newQuoteService(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise shipping quotes")
	}
	logger.Info().
		Int("products", products.Len()).
		Strs("promo_codes", promos.Codes()).
		Str("shipping_provider", cfg.ShippingProvider).
		Msg("pricing engine ready")

	var limiter *ratelimit.Handler
	if limiterClient != nil && cfg.PreviewRateLimit > 0 {
		limiter = &ratelimit.Handler{
			Limiter: ratelimit.Limiter{Client: limiterClient, Prefix: "ratelimit:preview:"},
			Window:  cfg.PreviewRateWindow,
			Max:     cfg.PreviewRateLimit,
			Logger:  logger,
		}
	}

	handler := newRouter(routerDeps{
		Logger:         logger,
		Metrics:        httpMetrics,
		AllowedOrigins: allowedOrigins(cfg),
		Tracing:        tracingEnabled,
		Health:         health.Handler{Checks: checks, Timeout: 300 * time.Millisecond},
		Catalog:        catalog.NewHandler(catalog.HandlerConfig{Lookup: lookup, Lister: products}),
		Checkout: &checkout.Handler{Svc: &checkout.Service{
			Catalog: lookup,
			Quotes:  quotes,
			Promos:  promos,
			Logger:  logger,
		}},
		RateLimit: limiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func newRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func loadCatalog(path string) (*catalog.Memory, error) {
	if path == "" {
		return catalog.NewMemory(seedProducts()...)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.LoadJSON(f)
}

// loadPromos builds the frozen registry. Without definitions the built-in codes apply.
func loadPromos(defs []string) (*promo.Registry, error) {
	if len(defs) == 0 {
		return promo.DefaultRegistry(), nil
	}
	reg := promo.NewRegistry()
	if err := reg.LoadDefinitions(defs); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}

func newQuoteService(cfg *config.Config, logger zerolog.Logger) (shipping.QuoteService, error) {
	var client shipping.Client
	switch cfg.ShippingProvider {
	case "table":
		table, err := shipping.ParseRateTable(cfg.ShippingRates)
		if err != nil {
			return nil, err
		}
		if len(table) == 0 {
			table = shipping.DefaultRateTable()
		}
		return shipping.Instrumented{Next: table}, nil
	case "carrier-mock":
		client = shipping.MockClient{}
	case "carrier-http":
		client = shipping.NewHTTPClient(cfg.ShippingCarrierURL)
	default:
		return nil, fmt.Errorf("unsupported shipping provider %q", cfg.ShippingProvider)
	}

	breaker := resilience.NewBreaker(cfg.ShippingBreakerMinRequests, cfg.ShippingBreakerFailureRatio, cfg.ShippingBreakerOpenFor).
		WithTarget("shipping_quote").
		WithLogger(logger)
	carrier := shipping.NewCarrierQuote(client, cfg.ShippingOrigin,
		shipping.WithBreaker(breaker),
		shipping.WithTimeout(cfg.ShippingQuoteTimeout),
		shipping.WithRetries(cfg.ShippingQuoteRetries, 100*time.Millisecond),
		shipping.WithLogger(logger),
	)
	return shipping.Instrumented{Next: carrier}, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
