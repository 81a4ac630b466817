package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func testRouter(t *testing.T, limiter *ratelimit.Handler) http.Handler {
	t.Helper()
	products, err := loadCatalog("")
	require.NoError(t, err)
	promos, err := loadPromos(nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return newRouter(routerDeps{
		Logger:         zerolog.Nop(),
		Metrics:        obs.NewHTTPMetrics("test", nil, reg),
		AllowedOrigins: []string{"*"},
		Catalog:        catalog.NewHandler(catalog.HandlerConfig{Lookup: products, Lister: products}),
		Checkout: &checkout.Handler{Svc: &checkout.Service{
			Catalog: products,
			Quotes:  shipping.FixedQuote{Cost: 500},
			Promos:  promos,
		}},
		RateLimit:      limiter,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

const previewBody = `{"items":[{"sku":"SHIRT","qty":1},{"sku":"SOCKS","qty":1}],
	"shipping":{"service":"USPSPriorityMail","address":"30 W 21st Street"},"promoCodes":["FIRSTTIME"]}`

func TestRouterServesPreview(t *testing.T) {
	h := testRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/purchases/preview", strings.NewReader(previewBody)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totalPrice":3200`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `route="/v1/purchases/preview"`)
}

func TestRouterServesHealthAndCatalog(t *testing.T) {
	h := testRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/products/MUG", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"effectivePrice":900`)
}

func TestRouterRateLimitsPreview(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := testRouter(t, &ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: client, Prefix: "rl:"},
		Window:  time.Minute,
		Max:     1,
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/purchases/preview", strings.NewReader(previewBody))
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLoadPromosFromDefinitions(t *testing.T) {
	reg, err := loadPromos([]string{"SPRING=percent:15", "SHIPFREE=freeship:5000"})
	require.NoError(t, err)
	require.Equal(t, []string{"SHIPFREE", "SPRING"}, reg.Codes())

	_, err = loadPromos([]string{"BROKEN=bogus"})
	require.Error(t, err)
}

func TestNewQuoteServiceProviders(t *testing.T) {
	cfg := &config.Config{ShippingProvider: "table", ShippingRates: "UPSGround=700"}
	quotes, err := newQuoteService(cfg, zerolog.Nop())
	require.NoError(t, err)
	cost, err := quotes.Quote(t.Context(), shipping.Info{Service: shipping.UPSGround}, shipping.Snapshot{})
	require.NoError(t, err)
	require.Equal(t, int64(700), cost)

	cfg = &config.Config{ShippingProvider: "table"}
	quotes, err = newQuoteService(cfg, zerolog.Nop())
	require.NoError(t, err)
	cost, err = quotes.Quote(t.Context(), shipping.Info{Service: shipping.FedExOvernight}, shipping.Snapshot{})
	require.NoError(t, err)
	require.Equal(t, int64(3995), cost)

	cfg = &config.Config{
		ShippingProvider:            "carrier-mock",
		ShippingQuoteTimeout:        time.Second,
		ShippingBreakerMinRequests:  5,
		ShippingBreakerFailureRatio: 0.5,
		ShippingBreakerOpenFor:      time.Second,
	}
	quotes, err = newQuoteService(cfg, zerolog.Nop())
	require.NoError(t, err)
	cost, err = quotes.Quote(t.Context(), shipping.Info{Service: shipping.USPSFirstClass}, shipping.Snapshot{})
	require.NoError(t, err)
	require.Equal(t, int64(450), cost)

	_, err = newQuoteService(&config.Config{ShippingProvider: "table", ShippingRates: "Pigeon=1"}, zerolog.Nop())
	require.Error(t, err)
}

func TestReadinessDrains(t *testing.T) {
	h := testRouter(t, nil)
	health.SetReady(false)
	t.Cleanup(func() { health.SetReady(true) })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
