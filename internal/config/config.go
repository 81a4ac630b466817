package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CatalogFile        string
	CatalogCacheTTL    time.Duration
	CORSAllowedOrigins []string

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	HTTPBucketsMS    []float64
	TracingEnabled   bool
	TracingExporter  string
	TracingSampling  float64
	OTLPEndpoint     string

	ShippingProvider            string
	ShippingRates               string
	ShippingOrigin              string
	ShippingCarrierURL          string
	ShippingQuoteTimeout        time.Duration
	ShippingQuoteRetries        int
	ShippingBreakerMinRequests  int
	ShippingBreakerFailureRatio float64
	ShippingBreakerOpenFor      time.Duration

	PromoCodes []string

	PreviewRateLimit  int
	PreviewRateWindow time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CatalogFile:        strings.TrimSpace(k.String("CATALOG_FILE")),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko"),
		HTTPBucketsMS:    obs.ParseBucketsCSV(k.String("OBS_HTTP_BUCKETS_MS")),
		TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),

		ShippingProvider:            strings.ToLower(valueOrDefault(k.String("SHIPPING_PROVIDER"), "table")),
		ShippingRates:               k.String("SHIPPING_RATES"),
		ShippingOrigin:              strings.TrimSpace(k.String("SHIPPING_ORIGIN")),
		ShippingCarrierURL:          strings.TrimSpace(k.String("SHIPPING_CARRIER_URL")),
		ShippingQuoteTimeout:        parseDuration(k.String("SHIPPING_QUOTE_TIMEOUT"), "2s"),
		ShippingQuoteRetries:        parseInt(k.String("SHIPPING_QUOTE_RETRIES"), 2),
		ShippingBreakerMinRequests:  parseInt(k.String("SHIPPING_BREAKER_MIN_REQUESTS"), 5),
		ShippingBreakerFailureRatio: parseFloat(k.String("SHIPPING_BREAKER_FAILURE_RATIO"), 0.5),
		ShippingBreakerOpenFor:      parseDuration(k.String("SHIPPING_BREAKER_OPEN_FOR"), "30s"),

		PromoCodes: splitAndTrim(k.String("PROMO_CODES")),

		PreviewRateLimit:  parseInt(k.String("RATE_LIMIT_PREVIEW_MAX"), 0),
		PreviewRateWindow: parseDuration(k.String("RATE_LIMIT_PREVIEW_WINDOW"), "1m"),
	}

	switch cfg.ShippingProvider {
	case "table", "carrier-mock":
	case "carrier-http":
		if cfg.ShippingCarrierURL == "" {
			return nil, fmt.Errorf("SHIPPING_CARRIER_URL is required for the carrier-http provider")
		}
	default:
		return nil, fmt.Errorf("SHIPPING_PROVIDER %q is not supported", cfg.ShippingProvider)
	}
	if cfg.ShippingQuoteRetries < 0 {
		return nil, fmt.Errorf("SHIPPING_QUOTE_RETRIES must not be negative")
	}
	if cfg.ShippingBreakerFailureRatio <= 0 || cfg.ShippingBreakerFailureRatio > 1 {
		return nil, fmt.Errorf("SHIPPING_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
