package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PurchaseComputedTotal counts purchase computations by outcome.
	PurchaseComputedTotal *prometheus.CounterVec
	// PromoCodeTotal counts promo code applications by outcome.
	PromoCodeTotal *prometheus.CounterVec
	// ShippingQuoteTotal counts shipping quote calls by service and outcome.
	ShippingQuoteTotal *prometheus.CounterVec
	// ShippingQuoteLatency records quote latency in milliseconds.
	ShippingQuoteLatency *prometheus.HistogramVec
	// DiscountAmount records merchandise discount per purchase in minor units.
	DiscountAmount prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers pricing collectors. Until it is
// called the Record helpers are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PurchaseComputedTotal = registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_computed_total",
			Help:      "Count of purchase computations by outcome.",
		}, []string{"result"}))
		PromoCodeTotal = registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_code_total",
			Help:      "Count of promo code applications by outcome.",
		}, []string{"result"}))
		ShippingQuoteTotal = registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quote_total",
			Help:      "Count of shipping quote calls by service and outcome.",
		}, []string{"service", "result"}))
		ShippingQuoteLatency = registerCollector(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shipping_quote_duration_ms",
			Help:      "Latency for shipping quote calls in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"service"}))
		DiscountAmount = registerCollector(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "purchase_discount_minor_units",
			Help:      "Merchandise discount granted per computed purchase, in minor currency units.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}))
	})
}

// RecordPurchase increments the purchase counter and observes the discount on success.
func RecordPurchase(result string, discount int64) {
	if PurchaseComputedTotal != nil {
		PurchaseComputedTotal.WithLabelValues(result).Inc()
	}
	if result == ResultOK && DiscountAmount != nil {
		DiscountAmount.Observe(float64(discount))
	}
}

// RecordPromoCode increments the promo code counter.
func RecordPromoCode(result string) {
	if PromoCodeTotal != nil {
		PromoCodeTotal.WithLabelValues(result).Inc()
	}
}

// RecordShippingQuote records one quote call outcome and its latency.
func RecordShippingQuote(service, result string, millis float64) {
	if ShippingQuoteTotal != nil {
		ShippingQuoteTotal.WithLabelValues(service, result).Inc()
	}
	if ShippingQuoteLatency != nil {
		ShippingQuoteLatency.WithLabelValues(service).Observe(millis)
	}
}

// Outcome labels shared by the domain collectors.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultRejected  = "rejected"
	ResultDuplicate = "duplicate"
)

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
			return c
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
	return c
}
