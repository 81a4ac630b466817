package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/resilience"
)

// ErrNoRate is returned when the carrier does not offer the selected service.
var ErrNoRate = errors.New("carrier returned no rate for service")

// RateReq describes a shipping rate request.
type RateReq struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	WeightGram  int    `json:"weightGram"`
	Courier     string `json:"courier"`
}

// Rate describes a returned shipping rate option.
type Rate struct {
	Service string        `json:"service"`
	Price   pricing.Money `json:"cost"`
	ETD     string        `json:"etd"`
	Courier string        `json:"courier,omitempty"`
}

// Client defines the behaviour required to quote shipping rates from a carrier.
type Client interface {
	Rates(ctx context.Context, r RateReq) ([]Rate, error)
}

// MockClient returns canned rates for every service of the requested courier and is
// useful for development. Prices overrides the default table.
type MockClient struct {
	Prices map[Service]pricing.Money
}

var mockPrices = map[Service]pricing.Money{
	USPSPriorityMail: 895,
	USPSFirstClass:   450,
	UPSGround:        1095,
	UPSNextDayAir:    3450,
	FedExGround:      1050,
	FedExOvernight:   3995,
}

// DefaultRateTable returns the rates MockClient serves, as a RateTable.
func DefaultRateTable() RateTable {
	table := make(RateTable, len(mockPrices))
	for svc, price := range mockPrices {
		table[svc] = price
	}
	return table
}

// Rates returns canned rates regardless of destination and weight.
func (m MockClient) Rates(ctx context.Context, r RateReq) ([]Rate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices := m.Prices
	if prices == nil {
		prices = mockPrices
	}
	var out []Rate
	for _, svc := range Services() {
		if svc.Carrier() != r.Courier {
			continue
		}
		if price, ok := prices[svc]; ok {
			out = append(out, Rate{Service: string(svc), Price: price, ETD: "2-3", Courier: r.Courier})
		}
	}
	return out, nil
}

// CarrierQuote quotes shipping through a carrier Client. Each attempt is bounded by
// Timeout; failed attempts are retried up to Retries times with exponential backoff,
// and a Breaker stops calls to a failing carrier altogether.
type CarrierQuote struct {
	Client       Client
	Origin       string
	GramsPerUnit int
	Timeout      time.Duration
	Retries      int
	BackoffBase  time.Duration
	Breaker      *resilience.Breaker
	Logger       zerolog.Logger
	sleep        func(context.Context, time.Duration) error
}

// CarrierOption customises a CarrierQuote.
type CarrierOption func(*CarrierQuote)

// WithBreaker guards the carrier with b.
func WithBreaker(b *resilience.Breaker) CarrierOption {
	return func(q *CarrierQuote) { q.Breaker = b }
}

// WithRetries sets the retry budget and backoff base.
func WithRetries(retries int, base time.Duration) CarrierOption {
	return func(q *CarrierQuote) {
		q.Retries = retries
		q.BackoffBase = base
	}
}

// WithTimeout bounds each carrier attempt.
func WithTimeout(d time.Duration) CarrierOption {
	return func(q *CarrierQuote) { q.Timeout = d }
}

// WithLogger sets the logger used for retry and failure events.
func WithLogger(l zerolog.Logger) CarrierOption {
	return func(q *CarrierQuote) { q.Logger = l.With().Str("component", "carrier_quote").Logger() }
}

// WithSleeper overrides how retry waits are performed. Intended for tests.
func WithSleeper(fn func(context.Context, time.Duration) error) CarrierOption {
	return func(q *CarrierQuote) { q.sleep = fn }
}

// NewCarrierQuote builds a carrier-backed quote service.
func NewCarrierQuote(client Client, origin string, opts ...CarrierOption) *CarrierQuote {
	q := &CarrierQuote{
		Client:       client,
		Origin:       origin,
		GramsPerUnit: 500,
		Timeout:      2 * time.Second,
		BackoffBase:  100 * time.Millisecond,
		Logger:       zerolog.Nop(),
		sleep:        resilience.Sleep,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Quote implements QuoteService.
func (q *CarrierQuote) Quote(ctx context.Context, info Info, snapshot Snapshot) (pricing.Money, error) {
	if !info.Service.Valid() {
		return 0, &QuoteError{Service: info.Service, Err: ErrUnknownService}
	}
	req := RateReq{
		Origin:      q.Origin,
		Destination: info.Address,
		WeightGram:  snapshot.Units() * q.GramsPerUnit,
		Courier:     info.Service.Carrier(),
	}

	var lastErr error
	for attempt := 1; attempt <= q.Retries+1; attempt++ {
		if attempt > 1 {
			wait := resilience.Backoff(q.BackoffBase, attempt-1, 0.2)
			q.Logger.Debug().Int("attempt", attempt).Dur("wait", wait).Str("service", string(info.Service)).Msg("shipping_quote_retry")
			if err := q.sleep(ctx, wait); err != nil {
				return 0, &QuoteError{Service: info.Service, Err: err}
			}
		}

		var cost pricing.Money
		err := q.Breaker.Do(ctx, func(ctx context.Context) error {
			var err error
			cost, err = q.attempt(ctx, req, info.Service)
			return err
		})
		if err == nil {
			return cost, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	q.Logger.Warn().Err(lastErr).Str("service", string(info.Service)).Msg("shipping_quote_failed")
	return 0, &QuoteError{Service: info.Service, Err: lastErr}
}

func (q *CarrierQuote) attempt(ctx context.Context, req RateReq, service Service) (pricing.Money, error) {
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}
	rates, err := q.Client.Rates(ctx, req)
	if err != nil {
		return 0, err
	}
	for _, rate := range rates {
		if rate.Service == string(service) {
			if rate.Price < 0 {
				return 0, fmt.Errorf("carrier returned negative rate %d", rate.Price)
			}
			return rate.Price, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", service, ErrNoRate)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNoRate), errors.Is(err, resilience.ErrOpenCircuit):
		return false
	default:
		return true
	}
}
