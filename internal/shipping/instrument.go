package shipping

import (
	"context"
	"time"

	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Instrumented records a metric sample for every quote served by Next.
type Instrumented struct {
	Next QuoteService
}

// Quote implements QuoteService.
func (i Instrumented) Quote(ctx context.Context, info Info, snapshot Snapshot) (pricing.Money, error) {
	start := time.Now()
	cost, err := i.Next.Quote(ctx, info, snapshot)
	result := obs.ResultOK
	if err != nil {
		result = obs.ResultError
	}
	obs.RecordShippingQuote(string(info.Service), result, obs.DurationMillis(time.Since(start)))
	return cost, err
}
