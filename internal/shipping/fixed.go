package shipping

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// FixedQuote charges the same cost regardless of the selection.
type FixedQuote struct {
	Cost pricing.Money
}

// Quote implements QuoteService.
func (f FixedQuote) Quote(ctx context.Context, _ Info, _ Snapshot) (pricing.Money, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.Cost, nil
}

// RateTable charges a flat rate per service.
type RateTable map[Service]pricing.Money

// Quote implements QuoteService.
func (t RateTable) Quote(ctx context.Context, info Info, _ Snapshot) (pricing.Money, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cost, ok := t[info.Service]
	if !ok {
		return 0, &QuoteError{Service: info.Service, Err: fmt.Errorf("no rate configured: %w", ErrUnknownService)}
	}
	return cost, nil
}

// ParseRateTable reads "Service=cents" pairs separated by commas.
func ParseRateTable(value string) (RateTable, error) {
	table := RateTable{}
	if strings.TrimSpace(value) == "" {
		return table, nil
	}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("rate %q: expected Service=cents", part)
		}
		svc, err := ParseService(name)
		if err != nil {
			return nil, err
		}
		cost, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || cost < 0 {
			return nil, fmt.Errorf("rate %q: invalid cost", part)
		}
		table[svc] = cost
	}
	return table, nil
}
