package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrQuote is matched by every shipping quote failure.
var ErrQuote = errors.New("shipping quote failed")

// ErrUnknownService is returned for a service outside the supported set.
var ErrUnknownService = errors.New("unknown shipping service")

// Service identifies a carrier service level.
type Service string

const (
	USPSPriorityMail Service = "USPSPriorityMail"
	USPSFirstClass   Service = "USPSFirstClass"
	UPSGround        Service = "UPSGround"
	UPSNextDayAir    Service = "UPSNextDayAir"
	FedExGround      Service = "FedExGround"
	FedExOvernight   Service = "FedExOvernight"
)

var carriers = map[Service]string{
	USPSPriorityMail: "usps",
	USPSFirstClass:   "usps",
	UPSGround:        "ups",
	UPSNextDayAir:    "ups",
	FedExGround:      "fedex",
	FedExOvernight:   "fedex",
}

// Services lists every supported service in a stable order.
func Services() []Service {
	return []Service{USPSPriorityMail, USPSFirstClass, UPSGround, UPSNextDayAir, FedExGround, FedExOvernight}
}

// ParseService matches s case-insensitively against the supported services.
func ParseService(s string) (Service, error) {
	trimmed := strings.TrimSpace(s)
	for _, svc := range Services() {
		if strings.EqualFold(string(svc), trimmed) {
			return svc, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownService)
}

// Valid reports whether s is a supported service.
func (s Service) Valid() bool {
	_, ok := carriers[s]
	return ok
}

// Carrier returns the courier code serving s.
func (s Service) Carrier() string {
	return carriers[s]
}

// Info is the shipping selection attached to a cart.
type Info struct {
	Service Service `json:"service" validate:"required"`
	Address string  `json:"address"`
}

// SnapshotItem is a read-only view of one cart line handed to quote services.
type SnapshotItem struct {
	SKU       string
	Quantity  int
	UnitPrice pricing.Money
}

// Snapshot is the cart content a quote is computed for.
type Snapshot struct {
	Items    []SnapshotItem
	Subtotal pricing.Money
}

// Units returns the total quantity across all items.
func (s Snapshot) Units() int {
	var n int
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// QuoteService returns the shipping cost for a selection and cart content.
type QuoteService interface {
	Quote(ctx context.Context, info Info, snapshot Snapshot) (pricing.Money, error)
}

// QuoteFunc adapts a function to QuoteService.
type QuoteFunc func(ctx context.Context, info Info, snapshot Snapshot) (pricing.Money, error)

// Quote implements QuoteService.
func (f QuoteFunc) Quote(ctx context.Context, info Info, snapshot Snapshot) (pricing.Money, error) {
	return f(ctx, info, snapshot)
}

// QuoteError wraps a failure from a quote collaborator.
type QuoteError struct {
	Service Service
	Err     error
}

func (e *QuoteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("shipping quote for %s failed", e.Service)
	}
	return fmt.Sprintf("shipping quote for %s: %v", e.Service, e.Err)
}

// Unwrap exposes the cause.
func (e *QuoteError) Unwrap() error { return e.Err }

// Is matches ErrQuote.
func (e *QuoteError) Is(target error) bool { return target == ErrQuote }

// WrapQuoteError returns err as a *QuoteError, leaving existing ones intact.
func WrapQuoteError(service Service, err error) error {
	if err == nil {
		return nil
	}
	var qe *QuoteError
	if errors.As(err, &qe) {
		return err
	}
	return &QuoteError{Service: service, Err: err}
}
