package promo

import (
	"fmt"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Kind names a rule variant.
type Kind string

const (
	KindPercentOff     Kind = "percent"
	KindFixedAmountOff Kind = "fixed"
	KindFreeShipping   Kind = "freeship"
)

// Context is the running state a rule is evaluated against. Subtotal is the
// merchandise subtotal left after earlier rules; Shipping is the shipping cost
// left after earlier rules.
type Context struct {
	Subtotal pricing.Money
	Shipping pricing.Money
}

// Discount is the amount a rule takes off merchandise and shipping.
type Discount struct {
	Merchandise pricing.Money
	Shipping    pricing.Money
}

// Rule computes a discount for a running cart context. Implementations must be
// pure and never return more than the context holds.
type Rule interface {
	Kind() Kind
	Apply(c Context) Discount
	String() string
}

// PercentOff takes a percentage off the merchandise subtotal. Shipping is never touched.
type PercentOff struct {
	Bps      int
	MinSpend pricing.Money
}

// Kind implements Rule.
func (PercentOff) Kind() Kind { return KindPercentOff }

// Apply implements Rule. The amount is rounded half up to the nearest minor unit.
func (r PercentOff) Apply(c Context) Discount {
	if c.Subtotal <= 0 || c.Subtotal < r.MinSpend {
		return Discount{}
	}
	amount := pricing.PercentOf(c.Subtotal, r.Bps)
	return Discount{Merchandise: pricing.Clamp(amount, 0, c.Subtotal)}
}

func (r PercentOff) String() string {
	return fmt.Sprintf("%s off merchandise", bpsString(r.Bps))
}

// FixedAmountOff takes a fixed amount off the merchandise subtotal.
type FixedAmountOff struct {
	Amount   pricing.Money
	MinSpend pricing.Money
}

// Kind implements Rule.
func (FixedAmountOff) Kind() Kind { return KindFixedAmountOff }

// Apply implements Rule.
func (r FixedAmountOff) Apply(c Context) Discount {
	if c.Subtotal <= 0 || c.Subtotal < r.MinSpend {
		return Discount{}
	}
	return Discount{Merchandise: pricing.Clamp(r.Amount, 0, c.Subtotal)}
}

func (r FixedAmountOff) String() string {
	return fmt.Sprintf("%s off merchandise", pricing.Format(r.Amount))
}

// FreeShipping waives whatever shipping cost remains.
type FreeShipping struct {
	MinSpend pricing.Money
}

// Kind implements Rule.
func (FreeShipping) Kind() Kind { return KindFreeShipping }

// Apply implements Rule.
func (r FreeShipping) Apply(c Context) Discount {
	if c.Subtotal < r.MinSpend || c.Shipping <= 0 {
		return Discount{}
	}
	return Discount{Shipping: c.Shipping}
}

func (FreeShipping) String() string { return "free shipping" }

func bpsString(bps int) string {
	if bps%100 == 0 {
		return fmt.Sprintf("%d%%", bps/100)
	}
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}
