package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

// MaxQuantity caps the aggregated units of a single SKU. Together with
// catalog.MaxPrice it keeps line subtotals far below the int64 range.
const MaxQuantity = 10_000

var (
	// ErrInvalidQuantity is returned when a quantity is not positive.
	ErrInvalidQuantity = fmt.Errorf("quantity must be positive: %w", common.ErrValidation)
	// ErrQuantityLimit is returned when a SKU would exceed MaxQuantity units.
	ErrQuantityLimit = fmt.Errorf("quantity exceeds %d units per line: %w", MaxQuantity, common.ErrValidation)
	// ErrNoCatalog is returned by AddSKU when the cart has no catalog lookup.
	ErrNoCatalog = errors.New("cart has no catalog configured")
	// ErrNotInCart is returned when removing a SKU or code that was never added.
	ErrNotInCart = errors.New("not in cart")
)

// UnknownPromoCodeError reports a code the promo resolver does not know.
type UnknownPromoCodeError struct {
	Code string
}

func (e *UnknownPromoCodeError) Error() string {
	return fmt.Sprintf("promo code %q: %v", e.Code, promo.ErrUnknownCode)
}

// Unwrap exposes promo.ErrUnknownCode.
func (e *UnknownPromoCodeError) Unwrap() error { return promo.ErrUnknownCode }

type line struct {
	product  catalog.Product
	quantity int
}

type appliedCode struct {
	code string
	rule promo.Rule
}

// ShoppingCart accumulates products, a shipping selection and promo codes for a
// single checkout session. It is not safe for concurrent use; callers own one cart
// per session and serialise access to it.
type ShoppingCart struct {
	id      uuid.UUID
	quotes  shipping.QuoteService
	promos  promo.Resolver
	catalog catalog.Lookup
	logger  zerolog.Logger

	lines    []line
	index    map[string]int
	shipping *shipping.Info
	codes    []appliedCode
}

// Option customises a ShoppingCart.
type Option func(*ShoppingCart)

// WithCatalog enables AddSKU through lookup.
func WithCatalog(lookup catalog.Lookup) Option {
	return func(c *ShoppingCart) { c.catalog = lookup }
}

// WithLogger sets the cart logger; the cart id is attached to every event.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *ShoppingCart) { c.logger = logger }
}

// WithID overrides the generated cart id.
func WithID(id uuid.UUID) Option {
	return func(c *ShoppingCart) { c.id = id }
}

// New creates an empty cart. A nil quote service prices shipping at zero; a nil
// resolver rejects every promo code.
func New(quotes shipping.QuoteService, promos promo.Resolver, opts ...Option) *ShoppingCart {
	c := &ShoppingCart{
		id:     uuid.New(),
		quotes: quotes,
		promos: promos,
		logger: zerolog.Nop(),
		index:  map[string]int{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("cart_id", c.id.String()).Logger()
	return c
}

// ID returns the cart identifier.
func (c *ShoppingCart) ID() uuid.UUID { return c.id }

// AddProduct adds quantity units of product. Quantities aggregate by SKU; the first
// product metadata seen for a SKU is kept. The cart stores its own copy of product.
func (c *ShoppingCart) AddProduct(product catalog.Product, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("add %s x%d: %w", product.SKU, quantity, ErrInvalidQuantity)
	}
	if err := product.Validate(); err != nil {
		return err
	}
	idx, ok := c.index[product.SKU]
	current := 0
	if ok {
		current = c.lines[idx].quantity
	}
	if quantity > MaxQuantity-current {
		return fmt.Errorf("add %s x%d: %w", product.SKU, quantity, ErrQuantityLimit)
	}
	if ok {
		c.lines[idx].quantity += quantity
	} else {
		c.index[product.SKU] = len(c.lines)
		c.lines = append(c.lines, line{product: product.Clone(), quantity: quantity})
	}
	c.logger.Debug().Str("sku", product.SKU).Int("quantity", quantity).Msg("product_added")
	return nil
}

// AddSKU looks sku up in the configured catalog and adds it.
func (c *ShoppingCart) AddSKU(ctx context.Context, sku string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("add %s x%d: %w", sku, quantity, ErrInvalidQuantity)
	}
	if c.catalog == nil {
		return ErrNoCatalog
	}
	product, err := c.catalog.Product(ctx, sku)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", sku, err)
	}
	return c.AddProduct(product, quantity)
}

// RemoveProduct drops every unit of sku.
func (c *ShoppingCart) RemoveProduct(sku string) error {
	idx, ok := c.index[sku]
	if !ok {
		return fmt.Errorf("sku %s: %w", sku, ErrNotInCart)
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	delete(c.index, sku)
	for i := idx; i < len(c.lines); i++ {
		c.index[c.lines[i].product.SKU] = i
	}
	c.logger.Debug().Str("sku", sku).Msg("product_removed")
	return nil
}

// UpdateShipping replaces the shipping selection.
func (c *ShoppingCart) UpdateShipping(info shipping.Info) {
	selected := info
	c.shipping = &selected
	c.logger.Debug().Str("service", string(info.Service)).Msg("shipping_updated")
}

// Shipping returns the current selection, if any.
func (c *ShoppingCart) Shipping() (shipping.Info, bool) {
	if c.shipping == nil {
		return shipping.Info{}, false
	}
	return *c.shipping, true
}

// AddPromoCode applies code. Applying an already applied code is a no-op; an unknown
// code returns *UnknownPromoCodeError and leaves the cart unchanged.
func (c *ShoppingCart) AddPromoCode(code string) error {
	for _, applied := range c.codes {
		if applied.code == code {
			obs.RecordPromoCode(obs.ResultDuplicate)
			return nil
		}
	}
	var (
		rule promo.Rule
		ok   bool
	)
	if c.promos != nil {
		rule, ok = c.promos.Resolve(code)
	}
	if !ok || rule == nil {
		obs.RecordPromoCode(obs.ResultRejected)
		c.logger.Info().Str("code", code).Msg("promo_code_rejected")
		return &UnknownPromoCodeError{Code: code}
	}
	c.codes = append(c.codes, appliedCode{code: code, rule: rule})
	obs.RecordPromoCode(obs.ResultOK)
	c.logger.Info().Str("code", code).Str("rule", rule.String()).Msg("promo_code_applied")
	return nil
}

// RemovePromoCode withdraws a previously applied code.
func (c *ShoppingCart) RemovePromoCode(code string) error {
	for i, applied := range c.codes {
		if applied.code == code {
			c.codes = append(c.codes[:i], c.codes[i+1:]...)
			c.logger.Debug().Str("code", code).Msg("promo_code_removed")
			return nil
		}
	}
	return fmt.Errorf("promo code %q: %w", code, ErrNotInCart)
}

// PromoCodes returns the applied codes in application order.
func (c *ShoppingCart) PromoCodes() []string {
	out := make([]string, len(c.codes))
	for i, applied := range c.codes {
		out[i] = applied.code
	}
	return out
}

// Len returns the number of distinct SKUs in the cart.
func (c *ShoppingCart) Len() int { return len(c.lines) }

// Quantity returns the aggregated quantity for sku.
func (c *ShoppingCart) Quantity(sku string) int {
	if idx, ok := c.index[sku]; ok {
		return c.lines[idx].quantity
	}
	return 0
}

// Snapshot returns the read-only view handed to shipping quote services.
func (c *ShoppingCart) Snapshot() shipping.Snapshot {
	snap := shipping.Snapshot{Items: make([]shipping.SnapshotItem, 0, len(c.lines))}
	for _, l := range c.lines {
		unit := l.product.EffectivePrice()
		snap.Items = append(snap.Items, shipping.SnapshotItem{SKU: l.product.SKU, Quantity: l.quantity, UnitPrice: unit})
		snap.Subtotal += unit * int64(l.quantity)
	}
	return snap
}
