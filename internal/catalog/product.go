package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrInvalidProduct is returned when product construction arguments are rejected.
var ErrInvalidProduct = errors.New("invalid product")

// MaxPrice bounds unit prices (one billion in major units) so line and order
// totals stay within int64 minor units.
const MaxPrice pricing.Money = 100_000_000_000

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Product is an immutable catalog entry. DiscountPrice, when set, is the product's
// standing discounted price independent of any promo code.
type Product struct {
	SKU           string         `json:"sku" validate:"required"`
	Name          string         `json:"name"`
	Price         pricing.Money  `json:"price" validate:"gte=0"`
	DiscountPrice *pricing.Money `json:"discountPrice,omitempty" validate:"omitempty,gte=0"`
}

// Option customises product construction.
type Option func(*Product)

// WithDiscountPrice attaches an intrinsic discounted price.
func WithDiscountPrice(price pricing.Money) Option {
	return func(p *Product) {
		v := price
		p.DiscountPrice = &v
	}
}

// NewProduct validates and constructs a product.
func NewProduct(sku, name string, price pricing.Money, opts ...Option) (Product, error) {
	p := Product{SKU: strings.TrimSpace(sku), Name: name, Price: price}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Clone returns a copy that shares no memory with p.
func (p Product) Clone() Product {
	if p.DiscountPrice != nil {
		v := *p.DiscountPrice
		p.DiscountPrice = &v
	}
	return p
}

// MustProduct is like NewProduct but panics on invalid input. Intended for fixtures.
func MustProduct(sku, name string, price pricing.Money, opts ...Option) Product {
	p, err := NewProduct(sku, name, price, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks the product invariants.
func (p Product) Validate() error {
	if err := structValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invalid("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return invalid("%v", err)
	}
	if p.Price > MaxPrice {
		return invalid("price %d exceeds maximum %d", p.Price, MaxPrice)
	}
	if p.DiscountPrice != nil && *p.DiscountPrice > p.Price {
		return invalid("discount price %d exceeds price %d", *p.DiscountPrice, p.Price)
	}
	return nil
}

// EffectivePrice returns the per-unit price after the intrinsic discount.
func (p Product) EffectivePrice() pricing.Money {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// HasDiscount reports whether the product carries an intrinsic discount.
func (p Product) HasDiscount() bool {
	return p.DiscountPrice != nil && *p.DiscountPrice < p.Price
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidProduct, fmt.Sprintf(format, args...), common.ErrValidation)
}
