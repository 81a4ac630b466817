package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

// ItemInput is one requested line. Repeated SKUs aggregate.
type ItemInput struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"gt=0"`
}

// ShippingInput selects a carrier service by name, e.g. "UPSGround".
type ShippingInput struct {
	Service string `json:"service" validate:"required"`
	Address string `json:"address" validate:"max=512"`
}

// Input is the preview request body.
type Input struct {
	Items      []ItemInput    `json:"items" validate:"max=100,dive"`
	Shipping   *ShippingInput `json:"shipping" validate:"omitempty"`
	PromoCodes []string       `json:"promoCodes" validate:"max=10,dive,required"`
}

// Display carries human-readable renderings of the purchase totals.
type Display struct {
	TotalPrice       string `json:"totalPrice"`
	TotalDiscount    string `json:"totalDiscount"`
	ShippingCost     string `json:"shippingCost"`
	ShippingDiscount string `json:"shippingDiscount"`
}

// Output is the preview response payload.
type Output struct {
	CartID   string        `json:"cartId"`
	Purchase cart.Purchase `json:"purchase"`
	Display  Display       `json:"display"`
}

// Service prices ad-hoc carts without persisting them.
type Service struct {
	Catalog catalog.Lookup
	Quotes  shipping.QuoteService
	Promos  promo.Resolver
	Logger  zerolog.Logger
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Preview builds a throwaway cart from in and prices it.
func (s *Service) Preview(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Catalog == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if err := inputValidator().Struct(in); err != nil {
		return Output{}, validationFailure(err)
	}

	c := cart.New(s.Quotes, s.Promos, cart.WithCatalog(s.Catalog), cart.WithLogger(s.Logger))
	for _, item := range in.Items {
		if err := c.AddSKU(ctx, item.SKU, item.Qty); err != nil {
			return Output{}, classify(err)
		}
	}
	if in.Shipping != nil {
		service, err := shipping.ParseService(in.Shipping.Service)
		if err != nil {
			return Output{}, common.ValidationError("unknown shipping service", err)
		}
		c.UpdateShipping(shipping.Info{Service: service, Address: strings.TrimSpace(in.Shipping.Address)})
	}
	for _, code := range in.PromoCodes {
		if err := c.AddPromoCode(code); err != nil {
			return Output{}, classify(err)
		}
	}

	purchase, err := c.ToPurchase(ctx)
	if err != nil {
		return Output{}, classify(err)
	}
	return Output{
		CartID:   c.ID().String(),
		Purchase: purchase,
		Display: Display{
			TotalPrice:       pricing.Format(purchase.TotalPrice),
			TotalDiscount:    pricing.Format(purchase.TotalDiscount),
			ShippingCost:     pricing.Format(purchase.ShippingCost),
			ShippingDiscount: pricing.Format(purchase.ShippingDiscount),
		},
	}, nil
}

func validationFailure(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.ValidationError("invalid payload", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	appErr := common.ValidationError("invalid payload", err)
	appErr.Details = fields
	return appErr
}

// classify maps domain errors onto API error codes.
func classify(err error) error {
	var unknown *cart.UnknownPromoCodeError
	switch {
	case errors.As(err, &unknown):
		appErr := common.NewAppError("UNKNOWN_PROMO_CODE", "promo code not recognised", http.StatusUnprocessableEntity, err)
		appErr.Details = map[string]string{"code": unknown.Code}
		return appErr
	case errors.Is(err, catalog.ErrNotFound):
		return common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
	case errors.Is(err, shipping.ErrQuote):
		return common.NewAppError("SHIPPING_QUOTE_FAILED", "shipping quote unavailable", http.StatusBadGateway, err)
	case common.IsValidation(err):
		return common.ValidationError(err.Error(), err)
	default:
		return err
	}
}
