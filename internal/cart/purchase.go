package cart

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

// LineItem is one SKU of a priced purchase. UnitPrice is the list price;
// TotalDiscount covers both the product's own markdown and its share of promo
// discounts, so TotalPrice = UnitPrice*Quantity - TotalDiscount.
type LineItem struct {
	SKU           string        `json:"sku"`
	Name          string        `json:"name,omitempty"`
	Quantity      int           `json:"quantity"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	TotalPrice    pricing.Money `json:"totalPrice"`
	TotalDiscount pricing.Money `json:"totalDiscount"`
}

// Adjustment records what a single promo code took off.
type Adjustment struct {
	Code        string        `json:"code"`
	Rule        string        `json:"rule"`
	Merchandise pricing.Money `json:"merchandise"`
	Shipping    pricing.Money `json:"shipping"`
}

// Purchase is the immutable result of pricing a cart.
//
// ShippingCost is what the customer pays for shipping after free-shipping
// promotions; ShippingDiscount is the waived part and is not included in
// TotalDiscount, which only covers merchandise.
type Purchase struct {
	Items            []LineItem    `json:"items"`
	ShippingCost     pricing.Money `json:"shippingCost"`
	ShippingDiscount pricing.Money `json:"shippingDiscount"`
	TotalPrice       pricing.Money `json:"totalPrice"`
	TotalDiscount    pricing.Money `json:"totalDiscount"`
	PromoCodes       []string      `json:"promoCodes"`
	Adjustments      []Adjustment  `json:"adjustments"`
}

// Merchandise returns the sum of line totals.
func (p Purchase) Merchandise() pricing.Money {
	var sum pricing.Money
	for _, it := range p.Items {
		sum += it.TotalPrice
	}
	return sum
}

// ToPurchase prices the cart. The shipping quote service is called once when a
// shipping selection exists; a quote failure aborts with a *shipping.QuoteError and
// no partial purchase. The cart is not modified.
func (c *ShoppingCart) ToPurchase(ctx context.Context) (Purchase, error) {
	ctx, span := otel.Tracer("cart.ShoppingCart").Start(ctx, "cart.to_purchase")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.id", c.id.String()),
		attribute.Int("cart.lines", len(c.lines)),
		attribute.Int("cart.promo_codes", len(c.codes)),
	)

	shippingCost, err := c.quoteShipping(ctx)
	if err != nil {
		span.RecordError(err)
		obs.RecordPurchase(obs.ResultError, 0)
		c.logger.Warn().Err(err).Msg("shipping_quote_failed")
		return Purchase{}, err
	}

	p := price(c.lines, c.codes, shippingCost)
	span.SetAttributes(
		attribute.Int64("purchase.total_price", p.TotalPrice),
		attribute.Int64("purchase.total_discount", p.TotalDiscount),
	)
	obs.RecordPurchase(obs.ResultOK, p.TotalDiscount)
	c.logger.Info().
		Str("trace_id", obs.TraceID(ctx)).
		Int64("total_price", p.TotalPrice).
		Int64("total_discount", p.TotalDiscount).
		Int64("shipping_cost", p.ShippingCost).
		Strs("promo_codes", p.PromoCodes).
		Msg("purchase_computed")
	return p, nil
}

func (c *ShoppingCart) quoteShipping(ctx context.Context) (pricing.Money, error) {
	if c.shipping == nil || c.quotes == nil {
		return 0, nil
	}
	cost, err := c.quotes.Quote(ctx, *c.shipping, c.Snapshot())
	if err != nil {
		return 0, shipping.WrapQuoteError(c.shipping.Service, err)
	}
	if cost < 0 {
		cost = 0
	}
	return cost, nil
}

// price is the pure pricing pipeline: intrinsic product discounts, then promo
// rules in application order against the running totals, then allocation of the
// promo merchandise discount across lines.
func price(lines []line, codes []appliedCode, shippingQuote pricing.Money) Purchase {
	subtotals := make([]pricing.Money, len(lines))
	intrinsic := make([]pricing.Money, len(lines))
	for i, l := range lines {
		qty := int64(l.quantity)
		subtotals[i] = l.product.EffectivePrice() * qty
		intrinsic[i] = l.product.Price*qty - subtotals[i]
	}

	running := pricing.Sum(subtotals)
	shippingLeft := shippingQuote
	var promoTotal, shippingDiscount pricing.Money
	adjustments := make([]Adjustment, 0, len(codes))
	appliedCodes := make([]string, 0, len(codes))
	for _, ac := range codes {
		d := ac.rule.Apply(promo.Context{Subtotal: running, Shipping: shippingLeft})
		merch := pricing.Clamp(d.Merchandise, 0, running)
		ship := pricing.Clamp(d.Shipping, 0, shippingLeft)
		running -= merch
		shippingLeft -= ship
		promoTotal += merch
		shippingDiscount += ship
		appliedCodes = append(appliedCodes, ac.code)
		adjustments = append(adjustments, Adjustment{Code: ac.code, Rule: ac.rule.String(), Merchandise: merch, Shipping: ship})
	}

	shares := pricing.Allocate(promoTotal, subtotals)
	items := make([]LineItem, len(lines))
	var totalDiscount, merchandise pricing.Money
	for i, l := range lines {
		discount := intrinsic[i] + shares[i]
		items[i] = LineItem{
			SKU:           l.product.SKU,
			Name:          l.product.Name,
			Quantity:      l.quantity,
			UnitPrice:     l.product.Price,
			TotalDiscount: discount,
			TotalPrice:    subtotals[i] - shares[i],
		}
		totalDiscount += discount
		merchandise += items[i].TotalPrice
	}

	return Purchase{
		Items:            items,
		ShippingCost:     shippingLeft,
		ShippingDiscount: shippingDiscount,
		TotalPrice:       merchandise + shippingLeft,
		TotalDiscount:    totalDiscount,
		PromoCodes:       appliedCodes,
		Adjustments:      adjustments,
	}
}
