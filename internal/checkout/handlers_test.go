package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

type envelope struct {
	Data  checkout.Output `json:"data"`
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T, quotes shipping.QuoteService) http.Handler {
	t.Helper()
	lookup, err := catalog.NewMemory(
		catalog.MustProduct("SHIRT", "Shirt", 2500),
		catalog.MustProduct("SOCKS", "Socks", 500),
		catalog.MustProduct("MUG", "Mug", 500, catalog.WithDiscountPrice(300)),
	)
	require.NoError(t, err)
	h := &checkout.Handler{Svc: &checkout.Service{
		Catalog: lookup,
		Quotes:  quotes,
		Promos:  promo.DefaultRegistry(),
	}}
	r := chi.NewRouter()
	r.Post("/v1/purchases/preview", h.Preview)
	return r
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/purchases/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestPreviewPricesCart(t *testing.T) {
	h := newRouter(t, shipping.FixedQuote{Cost: 500})
	rec, env := post(t, h, `{
		"items": [{"sku": "SHIRT", "qty": 1}, {"sku": "SOCKS", "qty": 1}],
		"shipping": {"service": "USPSPriorityMail", "address": "30 W 21st Street, New York, NY 10010"},
		"promoCodes": ["FIRSTTIME"]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	p := env.Data.Purchase
	require.Equal(t, int64(3200), p.TotalPrice)
	require.Equal(t, int64(300), p.TotalDiscount)
	require.Equal(t, int64(500), p.ShippingCost)
	require.Len(t, p.Items, 2)
	require.Equal(t, int64(2250), p.Items[0].TotalPrice)
	require.Equal(t, "32.00", env.Data.Display.TotalPrice)
	require.Equal(t, "3.00", env.Data.Display.TotalDiscount)
	require.NotEmpty(t, env.Data.CartID)
}

func TestPreviewWithoutShipping(t *testing.T) {
	h := newRouter(t, shipping.FixedQuote{Cost: 500})
	rec, env := post(t, h, `{"items": [{"sku": "MUG", "qty": 2}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(600), env.Data.Purchase.TotalPrice)
	require.Equal(t, int64(400), env.Data.Purchase.TotalDiscount)
	require.Zero(t, env.Data.Purchase.ShippingCost)
}

func TestPreviewErrors(t *testing.T) {
	failing := shipping.QuoteFunc(func(context.Context, shipping.Info, shipping.Snapshot) (pricing.Money, error) {
		return 0, errors.New("carrier down")
	})
	cases := []struct {
		name   string
		quotes shipping.QuoteService
		body   string
		status int
		code   string
	}{
		{"malformed json", nil, `{"items":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"zero quantity", nil, `{"items":[{"sku":"SHIRT","qty":0}]}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"quantity over line limit", nil, `{"items":[{"sku":"SOCKS","qty":6000},{"sku":"SOCKS","qty":5000}]}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing sku", nil, `{"items":[{"qty":1}]}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown product", nil, `{"items":[{"sku":"HAT","qty":1}]}`, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"unknown service", nil, `{"shipping":{"service":"Pigeon"}}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown promo", nil, `{"promoCodes":["NOPE"]}`, http.StatusUnprocessableEntity, "UNKNOWN_PROMO_CODE"},
		{"quote failure", failing, `{"items":[{"sku":"SHIRT","qty":1}],"shipping":{"service":"UPSGround"}}`, http.StatusBadGateway, "SHIPPING_QUOTE_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := post(t, newRouter(t, tc.quotes), tc.body)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestPreviewUnknownPromoDetails(t *testing.T) {
	_, env := post(t, newRouter(t, nil), `{"items":[{"sku":"SHIRT","qty":1}],"promoCodes":["firsttime"]}`)
	require.Equal(t, map[string]string{"code": "firsttime"}, env.Error.Details)
}

func TestPreviewValidationDetails(t *testing.T) {
	_, env := post(t, newRouter(t, nil), `{"items":[{"sku":"SHIRT","qty":-1}]}`)
	require.Equal(t, map[string]string{"Input.Items[0].Qty": "gt"}, env.Error.Details)
}

func TestPreviewWithoutService(t *testing.T) {
	h := &checkout.Handler{}
	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
