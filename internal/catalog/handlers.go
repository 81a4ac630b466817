package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Lister enumerates the whole catalog.
type Lister interface {
	List() []Product
}

// Handler exposes public catalog endpoints.
type Handler struct {
	lookup       Lookup
	lister       Lister
	defaultLimit int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Lookup       Lookup
	Lister       Lister
	DefaultLimit int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 20
	}
	return &Handler{lookup: cfg.Lookup, lister: cfg.Lister, defaultLimit: limit}
}

// ProductView is the API rendering of a product.
type ProductView struct {
	Product
	EffectivePrice pricing.Money `json:"effectivePrice"`
	Display        string        `json:"display"`
}

func viewOf(p Product) ProductView {
	return ProductView{Product: p, EffectivePrice: p.EffectivePrice(), Display: pricing.Format(p.EffectivePrice())}
}

// Products handles GET /v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		common.JSONError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "catalog listing not available", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.defaultLimit)
	all := h.lister.List()
	meta := common.NewPagination(page, perPage, len(all))
	start, end := meta.Bounds()

	items := make([]ProductView, 0, end-start)
	for _, p := range all[start:end] {
		items = append(items, viewOf(p))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(all)))
	common.Page(w, items, meta)
}

// ProductDetail handles GET /v1/products/{sku}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.lookup == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	p, err := h.lookup.Product(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.Data(w, http.StatusOK, viewOf(p))
}
