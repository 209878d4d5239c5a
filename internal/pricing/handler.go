package pricing

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/platform/httpx"
)

// ProductDefaults are the catalog values an item falls back to when the
// caller leaves base price or provider discount out.
type ProductDefaults struct {
	ListPrice        decimal.Decimal
	ProviderDiscount decimal.Decimal
}

// ProductLookup resolves catalog defaults by product id. Unknown ids are an error.
type ProductLookup interface {
	PricingDefaults(ctx context.Context, ids []int64) (map[int64]ProductDefaults, error)
}

// CalculateRequest prices a single line item. ProductID is optional.
type CalculateRequest struct {
	SaleType  string `json:"sale_type"`
	ProductID int64  `json:"product_id,omitempty"`
	RawInputs
}

// CalculateBatchRequest prices several items under one sale type.
type CalculateBatchRequest struct {
	SaleType string      `json:"sale_type"`
	Items    []BatchItem `json:"items"`
}

// Handler exposes the calculator over HTTP.
type Handler struct {
	products ProductLookup
}

// NewHandler builds a pricing Handler. Without products, items are priced
// from the request alone.
func NewHandler(products ProductLookup) *Handler {
	return &Handler{products: products}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/calculate", h.calculate)
	r.Post("/calculate-batch", h.calculateBatch)
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.ProductID > 0 {
		defaults, err := h.defaults(r.Context(), []int64{req.ProductID})
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		req.RawInputs = WithDefaults(req.RawInputs, defaults[req.ProductID])
	}
	derived, err := ComputeLineItem(req.SaleType, req.RawInputs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, derived)
}

func (h *Handler) calculateBatch(w http.ResponseWriter, r *http.Request) {
	var req CalculateBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ids := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID > 0 {
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) > 0 {
		defaults, err := h.defaults(r.Context(), ids)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		for i := range req.Items {
			if d, ok := defaults[req.Items[i].ProductID]; ok {
				req.Items[i].RawInputs = WithDefaults(req.Items[i].RawInputs, d)
			}
		}
	}
	result, err := ComputeBatch(req.SaleType, req.Items)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) defaults(ctx context.Context, ids []int64) (map[int64]ProductDefaults, error) {
	if h.products == nil {
		return map[int64]ProductDefaults{}, nil
	}
	return h.products.PricingDefaults(ctx, ids)
}

// WithDefaults fills base price and provider discount from the product when absent.
func WithDefaults(raw RawInputs, product ProductDefaults) RawInputs {
	if Absent(raw.BasePrice) {
		raw.BasePrice = product.ListPrice
	}
	if Absent(raw.ProviderDiscount) {
		raw.ProviderDiscount = product.ProviderDiscount
	}
	return raw
}
