package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookexpress/cotizador/internal/shared"
)

type stubProducts map[int64]ProductDefaults

func (s stubProducts) PricingDefaults(_ context.Context, ids []int64) (map[int64]ProductDefaults, error) {
	out := make(map[int64]ProductDefaults, len(ids))
	for _, id := range ids {
		p, ok := s[id]
		if !ok {
			return nil, fmt.Errorf("catalog: product %w: id %d", shared.ErrNotFound, id)
		}
		out[id] = p
	}
	return out, nil
}

func newPricingRouter() http.Handler {
	r := chi.NewRouter()
	r.Route("/pricing", NewHandler(stubProducts{
		1: {ListPrice: decimal.NewFromInt(100), ProviderDiscount: decimal.RequireFromString("0.30")},
		2: {ListPrice: decimal.NewFromInt(250), ProviderDiscount: decimal.RequireFromString("0.40")},
	}).MountRoutes)
	return r
}

func TestCalculateEndpoint(t *testing.T) {
	body := `{"sale_type":"feria","base_price":100,"provider_discount":"30%","institutional_discount":20,"commission":"5","ceiling_price":90}`
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "DIRECT_FAIR", got["sale_type"])
	assert.Equal(t, "70.00", got["provider_price"])
	assert.Equal(t, "80.00", got["institutional_price"])
	assert.Equal(t, "7.14", got["roi_percent"])
	assert.Equal(t, "0.00", got["consignment_price"])
}

func TestCalculateEndpointFillsFromCatalog(t *testing.T) {
	body := `{"sale_type":"FERIA","product_id":1,"institutional_discount":20}`
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "100.00", got["base_price"])
	assert.Equal(t, "70.00", got["provider_price"])
}

func TestCalculateEndpointUnknownProduct(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate", strings.NewReader(`{"sale_type":"FERIA","product_id":987654321}`))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "987654321")
}

func TestCalculateBatchEndpointUnknownProduct(t *testing.T) {
	body := `{"sale_type":"FERIA","items":[{"product_id":987654321,"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate-batch", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "987654321")
}

func TestCalculateBatchEndpointFillsFromCatalog(t *testing.T) {
	body := `{"sale_type":"FERIA","items":[
		{"product_id":1,"quantity":2},
		{"product_id":2,"quantity":1,"base_price":300,"provider_discount":50}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate-batch", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Subtotal string `json:"subtotal"`
		Items    []struct {
			Derived map[string]any `json:"derived"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "100.00", got.Items[0].Derived["base_price"])
	assert.Equal(t, "70.00", got.Items[0].Derived["provider_price"])
	assert.Equal(t, "300.00", got.Items[1].Derived["base_price"])
	assert.Equal(t, "150.00", got.Items[1].Derived["provider_price"])
	assert.Equal(t, "500.00", got.Subtotal)
}

func TestCalculateEndpointRejectsUnknownSaleType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate", strings.NewReader(`{"sale_type":"BOGUS","base_price":10}`))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BOGUS")
}

func TestCalculateBatchEndpointReportsFailingItem(t *testing.T) {
	body := `{"sale_type":"CONSIGNA","items":[
		{"product_id":1,"quantity":2,"base_price":200,"provider_discount":40,"consignment_discount":15,"commission":20},
		{"product_id":2,"quantity":1,"base_price":200,"provider_discount":40,"consignment_discount":60}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate-batch", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "consignment_discount")
}

func TestCalculateBatchEndpoint(t *testing.T) {
	body := `{"sale_type":"CONSIGNMENT","items":[
		{"product_id":1,"quantity":2,"base_price":200,"provider_discount":40,"consignment_discount":15,"commission":20}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/pricing/calculate-batch", strings.NewReader(body))
	rec := httptest.NewRecorder()

	newPricingRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "340", got.Subtotal.String())
	assert.Equal(t, "60", got.TotalProfit.String())
	assert.Contains(t, rec.Body.String(), `"subtotal":"340.00"`)
	assert.Contains(t, rec.Body.String(), `"total_profit":"60.00"`)
}
