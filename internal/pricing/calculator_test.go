package pricing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookexpress/cotizador/internal/shared"
)

func requireAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func TestComputeDirectSaleScenario(t *testing.T) {
	derived, err := ComputeLineItem("DIRECT_FAIR", RawInputs{
		BasePrice:             "100.00",
		ProviderDiscount:      30,
		InstitutionalDiscount: 20,
		CeilingPrice:          "90.00",
		Commission:            "5.00",
	})
	require.NoError(t, err)

	assert.Equal(t, SaleTypeDirectFair, derived.SaleType)
	requireAmount(t, "70.00", derived.ProviderPrice, "provider_price")
	requireAmount(t, "20.00", derived.InstitutionalDiscountAmount, "institutional_discount_amount")
	requireAmount(t, "80.00", derived.InstitutionalPrice, "institutional_price")
	requireAmount(t, "75.00", derived.CoordinatorPrice, "coordinator_price")
	requireAmount(t, "5.00", derived.UnitProfit, "unit_profit")
	requireAmount(t, "7.14", derived.ROIPercent, "roi_percent")
	requireAmount(t, "10.00", derived.InstitutionalProfit, "institutional_profit")
	requireAmount(t, "5.00", derived.ROIAmount, "roi_amount")
	requireAmount(t, "80.00", derived.NetPrice(), "net_price")
}

func TestComputeConsignmentScenario(t *testing.T) {
	derived, err := ComputeLineItem("CONSIGNMENT", RawInputs{
		BasePrice:           200,
		ProviderDiscount:    "40%",
		ConsignmentDiscount: 15,
		Commission:          20,
	})
	require.NoError(t, err)

	requireAmount(t, "120.00", derived.ProviderPrice, "provider_price")
	requireAmount(t, "170.00", derived.ConsignmentPrice, "consignment_price")
	requireAmount(t, "150.00", derived.CoordinatedPrice, "coordinated_price")
	requireAmount(t, "30.00", derived.InstitutionalProfit, "institutional_profit")
	requireAmount(t, "30.00", derived.UnitProfit, "unit_profit")
	requireAmount(t, "25.00", derived.ROIPercent, "roi_percent")
	requireAmount(t, "150.00", derived.NetPrice(), "net_price")
	assert.True(t, derived.InstitutionalPrice.IsZero())
}

func TestComputeRejectsUnknownSaleType(t *testing.T) {
	_, err := ComputeLineItem("BOGUS", RawInputs{BasePrice: 10})
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "sale_type", inputErr.Field)
	assert.Contains(t, err.Error(), "BOGUS")
}

func TestComputeRejectsConsignmentDiscountOverCap(t *testing.T) {
	derived, err := Compute(SaleTypeConsignment, RawInputs{BasePrice: 100, ConsignmentDiscount: 60})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "consignment_discount")
	assert.Equal(t, Derived{}, derived)

	_, err = Compute(SaleTypeConsignment, RawInputs{BasePrice: 100, ConsignmentDiscount: 50})
	require.NoError(t, err)
}

func TestComputeAcceptsLegacySynonyms(t *testing.T) {
	for _, tag := range []string{"PV", "punto de venta", "PUNTO_DE_VENTA", "Feria", " direct_fair "} {
		st, err := ParseSaleType(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, SaleTypeDirectFair, st, tag)
	}
	for _, tag := range []string{"consigna", "CONSIGNMENT"} {
		st, err := ParseSaleType(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, SaleTypeConsignment, st, tag)
	}
}

func TestComputeRoundsHalfUpAtEachStep(t *testing.T) {
	derived, err := Compute(SaleTypeDirectFair, RawInputs{BasePrice: "100.005", InstitutionalDiscount: 0.0})
	require.NoError(t, err)
	requireAmount(t, "100.01", derived.BasePrice, "base_price")
	requireAmount(t, "100.01", derived.ProviderPrice, "provider_price")
	requireAmount(t, "100.01", derived.InstitutionalPrice, "institutional_price")

	// 10.01 * 0.125 = 1.25125 rounds to 1.25 before feeding the institutional price.
	derived, err = Compute(SaleTypeDirectFair, RawInputs{BasePrice: "10.01", InstitutionalDiscount: "12.5%"})
	require.NoError(t, err)
	requireAmount(t, "1.25", derived.InstitutionalDiscountAmount, "institutional_discount_amount")
	requireAmount(t, "8.76", derived.InstitutionalPrice, "institutional_price")

	// 0.125 is a tie and rounds away from zero.
	derived, err = Compute(SaleTypeDirectFair, RawInputs{BasePrice: "0.125", InstitutionalDiscount: 10})
	require.NoError(t, err)
	requireAmount(t, "0.13", derived.BasePrice, "base_price")
}

func TestComputeOutputsAreWholeCents(t *testing.T) {
	inputs := []RawInputs{
		{BasePrice: "33.333", ProviderDiscount: "33.3%", InstitutionalDiscount: 17, Commission: "1.111"},
		{BasePrice: 59.9, ProviderDiscount: 0.275, ConsignmentDiscount: "12,5", Commission: 3},
		{BasePrice: "1e2", ProviderDiscount: "7", InstitutionalDiscount: "abc"},
	}
	for _, st := range []SaleType{SaleTypeDirectFair, SaleTypeConsignment} {
		for _, raw := range inputs {
			derived, err := Compute(st, raw)
			require.NoError(t, err)
			for name, v := range map[string]decimal.Decimal{
				"provider_price":       derived.ProviderPrice,
				"institutional_price":  derived.InstitutionalPrice,
				"coordinator_price":    derived.CoordinatorPrice,
				"consignment_price":    derived.ConsignmentPrice,
				"coordinated_price":    derived.CoordinatedPrice,
				"unit_profit":          derived.UnitProfit,
				"institutional_profit": derived.InstitutionalProfit,
				"roi_percent":          derived.ROIPercent,
			} {
				assert.Truef(t, v.Equal(v.Round(2)), "%s %s not whole cents: %s", st, name, v)
			}
		}
	}
}

func TestComputeFloorsProfitAndROIAtZero(t *testing.T) {
	derived, err := Compute(SaleTypeDirectFair, RawInputs{
		BasePrice:             100,
		ProviderDiscount:      10,
		InstitutionalDiscount: 40,
		Commission:            10,
		CeilingPrice:          50,
	})
	require.NoError(t, err)
	requireAmount(t, "90.00", derived.ProviderPrice, "provider_price")
	requireAmount(t, "50.00", derived.CoordinatorPrice, "coordinator_price")
	assert.True(t, derived.UnitProfit.IsZero())
	assert.True(t, derived.ROIPercent.IsZero())
	assert.True(t, derived.ROIAmount.IsZero())
	assert.True(t, derived.InstitutionalProfit.IsZero())

	derived, err = Compute(SaleTypeConsignment, RawInputs{BasePrice: 10, ConsignmentDiscount: 10, Commission: 50})
	require.NoError(t, err)
	assert.True(t, derived.CoordinatedPrice.IsZero())
	assert.True(t, derived.UnitProfit.IsZero())
	assert.True(t, derived.ROIPercent.IsZero())
	requireAmount(t, "9.00", derived.NetPrice(), "net_price falls back to consignment price")
}

func TestComputeZeroProviderPriceYieldsZeroROI(t *testing.T) {
	derived, err := Compute(SaleTypeDirectFair, RawInputs{BasePrice: 50, ProviderDiscount: 100})
	require.NoError(t, err)
	assert.True(t, derived.ProviderPrice.IsZero())
	assert.True(t, derived.ROIPercent.IsZero())
	requireAmount(t, "40.00", derived.UnitProfit, "unit_profit")
}

func TestNormalizeAppliesDefaultsAndLeniency(t *testing.T) {
	in, err := Normalize(SaleTypeDirectFair, RawInputs{BasePrice: json.Number("12.345"), Commission: "n/a"})
	require.NoError(t, err)
	requireAmount(t, "12.35", in.BasePrice, "base_price")
	assert.True(t, in.InstitutionalDiscount.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, in.Commission.IsZero())
	assert.False(t, in.HasCeiling)

	in, err = Normalize(SaleTypeDirectFair, RawInputs{})
	require.NoError(t, err)
	assert.True(t, in.BasePrice.IsZero())

	in, err = Normalize(SaleTypeDirectFair, RawInputs{BasePrice: 10, ConsignmentDiscount: 30})
	require.NoError(t, err)
	assert.True(t, in.ConsignmentDiscount.IsZero(), "fields outside the sale type are ignored")

	in, err = Normalize(SaleTypeDirectFair, RawInputs{BasePrice: "twelve"})
	require.NoError(t, err)
	assert.True(t, in.BasePrice.IsZero(), "unparseable base price coerces to zero")
}

func TestComputeLineItemCoercesUnparseableInputs(t *testing.T) {
	d, err := ComputeLineItem("FERIA", RawInputs{BasePrice: 100, ProviderDiscount: "abc", InstitutionalDiscount: "n/a"})
	require.NoError(t, err)
	requireAmount(t, "100", d.ProviderPrice, "provider_price")
	requireAmount(t, "100", d.InstitutionalPrice, "institutional_price")

	d, err = ComputeLineItem("FERIA", RawInputs{BasePrice: "twelve", ProviderDiscount: 30})
	require.NoError(t, err)
	assert.True(t, d.BasePrice.IsZero())
	assert.True(t, d.ProviderPrice.IsZero())
}

func TestNetPriceFallbacks(t *testing.T) {
	base := decimal.RequireFromString("12.50")
	d := Derived{SaleType: SaleTypeConsignment, BasePrice: base}
	requireAmount(t, "12.50", d.NetPrice(), "base fallback")

	d.ConsignmentPrice = decimal.RequireFromString("11.00")
	requireAmount(t, "11.00", d.NetPrice(), "consignment fallback")

	d.CoordinatedPrice = decimal.RequireFromString("10.00")
	requireAmount(t, "10.00", d.NetPrice(), "coordinated")

	direct := Derived{SaleType: SaleTypeDirectFair, BasePrice: base, InstitutionalPrice: decimal.RequireFromString("10.00")}
	requireAmount(t, "10.00", direct.NetPrice(), "direct")
}
