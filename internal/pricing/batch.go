package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BatchItem is one line of a batch computation.
type BatchItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	RawInputs
}

// BatchLine is a computed batch item.
type BatchLine struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Derived   Derived `json:"derived"`
}

// BatchResult aggregates a batch computed under one sale type.
type BatchResult struct {
	SaleType    SaleType        `json:"sale_type"`
	Items       []BatchLine     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

// MarshalJSON renders the totals with two decimals.
func (r BatchResult) MarshalJSON() ([]byte, error) {
	type plain BatchResult
	return json.Marshal(struct {
		plain
		Subtotal    string `json:"subtotal"`
		TotalProfit string `json:"total_profit"`
	}{
		plain:       plain(r),
		Subtotal:    cents(r.Subtotal),
		TotalProfit: cents(r.TotalProfit),
	})
}

// ComputeBatch prices every item under the shared sale-type tag.
// The first failing item aborts the batch; no partial result is returned.
// A zero quantity counts as one unit.
func ComputeBatch(tag string, items []BatchItem) (BatchResult, error) {
	st, err := ParseSaleType(tag)
	if err != nil {
		return BatchResult{}, err
	}
	if len(items) == 0 {
		return BatchResult{}, invalid("items", len(items), "at least one item is required")
	}
	result := BatchResult{SaleType: st, Items: make([]BatchLine, 0, len(items)), Subtotal: zero, TotalProfit: zero}
	for i, item := range items {
		if item.ProductID <= 0 {
			return BatchResult{}, &BatchItemError{Index: i, ProductID: item.ProductID, Err: invalid("product_id", item.ProductID, "product reference is required")}
		}
		if item.Quantity < 0 {
			return BatchResult{}, &BatchItemError{Index: i, ProductID: item.ProductID, Err: invalid("quantity", item.Quantity, "must not be negative")}
		}
		derived, err := Compute(st, item.RawInputs)
		if err != nil {
			return BatchResult{}, &BatchItemError{Index: i, ProductID: item.ProductID, Err: err}
		}
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		units := decimal.NewFromInt(int64(qty))
		result.Subtotal = result.Subtotal.Add(Round2(derived.SubtotalPrice().Mul(units)))
		result.TotalProfit = result.TotalProfit.Add(Round2(derived.UnitProfit.Mul(units)))
		result.Items = append(result.Items, BatchLine{ProductID: item.ProductID, Quantity: qty, Derived: derived})
	}
	return result, nil
}
