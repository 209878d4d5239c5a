// Package aggregate keeps parent totals consistent with their line items.
//
// Every recomputation reads all live children through the caller's
// transaction-scoped store, derives the total from scratch and writes the
// parent only when the stored value differs.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/pricing"
)

// QuotationLine is the slice of a quotation line that feeds the total.
type QuotationLine struct {
	Quantity int
	Derived  pricing.Derived
}

// OrderLine is the slice of a purchase order line that feeds the total cost.
type OrderLine struct {
	Quantity      int
	ProviderPrice decimal.Decimal
}

// QuotationStore reads and writes quotation totals inside a transaction.
type QuotationStore interface {
	QuotationLinesForTotal(ctx context.Context, quotationID int64) ([]QuotationLine, error)
	LockQuotationTotal(ctx context.Context, quotationID int64) (decimal.Decimal, error)
	UpdateQuotationTotal(ctx context.Context, quotationID int64, total decimal.Decimal) error
}

// AdoptionStore reads and writes adopted quantities inside a transaction.
type AdoptionStore interface {
	AdoptedQuantities(ctx context.Context, adoptionID int64) ([]int, error)
	LockAdoptionQuantity(ctx context.Context, adoptionID int64) (int, error)
	UpdateAdoptionQuantity(ctx context.Context, adoptionID int64, quantity int) error
}

// OrderStore reads and writes purchase order totals inside a transaction.
type OrderStore interface {
	OrderLinesForTotal(ctx context.Context, orderID int64) ([]OrderLine, error)
	LockOrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
}

// Store combines every aggregate port.
type Store interface {
	QuotationStore
	AdoptionStore
	OrderStore
}

// Outcome reports the recomputed value and whether it was written.
type Outcome struct {
	Value   decimal.Decimal
	Changed bool
}

// QuantityOutcome reports a recomputed quantity and whether it was written.
type QuantityOutcome struct {
	Value   int
	Changed bool
}

// Engine recomputes parent aggregates.
type Engine struct {
	metrics *Metrics
	logger  *slog.Logger
}

// NewEngine constructs an Engine. Both arguments may be nil.
func NewEngine(metrics *Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{metrics: metrics, logger: logger}
}

// RecomputeQuotationTotal sets the quotation total to the sum of net price x quantity.
func (e *Engine) RecomputeQuotationTotal(ctx context.Context, store QuotationStore, quotationID int64) (Outcome, error) {
	stored, err := store.LockQuotationTotal(ctx, quotationID)
	if err != nil {
		return Outcome{}, err
	}
	lines, err := store.QuotationLinesForTotal(ctx, quotationID)
	if err != nil {
		return Outcome{}, err
	}
	total := QuotationTotal(lines)
	if total.Equal(stored) {
		e.observe(KindQuotationTotal, false)
		return Outcome{Value: stored}, nil
	}
	if err := store.UpdateQuotationTotal(ctx, quotationID, total); err != nil {
		return Outcome{}, fmt.Errorf("aggregate: update quotation %d total: %w", quotationID, err)
	}
	e.observe(KindQuotationTotal, true)
	e.logger.DebugContext(ctx, "quotation total recomputed", slog.Int64("quotation_id", quotationID), slog.String("total", total.StringFixed(2)))
	return Outcome{Value: total, Changed: true}, nil
}

// RecomputeAdoptionQuantity sets the adoption total to the sum of adopted quantities.
func (e *Engine) RecomputeAdoptionQuantity(ctx context.Context, store AdoptionStore, adoptionID int64) (QuantityOutcome, error) {
	stored, err := store.LockAdoptionQuantity(ctx, adoptionID)
	if err != nil {
		return QuantityOutcome{}, err
	}
	quantities, err := store.AdoptedQuantities(ctx, adoptionID)
	if err != nil {
		return QuantityOutcome{}, err
	}
	total := AdoptionQuantity(quantities)
	if total == stored {
		e.observe(KindAdoptionQuantity, false)
		return QuantityOutcome{Value: stored}, nil
	}
	if err := store.UpdateAdoptionQuantity(ctx, adoptionID, total); err != nil {
		return QuantityOutcome{}, fmt.Errorf("aggregate: update adoption %d quantity: %w", adoptionID, err)
	}
	e.observe(KindAdoptionQuantity, true)
	e.logger.DebugContext(ctx, "adoption quantity recomputed", slog.Int64("adoption_id", adoptionID), slog.Int("quantity", total))
	return QuantityOutcome{Value: total, Changed: true}, nil
}

// RecomputeOrderTotal sets the order total cost to the sum of quantity x snapshotted provider price.
func (e *Engine) RecomputeOrderTotal(ctx context.Context, store OrderStore, orderID int64) (Outcome, error) {
	stored, err := store.LockOrderTotal(ctx, orderID)
	if err != nil {
		return Outcome{}, err
	}
	lines, err := store.OrderLinesForTotal(ctx, orderID)
	if err != nil {
		return Outcome{}, err
	}
	total := OrderTotal(lines)
	if total.Equal(stored) {
		e.observe(KindOrderTotal, false)
		return Outcome{Value: stored}, nil
	}
	if err := store.UpdateOrderTotal(ctx, orderID, total); err != nil {
		return Outcome{}, fmt.Errorf("aggregate: update order %d total: %w", orderID, err)
	}
	e.observe(KindOrderTotal, true)
	e.logger.DebugContext(ctx, "order total recomputed", slog.Int64("order_id", orderID), slog.String("total", total.StringFixed(2)))
	return Outcome{Value: total, Changed: true}, nil
}

func (e *Engine) observe(kind Kind, changed bool) {
	if e == nil {
		return
	}
	e.metrics.Observe(kind, changed)
}

// QuotationTotal sums net price x quantity over lines.
func QuotationTotal(lines []QuotationLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Derived.NetPrice().Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return pricing.Round2(total)
}

// AdoptionQuantity sums adopted quantities.
func AdoptionQuantity(quantities []int) int {
	total := 0
	for _, q := range quantities {
		total += q
	}
	return total
}

// OrderTotal sums quantity x provider price over lines.
func OrderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.ProviderPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return pricing.Round2(total)
}
