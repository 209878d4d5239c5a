package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bookexpress/cotizador/internal/pricing"
)

type memoryStore struct {
	quotationLines map[int64][]QuotationLine
	quotationTotal map[int64]decimal.Decimal
	adoptionQty    map[int64][]int
	adoptionTotal  map[int64]int
	orderLines     map[int64][]OrderLine
	orderTotal     map[int64]decimal.Decimal
	writes         int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		quotationLines: make(map[int64][]QuotationLine),
		quotationTotal: make(map[int64]decimal.Decimal),
		adoptionQty:    make(map[int64][]int),
		adoptionTotal:  make(map[int64]int),
		orderLines:     make(map[int64][]OrderLine),
		orderTotal:     make(map[int64]decimal.Decimal),
	}
}

var errMissing = errors.New("missing parent")

func (s *memoryStore) QuotationLinesForTotal(ctx context.Context, id int64) ([]QuotationLine, error) {
	return append([]QuotationLine(nil), s.quotationLines[id]...), nil
}

func (s *memoryStore) LockQuotationTotal(ctx context.Context, id int64) (decimal.Decimal, error) {
	total, ok := s.quotationTotal[id]
	if !ok {
		return decimal.Zero, errMissing
	}
	return total, nil
}

func (s *memoryStore) UpdateQuotationTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	s.writes++
	s.quotationTotal[id] = total
	return nil
}

func (s *memoryStore) AdoptedQuantities(ctx context.Context, id int64) ([]int, error) {
	return append([]int(nil), s.adoptionQty[id]...), nil
}

func (s *memoryStore) LockAdoptionQuantity(ctx context.Context, id int64) (int, error) {
	qty, ok := s.adoptionTotal[id]
	if !ok {
		return 0, errMissing
	}
	return qty, nil
}

func (s *memoryStore) UpdateAdoptionQuantity(ctx context.Context, id int64, qty int) error {
	s.writes++
	s.adoptionTotal[id] = qty
	return nil
}

func (s *memoryStore) OrderLinesForTotal(ctx context.Context, id int64) ([]OrderLine, error) {
	return append([]OrderLine(nil), s.orderLines[id]...), nil
}

func (s *memoryStore) LockOrderTotal(ctx context.Context, id int64) (decimal.Decimal, error) {
	total, ok := s.orderTotal[id]
	if !ok {
		return decimal.Zero, errMissing
	}
	return total, nil
}

func (s *memoryStore) UpdateOrderTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	s.writes++
	s.orderTotal[id] = total
	return nil
}

func directLine(t *testing.T, qty int, base string) QuotationLine {
	t.Helper()
	derived, err := pricing.Compute(pricing.SaleTypeDirectFair, pricing.RawInputs{BasePrice: base, InstitutionalDiscount: 20})
	require.NoError(t, err)
	return QuotationLine{Quantity: qty, Derived: derived}
}

func consignmentLine(t *testing.T, qty int, base string, commission string) QuotationLine {
	t.Helper()
	derived, err := pricing.Compute(pricing.SaleTypeConsignment, pricing.RawInputs{BasePrice: base, ConsignmentDiscount: 15, Commission: commission})
	require.NoError(t, err)
	return QuotationLine{Quantity: qty, Derived: derived}
}

func TestRecomputeQuotationTotalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.quotationTotal[1] = decimal.Zero
	store.quotationLines[1] = []QuotationLine{directLine(t, 3, "100"), consignmentLine(t, 2, "200", "20")}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	engine := NewEngine(metrics, nil)

	first, err := engine.RecomputeQuotationTotal(ctx, store, 1)
	require.NoError(t, err)
	require.True(t, first.Changed)
	// 3 x 80.00 + 2 x 150.00
	require.True(t, decimal.RequireFromString("540.00").Equal(first.Value), first.Value.String())
	require.Equal(t, 1, store.writes)

	second, err := engine.RecomputeQuotationTotal(ctx, store, 1)
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.True(t, first.Value.Equal(second.Value))
	require.Equal(t, 1, store.writes)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.recomputations.WithLabelValues(string(KindQuotationTotal), "written")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.recomputations.WithLabelValues(string(KindQuotationTotal), "unchanged")))
}

func TestQuotationTotalTracksLineMutations(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.quotationTotal[9] = decimal.Zero
	engine := NewEngine(nil, nil)

	steps := []func(){
		func() { store.quotationLines[9] = append(store.quotationLines[9], directLine(t, 1, "10.01")) },
		func() { store.quotationLines[9] = append(store.quotationLines[9], consignmentLine(t, 4, "33.33", "1.5")) },
		func() { store.quotationLines[9][0].Quantity = 7 },
		func() { store.quotationLines[9] = store.quotationLines[9][1:] },
		func() { store.quotationLines[9] = nil },
	}
	for i, mutate := range steps {
		mutate()
		_, err := engine.RecomputeQuotationTotal(ctx, store, 9)
		require.NoError(t, err)
		want := decimal.Zero
		for _, line := range store.quotationLines[9] {
			want = want.Add(line.Derived.NetPrice().Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		require.Truef(t, want.Equal(store.quotationTotal[9]), "step %d: want %s, got %s", i, want, store.quotationTotal[9])
	}
	require.True(t, store.quotationTotal[9].IsZero())
}

func TestRecomputeAdoptionQuantity(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.adoptionTotal[4] = 0
	store.adoptionQty[4] = []int{0, 0, 0}
	engine := NewEngine(nil, nil)

	outcome, err := engine.RecomputeAdoptionQuantity(ctx, store, 4)
	require.NoError(t, err)
	require.False(t, outcome.Changed)
	require.Equal(t, 0, store.writes)

	store.adoptionQty[4] = []int{12, 30, 5}
	outcome, err = engine.RecomputeAdoptionQuantity(ctx, store, 4)
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	require.Equal(t, 47, store.adoptionTotal[4])
}

func TestRecomputeOrderTotalUsesSnapshotPrices(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.orderTotal[2] = decimal.RequireFromString("1.00")
	store.orderLines[2] = []OrderLine{
		{Quantity: 10, ProviderPrice: decimal.RequireFromString("70.00")},
		{Quantity: 3, ProviderPrice: decimal.RequireFromString("12.35")},
	}
	engine := NewEngine(nil, nil)

	outcome, err := engine.RecomputeOrderTotal(ctx, store, 2)
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	require.True(t, decimal.RequireFromString("737.05").Equal(store.orderTotal[2]))

	outcome, err = engine.RecomputeOrderTotal(ctx, store, 2)
	require.NoError(t, err)
	require.False(t, outcome.Changed)
	require.Equal(t, 1, store.writes)
}

func TestRecomputeSurfacesMissingParent(t *testing.T) {
	engine := NewEngine(nil, nil)
	_, err := engine.RecomputeQuotationTotal(context.Background(), newMemoryStore(), 404)
	require.ErrorIs(t, err, errMissing)
}
