package sales

import (
	"context"
	"fmt"
	"maps"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/aggregate"
	"github.com/bookexpress/cotizador/internal/catalog"
	"github.com/bookexpress/cotizador/internal/masterdata"
	"github.com/bookexpress/cotizador/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type memoryState struct {
	nextID     int64
	sequence   int64
	quotations map[int64]Quotation
	qlines     map[int64]QuotationLine
	adoptions  map[int64]Adoption
	alines     map[int64]AdoptionLine
	orders     map[int64]PurchaseOrder
	olines     map[int64]OrderLine
}

func (s memoryState) clone() memoryState {
	s.quotations = maps.Clone(s.quotations)
	s.qlines = maps.Clone(s.qlines)
	s.adoptions = maps.Clone(s.adoptions)
	s.alines = maps.Clone(s.alines)
	s.orders = maps.Clone(s.orders)
	s.olines = maps.Clone(s.olines)
	return s
}

type mockRepository struct {
	state memoryState

	// Error injection
	numberCollisions int
	totalWrites      int
}

func newMockRepository() *mockRepository {
	return &mockRepository{state: memoryState{
		quotations: map[int64]Quotation{},
		qlines:     map[int64]QuotationLine{},
		adoptions:  map[int64]Adoption{},
		alines:     map[int64]AdoptionLine{},
		orders:     map[int64]PurchaseOrder{},
		olines:     map[int64]OrderLine{},
	}}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, &mockTxRepo{mock: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *mockRepository) id() int64 {
	m.state.nextID++
	return m.state.nextID
}

func (m *mockRepository) quotationLines(quotationID int64) []QuotationLine {
	var out []QuotationLine
	for _, l := range m.state.qlines {
		if l.QuotationID == quotationID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepository) adoptionLines(adoptionID int64) []AdoptionLine {
	var out []AdoptionLine
	for _, l := range m.state.alines {
		if l.AdoptionID == adoptionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepository) orderLines(orderID int64) []OrderLine {
	var out []OrderLine
	for _, l := range m.state.olines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepository) GetQuotation(_ context.Context, id int64) (Quotation, error) {
	q, ok := m.state.quotations[id]
	if !ok {
		return Quotation{}, fmt.Errorf("%w: id %d", ErrQuotationNotFound, id)
	}
	q.Lines = m.quotationLines(id)
	return q, nil
}

func (m *mockRepository) ListQuotations(_ context.Context, filter QuotationFilter) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range m.state.quotations {
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		out = append(out, q)
	}
	return out, len(out), nil
}

func (m *mockRepository) GetAdoption(_ context.Context, id int64) (Adoption, error) {
	a, ok := m.state.adoptions[id]
	if !ok {
		return Adoption{}, fmt.Errorf("%w: id %d", ErrAdoptionNotFound, id)
	}
	a.Lines = m.adoptionLines(id)
	return a, nil
}

func (m *mockRepository) ListAdoptions(context.Context, AdoptionFilter) ([]Adoption, int, error) {
	var out []Adoption
	for _, a := range m.state.adoptions {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockRepository) GetPurchaseOrder(_ context.Context, id int64) (PurchaseOrder, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	o.Lines = m.orderLines(id)
	return o, nil
}

func (m *mockRepository) ListPurchaseOrders(context.Context, OrderFilter) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, o := range m.state.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) NextSequence(context.Context, string) (int64, error) {
	s := &t.mock.state
	next := s.sequence + 1
	for _, q := range s.quotations {
		if seq, ok := ParseQuotationNumber(q.Number); ok && seq >= next {
			next = seq + 1
		}
	}
	s.sequence = next
	return next, nil
}

func (t *mockTxRepo) SetQuotationNumber(_ context.Context, id int64, number string) error {
	if t.mock.numberCollisions > 0 {
		t.mock.numberCollisions--
		return &pgconn.PgError{Code: "23505", ConstraintName: quotationNumberKey}
	}
	q, ok := t.mock.state.quotations[id]
	if !ok || q.Number != "" {
		return fmt.Errorf("%w: quotation %d already numbered or missing", shared.ErrConflict, id)
	}
	q.Number = number
	t.mock.state.quotations[id] = q
	return nil
}

func (t *mockTxRepo) InsertQuotation(_ context.Context, q Quotation) (Quotation, error) {
	q.ID = t.mock.id()
	q.Total = decimal.Zero
	t.mock.state.quotations[q.ID] = q
	return q, nil
}

func (t *mockTxRepo) LockQuotation(ctx context.Context, id int64) (Quotation, error) {
	q, err := t.mock.GetQuotation(ctx, id)
	q.Lines = nil
	return q, err
}

func (t *mockTxRepo) UpdateQuotationStatus(_ context.Context, id int64, status QuotationStatus, reason string) error {
	q := t.mock.state.quotations[id]
	q.Status = status
	q.RejectionReason = reason
	t.mock.state.quotations[id] = q
	return nil
}

func (t *mockTxRepo) QuotationLines(_ context.Context, quotationID int64) ([]QuotationLine, error) {
	return t.mock.quotationLines(quotationID), nil
}

func (t *mockTxRepo) InsertQuotationLine(_ context.Context, line QuotationLine) (int64, error) {
	line.ID = t.mock.id()
	t.mock.state.qlines[line.ID] = line
	return line.ID, nil
}

func (t *mockTxRepo) DeleteQuotationLines(_ context.Context, quotationID int64) error {
	for id, l := range t.mock.state.qlines {
		if l.QuotationID == quotationID {
			delete(t.mock.state.qlines, id)
		}
	}
	return nil
}

func (t *mockTxRepo) InsertAdoption(_ context.Context, a Adoption) (Adoption, error) {
	for _, existing := range t.mock.state.adoptions {
		if existing.QuotationID == a.QuotationID {
			return Adoption{}, fmt.Errorf("%w: quotation %d", ErrAdoptionExists, a.QuotationID)
		}
	}
	a.ID = t.mock.id()
	t.mock.state.adoptions[a.ID] = a
	return a, nil
}

func (t *mockTxRepo) LockAdoption(ctx context.Context, id int64) (Adoption, error) {
	a, err := t.mock.GetAdoption(ctx, id)
	a.Lines = nil
	return a, err
}

func (t *mockTxRepo) AdoptionLines(_ context.Context, adoptionID int64) ([]AdoptionLine, error) {
	return t.mock.adoptionLines(adoptionID), nil
}

func (t *mockTxRepo) InsertAdoptionLine(_ context.Context, line AdoptionLine) (int64, error) {
	line.ID = t.mock.id()
	t.mock.state.alines[line.ID] = line
	return line.ID, nil
}

func (t *mockTxRepo) DeleteAdoptionLines(_ context.Context, adoptionID int64) error {
	for id, l := range t.mock.state.alines {
		if l.AdoptionID == adoptionID {
			delete(t.mock.state.alines, id)
		}
	}
	return nil
}

func (t *mockTxRepo) InsertPurchaseOrder(_ context.Context, o PurchaseOrder) (PurchaseOrder, error) {
	for _, existing := range t.mock.state.orders {
		if existing.AdoptionID == o.AdoptionID {
			return PurchaseOrder{}, fmt.Errorf("%w: adoption %d", ErrOrderExists, o.AdoptionID)
		}
	}
	o.ID = t.mock.id()
	o.TotalCost = decimal.Zero
	t.mock.state.orders[o.ID] = o
	return o, nil
}

func (t *mockTxRepo) LockPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	o, err := t.mock.GetPurchaseOrder(ctx, id)
	o.Lines = nil
	return o, err
}

func (t *mockTxRepo) InsertOrderLine(_ context.Context, line OrderLine) (int64, error) {
	line.ID = t.mock.id()
	t.mock.state.olines[line.ID] = line
	return line.ID, nil
}

func (t *mockTxRepo) UpdateOrderStatus(_ context.Context, id int64, status OrderStatus) error {
	o := t.mock.state.orders[id]
	o.Status = status
	t.mock.state.orders[id] = o
	return nil
}

func (t *mockTxRepo) QuotationLinesForTotal(_ context.Context, quotationID int64) ([]aggregate.QuotationLine, error) {
	var out []aggregate.QuotationLine
	for _, l := range t.mock.quotationLines(quotationID) {
		out = append(out, aggregate.QuotationLine{Quantity: l.Quantity, Derived: l.Derived})
	}
	return out, nil
}

func (t *mockTxRepo) LockQuotationTotal(_ context.Context, quotationID int64) (decimal.Decimal, error) {
	q, ok := t.mock.state.quotations[quotationID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: id %d", ErrQuotationNotFound, quotationID)
	}
	return q.Total, nil
}

func (t *mockTxRepo) UpdateQuotationTotal(_ context.Context, quotationID int64, total decimal.Decimal) error {
	t.mock.totalWrites++
	q := t.mock.state.quotations[quotationID]
	q.Total = total
	t.mock.state.quotations[quotationID] = q
	return nil
}

func (t *mockTxRepo) AdoptedQuantities(_ context.Context, adoptionID int64) ([]int, error) {
	var out []int
	for _, l := range t.mock.adoptionLines(adoptionID) {
		out = append(out, l.Quantity)
	}
	return out, nil
}

func (t *mockTxRepo) LockAdoptionQuantity(_ context.Context, adoptionID int64) (int, error) {
	a, ok := t.mock.state.adoptions[adoptionID]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrAdoptionNotFound, adoptionID)
	}
	return a.TotalQuantity, nil
}

func (t *mockTxRepo) UpdateAdoptionQuantity(_ context.Context, adoptionID int64, quantity int) error {
	a := t.mock.state.adoptions[adoptionID]
	a.TotalQuantity = quantity
	t.mock.state.adoptions[adoptionID] = a
	return nil
}

func (t *mockTxRepo) OrderLinesForTotal(_ context.Context, orderID int64) ([]aggregate.OrderLine, error) {
	var out []aggregate.OrderLine
	for _, l := range t.mock.orderLines(orderID) {
		out = append(out, aggregate.OrderLine{Quantity: l.Quantity, ProviderPrice: l.ProviderPrice})
	}
	return out, nil
}

func (t *mockTxRepo) LockOrderTotal(_ context.Context, orderID int64) (decimal.Decimal, error) {
	o, ok := t.mock.state.orders[orderID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	return o.TotalCost, nil
}

func (t *mockTxRepo) UpdateOrderTotal(_ context.Context, orderID int64, total decimal.Decimal) error {
	o := t.mock.state.orders[orderID]
	o.TotalCost = total
	t.mock.state.orders[orderID] = o
	return nil
}

// ============================================================================
// MOCK COLLABORATORS
// ============================================================================

type mockCatalog struct {
	products map[int64]catalog.Product
}

func (c *mockCatalog) ProductsByIDs(_ context.Context, ids []int64) (map[int64]catalog.Product, error) {
	out := map[int64]catalog.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockDirectory struct {
	institutions map[int64]masterdata.Institution
	advisors     map[int64]masterdata.Advisor
}

func (d *mockDirectory) GetInstitution(_ context.Context, id int64) (masterdata.Institution, error) {
	inst, ok := d.institutions[id]
	if !ok {
		return masterdata.Institution{}, fmt.Errorf("%w: id %d", masterdata.ErrInstitutionNotFound, id)
	}
	return inst, nil
}

func (d *mockDirectory) GetAdvisor(_ context.Context, id int64) (masterdata.Advisor, error) {
	a, ok := d.advisors[id]
	if !ok {
		return masterdata.Advisor{}, fmt.Errorf("%w: id %d", masterdata.ErrAdvisorNotFound, id)
	}
	return a, nil
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (a *mockAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func (a *mockAudit) actions() []string {
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}
