package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/aggregate"
	"github.com/bookexpress/cotizador/internal/platform/db"
	"github.com/bookexpress/cotizador/internal/shared"
)

// RepositoryPort is the persistence surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetQuotation(ctx context.Context, id int64) (Quotation, error)
	ListQuotations(ctx context.Context, filter QuotationFilter) ([]Quotation, int, error)
	GetAdoption(ctx context.Context, id int64) (Adoption, error)
	ListAdoptions(ctx context.Context, filter AdoptionFilter) ([]Adoption, int, error)
	GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error)
}

// TxRepository exposes transactional operations. Lock* methods take a row
// lock that is held until the transaction ends.
type TxRepository interface {
	aggregate.Store
	NumberingTx

	InsertQuotation(ctx context.Context, q Quotation) (Quotation, error)
	LockQuotation(ctx context.Context, id int64) (Quotation, error)
	UpdateQuotationStatus(ctx context.Context, id int64, status QuotationStatus, reason string) error
	QuotationLines(ctx context.Context, quotationID int64) ([]QuotationLine, error)
	InsertQuotationLine(ctx context.Context, line QuotationLine) (int64, error)
	DeleteQuotationLines(ctx context.Context, quotationID int64) error

	InsertAdoption(ctx context.Context, a Adoption) (Adoption, error)
	LockAdoption(ctx context.Context, id int64) (Adoption, error)
	AdoptionLines(ctx context.Context, adoptionID int64) ([]AdoptionLine, error)
	InsertAdoptionLine(ctx context.Context, line AdoptionLine) (int64, error)
	DeleteAdoptionLines(ctx context.Context, adoptionID int64) error

	InsertPurchaseOrder(ctx context.Context, o PurchaseOrder) (PurchaseOrder, error)
	LockPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	InsertOrderLine(ctx context.Context, line OrderLine) (int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error
}

// Repository provides PostgreSQL backed persistence for sales operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps callback in a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ============================================================================
// QUOTATION READS
// ============================================================================

const quotationColumns = `q.id, COALESCE(q.number, ''), q.institution_id, i.name, q.advisor_id, a.name, q.sale_type,
	q.status, q.rejection_reason, q.notes, q.total, q.created_at, q.updated_at`

const quotationFrom = ` FROM quotations q
	JOIN institutions i ON i.id = q.institution_id
	JOIN advisors a ON a.id = q.advisor_id`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.Number, &q.InstitutionID, &q.InstitutionName, &q.AdvisorID, &q.AdvisorName, &q.SaleType,
		&q.Status, &q.RejectionReason, &q.Notes, &q.Total, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

const quotationLineColumns = `l.id, l.quotation_id, l.product_id, p.name, l.quantity, l.sale_type,
	l.base_price, l.provider_discount, l.institutional_discount, l.consignment_discount, l.commission, l.ceiling_price,
	l.provider_price, l.institutional_discount_amount, l.institutional_price, l.coordinator_price,
	l.consignment_price, l.coordinated_price, l.unit_profit, l.institutional_profit, l.roi_percent, l.roi_amount`

func scanQuotationLine(row pgx.Row) (QuotationLine, error) {
	var (
		l       QuotationLine
		ceiling decimal.NullDecimal
	)
	err := row.Scan(&l.ID, &l.QuotationID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Derived.SaleType,
		&l.Inputs.BasePrice, &l.Inputs.ProviderDiscount, &l.Inputs.InstitutionalDiscount, &l.Inputs.ConsignmentDiscount,
		&l.Inputs.Commission, &ceiling,
		&l.Derived.ProviderPrice, &l.Derived.InstitutionalDiscountAmount, &l.Derived.InstitutionalPrice, &l.Derived.CoordinatorPrice,
		&l.Derived.ConsignmentPrice, &l.Derived.CoordinatedPrice, &l.Derived.UnitProfit, &l.Derived.InstitutionalProfit,
		&l.Derived.ROIPercent, &l.Derived.ROIAmount)
	if err != nil {
		return QuotationLine{}, err
	}
	if ceiling.Valid {
		l.Inputs.CeilingPrice = ceiling.Decimal
		l.Inputs.HasCeiling = true
	}
	l.Derived.BasePrice = l.Inputs.BasePrice
	return l, nil
}

func loadQuotationLines(ctx context.Context, q querier, quotationID int64) ([]QuotationLine, error) {
	rows, err := q.Query(ctx, `SELECT `+quotationLineColumns+` FROM quotation_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.quotation_id = $1 ORDER BY l.id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []QuotationLine
	for rows.Next() {
		line, err := scanQuotationLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// GetQuotation loads a quotation with its lines.
func (r *Repository) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	q, err := scanQuotation(r.pool.QueryRow(ctx, `SELECT `+quotationColumns+quotationFrom+` WHERE q.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, fmt.Errorf("%w: id %d", ErrQuotationNotFound, id)
		}
		return Quotation{}, err
	}
	if q.Lines, err = loadQuotationLines(ctx, r.pool, id); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

// ListQuotations returns a filtered page of quotation headers.
func (r *Repository) ListQuotations(ctx context.Context, filter QuotationFilter) ([]Quotation, int, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("q.status = $%d", filter.Status)
	}
	if filter.InstitutionID > 0 {
		add("q.institution_id = $%d", filter.InstitutionID)
	}
	if filter.AdvisorID > 0 {
		add("q.advisor_id = $%d", filter.AdvisorID)
	}
	if v := strings.TrimSpace(filter.Number); v != "" {
		add("q.number ILIKE $%d", "%"+v+"%")
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations q`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s%s%s ORDER BY q.created_at DESC, q.id DESC LIMIT $%d OFFSET $%d`,
		quotationColumns, quotationFrom, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// ============================================================================
// ADOPTION READS
// ============================================================================

const adoptionColumns = `ad.id, ad.quotation_id, COALESCE(q.number, ''), i.name, a.name, ad.modality, ad.notes,
	ad.director_signed, ad.advisor_signed, ad.total_quantity, ad.created_at, ad.updated_at`

const adoptionFrom = ` FROM adoptions ad
	JOIN quotations q ON q.id = ad.quotation_id
	JOIN institutions i ON i.id = q.institution_id
	JOIN advisors a ON a.id = q.advisor_id`

func scanAdoption(row pgx.Row) (Adoption, error) {
	var a Adoption
	err := row.Scan(&a.ID, &a.QuotationID, &a.QuotationNumber, &a.InstitutionName, &a.AdvisorName, &a.Modality, &a.Notes,
		&a.DirectorSigned, &a.AdvisorSigned, &a.TotalQuantity, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func loadAdoptionLines(ctx context.Context, q querier, adoptionID int64) ([]AdoptionLine, error) {
	rows, err := q.Query(ctx, `SELECT l.id, l.adoption_id, COALESCE(l.quotation_line_id, 0), l.product_id, p.name, l.quantity, l.reading_month
		FROM adoption_lines l JOIN products p ON p.id = l.product_id
		WHERE l.adoption_id = $1 ORDER BY l.id`, adoptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []AdoptionLine
	for rows.Next() {
		var l AdoptionLine
		if err := rows.Scan(&l.ID, &l.AdoptionID, &l.QuotationLineID, &l.ProductID, &l.ProductName, &l.Quantity, &l.ReadingMonth); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetAdoption loads an adoption with its lines.
func (r *Repository) GetAdoption(ctx context.Context, id int64) (Adoption, error) {
	a, err := scanAdoption(r.pool.QueryRow(ctx, `SELECT `+adoptionColumns+adoptionFrom+` WHERE ad.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Adoption{}, fmt.Errorf("%w: id %d", ErrAdoptionNotFound, id)
		}
		return Adoption{}, err
	}
	if a.Lines, err = loadAdoptionLines(ctx, r.pool, id); err != nil {
		return Adoption{}, err
	}
	return a, nil
}

// ListAdoptions returns a page of adoption headers.
func (r *Repository) ListAdoptions(ctx context.Context, filter AdoptionFilter) ([]Adoption, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM adoptions WHERE ($1 = 0 OR quotation_id = $1)`, filter.QuotationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+adoptionColumns+adoptionFrom+`
		WHERE ($1 = 0 OR ad.quotation_id = $1)
		ORDER BY ad.created_at DESC, ad.id DESC LIMIT $2 OFFSET $3`,
		filter.QuotationID, filter.Page.Limit(), filter.Page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Adoption
	for rows.Next() {
		a, err := scanAdoption(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// ============================================================================
// PURCHASE ORDER READS
// ============================================================================

const orderColumns = `o.id, o.adoption_id, o.supplier, o.notes, o.status, o.total_cost, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var o PurchaseOrder
	err := row.Scan(&o.ID, &o.AdoptionID, &o.Supplier, &o.Notes, &o.Status, &o.TotalCost, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetPurchaseOrder loads an order with its lines.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders o WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
		}
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.provider_price
		FROM purchase_order_lines l JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1 ORDER BY l.id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.ProviderPrice); err != nil {
			return PurchaseOrder{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

// ListPurchaseOrders returns a page of order headers.
func (r *Repository) ListPurchaseOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE ($1 = '' OR status = $1)`, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders o
		WHERE ($1 = '' OR o.status = $1)
		ORDER BY o.created_at DESC, o.id DESC LIMIT $2 OFFSET $3`,
		string(filter.Status), filter.Page.Limit(), filter.Page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// ============================================================================
// TRANSACTIONAL WRITES
// ============================================================================

type txRepo struct {
	q pgx.Tx
}

func (t *txRepo) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	// GREATEST skips past numbers written outside the counter, such as migrated history.
	err := t.q.QueryRow(ctx, `INSERT INTO document_sequences (name, last_value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET last_value = GREATEST(
			document_sequences.last_value + 1,
			(SELECT COALESCE(MAX(substring(number FROM 5)::BIGINT), 0) + 1 FROM quotations WHERE number ~ '^COT-[0-9]+$'))
		RETURNING last_value`, name).Scan(&value)
	return value, err
}

func (t *txRepo) SetQuotationNumber(ctx context.Context, quotationID int64, number string) error {
	tag, err := t.q.Exec(ctx, `UPDATE quotations SET number = $2 WHERE id = $1 AND number IS NULL`, quotationID, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quotation %d already numbered or missing", shared.ErrConflict, quotationID)
	}
	return nil
}

func (t *txRepo) InsertQuotation(ctx context.Context, q Quotation) (Quotation, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO quotations (institution_id, advisor_id, sale_type, status, notes, total)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id, total, created_at, updated_at`,
		q.InstitutionID, q.AdvisorID, q.SaleType, q.Status, q.Notes).Scan(&q.ID, &q.Total, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (t *txRepo) LockQuotation(ctx context.Context, id int64) (Quotation, error) {
	var q Quotation
	err := t.q.QueryRow(ctx, `SELECT id, COALESCE(number, ''), institution_id, advisor_id, sale_type, status, rejection_reason, notes, total, created_at, updated_at
		FROM quotations WHERE id = $1 FOR UPDATE`, id).
		Scan(&q.ID, &q.Number, &q.InstitutionID, &q.AdvisorID, &q.SaleType, &q.Status, &q.RejectionReason, &q.Notes, &q.Total, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, fmt.Errorf("%w: id %d", ErrQuotationNotFound, id)
	}
	return q, err
}

func (t *txRepo) UpdateQuotationStatus(ctx context.Context, id int64, status QuotationStatus, reason string) error {
	_, err := t.q.Exec(ctx, `UPDATE quotations SET status = $2, rejection_reason = $3, updated_at = NOW() WHERE id = $1`, id, status, reason)
	return err
}

func (t *txRepo) QuotationLines(ctx context.Context, quotationID int64) ([]QuotationLine, error) {
	return loadQuotationLines(ctx, t.q, quotationID)
}

func (t *txRepo) InsertQuotationLine(ctx context.Context, l QuotationLine) (int64, error) {
	var ceiling decimal.NullDecimal
	if l.Inputs.HasCeiling {
		ceiling = decimal.NewNullDecimal(l.Inputs.CeilingPrice)
	}
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO quotation_lines (quotation_id, product_id, quantity, sale_type,
			base_price, provider_discount, institutional_discount, consignment_discount, commission, ceiling_price,
			provider_price, institutional_discount_amount, institutional_price, coordinator_price,
			consignment_price, coordinated_price, unit_profit, institutional_profit, roi_percent, roi_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`,
		l.QuotationID, l.ProductID, l.Quantity, l.Derived.SaleType,
		l.Inputs.BasePrice, l.Inputs.ProviderDiscount, l.Inputs.InstitutionalDiscount, l.Inputs.ConsignmentDiscount,
		l.Inputs.Commission, ceiling,
		l.Derived.ProviderPrice, l.Derived.InstitutionalDiscountAmount, l.Derived.InstitutionalPrice, l.Derived.CoordinatorPrice,
		l.Derived.ConsignmentPrice, l.Derived.CoordinatedPrice, l.Derived.UnitProfit, l.Derived.InstitutionalProfit,
		l.Derived.ROIPercent, l.Derived.ROIAmount).Scan(&id)
	return id, err
}

func (t *txRepo) DeleteQuotationLines(ctx context.Context, quotationID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM quotation_lines WHERE quotation_id = $1`, quotationID)
	return err
}

func (t *txRepo) InsertAdoption(ctx context.Context, a Adoption) (Adoption, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO adoptions (quotation_id, modality, notes, director_signed, advisor_signed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, total_quantity, created_at, updated_at`,
		a.QuotationID, a.Modality, a.Notes, a.DirectorSigned, a.AdvisorSigned).Scan(&a.ID, &a.TotalQuantity, &a.CreatedAt, &a.UpdatedAt)
	if shared.IsUniqueViolation(err, "adoptions_quotation_key") {
		return Adoption{}, fmt.Errorf("%w: quotation %d", ErrAdoptionExists, a.QuotationID)
	}
	return a, err
}

func (t *txRepo) LockAdoption(ctx context.Context, id int64) (Adoption, error) {
	var a Adoption
	err := t.q.QueryRow(ctx, `SELECT id, quotation_id, modality, notes, director_signed, advisor_signed, total_quantity, created_at, updated_at
		FROM adoptions WHERE id = $1 FOR UPDATE`, id).
		Scan(&a.ID, &a.QuotationID, &a.Modality, &a.Notes, &a.DirectorSigned, &a.AdvisorSigned, &a.TotalQuantity, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Adoption{}, fmt.Errorf("%w: id %d", ErrAdoptionNotFound, id)
	}
	return a, err
}

func (t *txRepo) AdoptionLines(ctx context.Context, adoptionID int64) ([]AdoptionLine, error) {
	return loadAdoptionLines(ctx, t.q, adoptionID)
}

func (t *txRepo) InsertAdoptionLine(ctx context.Context, l AdoptionLine) (int64, error) {
	var quotationLineID *int64
	if l.QuotationLineID > 0 {
		quotationLineID = &l.QuotationLineID
	}
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO adoption_lines (adoption_id, quotation_line_id, product_id, quantity, reading_month)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		l.AdoptionID, quotationLineID, l.ProductID, l.Quantity, l.ReadingMonth).Scan(&id)
	return id, err
}

func (t *txRepo) DeleteAdoptionLines(ctx context.Context, adoptionID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM adoption_lines WHERE adoption_id = $1`, adoptionID)
	return err
}

func (t *txRepo) InsertPurchaseOrder(ctx context.Context, o PurchaseOrder) (PurchaseOrder, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO purchase_orders (adoption_id, supplier, notes, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, total_cost, created_at, updated_at`,
		o.AdoptionID, o.Supplier, o.Notes, o.Status).Scan(&o.ID, &o.TotalCost, &o.CreatedAt, &o.UpdatedAt)
	if shared.IsUniqueViolation(err, "purchase_orders_adoption_key") {
		return PurchaseOrder{}, fmt.Errorf("%w: adoption %d", ErrOrderExists, o.AdoptionID)
	}
	return o, err
}

func (t *txRepo) LockPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	o, err := scanOrder(t.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders o WHERE o.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return o, err
}

func (t *txRepo) InsertOrderLine(ctx context.Context, l OrderLine) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO purchase_order_lines (order_id, product_id, quantity, provider_price)
		VALUES ($1, $2, $3, $4) RETURNING id`, l.OrderID, l.ProductID, l.Quantity, l.ProviderPrice).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := t.q.Exec(ctx, `UPDATE purchase_orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

// ============================================================================
// AGGREGATE STORE
// ============================================================================

func (t *txRepo) QuotationLinesForTotal(ctx context.Context, quotationID int64) ([]aggregate.QuotationLine, error) {
	rows, err := t.q.Query(ctx, `SELECT quantity, sale_type, base_price, institutional_price, consignment_price, coordinated_price
		FROM quotation_lines WHERE quotation_id = $1`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []aggregate.QuotationLine
	for rows.Next() {
		var l aggregate.QuotationLine
		if err := rows.Scan(&l.Quantity, &l.Derived.SaleType, &l.Derived.BasePrice, &l.Derived.InstitutionalPrice,
			&l.Derived.ConsignmentPrice, &l.Derived.CoordinatedPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *txRepo) LockQuotationTotal(ctx context.Context, quotationID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT total FROM quotations WHERE id = $1 FOR UPDATE`, quotationID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: id %d", ErrQuotationNotFound, quotationID)
	}
	return total, err
}

func (t *txRepo) UpdateQuotationTotal(ctx context.Context, quotationID int64, total decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE quotations SET total = $2, updated_at = NOW() WHERE id = $1`, quotationID, total)
	return err
}

func (t *txRepo) AdoptedQuantities(ctx context.Context, adoptionID int64) ([]int, error) {
	rows, err := t.q.Query(ctx, `SELECT quantity FROM adoption_lines WHERE adoption_id = $1`, adoptionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (t *txRepo) LockAdoptionQuantity(ctx context.Context, adoptionID int64) (int, error) {
	var qty int
	err := t.q.QueryRow(ctx, `SELECT total_quantity FROM adoptions WHERE id = $1 FOR UPDATE`, adoptionID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: id %d", ErrAdoptionNotFound, adoptionID)
	}
	return qty, err
}

func (t *txRepo) UpdateAdoptionQuantity(ctx context.Context, adoptionID int64, quantity int) error {
	_, err := t.q.Exec(ctx, `UPDATE adoptions SET total_quantity = $2, updated_at = NOW() WHERE id = $1`, adoptionID, quantity)
	return err
}

func (t *txRepo) OrderLinesForTotal(ctx context.Context, orderID int64) ([]aggregate.OrderLine, error) {
	rows, err := t.q.Query(ctx, `SELECT quantity, provider_price FROM purchase_order_lines WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []aggregate.OrderLine
	for rows.Next() {
		var l aggregate.OrderLine
		if err := rows.Scan(&l.Quantity, &l.ProviderPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *txRepo) LockOrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT total_cost FROM purchase_orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	return total, err
}

func (t *txRepo) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.q.Exec(ctx, `UPDATE purchase_orders SET total_cost = $2, updated_at = NOW() WHERE id = $1`, orderID, total)
	return err
}
