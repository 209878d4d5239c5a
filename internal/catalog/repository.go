package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookexpress/cotizador/internal/platform/db"
)

// PgRepository is the PostgreSQL catalog repository.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a catalog repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const productColumns = `p.id, p.editorial_id, e.name, p.code, p.name, p.level, p.grade, p.area, p.series,
	p.inventory_type, p.medium, p.list_price, p.provider_discount, p.provider_price, p.status, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.EditorialID, &p.EditorialName, &p.Code, &p.Name, &p.Level, &p.Grade, &p.Area, &p.Series,
		&p.InventoryType, &p.Medium, &p.ListPrice, &p.ProviderDiscount, &p.ProviderPrice, &p.Status, &p.UpdatedAt)
	return p, err
}

func productWhere(filter ProductFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.EditorialID > 0 {
		add("p.editorial_id = $%d", filter.EditorialID)
	}
	if v := strings.TrimSpace(filter.Level); v != "" {
		add("p.level = $%d", v)
	}
	if v := strings.TrimSpace(filter.Grade); v != "" {
		add("p.grade = $%d", v)
	}
	if v := strings.TrimSpace(filter.Area); v != "" {
		add("p.area = $%d", v)
	}
	if v := strings.TrimSpace(filter.Search); v != "" {
		add("(p.name ILIKE $%[1]d OR p.code ILIKE $%[1]d)", "%"+v+"%")
	}
	if !filter.IncludeInactive {
		clauses = append(clauses, "p.status = 'ACTIVE'")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListProducts returns a filtered page of products.
func (r *PgRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	where, args := productWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM products p JOIN editorials e ON e.id = p.editorial_id%s
		ORDER BY e.name, p.level, p.grade, p.name LIMIT $%d OFFSET $%d`, productColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// GetProduct loads one product.
func (r *PgRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p JOIN editorials e ON e.id = p.editorial_id WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return Product{}, err
	}
	return p, nil
}

// ProductsByIDs loads the products referenced by ids. Missing ids are absent from the map.
func (r *PgRepository) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products p JOIN editorials e ON e.id = p.editorial_id WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// ListEditorials returns every editorial ordered by name.
func (r *PgRepository) ListEditorials(ctx context.Context) ([]Editorial, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM editorials ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var editorials []Editorial
	for rows.Next() {
		var e Editorial
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		editorials = append(editorials, e)
	}
	return editorials, rows.Err()
}

func (r *PgRepository) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT %[1]s FROM products WHERE status = 'ACTIVE' AND %[1]s <> '' ORDER BY %[1]s`, column))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// FilterOptions returns distinct editorials, levels, grades and areas.
func (r *PgRepository) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var (
		opts FilterOptions
		err  error
	)
	if opts.Editorials, err = r.ListEditorials(ctx); err != nil {
		return FilterOptions{}, err
	}
	if opts.Levels, err = r.distinct(ctx, "level"); err != nil {
		return FilterOptions{}, err
	}
	if opts.Grades, err = r.distinct(ctx, "grade"); err != nil {
		return FilterOptions{}, err
	}
	if opts.Areas, err = r.distinct(ctx, "area"); err != nil {
		return FilterOptions{}, err
	}
	return opts, nil
}

// ImportSeen reports whether a file with checksum was already imported.
func (r *PgRepository) ImportSeen(ctx context.Context, checksum string) (bool, error) {
	var seen bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM catalog_imports WHERE checksum = $1)`, checksum).Scan(&seen)
	return seen, err
}

// WithTx runs fn inside a transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, ImportTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &importTx{tx: tx})
	})
}

type importTx struct {
	tx pgx.Tx
}

func (t *importTx) UpsertEditorial(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO editorials (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name).Scan(&id)
	return id, err
}

func (t *importTx) UpsertProduct(ctx context.Context, p Product) (bool, error) {
	var inserted bool
	err := t.tx.QueryRow(ctx, `INSERT INTO products (editorial_id, code, name, level, grade, area, series, inventory_type, medium,
			list_price, provider_discount, provider_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT ON CONSTRAINT products_editorial_code_key DO UPDATE SET
			name = EXCLUDED.name,
			level = EXCLUDED.level,
			grade = EXCLUDED.grade,
			area = EXCLUDED.area,
			series = EXCLUDED.series,
			inventory_type = EXCLUDED.inventory_type,
			medium = EXCLUDED.medium,
			list_price = EXCLUDED.list_price,
			provider_discount = EXCLUDED.provider_discount,
			provider_price = EXCLUDED.provider_price,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING (xmax = 0)`,
		p.EditorialID, p.Code, p.Name, p.Level, p.Grade, p.Area, p.Series, p.InventoryType, p.Medium,
		p.ListPrice, p.ProviderDiscount, p.ProviderPrice, p.Status).Scan(&inserted)
	return inserted, err
}

func (t *importTx) RecordImport(ctx context.Context, result ImportResult) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO catalog_imports (checksum, filename, inserted, updated, skipped)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		result.Checksum, result.Filename, result.Inserted, result.Updated, result.Skipped).Scan(&id)
	return id, err
}
