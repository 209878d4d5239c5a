package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repo implements Repository interface
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

func searchPattern(search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	return "%" + search + "%"
}

func (r *repo) ListInstitutions(ctx context.Context, filters ListFilters) ([]Institution, int, error) {
	pattern := searchPattern(filters.Search)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM institutions WHERE ($1 = '' OR name ILIKE $1 OR code ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, code, name, level, district, contact, phone, created_at
		FROM institutions
		WHERE ($1 = '' OR name ILIKE $1 OR code ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`, pattern, filters.Page.Limit(), filters.Page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var institutions []Institution
	for rows.Next() {
		var inst Institution
		if err := rows.Scan(&inst.ID, &inst.Code, &inst.Name, &inst.Level, &inst.District, &inst.Contact, &inst.Phone, &inst.CreatedAt); err != nil {
			return nil, 0, err
		}
		institutions = append(institutions, inst)
	}
	return institutions, total, rows.Err()
}

func (r *repo) GetInstitution(ctx context.Context, id int64) (Institution, error) {
	var inst Institution
	err := r.db.QueryRow(ctx, `SELECT id, code, name, level, district, contact, phone, created_at FROM institutions WHERE id = $1`, id).
		Scan(&inst.ID, &inst.Code, &inst.Name, &inst.Level, &inst.District, &inst.Contact, &inst.Phone, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Institution{}, fmt.Errorf("%w: id %d", ErrInstitutionNotFound, id)
		}
		return Institution{}, err
	}
	return inst, nil
}

func (r *repo) CreateInstitution(ctx context.Context, inst Institution) (Institution, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO institutions (code, name, level, district, contact, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		inst.Code, inst.Name, inst.Level, inst.District, inst.Contact, inst.Phone).Scan(&inst.ID, &inst.CreatedAt)
	return inst, err
}

func (r *repo) ListAdvisors(ctx context.Context, filters ListFilters) ([]Advisor, int, error) {
	pattern := searchPattern(filters.Search)
	const where = `WHERE ($1 = '' OR name ILIKE $1 OR email ILIKE $1) AND ($2 OR status = 'ACTIVE')`
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM advisors `+where, pattern, filters.IncludeInactive).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, name, email, phone, status, created_at FROM advisors `+where+`
		ORDER BY name LIMIT $3 OFFSET $4`, pattern, filters.IncludeInactive, filters.Page.Limit(), filters.Page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var advisors []Advisor
	for rows.Next() {
		var a Advisor
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Status, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		advisors = append(advisors, a)
	}
	return advisors, total, rows.Err()
}

func (r *repo) GetAdvisor(ctx context.Context, id int64) (Advisor, error) {
	var a Advisor
	err := r.db.QueryRow(ctx, `SELECT id, name, email, phone, status, created_at FROM advisors WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Advisor{}, fmt.Errorf("%w: id %d", ErrAdvisorNotFound, id)
		}
		return Advisor{}, err
	}
	return a, nil
}

func (r *repo) CreateAdvisor(ctx context.Context, a Advisor) (Advisor, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO advisors (name, email, phone, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`, a.Name, a.Email, a.Phone, a.Status).Scan(&a.ID, &a.CreatedAt)
	return a, err
}
