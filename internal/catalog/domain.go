package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/shared"
)

// ProductStatus marks whether a product may be quoted.
type ProductStatus string

const (
	ProductActive   ProductStatus = "ACTIVE"
	ProductInactive ProductStatus = "INACTIVE"
)

// Editorial is a publisher.
type Editorial struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog book or material.
type Product struct {
	ID               int64           `json:"id"`
	EditorialID      int64           `json:"editorial_id"`
	EditorialName    string          `json:"editorial"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Level            string          `json:"level"`
	Grade            string          `json:"grade"`
	Area             string          `json:"area"`
	Series           string          `json:"series"`
	InventoryType    string          `json:"inventory_type"`
	Medium           string          `json:"medium"`
	ListPrice        decimal.Decimal `json:"list_price"`
	ProviderDiscount decimal.Decimal `json:"provider_discount"`
	ProviderPrice    decimal.Decimal `json:"provider_price"`
	Status           ProductStatus   `json:"status"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	EditorialID     int64
	Level           string
	Grade           string
	Area            string
	Search          string
	IncludeInactive bool
	Page            shared.PageRequest
}

// FilterOptions are the distinct values offered by the catalog filters.
type FilterOptions struct {
	Editorials []Editorial `json:"editorials"`
	Levels     []string    `json:"levels"`
	Grades     []string    `json:"grades"`
	Areas      []string    `json:"areas"`
}

// ImportRow is one parsed spreadsheet row.
type ImportRow struct {
	Line             int
	Editorial        string
	Code             string
	Name             string
	Level            string
	Grade            string
	Area             string
	Series           string
	InventoryType    string
	Medium           string
	ListPrice        decimal.Decimal
	ProviderDiscount decimal.Decimal
}

// SkippedRow explains why a spreadsheet row was not imported.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarises a catalog import.
type ImportResult struct {
	ImportID    int64        `json:"import_id"`
	Filename    string       `json:"filename"`
	Checksum    string       `json:"checksum"`
	Duplicate   bool         `json:"duplicate"`
	Inserted    int          `json:"inserted"`
	Updated     int          `json:"updated"`
	Skipped     int          `json:"skipped"`
	SkippedRows []SkippedRow `json:"skipped_rows,omitempty"`
}

// Repository persists catalog data.
type Repository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
	ListEditorials(ctx context.Context) ([]Editorial, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	ImportSeen(ctx context.Context, checksum string) (bool, error)
	WithTx(ctx context.Context, fn func(context.Context, ImportTx) error) error
}

// ImportTx writes an import inside one transaction.
type ImportTx interface {
	UpsertEditorial(ctx context.Context, name string) (int64, error)
	// UpsertProduct inserts or updates by (editorial, code) and reports whether the row was new.
	UpsertProduct(ctx context.Context, p Product) (bool, error)
	RecordImport(ctx context.Context, result ImportResult) (int64, error)
}

var (
	// ErrProductNotFound indicates a missing product.
	ErrProductNotFound = fmt.Errorf("catalog: product %w", shared.ErrNotFound)
	// ErrImportRunning indicates another import holds the catalog lock.
	ErrImportRunning = fmt.Errorf("catalog: import already running: %w", shared.ErrConflict)
)
