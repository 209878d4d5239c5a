package catalog

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/bookexpress/cotizador/internal/platform/cache"
	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/shared"
)

const (
	filterCacheKey = "filters"
	importLockTTL  = 10 * time.Minute
)

// Service exposes catalog queries and imports.
type Service struct {
	repo    Repository
	filters *cache.JSON
	locker  *shared.Locker
	logger  *slog.Logger
}

// NewService constructs a catalog service. filters and locker may be nil.
func NewService(repo Repository, filters *cache.JSON, locker *shared.Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, filters: filters, locker: locker, logger: logger}
}

// ListProducts returns a filtered page of products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter)
}

// GetProduct loads a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product id", shared.ErrInvalidInput)
	}
	return s.repo.GetProduct(ctx, id)
}

// ProductsByIDs loads products by id; missing ids are absent from the result.
func (s *Service) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	return s.repo.ProductsByIDs(ctx, ids)
}

// PricingDefaults returns list price and provider discount per product id.
// Any id missing from the catalog fails with ErrProductNotFound.
func (s *Service) PricingDefaults(ctx context.Context, ids []int64) (map[int64]pricing.ProductDefaults, error) {
	products, err := s.repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]pricing.ProductDefaults, len(products))
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		out[id] = pricing.ProductDefaults{ListPrice: p.ListPrice, ProviderDiscount: p.ProviderDiscount}
	}
	return out, nil
}

// ListEditorials returns every editorial.
func (s *Service) ListEditorials(ctx context.Context) ([]Editorial, error) {
	return s.repo.ListEditorials(ctx)
}

// Filters returns the distinct filter values, served from cache when present.
func (s *Service) Filters(ctx context.Context) (FilterOptions, error) {
	var opts FilterOptions
	hit, err := s.filters.Get(ctx, filterCacheKey, &opts)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog filter cache read failed", slog.Any("error", err))
	}
	if hit {
		return opts, nil
	}
	opts, err = s.repo.FilterOptions(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	if err := s.filters.Set(ctx, filterCacheKey, opts); err != nil {
		s.logger.WarnContext(ctx, "catalog filter cache write failed", slog.Any("error", err))
	}
	return opts, nil
}

// Checksum returns the hex BLAKE2b-256 digest used to detect repeated imports.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Import upserts the products contained in an .xlsx workbook.
// A file whose checksum was already imported is reported as a duplicate and left untouched.
func (s *Service) Import(ctx context.Context, filename string, data []byte) (ImportResult, error) {
	lock, err := s.locker.Acquire(ctx, shared.CatalogImportLockKey(), importLockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return ImportResult{}, ErrImportRunning
		}
		return ImportResult{}, fmt.Errorf("catalog: acquire import lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "catalog import lock release failed", slog.Any("error", err))
		}
	}()

	result := ImportResult{Filename: filename, Checksum: Checksum(data)}
	seen, err := s.repo.ImportSeen(ctx, result.Checksum)
	if err != nil {
		return ImportResult{}, err
	}
	if seen {
		result.Duplicate = true
		s.logger.InfoContext(ctx, "catalog import skipped, file already imported", slog.String("checksum", result.Checksum))
		return result, nil
	}

	rows, skipped, err := ParseWorkbook(bytes.NewReader(data))
	if err != nil {
		return ImportResult{}, err
	}
	result.SkippedRows = skipped
	result.Skipped = len(skipped)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx ImportTx) error {
		editorials := make(map[string]int64)
		for _, row := range rows {
			key := shared.FoldKey(row.Editorial)
			editorialID, ok := editorials[key]
			if !ok {
				id, err := tx.UpsertEditorial(ctx, row.Editorial)
				if err != nil {
					return fmt.Errorf("catalog: upsert editorial %q: %w", row.Editorial, err)
				}
				editorialID = id
				editorials[key] = id
			}
			product, err := productFromRow(editorialID, row)
			if err != nil {
				return fmt.Errorf("catalog: line %d: %w", row.Line, err)
			}
			inserted, err := tx.UpsertProduct(ctx, product)
			if err != nil {
				return fmt.Errorf("catalog: upsert product line %d: %w", row.Line, err)
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		id, err := tx.RecordImport(ctx, result)
		if err != nil {
			return err
		}
		result.ImportID = id
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	if err := s.filters.Delete(ctx, filterCacheKey); err != nil {
		s.logger.WarnContext(ctx, "catalog filter cache invalidation failed", slog.Any("error", err))
	}
	s.logger.InfoContext(ctx, "catalog imported",
		slog.String("filename", filename),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

func productFromRow(editorialID int64, row ImportRow) (Product, error) {
	derived, err := pricing.Compute(pricing.SaleTypeDirectFair, pricing.RawInputs{
		BasePrice:        row.ListPrice,
		ProviderDiscount: row.ProviderDiscount,
	})
	if err != nil {
		return Product{}, err
	}
	name := row.Name
	if name == "" {
		name = row.Code
	}
	return Product{
		EditorialID:      editorialID,
		Code:             row.Code,
		Name:             name,
		Level:            row.Level,
		Grade:            row.Grade,
		Area:             row.Area,
		Series:           row.Series,
		InventoryType:    row.InventoryType,
		Medium:           row.Medium,
		ListPrice:        row.ListPrice,
		ProviderDiscount: row.ProviderDiscount,
		ProviderPrice:    derived.ProviderPrice,
		Status:           ProductActive,
	}, nil
}
