package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bookexpress/cotizador/internal/sales"
)

// File name prefixes of the downloadable reports.
const (
	QuotationsPrefix = "Reporte_Cotizaciones"
	AdoptionsPrefix  = "Reporte_Adopciones"
	GeneralPrefix    = "Reporte_General_BookExpress"
)

// Source loads report rows.
type Source interface {
	QuotationReport(ctx context.Context, filter sales.ReportFilter) ([]sales.QuotationReportRow, error)
	AdoptionReport(ctx context.Context, filter sales.ReportFilter) ([]sales.AdoptionReportRow, error)
}

// Service assembles report files.
type Service struct {
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the export service.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger, now: time.Now}
}

// Filename names a report generated at t.
func Filename(prefix string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format(time.DateOnly), ext)
}

// WriteQuotations writes the quotation report as xlsx or csv.
func (s *Service) WriteQuotations(ctx context.Context, w io.Writer, filter sales.ReportFilter, format string) error {
	rows, err := s.source.QuotationReport(ctx, filter)
	if err != nil {
		return err
	}
	if format == "csv" {
		return WriteQuotationsCSV(w, rows)
	}
	return WriteQuotationsXLSX(w, rows)
}

// WriteAdoptions writes the adoption report as xlsx or csv.
func (s *Service) WriteAdoptions(ctx context.Context, w io.Writer, filter sales.ReportFilter, format string) error {
	rows, err := s.source.AdoptionReport(ctx, filter)
	if err != nil {
		return err
	}
	if format == "csv" {
		return WriteAdoptionsCSV(w, rows)
	}
	return WriteAdoptionsXLSX(w, rows)
}

// WriteGeneral loads both reports concurrently and writes one workbook.
func (s *Service) WriteGeneral(ctx context.Context, w io.Writer, filter sales.ReportFilter) error {
	var (
		quotations []sales.QuotationReportRow
		adoptions  []sales.AdoptionReportRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotations, err = s.source.QuotationReport(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		adoptions, err = s.source.AdoptionReport(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return WriteGeneralXLSX(w, quotations, adoptions)
}

// WriteGeneralFile stores the general workbook in dir and returns its path.
// The file appears atomically under its final name.
func (s *Service) WriteGeneralFile(ctx context.Context, dir string) (string, error) {
	var buf bytes.Buffer
	if err := s.WriteGeneral(ctx, &buf, sales.ReportFilter{}); err != nil {
		return "", fmt.Errorf("export: general workbook: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, Filename(GeneralPrefix, s.now(), "xlsx"))
	tmp, err := os.CreateTemp(dir, ".general-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("export: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("export: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("export: rename: %w", err)
	}
	s.logger.InfoContext(ctx, "general workbook written", slog.String("path", path), slog.Int("bytes", buf.Len()))
	return path, nil
}
