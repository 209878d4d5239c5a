package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/bookexpress/cotizador/internal/catalog"
	jobmetrics "github.com/bookexpress/cotizador/internal/jobs"
	"github.com/bookexpress/cotizador/internal/shared"
)

// CatalogImporter is the catalog behaviour the import job drives.
type CatalogImporter interface {
	Import(ctx context.Context, filename string, data []byte) (catalog.ImportResult, error)
}

// CatalogImportJob runs uploaded catalog imports.
type CatalogImportJob struct {
	Importer CatalogImporter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCatalogImportJob constructs the job handler.
func NewCatalogImportJob(importer CatalogImporter, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogImportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle imports the workbook named in the task payload. A concurrent import
// makes the task retry; a malformed workbook fails it permanently. The stored
// file is removed once the task will not run again.
func (j *CatalogImportJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Importer == nil {
		return errors.New("catalog import: importer not configured")
	}
	var payload CatalogImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.Path == "" {
		return fmt.Errorf("catalog import: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskCatalogImport)
	defer func() { err = tracker.End(err) }()

	data, err := os.ReadFile(payload.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("catalog import: %s: %w", payload.Path, asynq.SkipRetry)
		}
		return fmt.Errorf("catalog import: read %s: %w", payload.Path, err)
	}

	result, err := j.Importer.Import(ctx, payload.Filename, data)
	switch {
	case errors.Is(err, catalog.ErrImportRunning):
		j.Logger.InfoContext(ctx, "catalog import busy, will retry", slog.String("filename", payload.Filename))
		return err
	case errors.Is(err, shared.ErrInvalidInput):
		j.discard(payload.Path)
		j.Logger.WarnContext(ctx, "catalog workbook rejected", slog.String("filename", payload.Filename), slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case err != nil:
		return err
	}
	j.discard(payload.Path)

	j.Metrics.AddImportRows("inserted", result.Inserted)
	j.Metrics.AddImportRows("updated", result.Updated)
	j.Metrics.AddImportRows("skipped", result.Skipped)
	j.Logger.InfoContext(ctx, "catalog import finished",
		slog.String("filename", payload.Filename),
		slog.Bool("duplicate", result.Duplicate),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped))
	return nil
}

func (j *CatalogImportJob) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		j.Logger.Warn("remove imported workbook", slog.String("path", path), slog.Any("error", err))
	}
}
