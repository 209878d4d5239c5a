package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bookexpress/cotizador/internal/jobs"
)

// GeneralExporter writes the general workbook into a directory.
type GeneralExporter interface {
	WriteGeneralFile(ctx context.Context, dir string) (string, error)
}

// ReportExportJob stores the general report on a schedule.
type ReportExportJob struct {
	Exporter GeneralExporter
	Dir      string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewReportExportJob constructs the job handler.
func NewReportExportJob(exporter GeneralExporter, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportExportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExportJob{Exporter: exporter, Dir: dir, Logger: logger, Metrics: metrics}
}

// Handle writes the workbook.
func (j *ReportExportJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Exporter == nil || j.Dir == "" {
		return errors.New("report export: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskReportExport)
	path, err := j.Exporter.WriteGeneralFile(ctx, j.Dir)
	if err != nil {
		j.Logger.ErrorContext(ctx, "report export failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.InfoContext(ctx, "report export stored", slog.String("path", path))
	return tracker.End(nil)
}
