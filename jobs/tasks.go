package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogImport imports a stored catalog workbook.
	TaskCatalogImport = "catalog:import"
	// TaskReportExport writes the general report workbook into the export directory.
	TaskReportExport = "report:export"
)

// CatalogImportPayload points at a workbook saved by the upload endpoint.
type CatalogImportPayload struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// NewCatalogImportTask constructs a catalog import task.
func NewCatalogImportTask(payload CatalogImportPayload) (*asynq.Task, error) {
	if payload.Path == "" {
		return nil, errors.New("catalog import: path required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogImport, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewReportExportTask constructs the scheduled export task.
func NewReportExportTask() *asynq.Task {
	return asynq.NewTask(TaskReportExport, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(2))
}
