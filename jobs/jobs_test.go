package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookexpress/cotizador/internal/catalog"
	jobmetrics "github.com/bookexpress/cotizador/internal/jobs"
	"github.com/bookexpress/cotizador/internal/shared"
)

type fakeImporter struct {
	err      error
	result   catalog.ImportResult
	filename string
	data     []byte
}

func (f *fakeImporter) Import(_ context.Context, filename string, data []byte) (catalog.ImportResult, error) {
	f.filename = filename
	f.data = data
	return f.result, f.err
}

func storedWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx-bytes"), 0o600))
	return path
}

func importTask(t *testing.T, path string) *asynq.Task {
	t.Helper()
	task, err := NewCatalogImportTask(CatalogImportPayload{Path: path, Filename: "catalogo.xlsx"})
	require.NoError(t, err)
	return task
}

func newImportJob(importer CatalogImporter) *CatalogImportJob {
	return NewCatalogImportJob(importer, slog.Default(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestCatalogImportTaskPayload(t *testing.T) {
	task := importTask(t, "/tmp/a.xlsx")
	assert.Equal(t, TaskCatalogImport, task.Type())
	var payload CatalogImportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, CatalogImportPayload{Path: "/tmp/a.xlsx", Filename: "catalogo.xlsx"}, payload)

	_, err := NewCatalogImportTask(CatalogImportPayload{})
	require.Error(t, err)
}

func TestCatalogImportJobImportsAndRemovesFile(t *testing.T) {
	path := storedWorkbook(t)
	importer := &fakeImporter{result: catalog.ImportResult{Inserted: 2, Skipped: 1}}

	require.NoError(t, newImportJob(importer).Handle(context.Background(), importTask(t, path)))
	assert.Equal(t, "catalogo.xlsx", importer.filename)
	assert.Equal(t, []byte("xlsx-bytes"), importer.data)
	assert.NoFileExists(t, path)
}

func TestCatalogImportJobRetriesWhileLocked(t *testing.T) {
	path := storedWorkbook(t)
	importer := &fakeImporter{err: fmt.Errorf("%w: held", catalog.ErrImportRunning)}

	err := newImportJob(importer).Handle(context.Background(), importTask(t, path))
	require.ErrorIs(t, err, catalog.ErrImportRunning)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.FileExists(t, path)
}

func TestCatalogImportJobSkipsRetryOnBadWorkbook(t *testing.T) {
	path := storedWorkbook(t)
	importer := &fakeImporter{err: fmt.Errorf("%w: missing columns", shared.ErrInvalidInput)}

	err := newImportJob(importer).Handle(context.Background(), importTask(t, path))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.NoFileExists(t, path)
}

func TestCatalogImportJobMissingFile(t *testing.T) {
	err := newImportJob(&fakeImporter{}).Handle(context.Background(), importTask(t, "/nonexistent/upload.xlsx"))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = newImportJob(&fakeImporter{}).Handle(context.Background(), asynq.NewTask(TaskCatalogImport, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeExporter struct {
	dir string
	err error
}

func (f *fakeExporter) WriteGeneralFile(_ context.Context, dir string) (string, error) {
	f.dir = dir
	return filepath.Join(dir, "general.xlsx"), f.err
}

func TestReportExportJob(t *testing.T) {
	exporter := &fakeExporter{}
	job := NewReportExportJob(exporter, "/var/exports", nil, nil)
	require.NoError(t, job.Handle(context.Background(), NewReportExportTask()))
	assert.Equal(t, "/var/exports", exporter.dir)

	exporter.err = errors.New("disk full")
	require.EqualError(t, job.Handle(context.Background(), NewReportExportTask()), "disk full")

	require.Error(t, NewReportExportJob(exporter, "", nil, nil).Handle(context.Background(), NewReportExportTask()))
}

type fakeEnqueuer struct{ err error }

func (f fakeEnqueuer) EnqueueReportExport(context.Context) (string, error) { return "task-1", f.err }

func TestJobsHandler(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, fakeEnqueuer{}, slog.Default()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"task_id":"task-1"}`, rec.Body.String())

	r = chi.NewRouter()
	NewHandler(nil, nil, slog.Default()).MountRoutes(r)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
