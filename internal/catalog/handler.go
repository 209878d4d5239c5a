package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookexpress/cotizador/internal/platform/httpx"
	"github.com/bookexpress/cotizador/internal/shared"
)

const maxUploadBytes = 32 << 20

// ImportEnqueuer schedules a background import of a stored workbook.
type ImportEnqueuer interface {
	EnqueueCatalogImport(ctx context.Context, path, filename string) (string, error)
}

// Handler exposes catalog endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	enqueuer  ImportEnqueuer
	importDir string
}

// NewHandler builds a catalog Handler. Without an enqueuer imports run inline.
func NewHandler(logger *slog.Logger, service *Service, enqueuer ImportEnqueuer, importDir string) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, importDir: importDir}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.showProduct)
	r.Get("/filters", h.filters)
	r.Get("/editorials", h.editorials)
	r.Post("/imports", h.importWorkbook)
}

type productList struct {
	Data       []Product         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{
		EditorialID:     httpx.QueryInt64(r, "editorial_id"),
		Level:           q.Get("level"),
		Grade:           q.Get("grade"),
		Area:            q.Get("area"),
		Search:          q.Get("search"),
		IncludeInactive: q.Get("include_inactive") == "true",
		Page:            shared.PageFromQuery(q),
	}
	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, productList{
		Data:       products,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) filters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Filters(r.Context())
	if err != nil {
		h.logger.Error("catalog filters", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opts)
}

func (h *Handler) editorials(w http.ResponseWriter, r *http.Request) {
	editorials, err := h.service.ListEditorials(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if editorials == nil {
		editorials = []Editorial{}
	}
	httpx.JSON(w, http.StatusOK, editorials)
}

func (h *Handler) importWorkbook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: multipart field \"file\" required", shared.ErrInvalidInput))
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		httpx.RespondError(w, fmt.Errorf("%w: only .xlsx workbooks are accepted", shared.ErrInvalidInput))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: read upload: %v", shared.ErrInvalidInput, err))
		return
	}
	filename := filepath.Base(header.Filename)

	if h.enqueuer == nil {
		result, err := h.service.Import(r.Context(), filename, data)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
		return
	}

	path, err := h.store(data)
	if err != nil {
		h.logger.Error("store catalog upload", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	taskID, err := h.enqueuer.EnqueueCatalogImport(r.Context(), path, filename)
	if err != nil {
		_ = os.Remove(path)
		h.logger.Error("enqueue catalog import", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{
		"task_id":  taskID,
		"filename": filename,
		"checksum": Checksum(data),
	})
}

func (h *Handler) store(data []byte) (string, error) {
	dir := h.importDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+".xlsx")
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", err
	}
	return path, nil
}
