package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookexpress/cotizador/internal/platform/httpx"
	"github.com/bookexpress/cotizador/internal/sales"
	"github.com/bookexpress/cotizador/internal/shared"
)

// Handler serves report downloads.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds the export handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotations.xlsx", h.download(QuotationsPrefix, "xlsx", h.service.WriteQuotations))
	r.Get("/quotations.csv", h.download(QuotationsPrefix, "csv", h.service.WriteQuotations))
	r.Get("/adoptions.xlsx", h.download(AdoptionsPrefix, "xlsx", h.service.WriteAdoptions))
	r.Get("/adoptions.csv", h.download(AdoptionsPrefix, "csv", h.service.WriteAdoptions))
	r.Get("/general.xlsx", h.download(GeneralPrefix, "xlsx",
		func(ctx context.Context, w io.Writer, filter sales.ReportFilter, _ string) error {
			return h.service.WriteGeneral(ctx, w, filter)
		}))
}

type writeFunc func(ctx context.Context, w io.Writer, filter sales.ReportFilter, format string) error

func (h *Handler) download(prefix, format string, write writeFunc) http.HandlerFunc {
	contentType := XLSXContentType
	if format == "csv" {
		contentType = CSVContentType
	}
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := write(r.Context(), &buf, filter, format); err != nil {
			h.logger.Error("export report", slog.String("report", prefix), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.Attachment(w, contentType, Filename(prefix, h.service.now(), format), buf.Bytes())
	}
}

func parseFilter(r *http.Request) (sales.ReportFilter, error) {
	filter := sales.ReportFilter{
		InstitutionID: httpx.QueryInt64(r, "institution_id"),
		AdvisorID:     httpx.QueryInt64(r, "advisor_id"),
	}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return filter, fmt.Errorf("%w: from must be YYYY-MM-DD", shared.ErrInvalidInput)
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return filter, fmt.Errorf("%w: to must be YYYY-MM-DD", shared.ErrInvalidInput)
		}
		filter.To = to.AddDate(0, 0, 1)
	}
	return filter, nil
}
