package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookexpress/cotizador/internal/platform/httpx"
	"github.com/bookexpress/cotizador/internal/sales"
)

const pdfContentType = "application/pdf"

// DocumentSource loads the records rendered by Handler.
type DocumentSource interface {
	GetQuotation(ctx context.Context, id int64) (sales.Quotation, error)
	GetAdoption(ctx context.Context, id int64) (sales.Adoption, error)
}

// Handler serves PDF documents.
type Handler struct {
	source DocumentSource
	logger *slog.Logger
}

// NewHandler creates a document handler.
func NewHandler(source DocumentSource, logger *slog.Logger) *Handler {
	return &Handler{source: source, logger: logger}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotations/{id}.pdf", h.quotation)
	r.Get("/adoptions/{id}.pdf", h.adoption)
}

func (h *Handler) quotation(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.source.GetQuotation(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := QuotationPDF(q)
	if err != nil {
		h.logger.Error("render quotation pdf", slog.Int64("quotation_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Attachment(w, pdfContentType, fmt.Sprintf("cotizacion_%s.pdf", q.Number), pdf)
}

func (h *Handler) adoption(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.source.GetAdoption(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pdf, err := AdoptionPDF(a)
	if err != nil {
		h.logger.Error("render adoption pdf", slog.Int64("adoption_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Attachment(w, pdfContentType, fmt.Sprintf("adopcion_%s.pdf", a.QuotationNumber), pdf)
}
