package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bookexpress/cotizador/internal/platform/httpx"
	"github.com/bookexpress/cotizador/internal/shared"
)

const idempotencyModule = "quotations"

// ServicePort is the behaviour the handler needs from Service.
type ServicePort interface {
	CreateQuotation(ctx context.Context, req CreateQuotationRequest) (Quotation, error)
	GetQuotation(ctx context.Context, id int64) (Quotation, error)
	ListQuotations(ctx context.Context, filter QuotationFilter) ([]Quotation, int, error)
	ReplaceQuotationLines(ctx context.Context, id int64, req ReplaceLinesRequest) (Quotation, error)
	ChangeQuotationStatus(ctx context.Context, id int64, req ChangeStatusRequest) (Quotation, error)
	CreateAdoption(ctx context.Context, req CreateAdoptionRequest) (Adoption, error)
	GetAdoption(ctx context.Context, id int64) (Adoption, error)
	ListAdoptions(ctx context.Context, filter AdoptionFilter) ([]Adoption, int, error)
	ReplaceAdoptionLines(ctx context.Context, id int64, req ReplaceAdoptionLinesRequest) (Adoption, error)
	CreatePurchaseOrder(ctx context.Context, req CreateOrderRequest) (PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error)
	ChangeOrderStatus(ctx context.Context, id int64, req ChangeOrderStatusRequest) (PurchaseOrder, error)
}

// Handler manages sales endpoints.
type Handler struct {
	logger      *slog.Logger
	service     ServicePort
	idempotency *shared.IdempotencyStore
}

// NewHandler builds Handler instance. idempotency may be nil.
func NewHandler(logger *slog.Logger, service ServicePort, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Quotation routes
	r.Get("/quotations", h.listQuotations)
	r.Post("/quotations", h.createQuotation)
	r.Get("/quotations/{id}", h.showQuotation)
	r.Put("/quotations/{id}/lines", h.replaceQuotationLines)
	r.Patch("/quotations/{id}/status", h.changeQuotationStatus)

	// Adoption routes
	r.Get("/adoptions", h.listAdoptions)
	r.Post("/adoptions", h.createAdoption)
	r.Get("/adoptions/{id}", h.showAdoption)
	r.Put("/adoptions/{id}/lines", h.replaceAdoptionLines)

	// Purchase order routes
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.showOrder)
	r.Patch("/orders/{id}/status", h.changeOrderStatus)
}

type page[T any] struct {
	Data       []T               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func newPage[T any](items []T, req shared.PageRequest, total int) page[T] {
	if items == nil {
		items = []T{}
	}
	return page[T]{Data: items, Pagination: shared.NewPagination(req.Page, req.PerPage, total)}
}

// ============================================================================
// QUOTATION HANDLERS
// ============================================================================

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := QuotationFilter{
		Status:        QuotationStatus(strings.ToUpper(q.Get("status"))),
		InstitutionID: httpx.QueryInt64(r, "institution_id"),
		AdvisorID:     httpx.QueryInt64(r, "advisor_id"),
		Number:        q.Get("number"),
		Page:          shared.PageFromQuery(q),
	}
	items, total, err := h.service.ListQuotations(r.Context(), filter)
	if err != nil {
		h.logger.Error("list quotations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPage(items, filter.Page, total))
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	existingID, claimed, err := h.idempotency.Claim(ctx, idempotencyModule, key)
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyInFlight) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "a request with this Idempotency-Key is still being processed")
			return
		}
		h.logger.Error("claim idempotency key", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !claimed {
		quotation, err := h.service.GetQuotation(ctx, existingID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, quotation)
		return
	}

	quotation, err := h.service.CreateQuotation(ctx, req)
	if err != nil {
		if releaseErr := h.idempotency.Release(context.WithoutCancel(ctx), idempotencyModule, key); releaseErr != nil {
			h.logger.Warn("release idempotency key", slog.Any("error", releaseErr))
		}
		h.logger.Info("create quotation rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.idempotency.Complete(ctx, idempotencyModule, key, quotation.ID); err != nil {
		h.logger.Warn("complete idempotency key", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, quotation)
}

func (h *Handler) showQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quotation, err := h.service.GetQuotation(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *Handler) replaceQuotationLines(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ReplaceLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	quotation, err := h.service.ReplaceQuotationLines(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *Handler) changeQuotationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ChangeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Status = QuotationStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	quotation, err := h.service.ChangeQuotationStatus(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

// ============================================================================
// ADOPTION HANDLERS
// ============================================================================

func (h *Handler) listAdoptions(w http.ResponseWriter, r *http.Request) {
	filter := AdoptionFilter{
		QuotationID: httpx.QueryInt64(r, "quotation_id"),
		Page:        shared.PageFromQuery(r.URL.Query()),
	}
	items, total, err := h.service.ListAdoptions(r.Context(), filter)
	if err != nil {
		h.logger.Error("list adoptions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPage(items, filter.Page, total))
}

func (h *Handler) createAdoption(w http.ResponseWriter, r *http.Request) {
	var req CreateAdoptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	adoption, err := h.service.CreateAdoption(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adoption)
}

func (h *Handler) showAdoption(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	adoption, err := h.service.GetAdoption(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adoption)
}

func (h *Handler) replaceAdoptionLines(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ReplaceAdoptionLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	adoption, err := h.service.ReplaceAdoptionLines(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adoption)
}

// ============================================================================
// PURCHASE ORDER HANDLERS
// ============================================================================

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := OrderFilter{
		Status: OrderStatus(strings.ToUpper(q.Get("status"))),
		Page:   shared.PageFromQuery(q),
	}
	items, total, err := h.service.ListPurchaseOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPage(items, filter.Page, total))
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.CreatePurchaseOrder(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) changeOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ChangeOrderStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Status = OrderStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	order, err := h.service.ChangeOrderStatus(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
