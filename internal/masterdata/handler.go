package masterdata

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookexpress/cotizador/internal/platform/httpx"
	"github.com/bookexpress/cotizador/internal/shared"
)

// Handler manages master data endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/institutions", h.listInstitutions)
	r.Post("/institutions", h.createInstitution)
	r.Get("/institutions/{id}", h.showInstitution)
	r.Get("/advisors", h.listAdvisors)
	r.Post("/advisors", h.createAdvisor)
	r.Get("/advisors/{id}", h.showAdvisor)
}

type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func filtersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	return ListFilters{
		Search:          q.Get("search"),
		IncludeInactive: q.Get("include_inactive") == "true",
		Page:            shared.PageFromQuery(q),
	}
}

func (h *Handler) listInstitutions(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromRequest(r)
	items, total, err := h.service.ListInstitutions(r.Context(), filters)
	if err != nil {
		h.logger.Error("list institutions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Institution{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[Institution]{
		Data:       items,
		Pagination: shared.NewPagination(filters.Page.Page, filters.Page.PerPage, total),
	})
}

func (h *Handler) showInstitution(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inst, err := h.service.GetInstitution(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inst)
}

func (h *Handler) createInstitution(w http.ResponseWriter, r *http.Request) {
	var req CreateInstitutionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inst, err := h.service.CreateInstitution(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inst)
}

func (h *Handler) listAdvisors(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromRequest(r)
	items, total, err := h.service.ListAdvisors(r.Context(), filters)
	if err != nil {
		h.logger.Error("list advisors", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Advisor{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[Advisor]{
		Data:       items,
		Pagination: shared.NewPagination(filters.Page.Page, filters.Page.PerPage, total),
	})
}

func (h *Handler) showAdvisor(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	advisor, err := h.service.GetAdvisor(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, advisor)
}

func (h *Handler) createAdvisor(w http.ResponseWriter, r *http.Request) {
	var req CreateAdvisorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	advisor, err := h.service.CreateAdvisor(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, advisor)
}
