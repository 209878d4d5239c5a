package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bookexpress/cotizador/internal/catalog"
	"github.com/bookexpress/cotizador/internal/export"
	"github.com/bookexpress/cotizador/internal/masterdata"
	"github.com/bookexpress/cotizador/internal/observability"
	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/sales"
	"github.com/bookexpress/cotizador/jobs"
	"github.com/bookexpress/cotizador/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	PricingHandler    *pricing.Handler
	CatalogHandler    *catalog.Handler
	MasterDataHandler *masterdata.Handler
	SalesHandler      *sales.Handler
	ExportHandler     *export.Handler
	DocumentHandler   *report.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with cotizador defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.PricingHandler != nil {
			r.Route("/pricing", params.PricingHandler.MountRoutes)
		}
		if params.CatalogHandler != nil {
			r.Route("/catalog", params.CatalogHandler.MountRoutes)
		}
		if params.MasterDataHandler != nil {
			r.Group(params.MasterDataHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Group(params.SalesHandler.MountRoutes)
		}
		if params.ExportHandler != nil {
			r.Route("/exports", params.ExportHandler.MountRoutes)
		}
		if params.DocumentHandler != nil {
			r.Route("/documents", params.DocumentHandler.MountRoutes)
		}
	})

	return r
}
