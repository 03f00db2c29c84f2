package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/config"
	"github.com/greensdlc/sustainability-dashboard/pkg/middleware"
	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	// DB backs /health. Nil skips the database check.
	DB Pinger
	// Scope attaches a per-request database connection to domain routes.
	// Nil leaves the request context untouched.
	Scope func(http.Handler) http.Handler
	// Metrics enables request metrics and the /metrics endpoint when set.
	Metrics *middleware.Metrics

	Projects   services.ProjectService
	Sdlc       services.SdlcService
	UserFlows  services.UserFlowService
	Catalog    services.CatalogService
	Elements   services.ElementService
	Cicd       services.CicdService
	Historical services.HistoricalService
}

// NewRouter assembles the API. Health and metrics endpoints sit outside the
// database scope so they keep answering when the pool is exhausted.
func NewRouter(cfg *config.Config, deps RouterDeps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	NewHealthHandler(cfg, deps.DB, logger).RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		if deps.Scope != nil {
			r.Use(deps.Scope)
		}

		NewProjectHandler(deps.Projects, logger).RegisterRoutes(r)
		NewSdlcHandler(deps.Sdlc, logger).RegisterRoutes(r)
		NewUserFlowHandler(deps.UserFlows, logger).RegisterRoutes(r)
		NewOperationsHandler(deps.Catalog, deps.Elements, logger).RegisterRoutes(r)
		NewCicdHandler(deps.Cicd, logger).RegisterRoutes(r)
		NewHistoricalHandler(deps.Historical, cfg.MaxHistoryDays, logger).RegisterRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Route not found"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	})

	return r
}
