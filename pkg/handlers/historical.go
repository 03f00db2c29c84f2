package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// HistoricalHandler serves the day-by-day CO2 series. Every route requires
// startDate and endDate query parameters spanning at most maxDays days.
type HistoricalHandler struct {
	historicalService services.HistoricalService
	maxDays           int
	logger            *zap.Logger
}

// NewHistoricalHandler creates a new historical data handler. maxDays <= 0
// leaves the date range uncapped.
func NewHistoricalHandler(historicalService services.HistoricalService, maxDays int, logger *zap.Logger) *HistoricalHandler {
	return &HistoricalHandler{historicalService: historicalService, maxDays: maxDays, logger: logger}
}

// RegisterRoutes registers the historical data routes.
func (h *HistoricalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/historical-data", func(r chi.Router) {
		r.Get("/cross-project", h.CrossProject)
		r.Get("/projects/{projectId}/sdlc", h.ProjectSdlc)
		r.Get("/projects/{projectId}/operations", h.ProjectOperations)
		r.Get("/projects/{projectId}/cicd", h.ProjectCicd)
		r.Get("/projects/{projectId}/services/{serviceId}", h.ProjectService)
		r.Get("/projects/{projectId}/pipelines/{pipelineId}", h.ProjectPipeline)
	})
}

// CrossProject handles GET /historical-data/cross-project
func (h *HistoricalHandler) CrossProject(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDateRange(w, r, h.maxDays, h.logger)
	if !ok {
		return
	}

	rows, err := h.historicalService.CrossProject(r.Context(), start, end)
	if err != nil {
		writeError(w, h.logger, "compute cross-project history", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}

// ProjectSdlc handles GET /historical-data/projects/{projectId}/sdlc
func (h *HistoricalHandler) ProjectSdlc(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	start, end, ok := parseDateRange(w, r, h.maxDays, h.logger)
	if !ok {
		return
	}

	rows, err := h.historicalService.ProjectSdlc(r.Context(), projectID, start, end)
	if err != nil {
		writeError(w, h.logger, "compute SDLC history", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}

// ProjectOperations handles GET /historical-data/projects/{projectId}/operations
func (h *HistoricalHandler) ProjectOperations(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	start, end, ok := parseDateRange(w, r, h.maxDays, h.logger)
	if !ok {
		return
	}

	rows, err := h.historicalService.ProjectOperations(r.Context(), projectID, start, end)
	if err != nil {
		writeError(w, h.logger, "compute operations history", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}

// ProjectCicd handles GET /historical-data/projects/{projectId}/cicd
func (h *HistoricalHandler) ProjectCicd(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	start, end, ok := parseDateRange(w, r, h.maxDays, h.logger)
	if !ok {
		return
	}

	rows, err := h.historicalService.ProjectCicd(r.Context(), projectID, start, end)
	if err != nil {
		writeError(w, h.logger, "compute CI/CD history", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}

// ProjectService handles GET /historical-data/projects/{projectId}/services/{serviceId}
func (h *HistoricalHandler) ProjectService(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	serviceID, ok := parseID(w, r, "serviceId", h.logger)
	if !ok {
		return
	}
	start, end, ok := parseDateRange(w, r, h.maxDays, h.logger)
	if !ok {
		return
	}

	rows, err := h.historicalService.ProjectService(r.Context(), projectID, serviceID, start, end)
	if err != nil {
		writeError(w, h.logger, "compute service history", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}

// ProjectPipeline handles GET /historical-data/projects/{projectId}/pipelines/{pipelineId}
func (h *HistoricalHandler) ProjectPipeline(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}
	pipelineID, ok := parseID(w, r, "pipelineId", h.logger)
	if !ok {
		return
	}
	start, end, ok := parseDateRange(w, r, h.maxDays, h.logger)
	if !ok {
		return
	}

	rows, err := h.historicalService.ProjectPipeline(r.Context(), projectID, pipelineID, start, end)
	if err != nil {
		writeError(w, h.logger, "compute pipeline history", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}
