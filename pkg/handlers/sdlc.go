package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// SdlcHandler serves the per-step CO2 breakdown of a project.
type SdlcHandler struct {
	sdlcService services.SdlcService
	logger      *zap.Logger
}

// NewSdlcHandler creates a new SDLC handler.
func NewSdlcHandler(sdlcService services.SdlcService, logger *zap.Logger) *SdlcHandler {
	return &SdlcHandler{sdlcService: sdlcService, logger: logger}
}

// RegisterRoutes registers the SDLC routes.
func (h *SdlcHandler) RegisterRoutes(r chi.Router) {
	r.Get("/projects/{projectId}/sdlc", h.Overview)
	r.Get("/projects/{projectId}/sdlc/{step}", h.StepInfo)
}

// Overview handles GET /projects/{projectId}/sdlc
func (h *SdlcHandler) Overview(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	overview, err := h.sdlcService.Overview(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, "compute SDLC overview", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, overview)
}

// StepInfo handles GET /projects/{projectId}/sdlc/{step}
func (h *SdlcHandler) StepInfo(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	info, err := h.sdlcService.StepInfo(r.Context(), projectID, chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, h.logger, "get SDLC step info", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, info)
}
