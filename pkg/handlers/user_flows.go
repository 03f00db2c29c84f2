package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// UserFlowRequest for POST and PUT on /projects/{projectId}/user-flows
type UserFlowRequest struct {
	Name           string   `json:"name" validate:"required,max=255"`
	CO2Consumption *float64 `json:"co2Consumption" validate:"required,gte=0"`
}

// UserFlowHandler handles the user flows of a project.
type UserFlowHandler struct {
	userFlowService services.UserFlowService
	logger          *zap.Logger
}

// NewUserFlowHandler creates a new user flow handler.
func NewUserFlowHandler(userFlowService services.UserFlowService, logger *zap.Logger) *UserFlowHandler {
	return &UserFlowHandler{userFlowService: userFlowService, logger: logger}
}

// RegisterRoutes registers the user flow routes.
func (h *UserFlowHandler) RegisterRoutes(r chi.Router) {
	base := "/projects/{projectId}/user-flows"
	r.Get(base, h.List)
	r.Post(base, h.Create)
	r.Get(base+"/{userFlowId}", h.Get)
	r.Put(base+"/{userFlowId}", h.Update)
	r.Delete(base+"/{userFlowId}", h.Delete)
}

// List handles GET /projects/{projectId}/user-flows
func (h *UserFlowHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	flows, err := h.userFlowService.List(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, "list user flows", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, flows)
}

// Get handles GET /projects/{projectId}/user-flows/{userFlowId}
func (h *UserFlowHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, flowID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	flow, err := h.userFlowService.Get(r.Context(), projectID, flowID)
	if err != nil {
		writeError(w, h.logger, "get user flow", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, flow)
}

// Create handles POST /projects/{projectId}/user-flows
func (h *UserFlowHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	var req UserFlowRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	flow, err := h.userFlowService.Create(r.Context(), projectID, services.UserFlowInput{
		Name:           req.Name,
		CO2Consumption: *req.CO2Consumption,
	})
	if err != nil {
		writeError(w, h.logger, "create user flow", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, flow)
}

// Update handles PUT /projects/{projectId}/user-flows/{userFlowId}
func (h *UserFlowHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, flowID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req UserFlowRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	flow, err := h.userFlowService.Update(r.Context(), projectID, flowID, services.UserFlowInput{
		Name:           req.Name,
		CO2Consumption: *req.CO2Consumption,
	})
	if err != nil {
		writeError(w, h.logger, "update user flow", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, flow)
}

// Delete handles DELETE /projects/{projectId}/user-flows/{userFlowId}
func (h *UserFlowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, flowID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	if err := h.userFlowService.Delete(r.Context(), projectID, flowID); err != nil {
		writeError(w, h.logger, "delete user flow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserFlowHandler) parseIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	projectID, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return 0, 0, false
	}
	flowID, ok := parseID(w, r, "userFlowId", h.logger)
	if !ok {
		return 0, 0, false
	}
	return projectID, flowID, true
}
