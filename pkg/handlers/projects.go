package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// ============================================================================
// Request Types
// ============================================================================

// CreateProjectRequest for POST /projects
type CreateProjectRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// UpdateProjectRequest for PUT /projects/{projectId}. Omitted fields are kept.
type UpdateProjectRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// ============================================================================
// Handler
// ============================================================================

// ProjectHandler handles project CRUD and the tag catalogue.
type ProjectHandler struct {
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projectService services.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, logger: logger}
}

// RegisterRoutes registers the project routes.
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Get("/projects", h.List)
	r.Post("/projects", h.Create)
	r.Get("/projects/{projectId}", h.Get)
	r.Put("/projects/{projectId}", h.Update)
	r.Delete("/projects/{projectId}", h.Delete)
	r.Get("/tags", h.ListTags)
}

// List handles GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.List(r.Context())
	if err != nil {
		writeError(w, h.logger, "list projects", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, projects)
}

// Create handles POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	project, err := h.projectService.Create(r.Context(), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, h.logger, "create project", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, project)
}

// Get handles GET /projects/{projectId}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	project, err := h.projectService.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, project)
}

// Update handles PUT /projects/{projectId}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	project, err := h.projectService.Update(r.Context(), id, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, h.logger, "update project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, project)
}

// Delete handles DELETE /projects/{projectId}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "projectId", h.logger)
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /tags
func (h *ProjectHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.projectService.ListTags(r.Context())
	if err != nil {
		writeError(w, h.logger, "list tags", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, tags)
}
