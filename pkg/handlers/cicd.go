package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// ============================================================================
// Request Types
// ============================================================================

// CreatePipelineRequest for POST /integration-deployment/cicd-pipelines
type CreatePipelineRequest struct {
	RepoName      string   `json:"repoName" validate:"required,max=255"`
	Branch        string   `json:"branch" validate:"required,max=255"`
	CloudProvider string   `json:"cloudProvider" validate:"max=255"`
	PipelineName  string   `json:"pipelineName" validate:"required,max=255"`
	Tags          []string `json:"tags"`
}

// CreateRunRequest for POST /integration-deployment/cicd-pipelines/{pipelineId}/runs
type CreateRunRequest struct {
	RunNumber int       `json:"runNumber" validate:"gte=0"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required,gtefield=StartTime"`
}

// CreateMeasurementRequest for POST .../runs/{runId}/measurements
type CreateMeasurementRequest struct {
	StepName               string   `json:"stepName" validate:"required,oneof=integration deployment other"`
	IntegrationSubStepName *string  `json:"integrationSubStepName" validate:"omitempty,oneof=build unit_test static_analysis integration_test packaging"`
	DeploymentStage        *string  `json:"deploymentStage" validate:"omitempty,oneof=development staging production"`
	Duration               int      `json:"duration" validate:"gte=0"`
	CO2Consumption         *float64 `json:"co2Consumption" validate:"required,gte=0"`
}

// ============================================================================
// Handler
// ============================================================================

// CicdHandler serves CI/CD pipelines, runs and step measurements.
type CicdHandler struct {
	cicdService services.CicdService
	logger      *zap.Logger
}

// NewCicdHandler creates a new CI/CD handler.
func NewCicdHandler(cicdService services.CicdService, logger *zap.Logger) *CicdHandler {
	return &CicdHandler{cicdService: cicdService, logger: logger}
}

// RegisterRoutes registers the CI/CD routes.
func (h *CicdHandler) RegisterRoutes(r chi.Router) {
	r.Route("/integration-deployment/cicd-pipelines", func(r chi.Router) {
		r.Get("/", h.ListPipelines)
		r.Post("/", h.CreatePipeline)
		r.Get("/{pipelineId}", h.GetPipeline)
		r.Get("/{pipelineId}/runs", h.ListRuns)
		r.Post("/{pipelineId}/runs", h.CreateRun)
		r.Get("/{pipelineId}/runs/{runId}/measurements", h.ListMeasurements)
		r.Post("/{pipelineId}/runs/{runId}/measurements", h.CreateMeasurement)
	})
}

// ListPipelines handles GET /integration-deployment/cicd-pipelines?tags=&matchAll=
func (h *CicdHandler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	tags, matchAll, ok := parseTagFilter(w, r, h.logger)
	if !ok {
		return
	}

	pipelines, err := h.cicdService.ListPipelines(r.Context(), tags, matchAll)
	if err != nil {
		writeError(w, h.logger, "list pipelines", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, pipelines)
}

// CreatePipeline handles POST /integration-deployment/cicd-pipelines
func (h *CicdHandler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req CreatePipelineRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	pipeline, err := h.cicdService.CreatePipeline(r.Context(), services.CreatePipelineInput{
		RepoName:      req.RepoName,
		Branch:        req.Branch,
		CloudProvider: req.CloudProvider,
		PipelineName:  req.PipelineName,
		Tags:          req.Tags,
	})
	if err != nil {
		writeError(w, h.logger, "create pipeline", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, pipeline)
}

// GetPipeline handles GET /integration-deployment/cicd-pipelines/{pipelineId}
func (h *CicdHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	pipelineID, ok := parseID(w, r, "pipelineId", h.logger)
	if !ok {
		return
	}

	pipeline, err := h.cicdService.GetPipeline(r.Context(), pipelineID)
	if err != nil {
		writeError(w, h.logger, "get pipeline", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, pipeline)
}

// ListRuns handles GET /integration-deployment/cicd-pipelines/{pipelineId}/runs
func (h *CicdHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	pipelineID, ok := parseID(w, r, "pipelineId", h.logger)
	if !ok {
		return
	}

	runs, err := h.cicdService.ListRuns(r.Context(), pipelineID)
	if err != nil {
		writeError(w, h.logger, "list pipeline runs", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, runs)
}

// CreateRun handles POST /integration-deployment/cicd-pipelines/{pipelineId}/runs
func (h *CicdHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	pipelineID, ok := parseID(w, r, "pipelineId", h.logger)
	if !ok {
		return
	}

	var req CreateRunRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	run, err := h.cicdService.CreateRun(r.Context(), pipelineID, services.CreateRunInput{
		RunNumber: req.RunNumber,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeError(w, h.logger, "create pipeline run", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, run)
}

// ListMeasurements handles GET .../{pipelineId}/runs/{runId}/measurements
func (h *CicdHandler) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	pipelineID, runID, ok := h.parseRunIDs(w, r)
	if !ok {
		return
	}

	measurements, err := h.cicdService.ListMeasurements(r.Context(), pipelineID, runID)
	if err != nil {
		writeError(w, h.logger, "list step measurements", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, measurements)
}

// CreateMeasurement handles POST .../{pipelineId}/runs/{runId}/measurements
func (h *CicdHandler) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	pipelineID, runID, ok := h.parseRunIDs(w, r)
	if !ok {
		return
	}

	var req CreateMeasurementRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	m, err := h.cicdService.CreateMeasurement(r.Context(), pipelineID, runID, services.CreateMeasurementInput{
		StepName:               models.StepName(req.StepName),
		IntegrationSubStepName: req.IntegrationSubStepName,
		DeploymentStage:        req.DeploymentStage,
		Duration:               req.Duration,
		CO2Consumption:         *req.CO2Consumption,
	})
	if err != nil {
		writeError(w, h.logger, "create step measurement", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, m)
}

func (h *CicdHandler) parseRunIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	pipelineID, ok := parseID(w, r, "pipelineId", h.logger)
	if !ok {
		return 0, 0, false
	}
	runID, ok := parseID(w, r, "runId", h.logger)
	if !ok {
		return 0, 0, false
	}
	return pipelineID, runID, true
}
