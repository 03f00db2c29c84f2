package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// ============================================================================
// Request Types
// ============================================================================

// CreateCloudProviderRequest for POST /operations/cloud-providers
type CreateCloudProviderRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateServiceRequest for POST /operations/infrastructure-services
type CreateServiceRequest struct {
	Type          string `json:"type" validate:"required,max=255"`
	Category      string `json:"category" validate:"required,oneof=Compute Storage Databases Networking"`
	CloudProvider string `json:"cloudProvider" validate:"required"`
}

// CreateMetricDefinitionRequest for POST /operations/metric-definitions
type CreateMetricDefinitionRequest struct {
	Name                 string  `json:"name" validate:"required,max=255"`
	DataType             string  `json:"dataType" validate:"required,oneof=integer decimal string"`
	IsKeyMetric          bool    `json:"isKeyMetric"`
	ApplicableServiceIDs []int64 `json:"applicableServiceIds" validate:"dive,gt=0"`
}

// CreateElementRequest for POST /operations/infrastructure-elements
type CreateElementRequest struct {
	Name                    string   `json:"name" validate:"required,max=255"`
	InfrastructureServiceID int64    `json:"infrastructureServiceId" validate:"required,gt=0"`
	Tags                    []string `json:"tags"`
}

// MetricValueRequest for POST /operations/infrastructure-elements/{elementId}/metric-values
type MetricValueRequest struct {
	MetricDefinitionID int64 `json:"metricDefinitionId" validate:"required,gt=0"`
	Value              any   `json:"value"`
}

// ConsumptionRequest for POST /operations/infrastructure-elements/{elementId}/consumptions
type ConsumptionRequest struct {
	Date           string   `json:"date" validate:"required"`
	CO2Consumption *float64 `json:"co2Consumption" validate:"required,gte=0"`
}

// ============================================================================
// Handler
// ============================================================================

// OperationsHandler serves the operations side: reference data and infrastructure elements.
type OperationsHandler struct {
	catalogService services.CatalogService
	elementService services.ElementService
	logger         *zap.Logger
}

// NewOperationsHandler creates a new operations handler.
func NewOperationsHandler(
	catalogService services.CatalogService,
	elementService services.ElementService,
	logger *zap.Logger,
) *OperationsHandler {
	return &OperationsHandler{
		catalogService: catalogService,
		elementService: elementService,
		logger:         logger,
	}
}

// RegisterRoutes registers the operations routes.
func (h *OperationsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/operations", func(r chi.Router) {
		r.Get("/cloud-providers", h.ListCloudProviders)
		r.Post("/cloud-providers", h.CreateCloudProvider)
		r.Get("/infrastructure-services", h.ListServices)
		r.Post("/infrastructure-services", h.CreateService)
		r.Get("/allowed-metrics/{infrastructureServiceId}", h.AllowedMetrics)
		r.Get("/metric-definitions", h.ListMetricDefinitions)
		r.Post("/metric-definitions", h.CreateMetricDefinition)

		r.Get("/infrastructure-elements", h.ListElements)
		r.Post("/infrastructure-elements", h.CreateElement)
		r.Get("/infrastructure-elements/{elementId}", h.GetElement)
		r.Post("/infrastructure-elements/{elementId}/metric-values", h.RecordMetricValue)
		r.Get("/infrastructure-elements/{elementId}/consumptions", h.ListConsumptions)
		r.Post("/infrastructure-elements/{elementId}/consumptions", h.AddConsumption)
	})
}

// ListCloudProviders handles GET /operations/cloud-providers
func (h *OperationsHandler) ListCloudProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.catalogService.ListCloudProviders(r.Context())
	if err != nil {
		writeError(w, h.logger, "list cloud providers", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, providers)
}

// CreateCloudProvider handles POST /operations/cloud-providers
func (h *OperationsHandler) CreateCloudProvider(w http.ResponseWriter, r *http.Request) {
	var req CreateCloudProviderRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	provider, err := h.catalogService.CreateCloudProvider(r.Context(), req.Name)
	if err != nil {
		writeError(w, h.logger, "create cloud provider", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, provider)
}

// ListServices handles GET /operations/infrastructure-services
func (h *OperationsHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := h.catalogService.ListServices(r.Context())
	if err != nil {
		writeError(w, h.logger, "list infrastructure services", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, svcs)
}

// CreateService handles POST /operations/infrastructure-services
func (h *OperationsHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	svc, err := h.catalogService.CreateService(r.Context(), services.CreateServiceInput{
		Type:          req.Type,
		Category:      models.ServiceCategory(req.Category),
		CloudProvider: req.CloudProvider,
	})
	if err != nil {
		writeError(w, h.logger, "create infrastructure service", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, svc)
}

// AllowedMetrics handles GET /operations/allowed-metrics/{infrastructureServiceId}
func (h *OperationsHandler) AllowedMetrics(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := parseID(w, r, "infrastructureServiceId", h.logger)
	if !ok {
		return
	}

	allowed, err := h.catalogService.AllowedMetrics(r.Context(), serviceID)
	if err != nil {
		writeError(w, h.logger, "list allowed metrics", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, allowed)
}

// ListMetricDefinitions handles GET /operations/metric-definitions
func (h *OperationsHandler) ListMetricDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.catalogService.ListMetricDefinitions(r.Context())
	if err != nil {
		writeError(w, h.logger, "list metric definitions", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, defs)
}

// CreateMetricDefinition handles POST /operations/metric-definitions
func (h *OperationsHandler) CreateMetricDefinition(w http.ResponseWriter, r *http.Request) {
	var req CreateMetricDefinitionRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	def, err := h.catalogService.CreateMetricDefinition(r.Context(), services.CreateMetricDefinitionInput{
		MetricName:           req.Name,
		DataType:             models.DataType(req.DataType),
		IsKeyMetric:          req.IsKeyMetric,
		ApplicableServiceIDs: req.ApplicableServiceIDs,
	})
	if err != nil {
		writeError(w, h.logger, "create metric definition", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, def)
}

// ListElements handles GET /operations/infrastructure-elements?tags=&matchAll=
func (h *OperationsHandler) ListElements(w http.ResponseWriter, r *http.Request) {
	tags, matchAll, ok := parseTagFilter(w, r, h.logger)
	if !ok {
		return
	}

	elements, err := h.elementService.List(r.Context(), tags, matchAll)
	if err != nil {
		writeError(w, h.logger, "list infrastructure elements", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, elements)
}

// CreateElement handles POST /operations/infrastructure-elements
func (h *OperationsHandler) CreateElement(w http.ResponseWriter, r *http.Request) {
	var req CreateElementRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	element, err := h.elementService.Create(r.Context(), services.CreateElementInput{
		Name:      req.Name,
		ServiceID: req.InfrastructureServiceID,
		Tags:      req.Tags,
	})
	if err != nil {
		writeError(w, h.logger, "create infrastructure element", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, element)
}

// GetElement handles GET /operations/infrastructure-elements/{elementId}
func (h *OperationsHandler) GetElement(w http.ResponseWriter, r *http.Request) {
	elementID, ok := parseID(w, r, "elementId", h.logger)
	if !ok {
		return
	}

	element, err := h.elementService.Get(r.Context(), elementID)
	if err != nil {
		writeError(w, h.logger, "get infrastructure element", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, element)
}

// RecordMetricValue handles POST /operations/infrastructure-elements/{elementId}/metric-values
func (h *OperationsHandler) RecordMetricValue(w http.ResponseWriter, r *http.Request) {
	elementID, ok := parseID(w, r, "elementId", h.logger)
	if !ok {
		return
	}

	var req MetricValueRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	reading, err := h.elementService.RecordMetricValue(r.Context(), elementID, services.MetricValueInput{
		MetricDefinitionID: req.MetricDefinitionID,
		Value:              req.Value,
	})
	if err != nil {
		writeError(w, h.logger, "record metric value", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, reading)
}

// ListConsumptions handles GET /operations/infrastructure-elements/{elementId}/consumptions
func (h *OperationsHandler) ListConsumptions(w http.ResponseWriter, r *http.Request) {
	elementID, ok := parseID(w, r, "elementId", h.logger)
	if !ok {
		return
	}

	rows, err := h.elementService.ListConsumptions(r.Context(), elementID)
	if err != nil {
		writeError(w, h.logger, "list consumptions", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, rows)
}

// AddConsumption handles POST /operations/infrastructure-elements/{elementId}/consumptions
func (h *OperationsHandler) AddConsumption(w http.ResponseWriter, r *http.Request) {
	elementID, ok := parseID(w, r, "elementId", h.logger)
	if !ok {
		return
	}

	var req ConsumptionRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	date, err := services.ParseDate(req.Date)
	if err != nil {
		writeError(w, h.logger, "parse consumption date", err)
		return
	}

	row, err := h.elementService.AddConsumption(r.Context(), elementID, services.ConsumptionInput{
		Date:           date,
		CO2Consumption: *req.CO2Consumption,
	})
	if err != nil {
		writeError(w, h.logger, "add consumption", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, row)
}
