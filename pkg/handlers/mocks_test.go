package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// ============================================================================
// Test helpers
// ============================================================================

// serve routes a single request through a chi router holding the given routes.
func serve(register func(chi.Router), method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	register(r)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// decodeError reads a {"error","message"} body.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// decodeBody reads a JSON body into a generic value.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()
	var body any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ============================================================================
// Service mocks
// ============================================================================

type mockProjectService struct {
	project     *models.Project
	detail      *services.ProjectDetail
	projects    []*models.Project
	tags        []models.Tag
	err         error
	createInput services.CreateProjectInput
	updateInput services.UpdateProjectInput
	gotID       int64
	deleted     bool
}

func (m *mockProjectService) Create(ctx context.Context, input services.CreateProjectInput) (*models.Project, error) {
	m.createInput = input
	return m.project, m.err
}

func (m *mockProjectService) Get(ctx context.Context, id int64) (*services.ProjectDetail, error) {
	m.gotID = id
	return m.detail, m.err
}

func (m *mockProjectService) List(ctx context.Context) ([]*models.Project, error) {
	return m.projects, m.err
}

func (m *mockProjectService) Update(ctx context.Context, id int64, input services.UpdateProjectInput) (*models.Project, error) {
	m.gotID = id
	m.updateInput = input
	return m.project, m.err
}

func (m *mockProjectService) Delete(ctx context.Context, id int64) error {
	m.gotID = id
	m.deleted = m.err == nil
	return m.err
}

func (m *mockProjectService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return m.tags, m.err
}

type mockSdlcService struct {
	overview  *rollup.SdlcOverview
	stepInfo  *services.StepInfo
	err       error
	projectID int64
	step      string
}

func (m *mockSdlcService) Overview(ctx context.Context, projectID int64) (*rollup.SdlcOverview, error) {
	m.projectID = projectID
	return m.overview, m.err
}

func (m *mockSdlcService) StepInfo(ctx context.Context, projectID int64, step string) (*services.StepInfo, error) {
	m.projectID = projectID
	m.step = step
	return m.stepInfo, m.err
}

type mockUserFlowService struct {
	flow      *models.UserFlow
	flows     []models.UserFlow
	err       error
	projectID int64
	flowID    int64
	input     services.UserFlowInput
}

func (m *mockUserFlowService) List(ctx context.Context, projectID int64) ([]models.UserFlow, error) {
	m.projectID = projectID
	return m.flows, m.err
}

func (m *mockUserFlowService) Get(ctx context.Context, projectID, id int64) (*models.UserFlow, error) {
	m.projectID, m.flowID = projectID, id
	return m.flow, m.err
}

func (m *mockUserFlowService) Create(ctx context.Context, projectID int64, input services.UserFlowInput) (*models.UserFlow, error) {
	m.projectID, m.input = projectID, input
	return m.flow, m.err
}

func (m *mockUserFlowService) Update(ctx context.Context, projectID, id int64, input services.UserFlowInput) (*models.UserFlow, error) {
	m.projectID, m.flowID, m.input = projectID, id, input
	return m.flow, m.err
}

func (m *mockUserFlowService) Delete(ctx context.Context, projectID, id int64) error {
	m.projectID, m.flowID = projectID, id
	return m.err
}

type mockCatalogService struct {
	provider     *models.CloudProvider
	providers    []*models.CloudProvider
	service      *models.InfrastructureService
	services     []*models.InfrastructureService
	allowed      []models.AllowedMetric
	definition   *models.MetricDefinition
	definitions  []*models.MetricDefinition
	err          error
	providerName string
	serviceInput services.CreateServiceInput
	metricInput  services.CreateMetricDefinitionInput
	gotServiceID int64
	createCalled bool
}

func (m *mockCatalogService) ListCloudProviders(ctx context.Context) ([]*models.CloudProvider, error) {
	return m.providers, m.err
}

func (m *mockCatalogService) CreateCloudProvider(ctx context.Context, name string) (*models.CloudProvider, error) {
	m.providerName = name
	m.createCalled = true
	return m.provider, m.err
}

func (m *mockCatalogService) ListServices(ctx context.Context) ([]*models.InfrastructureService, error) {
	return m.services, m.err
}

func (m *mockCatalogService) CreateService(ctx context.Context, input services.CreateServiceInput) (*models.InfrastructureService, error) {
	m.serviceInput = input
	m.createCalled = true
	return m.service, m.err
}

func (m *mockCatalogService) AllowedMetrics(ctx context.Context, serviceID int64) ([]models.AllowedMetric, error) {
	m.gotServiceID = serviceID
	return m.allowed, m.err
}

func (m *mockCatalogService) ListMetricDefinitions(ctx context.Context) ([]*models.MetricDefinition, error) {
	return m.definitions, m.err
}

func (m *mockCatalogService) CreateMetricDefinition(ctx context.Context, input services.CreateMetricDefinitionInput) (*models.MetricDefinition, error) {
	m.metricInput = input
	m.createCalled = true
	return m.definition, m.err
}

type mockElementService struct {
	summary          *services.ElementSummary
	summaries        []services.ElementSummary
	detail           *services.ElementDetail
	reading          *services.MetricReading
	consumption      *models.ElementConsumption
	consumptions     []models.ElementConsumption
	err              error
	createInput      services.CreateElementInput
	tags             []string
	matchAll         bool
	elementID        int64
	valueInput       services.MetricValueInput
	consumptionInput services.ConsumptionInput
	called           bool
}

func (m *mockElementService) Create(ctx context.Context, input services.CreateElementInput) (*services.ElementSummary, error) {
	m.createInput, m.called = input, true
	return m.summary, m.err
}

func (m *mockElementService) List(ctx context.Context, tags []string, matchAll bool) ([]services.ElementSummary, error) {
	m.tags, m.matchAll, m.called = tags, matchAll, true
	return m.summaries, m.err
}

func (m *mockElementService) Get(ctx context.Context, id int64) (*services.ElementDetail, error) {
	m.elementID, m.called = id, true
	return m.detail, m.err
}

func (m *mockElementService) RecordMetricValue(ctx context.Context, elementID int64, input services.MetricValueInput) (*services.MetricReading, error) {
	m.elementID, m.valueInput, m.called = elementID, input, true
	return m.reading, m.err
}

func (m *mockElementService) AddConsumption(ctx context.Context, elementID int64, input services.ConsumptionInput) (*models.ElementConsumption, error) {
	m.elementID, m.consumptionInput, m.called = elementID, input, true
	return m.consumption, m.err
}

func (m *mockElementService) ListConsumptions(ctx context.Context, elementID int64) ([]models.ElementConsumption, error) {
	m.elementID, m.called = elementID, true
	return m.consumptions, m.err
}

type mockCicdService struct {
	pipeline         *services.PipelineSummary
	pipelines        []services.PipelineSummary
	detail           *services.PipelineDetail
	run              *services.RunView
	runs             []services.RunView
	measurement      *models.CicdStepMeasurement
	measurements     []models.CicdStepMeasurement
	err              error
	pipelineInput    services.CreatePipelineInput
	runInput         services.CreateRunInput
	measurementInput services.CreateMeasurementInput
	tags             []string
	matchAll         bool
	pipelineID       int64
	runID            int64
	called           bool
}

func (m *mockCicdService) CreatePipeline(ctx context.Context, input services.CreatePipelineInput) (*services.PipelineSummary, error) {
	m.pipelineInput, m.called = input, true
	return m.pipeline, m.err
}

func (m *mockCicdService) ListPipelines(ctx context.Context, tags []string, matchAll bool) ([]services.PipelineSummary, error) {
	m.tags, m.matchAll, m.called = tags, matchAll, true
	return m.pipelines, m.err
}

func (m *mockCicdService) GetPipeline(ctx context.Context, id int64) (*services.PipelineDetail, error) {
	m.pipelineID, m.called = id, true
	return m.detail, m.err
}

func (m *mockCicdService) CreateRun(ctx context.Context, pipelineID int64, input services.CreateRunInput) (*services.RunView, error) {
	m.pipelineID, m.runInput, m.called = pipelineID, input, true
	return m.run, m.err
}

func (m *mockCicdService) ListRuns(ctx context.Context, pipelineID int64) ([]services.RunView, error) {
	m.pipelineID, m.called = pipelineID, true
	return m.runs, m.err
}

func (m *mockCicdService) CreateMeasurement(ctx context.Context, pipelineID, runID int64, input services.CreateMeasurementInput) (*models.CicdStepMeasurement, error) {
	m.pipelineID, m.runID, m.measurementInput, m.called = pipelineID, runID, input, true
	return m.measurement, m.err
}

func (m *mockCicdService) ListMeasurements(ctx context.Context, pipelineID, runID int64) ([]models.CicdStepMeasurement, error) {
	m.pipelineID, m.runID, m.called = pipelineID, runID, true
	return m.measurements, m.err
}

type mockHistoricalService struct {
	crossProject []rollup.CrossProjectRow
	sdlc         []rollup.SdlcStepRow
	projectRows  []rollup.ProjectRow
	serviceRows  []rollup.ServiceRow
	pipelineRows []rollup.PipelineRow
	err          error
	projectID    int64
	entityID     int64
	start, end   rollup.Day
	called       string
}

func (m *mockHistoricalService) CrossProject(ctx context.Context, start, end rollup.Day) ([]rollup.CrossProjectRow, error) {
	m.start, m.end, m.called = start, end, "cross-project"
	return m.crossProject, m.err
}

func (m *mockHistoricalService) ProjectSdlc(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.SdlcStepRow, error) {
	m.projectID, m.start, m.end, m.called = projectID, start, end, "sdlc"
	return m.sdlc, m.err
}

func (m *mockHistoricalService) ProjectOperations(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.ProjectRow, error) {
	m.projectID, m.start, m.end, m.called = projectID, start, end, "operations"
	return m.projectRows, m.err
}

func (m *mockHistoricalService) ProjectCicd(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.ProjectRow, error) {
	m.projectID, m.start, m.end, m.called = projectID, start, end, "cicd"
	return m.projectRows, m.err
}

func (m *mockHistoricalService) ProjectService(ctx context.Context, projectID, serviceID int64, start, end rollup.Day) ([]rollup.ServiceRow, error) {
	m.projectID, m.entityID, m.start, m.end, m.called = projectID, serviceID, start, end, "service"
	return m.serviceRows, m.err
}

func (m *mockHistoricalService) ProjectPipeline(ctx context.Context, projectID, pipelineID int64, start, end rollup.Day) ([]rollup.PipelineRow, error) {
	m.projectID, m.entityID, m.start, m.end, m.called = projectID, pipelineID, start, end, "pipeline"
	return m.pipelineRows, m.err
}

var (
	_ services.ProjectService    = (*mockProjectService)(nil)
	_ services.SdlcService       = (*mockSdlcService)(nil)
	_ services.UserFlowService   = (*mockUserFlowService)(nil)
	_ services.CatalogService    = (*mockCatalogService)(nil)
	_ services.ElementService    = (*mockElementService)(nil)
	_ services.CicdService       = (*mockCicdService)(nil)
	_ services.HistoricalService = (*mockHistoricalService)(nil)
)
