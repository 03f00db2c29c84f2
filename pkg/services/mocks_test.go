package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// ============================================================================
// Mock Implementations for Service Tests
// ============================================================================

// passthroughTx runs fn directly and counts invocations.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) run(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", apperrors.ErrNotFound, what, id)
}

type mockProjectRepo struct {
	projects  map[int64]*models.Project
	nextID    int64
	createErr error
	updateErr error
	setTags   map[int64][]int64
}

func newMockProjectRepo(projects ...*models.Project) *mockProjectRepo {
	m := &mockProjectRepo{projects: make(map[int64]*models.Project), setTags: make(map[int64][]int64)}
	for _, p := range projects {
		m.projects[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	project.ID = m.nextID
	clone := *project
	m.projects[project.ID] = &clone
	return nil
}

func (m *mockProjectRepo) Get(ctx context.Context, id int64) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	clone := *p
	return &clone, nil
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	out := make([]*models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.projects[project.ID]; !ok {
		return notFound("project", project.ID)
	}
	clone := *project
	m.projects[project.ID] = &clone
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.projects[id]; !ok {
		return notFound("project", id)
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) SetTags(ctx context.Context, projectID int64, tagIDs []int64) error {
	m.setTags[projectID] = tagIDs
	return nil
}

type mockTagRepo struct {
	tags      map[string]models.Tag
	nextID    int64
	upsertErr error
}

func newMockTagRepo() *mockTagRepo {
	return &mockTagRepo{tags: make(map[string]models.Tag)}
}

func (m *mockTagRepo) Upsert(ctx context.Context, names []string) ([]models.Tag, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	out := make([]models.Tag, 0, len(names))
	for _, name := range repositories.NormalizeTagNames(names) {
		tag, ok := m.tags[name]
		if !ok {
			m.nextID++
			tag = models.Tag{ID: m.nextID, Name: name}
			m.tags[name] = tag
		}
		out = append(out, tag)
	}
	return out, nil
}

func (m *mockTagRepo) List(ctx context.Context) ([]models.Tag, error) {
	out := make([]models.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockElementRepo struct {
	elements     map[int64]*models.InfrastructureElement
	values       map[int64][]models.MetricValue
	nextID       int64
	filters      []repositories.TagFilter
	windows      []*repositories.TimeWindow
	setTags      map[int64][]int64
	consumptions []models.ElementConsumption
	listErr      error
}

func newMockElementRepo(elements ...models.InfrastructureElement) *mockElementRepo {
	m := &mockElementRepo{
		elements: make(map[int64]*models.InfrastructureElement),
		values:   make(map[int64][]models.MetricValue),
		setTags:  make(map[int64][]int64),
	}
	for i := range elements {
		e := elements[i]
		m.elements[e.ID] = &e
		m.values[e.ID] = e.MetricValues
		if e.ID > m.nextID {
			m.nextID = e.ID
		}
	}
	return m
}

func (m *mockElementRepo) Create(ctx context.Context, element *models.InfrastructureElement) error {
	m.nextID++
	element.ID = m.nextID
	clone := *element
	m.elements[element.ID] = &clone
	return nil
}

func (m *mockElementRepo) Get(ctx context.Context, id int64) (*models.InfrastructureElement, error) {
	e, ok := m.elements[id]
	if !ok {
		return nil, notFound("element", id)
	}
	clone := *e
	clone.MetricValues = m.values[id]
	return &clone, nil
}

func (m *mockElementRepo) ListByTags(ctx context.Context, filter repositories.TagFilter, window *repositories.TimeWindow) ([]*models.InfrastructureElement, error) {
	m.filters = append(m.filters, filter)
	m.windows = append(m.windows, window)
	if m.listErr != nil {
		return nil, m.listErr
	}

	out := make([]*models.InfrastructureElement, 0)
	for _, e := range m.sorted() {
		if !rollup.MatchTags(e.Tags, filter.Tags, filter.MatchAll) {
			continue
		}
		clone := *e
		clone.MetricValues = nil
		out = append(out, &clone)
	}
	return out, nil
}

func (m *mockElementRepo) ListMetricValues(ctx context.Context, elementIDs []int64) (map[int64][]models.MetricValue, error) {
	out := make(map[int64][]models.MetricValue, len(elementIDs))
	for _, id := range elementIDs {
		if v, ok := m.values[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (m *mockElementRepo) SetTags(ctx context.Context, elementID int64, tagIDs []int64) error {
	m.setTags[elementID] = tagIDs
	return nil
}

func (m *mockElementRepo) AddConsumption(ctx context.Context, c *models.ElementConsumption) error {
	if _, ok := m.elements[c.InfrastructureElementID]; !ok {
		return notFound("element", c.InfrastructureElementID)
	}
	c.ID = int64(len(m.consumptions) + 1)
	m.consumptions = append(m.consumptions, *c)
	return nil
}

func (m *mockElementRepo) ListConsumptions(ctx context.Context, elementID int64) ([]models.ElementConsumption, error) {
	out := make([]models.ElementConsumption, 0)
	for _, c := range m.consumptions {
		if c.InfrastructureElementID == elementID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockElementRepo) sorted() []*models.InfrastructureElement {
	out := make([]*models.InfrastructureElement, 0, len(m.elements))
	for _, e := range m.elements {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type mockPipelineRepo struct {
	pipelines    map[int64]*models.CicdPipeline
	nextID       int64
	filters      []repositories.TagFilter
	windows      []*repositories.TimeWindow
	setTags      map[int64][]int64
	runs         []models.CicdPipelineRun
	measurements []models.CicdStepMeasurement
}

func newMockPipelineRepo(pipelines ...models.CicdPipeline) *mockPipelineRepo {
	m := &mockPipelineRepo{
		pipelines: make(map[int64]*models.CicdPipeline),
		setTags:   make(map[int64][]int64),
	}
	for i := range pipelines {
		p := pipelines[i]
		m.pipelines[p.ID] = &p
		m.runs = append(m.runs, p.Runs...)
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *mockPipelineRepo) Create(ctx context.Context, pipeline *models.CicdPipeline) error {
	m.nextID++
	pipeline.ID = m.nextID
	clone := *pipeline
	m.pipelines[pipeline.ID] = &clone
	return nil
}

func (m *mockPipelineRepo) Get(ctx context.Context, id int64) (*models.CicdPipeline, error) {
	p, ok := m.pipelines[id]
	if !ok {
		return nil, notFound("pipeline", id)
	}
	clone := *p
	return &clone, nil
}

func (m *mockPipelineRepo) ListByTags(ctx context.Context, filter repositories.TagFilter, window *repositories.TimeWindow) ([]*models.CicdPipeline, error) {
	m.filters = append(m.filters, filter)
	m.windows = append(m.windows, window)

	ids := make([]int64, 0, len(m.pipelines))
	for id := range m.pipelines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*models.CicdPipeline, 0)
	for _, id := range ids {
		p := m.pipelines[id]
		if rollup.MatchTags(p.Tags, filter.Tags, filter.MatchAll) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockPipelineRepo) SetTags(ctx context.Context, pipelineID int64, tagIDs []int64) error {
	m.setTags[pipelineID] = tagIDs
	return nil
}

func (m *mockPipelineRepo) CreateRun(ctx context.Context, run *models.CicdPipelineRun) error {
	if _, ok := m.pipelines[run.CicdPipelineID]; !ok {
		return notFound("pipeline", run.CicdPipelineID)
	}
	run.ID = int64(len(m.runs) + 1)
	run.Measurements = []models.CicdStepMeasurement{}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockPipelineRepo) GetRun(ctx context.Context, pipelineID, runID int64) (*models.CicdPipelineRun, error) {
	for _, run := range m.runs {
		if run.ID == runID && run.CicdPipelineID == pipelineID {
			clone := run
			return &clone, nil
		}
	}
	return nil, notFound("run", runID)
}

func (m *mockPipelineRepo) ListRuns(ctx context.Context, pipelineID int64) ([]models.CicdPipelineRun, error) {
	out := make([]models.CicdPipelineRun, 0)
	for _, run := range m.runs {
		if run.CicdPipelineID == pipelineID {
			out = append(out, run)
		}
	}
	return out, nil
}

func (m *mockPipelineRepo) CreateMeasurement(ctx context.Context, ms *models.CicdStepMeasurement) error {
	ms.ID = int64(len(m.measurements) + 1)
	m.measurements = append(m.measurements, *ms)
	return nil
}

func (m *mockPipelineRepo) ListMeasurements(ctx context.Context, runID int64) ([]models.CicdStepMeasurement, error) {
	out := make([]models.CicdStepMeasurement, 0)
	for _, ms := range m.measurements {
		if ms.CicdPipelineRunID == runID {
			out = append(out, ms)
		}
	}
	return out, nil
}

type mockProviderRepo struct {
	providers map[string]*models.CloudProvider
	createErr error
}

func newMockProviderRepo(names ...string) *mockProviderRepo {
	m := &mockProviderRepo{providers: make(map[string]*models.CloudProvider)}
	for i, name := range names {
		m.providers[name] = &models.CloudProvider{ID: int64(i + 1), Name: name}
	}
	return m
}

func (m *mockProviderRepo) Create(ctx context.Context, provider *models.CloudProvider) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.providers[provider.Name]; ok {
		return fmt.Errorf("%w: cloud provider %q exists", apperrors.ErrConflict, provider.Name)
	}
	provider.ID = int64(len(m.providers) + 1)
	m.providers[provider.Name] = provider
	return nil
}

func (m *mockProviderRepo) List(ctx context.Context) ([]*models.CloudProvider, error) {
	out := make([]*models.CloudProvider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockProviderRepo) GetByName(ctx context.Context, name string) (*models.CloudProvider, error) {
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: cloud provider %q", apperrors.ErrNotFound, name)
	}
	return p, nil
}

type mockServiceRepo struct {
	services map[int64]*models.InfrastructureService
	allowed  map[int64][]models.AllowedMetric
	created  []*models.InfrastructureService
}

func newMockServiceRepo(services ...models.InfrastructureService) *mockServiceRepo {
	m := &mockServiceRepo{
		services: make(map[int64]*models.InfrastructureService),
		allowed:  make(map[int64][]models.AllowedMetric),
	}
	for i := range services {
		s := services[i]
		m.services[s.ID] = &s
	}
	return m
}

func (m *mockServiceRepo) Create(ctx context.Context, service *models.InfrastructureService) error {
	service.ID = int64(len(m.services) + 1)
	service.CloudProvider = fmt.Sprintf("provider-%d", service.CloudProviderID)
	m.services[service.ID] = service
	m.created = append(m.created, service)
	return nil
}

func (m *mockServiceRepo) List(ctx context.Context) ([]*models.InfrastructureService, error) {
	out := make([]*models.InfrastructureService, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockServiceRepo) Get(ctx context.Context, id int64) (*models.InfrastructureService, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, notFound("infrastructure service", id)
	}
	return s, nil
}

func (m *mockServiceRepo) ListAllowedMetrics(ctx context.Context, serviceID int64) ([]models.AllowedMetric, error) {
	if a, ok := m.allowed[serviceID]; ok {
		return a, nil
	}
	return []models.AllowedMetric{}, nil
}

type mockMetricRepo struct {
	defs        map[int64]*models.MetricDefinition
	keyCounts   map[int64]int
	allowed     map[[2]int64]bool
	lockCalls   int
	createCalls int
	lockErr     error
}

func newMockMetricRepo(defs ...models.MetricDefinition) *mockMetricRepo {
	m := &mockMetricRepo{
		defs:      make(map[int64]*models.MetricDefinition),
		keyCounts: make(map[int64]int),
		allowed:   make(map[[2]int64]bool),
	}
	for i := range defs {
		d := defs[i]
		m.defs[d.ID] = &d
		for _, sid := range d.ApplicableServiceIDs {
			m.allowed[[2]int64{sid, d.ID}] = true
		}
	}
	return m
}

func (m *mockMetricRepo) Create(ctx context.Context, def *models.MetricDefinition) error {
	m.createCalls++
	def.ID = int64(len(m.defs) + 100)
	m.defs[def.ID] = def
	for _, sid := range def.ApplicableServiceIDs {
		m.allowed[[2]int64{sid, def.ID}] = true
		if def.IsKeyMetric {
			m.keyCounts[sid]++
		}
	}
	return nil
}

func (m *mockMetricRepo) Get(ctx context.Context, id int64) (*models.MetricDefinition, error) {
	d, ok := m.defs[id]
	if !ok {
		return nil, notFound("metric definition", id)
	}
	return d, nil
}

func (m *mockMetricRepo) List(ctx context.Context) ([]*models.MetricDefinition, error) {
	out := make([]*models.MetricDefinition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockMetricRepo) LockServicesAndCountKeyMetrics(ctx context.Context, serviceIDs []int64) (map[int64]int, error) {
	m.lockCalls++
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	out := make(map[int64]int, len(serviceIDs))
	for _, id := range serviceIDs {
		out[id] = m.keyCounts[id]
	}
	return out, nil
}

func (m *mockMetricRepo) IsAllowed(ctx context.Context, serviceID, definitionID int64) (bool, error) {
	return m.allowed[[2]int64{serviceID, definitionID}], nil
}

type mockValueRepo struct {
	values    []models.MetricValue
	createErr error
}

func (m *mockValueRepo) Create(ctx context.Context, value *models.MetricValue) error {
	if m.createErr != nil {
		return m.createErr
	}
	value.ID = int64(len(m.values) + 1)
	m.values = append(m.values, *value)
	return nil
}

type mockUserFlowRepo struct {
	flows  map[int64]*models.UserFlow
	nextID int64
}

func newMockUserFlowRepo(flows ...models.UserFlow) *mockUserFlowRepo {
	m := &mockUserFlowRepo{flows: make(map[int64]*models.UserFlow)}
	for i := range flows {
		f := flows[i]
		m.flows[f.ID] = &f
		if f.ID > m.nextID {
			m.nextID = f.ID
		}
	}
	return m
}

func (m *mockUserFlowRepo) Create(ctx context.Context, flow *models.UserFlow) error {
	m.nextID++
	flow.ID = m.nextID
	clone := *flow
	m.flows[flow.ID] = &clone
	return nil
}

func (m *mockUserFlowRepo) Get(ctx context.Context, projectID, id int64) (*models.UserFlow, error) {
	f, ok := m.flows[id]
	if !ok || f.ProjectID != projectID {
		return nil, notFound("user flow", id)
	}
	clone := *f
	return &clone, nil
}

func (m *mockUserFlowRepo) ListByProject(ctx context.Context, projectID int64) ([]models.UserFlow, error) {
	out := make([]models.UserFlow, 0)
	for _, f := range m.flows {
		if f.ProjectID == projectID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *mockUserFlowRepo) Update(ctx context.Context, flow *models.UserFlow) error {
	if _, err := m.Get(ctx, flow.ProjectID, flow.ID); err != nil {
		return err
	}
	clone := *flow
	m.flows[flow.ID] = &clone
	return nil
}

func (m *mockUserFlowRepo) Delete(ctx context.Context, projectID, id int64) error {
	if _, err := m.Get(ctx, projectID, id); err != nil {
		return err
	}
	delete(m.flows, id)
	return nil
}

// Compile-time checks that the mocks satisfy the repository contracts.
var (
	_ repositories.ProjectRepository               = (*mockProjectRepo)(nil)
	_ repositories.TagRepository                   = (*mockTagRepo)(nil)
	_ repositories.InfrastructureElementRepository = (*mockElementRepo)(nil)
	_ repositories.CicdPipelineRepository          = (*mockPipelineRepo)(nil)
	_ repositories.CloudProviderRepository         = (*mockProviderRepo)(nil)
	_ repositories.InfrastructureServiceRepository = (*mockServiceRepo)(nil)
	_ repositories.MetricDefinitionRepository      = (*mockMetricRepo)(nil)
	_ repositories.MetricValueRepository           = (*mockValueRepo)(nil)
	_ repositories.UserFlowRepository              = (*mockUserFlowRepo)(nil)
)
