package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// CicdPipelineRepository provides data access for pipelines, their runs and step measurements.
type CicdPipelineRepository interface {
	Create(ctx context.Context, pipeline *models.CicdPipeline) error
	// Get loads the pipeline with tags, runs and measurements.
	Get(ctx context.Context, id int64) (*models.CicdPipeline, error)
	// ListByTags loads matching pipelines with tags, runs and measurements.
	// Runs are restricted to those starting inside window when it is non-nil.
	ListByTags(ctx context.Context, filter TagFilter, window *TimeWindow) ([]*models.CicdPipeline, error)
	SetTags(ctx context.Context, pipelineID int64, tagIDs []int64) error

	CreateRun(ctx context.Context, run *models.CicdPipelineRun) error
	// GetRun returns ErrNotFound unless runID belongs to pipelineID.
	GetRun(ctx context.Context, pipelineID, runID int64) (*models.CicdPipelineRun, error)
	ListRuns(ctx context.Context, pipelineID int64) ([]models.CicdPipelineRun, error)

	CreateMeasurement(ctx context.Context, m *models.CicdStepMeasurement) error
	ListMeasurements(ctx context.Context, runID int64) ([]models.CicdStepMeasurement, error)
}

type cicdPipelineRepository struct{}

// NewCicdPipelineRepository creates a new CicdPipelineRepository.
func NewCicdPipelineRepository() CicdPipelineRepository {
	return &cicdPipelineRepository{}
}

var _ CicdPipelineRepository = (*cicdPipelineRepository)(nil)

const pipelineSelect = `
	SELECT p.id, p.repo_name, p.branch, p.cloud_provider, p.pipeline_name
	FROM cicd_pipelines p`

func scanPipeline(row interface{ Scan(...any) error }) (*models.CicdPipeline, error) {
	var p models.CicdPipeline
	if err := row.Scan(&p.ID, &p.RepoName, &p.Branch, &p.CloudProvider, &p.PipelineName); err != nil {
		return nil, err
	}
	return &p, nil
}

// ============================================================================
// Pipelines
// ============================================================================

func (r *cicdPipelineRepository) Create(ctx context.Context, pipeline *models.CicdPipeline) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO cicd_pipelines (repo_name, branch, cloud_provider, pipeline_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		pipeline.RepoName, pipeline.Branch, pipeline.CloudProvider, pipeline.PipelineName).
		Scan(&pipeline.ID)
	if err != nil {
		return translateError(err, "create pipeline")
	}
	return nil
}

func (r *cicdPipelineRepository) Get(ctx context.Context, id int64) (*models.CicdPipeline, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	p, err := scanPipeline(scope.Q().QueryRow(ctx, pipelineSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, translateError(err, "get pipeline")
	}

	if err := attachPipelineChildren(ctx, scope.Q(), []*models.CicdPipeline{p}, nil); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *cicdPipelineRepository) ListByTags(ctx context.Context, filter TagFilter, window *TimeWindow) ([]*models.CicdPipeline, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	if len(filter.Tags) == 0 {
		return []*models.CicdPipeline{}, nil
	}

	clause, args := tagFilterClause("p", pipelineTags.table, pipelineTags.fkColumn, filter, 1)
	rows, err := scope.Q().Query(ctx, pipelineSelect+` WHERE `+clause+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines by tags: %w", err)
	}
	defer rows.Close()

	pipelines := make([]*models.CicdPipeline, 0)
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pipelines: %w", err)
	}

	if err := attachPipelineChildren(ctx, scope.Q(), pipelines, window); err != nil {
		return nil, err
	}
	return pipelines, nil
}

func (r *cicdPipelineRepository) SetTags(ctx context.Context, pipelineID int64, tagIDs []int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}
	return replaceTags(ctx, scope.Q(), pipelineTags, pipelineID, tagIDs)
}

// attachPipelineChildren loads tags, runs and measurements for pipelines in three batched queries.
func attachPipelineChildren(ctx context.Context, q database.Querier, pipelines []*models.CicdPipeline, window *TimeWindow) error {
	ids := make([]int64, 0, len(pipelines))
	for _, p := range pipelines {
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	tags, err := loadTags(ctx, q, pipelineTags, ids)
	if err != nil {
		return err
	}

	runs, err := loadRuns(ctx, q, ids, window)
	if err != nil {
		return err
	}

	for _, p := range pipelines {
		p.Tags = tagsOrEmpty(tags[p.ID])
		p.Runs = runs[p.ID]
	}
	return nil
}

// ============================================================================
// Runs
// ============================================================================

func (r *cicdPipelineRepository) CreateRun(ctx context.Context, run *models.CicdPipelineRun) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO cicd_pipeline_runs (cicd_pipeline_id, run_number, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		run.CicdPipelineID, run.RunNumber, run.StartTime, run.EndTime).
		Scan(&run.ID)
	if err != nil {
		return translateError(err, "create pipeline run")
	}

	if run.Measurements == nil {
		run.Measurements = []models.CicdStepMeasurement{}
	}
	return nil
}

func (r *cicdPipelineRepository) GetRun(ctx context.Context, pipelineID, runID int64) (*models.CicdPipelineRun, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	var run models.CicdPipelineRun
	err := scope.Q().QueryRow(ctx, `
		SELECT id, cicd_pipeline_id, run_number, start_time, end_time
		FROM cicd_pipeline_runs
		WHERE id = $1 AND cicd_pipeline_id = $2`, runID, pipelineID).
		Scan(&run.ID, &run.CicdPipelineID, &run.RunNumber, &run.StartTime, &run.EndTime)
	if err != nil {
		return nil, translateError(err, "get pipeline run")
	}

	measurements, err := loadMeasurements(ctx, scope.Q(), []int64{run.ID})
	if err != nil {
		return nil, err
	}
	run.Measurements = measurementsOrEmpty(measurements[run.ID])
	return &run, nil
}

func (r *cicdPipelineRepository) ListRuns(ctx context.Context, pipelineID int64) ([]models.CicdPipelineRun, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	runs, err := loadRuns(ctx, scope.Q(), []int64{pipelineID}, nil)
	if err != nil {
		return nil, err
	}
	if runs[pipelineID] == nil {
		return []models.CicdPipelineRun{}, nil
	}
	return runs[pipelineID], nil
}

// loadRuns returns runs with measurements per pipeline, ordered by start time.
func loadRuns(ctx context.Context, q database.Querier, pipelineIDs []int64, window *TimeWindow) (map[int64][]models.CicdPipelineRun, error) {
	query := `
		SELECT id, cicd_pipeline_id, run_number, start_time, end_time
		FROM cicd_pipeline_runs
		WHERE cicd_pipeline_id = ANY($1)`
	args := []any{pipelineIDs}
	if window != nil {
		query += ` AND start_time >= $2 AND start_time < $3`
		args = append(args, window.From, window.To)
	}
	query += ` ORDER BY start_time, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline runs: %w", err)
	}

	var runs []models.CicdPipelineRun
	runIDs := make([]int64, 0)
	for rows.Next() {
		var run models.CicdPipelineRun
		if err := rows.Scan(&run.ID, &run.CicdPipelineID, &run.RunNumber, &run.StartTime, &run.EndTime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, run)
		runIDs = append(runIDs, run.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pipeline runs: %w", err)
	}

	measurements, err := loadMeasurements(ctx, q, runIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]models.CicdPipelineRun, len(pipelineIDs))
	for _, run := range runs {
		run.Measurements = measurementsOrEmpty(measurements[run.ID])
		out[run.CicdPipelineID] = append(out[run.CicdPipelineID], run)
	}
	return out, nil
}

// ============================================================================
// Step measurements
// ============================================================================

func (r *cicdPipelineRepository) CreateMeasurement(ctx context.Context, m *models.CicdStepMeasurement) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO cicd_step_measurements (
			cicd_pipeline_run_id, step_name, integration_sub_step_name,
			deployment_stage, duration, co2_consumption
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.CicdPipelineRunID, m.StepName, m.IntegrationSubStepName,
		m.DeploymentStage, m.Duration, m.CO2Consumption).
		Scan(&m.ID)
	if err != nil {
		return translateError(err, "create step measurement")
	}
	return nil
}

func (r *cicdPipelineRepository) ListMeasurements(ctx context.Context, runID int64) ([]models.CicdStepMeasurement, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	measurements, err := loadMeasurements(ctx, scope.Q(), []int64{runID})
	if err != nil {
		return nil, err
	}
	return measurementsOrEmpty(measurements[runID]), nil
}

func loadMeasurements(ctx context.Context, q database.Querier, runIDs []int64) (map[int64][]models.CicdStepMeasurement, error) {
	out := make(map[int64][]models.CicdStepMeasurement, len(runIDs))
	if len(runIDs) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx, `
		SELECT id, cicd_pipeline_run_id, step_name, integration_sub_step_name,
		       deployment_stage, duration, co2_consumption
		FROM cicd_step_measurements
		WHERE cicd_pipeline_run_id = ANY($1)
		ORDER BY id`, runIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load step measurements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.CicdStepMeasurement
		err := rows.Scan(&m.ID, &m.CicdPipelineRunID, &m.StepName, &m.IntegrationSubStepName,
			&m.DeploymentStage, &m.Duration, &m.CO2Consumption)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step measurement: %w", err)
		}
		out[m.CicdPipelineRunID] = append(out[m.CicdPipelineRunID], m)
	}
	return out, rows.Err()
}

func measurementsOrEmpty(ms []models.CicdStepMeasurement) []models.CicdStepMeasurement {
	if ms == nil {
		return []models.CicdStepMeasurement{}
	}
	return ms
}
