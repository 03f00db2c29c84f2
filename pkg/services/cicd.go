package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// PipelineSummary is a pipeline with its all-time CO2 and headline figures.
type PipelineSummary struct {
	ID            int64                     `json:"id"`
	RepoName      string                    `json:"repoName"`
	Branch        string                    `json:"branch"`
	CloudProvider string                    `json:"cloudProvider"`
	PipelineName  string                    `json:"pipelineName"`
	Tags          []models.Tag              `json:"tags"`
	TotalCO2      float64                   `json:"totalCo2"`
	KeyMetrics    rollup.PipelineKeyMetrics `json:"keyMetrics"`
}

// RunView is a pipeline run with the CO2 of all its steps.
type RunView struct {
	models.CicdPipelineRun
	TotalCO2 float64 `json:"totalCo2"`
}

// PipelineDetail adds the runs of a pipeline to its summary.
type PipelineDetail struct {
	PipelineSummary
	Runs []RunView `json:"runs"`
}

// CreatePipelineInput describes a new pipeline.
type CreatePipelineInput struct {
	RepoName      string
	Branch        string
	CloudProvider string
	PipelineName  string
	Tags          []string
}

// CreateRunInput describes one execution of a pipeline.
type CreateRunInput struct {
	RunNumber int
	StartTime time.Time
	EndTime   time.Time
}

// CreateMeasurementInput describes the cost of one step of a run.
// IntegrationSubStepName is required for integration steps, DeploymentStage for
// deployment steps, and neither may be set otherwise.
type CreateMeasurementInput struct {
	StepName               models.StepName
	IntegrationSubStepName *string
	DeploymentStage        *string
	Duration               int
	CO2Consumption         float64
}

// CicdService manages CI/CD pipelines, their runs and step measurements.
type CicdService interface {
	// CreatePipeline stores a pipeline with its tags.
	CreatePipeline(ctx context.Context, input CreatePipelineInput) (*PipelineSummary, error)

	// ListPipelines returns the summaries of pipelines matching the tag filter.
	ListPipelines(ctx context.Context, tags []string, matchAll bool) ([]PipelineSummary, error)

	// GetPipeline returns a pipeline with all of its runs.
	GetPipeline(ctx context.Context, id int64) (*PipelineDetail, error)

	// CreateRun stores a run of an existing pipeline.
	CreateRun(ctx context.Context, pipelineID int64, input CreateRunInput) (*RunView, error)

	// ListRuns returns a pipeline's runs by start time.
	ListRuns(ctx context.Context, pipelineID int64) ([]RunView, error)

	// CreateMeasurement stores a step measurement of a run of the pipeline.
	CreateMeasurement(ctx context.Context, pipelineID, runID int64, input CreateMeasurementInput) (*models.CicdStepMeasurement, error)

	// ListMeasurements returns the step measurements of a run of the pipeline.
	ListMeasurements(ctx context.Context, pipelineID, runID int64) ([]models.CicdStepMeasurement, error)
}

type cicdService struct {
	pipelineRepo repositories.CicdPipelineRepository
	tagRepo      repositories.TagRepository
	runInTx      TxRunner
	now          Clock
	logger       *zap.Logger
}

// NewCicdService creates a new CI/CD service.
func NewCicdService(
	pipelineRepo repositories.CicdPipelineRepository,
	tagRepo repositories.TagRepository,
	runInTx TxRunner,
	now Clock,
	logger *zap.Logger,
) CicdService {
	return &cicdService{
		pipelineRepo: pipelineRepo,
		tagRepo:      tagRepo,
		runInTx:      runInTx,
		now:          now,
		logger:       logger.Named("cicd-service"),
	}
}

var _ CicdService = (*cicdService)(nil)

// ============================================================================
// Pipelines
// ============================================================================

func (s *cicdService) CreatePipeline(ctx context.Context, input CreatePipelineInput) (*PipelineSummary, error) {
	pipeline := &models.CicdPipeline{
		RepoName:      strings.TrimSpace(input.RepoName),
		Branch:        strings.TrimSpace(input.Branch),
		CloudProvider: strings.TrimSpace(input.CloudProvider),
		PipelineName:  strings.TrimSpace(input.PipelineName),
	}
	if pipeline.RepoName == "" || pipeline.Branch == "" || pipeline.PipelineName == "" {
		return nil, fmt.Errorf("%w: repoName, branch and pipelineName are required", apperrors.ErrValidation)
	}

	err := s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.pipelineRepo.Create(ctx, pipeline); err != nil {
			return err
		}
		tags, err := s.tagRepo.Upsert(ctx, input.Tags)
		if err != nil {
			return fmt.Errorf("upsert tags: %w", err)
		}
		if err := s.pipelineRepo.SetTags(ctx, pipeline.ID, tagIDs(tags)); err != nil {
			return fmt.Errorf("set pipeline tags: %w", err)
		}
		pipeline.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created pipeline",
		zap.Int64("pipeline_id", pipeline.ID),
		zap.String("repo", pipeline.RepoName),
		zap.String("pipeline", pipeline.PipelineName))
	summary := s.summarize(*pipeline)
	return &summary, nil
}

func (s *cicdService) ListPipelines(ctx context.Context, tags []string, matchAll bool) ([]PipelineSummary, error) {
	pipelines, err := s.pipelineRepo.ListByTags(ctx, repositories.TagFilter{Tags: tags, MatchAll: matchAll}, nil)
	if err != nil {
		return nil, err
	}

	summaries := make([]PipelineSummary, 0, len(pipelines))
	for _, p := range pipelines {
		summaries = append(summaries, s.summarize(*p))
	}
	return summaries, nil
}

func (s *cicdService) GetPipeline(ctx context.Context, id int64) (*PipelineDetail, error) {
	pipeline, err := s.pipelineRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PipelineDetail{
		PipelineSummary: s.summarize(*pipeline),
		Runs:            runViews(pipeline.Runs),
	}, nil
}

// ============================================================================
// Runs and measurements
// ============================================================================

func (s *cicdService) CreateRun(ctx context.Context, pipelineID int64, input CreateRunInput) (*RunView, error) {
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return nil, fmt.Errorf("%w: startTime and endTime are required", apperrors.ErrValidation)
	}
	if input.EndTime.Before(input.StartTime) {
		return nil, fmt.Errorf("%w: endTime must not be before startTime", apperrors.ErrValidation)
	}

	run := &models.CicdPipelineRun{
		CicdPipelineID: pipelineID,
		RunNumber:      input.RunNumber,
		StartTime:      input.StartTime.UTC(),
		EndTime:        input.EndTime.UTC(),
	}
	// An unknown pipeline surfaces as a foreign key violation, i.e. not found.
	if err := s.pipelineRepo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Debug("Recorded pipeline run",
		zap.Int64("pipeline_id", pipelineID),
		zap.Int("run_number", run.RunNumber))
	return &RunView{CicdPipelineRun: *run}, nil
}

func (s *cicdService) ListRuns(ctx context.Context, pipelineID int64) ([]RunView, error) {
	if _, err := s.pipelineRepo.Get(ctx, pipelineID); err != nil {
		return nil, err
	}
	runs, err := s.pipelineRepo.ListRuns(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	return runViews(runs), nil
}

func (s *cicdService) CreateMeasurement(ctx context.Context, pipelineID, runID int64, input CreateMeasurementInput) (*models.CicdStepMeasurement, error) {
	if err := validateMeasurement(input); err != nil {
		return nil, err
	}
	if _, err := s.pipelineRepo.GetRun(ctx, pipelineID, runID); err != nil {
		return nil, err
	}

	m := &models.CicdStepMeasurement{
		CicdPipelineRunID:      runID,
		StepName:               input.StepName,
		IntegrationSubStepName: input.IntegrationSubStepName,
		DeploymentStage:        input.DeploymentStage,
		Duration:               input.Duration,
		CO2Consumption:         input.CO2Consumption,
	}
	if err := s.pipelineRepo.CreateMeasurement(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *cicdService) ListMeasurements(ctx context.Context, pipelineID, runID int64) ([]models.CicdStepMeasurement, error) {
	run, err := s.pipelineRepo.GetRun(ctx, pipelineID, runID)
	if err != nil {
		return nil, err
	}
	return run.Measurements, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *cicdService) summarize(p models.CicdPipeline) PipelineSummary {
	tags := p.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return PipelineSummary{
		ID:            p.ID,
		RepoName:      p.RepoName,
		Branch:        p.Branch,
		CloudProvider: p.CloudProvider,
		PipelineName:  p.PipelineName,
		Tags:          tags,
		TotalCO2:      rollup.PipelineCO2(p),
		KeyMetrics:    rollup.KeyMetricsForPipeline(p, s.now()),
	}
}

func runViews(runs []models.CicdPipelineRun) []RunView {
	views := make([]RunView, 0, len(runs))
	for _, run := range runs {
		views = append(views, RunView{CicdPipelineRun: run, TotalCO2: rollup.RunCO2(run)})
	}
	return views
}

func validateMeasurement(input CreateMeasurementInput) error {
	if input.Duration < 0 {
		return fmt.Errorf("%w: duration cannot be negative", apperrors.ErrValidation)
	}
	if input.CO2Consumption < 0 {
		return fmt.Errorf("%w: co2Consumption cannot be negative", apperrors.ErrValidation)
	}

	hasSubStep := input.IntegrationSubStepName != nil
	hasStage := input.DeploymentStage != nil

	switch input.StepName {
	case models.StepIntegration:
		if !hasSubStep || hasStage {
			return fmt.Errorf("%w: integration steps need integrationSubStepName and no deploymentStage", apperrors.ErrValidation)
		}
		if !models.IsIntegrationSubStep(*input.IntegrationSubStepName) {
			return fmt.Errorf("%w: unknown integration sub-step %q", apperrors.ErrValidation, *input.IntegrationSubStepName)
		}
	case models.StepDeployment:
		if !hasStage || hasSubStep {
			return fmt.Errorf("%w: deployment steps need deploymentStage and no integrationSubStepName", apperrors.ErrValidation)
		}
		if !models.IsDeploymentStage(*input.DeploymentStage) {
			return fmt.Errorf("%w: unknown deployment stage %q", apperrors.ErrValidation, *input.DeploymentStage)
		}
	case models.StepOther:
		if hasSubStep || hasStage {
			return fmt.Errorf("%w: other steps take neither integrationSubStepName nor deploymentStage", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown step name %q", apperrors.ErrValidation, input.StepName)
	}
	return nil
}
