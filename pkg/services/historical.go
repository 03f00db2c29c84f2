package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// HistoricalService produces day-by-day CO2 series over an inclusive day range.
// A project's entities are the elements and pipelines sharing any of its tags.
type HistoricalService interface {
	// CrossProject returns one row per project per day.
	CrossProject(ctx context.Context, start, end rollup.Day) ([]rollup.CrossProjectRow, error)

	// ProjectSdlc returns an integration_deployment row and an operations row per day.
	ProjectSdlc(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.SdlcStepRow, error)

	// ProjectOperations returns the per-day consumption of the project's elements.
	ProjectOperations(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.ProjectRow, error)

	// ProjectCicd returns the per-day CO2 of the project's pipeline runs.
	ProjectCicd(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.ProjectRow, error)

	// ProjectService restricts the operations series to elements of one infrastructure service.
	ProjectService(ctx context.Context, projectID, serviceID int64, start, end rollup.Day) ([]rollup.ServiceRow, error)

	// ProjectPipeline restricts the CI/CD series to one pipeline.
	ProjectPipeline(ctx context.Context, projectID, pipelineID int64, start, end rollup.Day) ([]rollup.PipelineRow, error)
}

type historicalService struct {
	projectRepo  repositories.ProjectRepository
	serviceRepo  repositories.InfrastructureServiceRepository
	pipelineRepo repositories.CicdPipelineRepository
	resolver     entityResolver
	logger       *zap.Logger
}

// NewHistoricalService creates a new historical data service.
func NewHistoricalService(
	projectRepo repositories.ProjectRepository,
	serviceRepo repositories.InfrastructureServiceRepository,
	elementRepo repositories.InfrastructureElementRepository,
	pipelineRepo repositories.CicdPipelineRepository,
	logger *zap.Logger,
) HistoricalService {
	return &historicalService{
		projectRepo:  projectRepo,
		serviceRepo:  serviceRepo,
		pipelineRepo: pipelineRepo,
		resolver:     entityResolver{elements: elementRepo, pipelines: pipelineRepo},
		logger:       logger.Named("historical-service"),
	}
}

var _ HistoricalService = (*historicalService)(nil)

func (s *historicalService) CrossProject(ctx context.Context, start, end rollup.Day) ([]rollup.CrossProjectRow, error) {
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	window := windowFor(start, end)
	inputs := make([]rollup.ProjectInputs, 0, len(projects))
	for _, p := range projects {
		in, err := s.resolver.forProject(ctx, p, window)
		if err != nil {
			return nil, fmt.Errorf("project %d: %w", p.ID, err)
		}
		inputs = append(inputs, rollup.ProjectInputs{Project: *p, Inputs: in})
	}

	rows := rollup.CrossProject(inputs, start, end)
	s.logger.Debug("Computed cross-project history",
		zap.Int("projects", len(projects)),
		zap.Stringer("start", start),
		zap.Stringer("end", end),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func (s *historicalService) ProjectSdlc(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.SdlcStepRow, error) {
	in, err := s.projectInputs(ctx, projectID, start, end)
	if err != nil {
		return nil, err
	}
	return rollup.SdlcSteps(projectID, in, start, end), nil
}

func (s *historicalService) ProjectOperations(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.ProjectRow, error) {
	in, err := s.projectInputs(ctx, projectID, start, end)
	if err != nil {
		return nil, err
	}
	return rollup.OperationsOnly(projectID, in, start, end), nil
}

func (s *historicalService) ProjectCicd(ctx context.Context, projectID int64, start, end rollup.Day) ([]rollup.ProjectRow, error) {
	in, err := s.projectInputs(ctx, projectID, start, end)
	if err != nil {
		return nil, err
	}
	return rollup.CicdOnly(projectID, in, start, end), nil
}

func (s *historicalService) ProjectService(ctx context.Context, projectID, serviceID int64, start, end rollup.Day) ([]rollup.ServiceRow, error) {
	if _, err := s.serviceRepo.Get(ctx, serviceID); err != nil {
		return nil, fmt.Errorf("infrastructure service %d: %w", serviceID, err)
	}
	in, err := s.projectInputs(ctx, projectID, start, end)
	if err != nil {
		return nil, err
	}
	return rollup.ForService(projectID, serviceID, in, start, end), nil
}

func (s *historicalService) ProjectPipeline(ctx context.Context, projectID, pipelineID int64, start, end rollup.Day) ([]rollup.PipelineRow, error) {
	if _, err := s.pipelineRepo.Get(ctx, pipelineID); err != nil {
		return nil, fmt.Errorf("pipeline %d: %w", pipelineID, err)
	}
	in, err := s.projectInputs(ctx, projectID, start, end)
	if err != nil {
		return nil, err
	}
	return rollup.ForPipeline(projectID, pipelineID, in, start, end), nil
}

func (s *historicalService) projectInputs(ctx context.Context, projectID int64, start, end rollup.Day) (rollup.Inputs, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return rollup.Inputs{}, err
	}
	s.logger.Debug("Resolving project entities",
		zap.Int64("project_id", projectID),
		zap.Strings("tags", models.TagNames(project.Tags)))
	return s.resolver.forProject(ctx, project, windowFor(start, end))
}
