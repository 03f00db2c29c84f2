package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// StepInfo summarizes one SDLC step of a project. Only the count that applies
// to the step is set; steps without entity types report both as zero.
type StepInfo struct {
	Step          models.SdlcStep `json:"step"`
	ElementCount  *int            `json:"elementCount,omitempty"`
	PipelineCount *int            `json:"pipelineCount,omitempty"`
	TotalCO2      float64         `json:"totalCo2"`
}

// SdlcService computes per-step CO2 figures for a project over all time.
type SdlcService interface {
	// Overview returns the per-step totals and percentages of a project.
	Overview(ctx context.Context, projectID int64) (*rollup.SdlcOverview, error)

	// StepInfo returns the entity count and total CO2 for a single step.
	StepInfo(ctx context.Context, projectID int64, step string) (*StepInfo, error)
}

type sdlcService struct {
	projectRepo repositories.ProjectRepository
	resolver    entityResolver
	logger      *zap.Logger
}

// NewSdlcService creates a new SDLC service.
func NewSdlcService(
	projectRepo repositories.ProjectRepository,
	elementRepo repositories.InfrastructureElementRepository,
	pipelineRepo repositories.CicdPipelineRepository,
	logger *zap.Logger,
) SdlcService {
	return &sdlcService{
		projectRepo: projectRepo,
		resolver:    entityResolver{elements: elementRepo, pipelines: pipelineRepo},
		logger:      logger.Named("sdlc-service"),
	}
}

var _ SdlcService = (*sdlcService)(nil)

func (s *sdlcService) Overview(ctx context.Context, projectID int64) (*rollup.SdlcOverview, error) {
	in, err := s.projectInputs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	overview := rollup.Overview(in)
	return &overview, nil
}

func (s *sdlcService) StepInfo(ctx context.Context, projectID int64, step string) (*StepInfo, error) {
	sdlcStep := models.SdlcStep(step)
	if !sdlcStep.IsValid() {
		return nil, fmt.Errorf("%w: unknown SDLC step %q", apperrors.ErrValidation, step)
	}

	in, err := s.projectInputs(ctx, projectID)
	if err != nil {
		return nil, err
	}

	info := &StepInfo{Step: sdlcStep, TotalCO2: rollup.StepTotals(in)[sdlcStep]}
	switch sdlcStep {
	case models.SdlcOperations:
		n := len(in.Elements)
		info.ElementCount = &n
	case models.SdlcIntegrationDeployment:
		n := len(in.Pipelines)
		info.PipelineCount = &n
	default:
		zero := 0
		info.ElementCount = &zero
		info.PipelineCount = &zero
	}
	return info, nil
}

func (s *sdlcService) projectInputs(ctx context.Context, projectID int64) (rollup.Inputs, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return rollup.Inputs{}, err
	}
	return s.resolver.forProject(ctx, project, nil)
}
