package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// UserFlowInput carries the writable fields of a user flow.
type UserFlowInput struct {
	Name           string
	CO2Consumption float64
}

// UserFlowService manages the CO2 figures recorded for a project's user flows.
type UserFlowService interface {
	// List returns the current value of each flow name, i.e. its newest record.
	List(ctx context.Context, projectID int64) ([]models.UserFlow, error)

	Get(ctx context.Context, projectID, id int64) (*models.UserFlow, error)
	Create(ctx context.Context, projectID int64, input UserFlowInput) (*models.UserFlow, error)
	Update(ctx context.Context, projectID, id int64, input UserFlowInput) (*models.UserFlow, error)
	Delete(ctx context.Context, projectID, id int64) error
}

type userFlowService struct {
	projectRepo  repositories.ProjectRepository
	userFlowRepo repositories.UserFlowRepository
	logger       *zap.Logger
}

// NewUserFlowService creates a new user flow service.
func NewUserFlowService(
	projectRepo repositories.ProjectRepository,
	userFlowRepo repositories.UserFlowRepository,
	logger *zap.Logger,
) UserFlowService {
	return &userFlowService{
		projectRepo:  projectRepo,
		userFlowRepo: userFlowRepo,
		logger:       logger.Named("user-flow-service"),
	}
}

var _ UserFlowService = (*userFlowService)(nil)

func (s *userFlowService) List(ctx context.Context, projectID int64) ([]models.UserFlow, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	flows, err := s.userFlowRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return rollup.CurrentUserFlows(flows), nil
}

func (s *userFlowService) Get(ctx context.Context, projectID, id int64) (*models.UserFlow, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.userFlowRepo.Get(ctx, projectID, id)
}

func (s *userFlowService) Create(ctx context.Context, projectID int64, input UserFlowInput) (*models.UserFlow, error) {
	flow, err := validateUserFlow(input)
	if err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	flow.ProjectID = projectID
	if err := s.userFlowRepo.Create(ctx, flow); err != nil {
		return nil, err
	}
	s.logger.Debug("Recorded user flow",
		zap.Int64("project_id", projectID),
		zap.String("name", flow.Name),
		zap.Float64("co2", flow.CO2Consumption))
	return flow, nil
}

func (s *userFlowService) Update(ctx context.Context, projectID, id int64, input UserFlowInput) (*models.UserFlow, error) {
	update, err := validateUserFlow(input)
	if err != nil {
		return nil, err
	}
	flow, err := s.Get(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	flow.Name = update.Name
	flow.CO2Consumption = update.CO2Consumption
	if err := s.userFlowRepo.Update(ctx, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

func (s *userFlowService) Delete(ctx context.Context, projectID, id int64) error {
	if err := s.requireProject(ctx, projectID); err != nil {
		return err
	}
	return s.userFlowRepo.Delete(ctx, projectID, id)
}

func (s *userFlowService) requireProject(ctx context.Context, projectID int64) error {
	if _, err := s.projectRepo.Get(ctx, projectID); err != nil {
		return err
	}
	return nil
}

func validateUserFlow(input UserFlowInput) (*models.UserFlow, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: user flow name is required", apperrors.ErrValidation)
	}
	if input.CO2Consumption < 0 {
		return nil, fmt.Errorf("%w: co2Consumption cannot be negative", apperrors.ErrValidation)
	}
	return &models.UserFlow{Name: name, CO2Consumption: input.CO2Consumption}, nil
}
