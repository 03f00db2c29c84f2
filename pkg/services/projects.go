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

// ProjectDetail is a project together with its all-time SDLC overview.
type ProjectDetail struct {
	*models.Project
	SdlcOverview rollup.SdlcOverview `json:"sdlcOverview"`
}

// CreateProjectInput carries the fields of a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	Tags        []string
}

// UpdateProjectInput is a partial update. Nil fields are left untouched;
// a non-nil Tags replaces the whole tag set.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Tags        *[]string
}

// ProjectService manages projects and their tag sets.
type ProjectService interface {
	// Create stores a new project, creating any tags that do not exist yet.
	Create(ctx context.Context, input CreateProjectInput) (*models.Project, error)

	// Get returns a project with its SDLC overview computed over all time.
	Get(ctx context.Context, id int64) (*ProjectDetail, error)

	// List returns every project ordered by id.
	List(ctx context.Context) ([]*models.Project, error)

	// Update applies a partial update and bumps lastUpdated.
	Update(ctx context.Context, id int64, input UpdateProjectInput) (*models.Project, error)

	// Delete removes a project. Tagged entities are left in place.
	Delete(ctx context.Context, id int64) error

	// ListTags returns every known tag, for building tag filters.
	ListTags(ctx context.Context) ([]models.Tag, error)
}

type projectService struct {
	projectRepo repositories.ProjectRepository
	tagRepo     repositories.TagRepository
	resolver    entityResolver
	runInTx     TxRunner
	logger      *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	tagRepo repositories.TagRepository,
	elementRepo repositories.InfrastructureElementRepository,
	pipelineRepo repositories.CicdPipelineRepository,
	runInTx TxRunner,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		tagRepo:     tagRepo,
		resolver:    entityResolver{elements: elementRepo, pipelines: pipelineRepo},
		runInTx:     runInTx,
		logger:      logger.Named("project-service"),
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", apperrors.ErrValidation)
	}

	project := &models.Project{Name: name, Description: input.Description}
	err := s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.projectRepo.Create(ctx, project); err != nil {
			return err
		}
		tags, err := s.applyTags(ctx, project.ID, input.Tags)
		if err != nil {
			return err
		}
		project.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created project",
		zap.Int64("project_id", project.ID),
		zap.String("name", project.Name),
		zap.Int("tag_count", len(project.Tags)))
	return project, nil
}

func (s *projectService) Get(ctx context.Context, id int64) (*ProjectDetail, error) {
	project, err := s.projectRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := s.resolver.forProject(ctx, project, nil)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: project, SdlcOverview: rollup.Overview(in)}, nil
}

func (s *projectService) List(ctx context.Context) ([]*models.Project, error) {
	return s.projectRepo.List(ctx)
}

func (s *projectService) Update(ctx context.Context, id int64, input UpdateProjectInput) (*models.Project, error) {
	var project *models.Project
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		project, err = s.projectRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return fmt.Errorf("%w: project name cannot be empty", apperrors.ErrValidation)
			}
			project.Name = name
		}
		if input.Description != nil {
			project.Description = *input.Description
		}
		if err := s.projectRepo.Update(ctx, project); err != nil {
			return err
		}

		if input.Tags != nil {
			tags, err := s.applyTags(ctx, project.ID, *input.Tags)
			if err != nil {
				return err
			}
			project.Tags = tags
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updated project", zap.Int64("project_id", id))
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, id int64) error {
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted project", zap.Int64("project_id", id))
	return nil
}

func (s *projectService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

// applyTags upserts names and replaces the project's tag set with them.
func (s *projectService) applyTags(ctx context.Context, projectID int64, names []string) ([]models.Tag, error) {
	tags, err := s.tagRepo.Upsert(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("upsert tags: %w", err)
	}
	if err := s.projectRepo.SetTags(ctx, projectID, tagIDs(tags)); err != nil {
		return nil, fmt.Errorf("set project tags: %w", err)
	}
	return tags, nil
}

func tagIDs(tags []models.Tag) []int64 {
	ids := make([]int64, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}
