package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// ProjectRepository provides data access for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	// Update writes name and description and bumps last_updated.
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id int64) error
	// SetTags replaces the project's tag set.
	SetTags(ctx context.Context, projectID int64, tagIDs []int64) error
}

type projectRepository struct{}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

var _ ProjectRepository = (*projectRepository)(nil)

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	query := `
		INSERT INTO projects (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, last_updated`

	err := scope.Q().QueryRow(ctx, query, project.Name, project.Description).
		Scan(&project.ID, &project.CreatedAt, &project.LastUpdated)
	if err != nil {
		return translateError(err, "create project")
	}

	project.Tags = tagsOrEmpty(project.Tags)
	return nil
}

func (r *projectRepository) Get(ctx context.Context, id int64) (*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	query := `
		SELECT id, name, description, created_at, last_updated
		FROM projects
		WHERE id = $1`

	var p models.Project
	err := scope.Q().QueryRow(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.LastUpdated)
	if err != nil {
		return nil, translateError(err, "get project")
	}

	tags, err := loadTags(ctx, scope.Q(), projectTags, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Tags = tagsOrEmpty(tags[p.ID])

	return &p, nil
}

func (r *projectRepository) List(ctx context.Context) ([]*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `
		SELECT id, name, description, created_at, last_updated
		FROM projects
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	tags, err := loadTags(ctx, scope.Q(), projectTags, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		p.Tags = tagsOrEmpty(tags[p.ID])
	}

	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	query := `
		UPDATE projects
		SET name = $2, description = $3, last_updated = NOW()
		WHERE id = $1
		RETURNING created_at, last_updated`

	err := scope.Q().QueryRow(ctx, query, project.ID, project.Name, project.Description).
		Scan(&project.CreatedAt, &project.LastUpdated)
	if err != nil {
		return translateError(err, "update project")
	}

	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	result, err := scope.Q().Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *projectRepository) SetTags(ctx context.Context, projectID int64, tagIDs []int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}
	return replaceTags(ctx, scope.Q(), projectTags, projectID, tagIDs)
}
