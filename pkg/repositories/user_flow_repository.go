package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// UserFlowRepository provides data access for user flow observations.
// Every method is scoped to a project; a flow of another project is not found.
type UserFlowRepository interface {
	Create(ctx context.Context, flow *models.UserFlow) error
	Get(ctx context.Context, projectID, id int64) (*models.UserFlow, error)
	ListByProject(ctx context.Context, projectID int64) ([]models.UserFlow, error)
	Update(ctx context.Context, flow *models.UserFlow) error
	Delete(ctx context.Context, projectID, id int64) error
}

type userFlowRepository struct{}

// NewUserFlowRepository creates a new UserFlowRepository.
func NewUserFlowRepository() UserFlowRepository {
	return &userFlowRepository{}
}

var _ UserFlowRepository = (*userFlowRepository)(nil)

func (r *userFlowRepository) Create(ctx context.Context, flow *models.UserFlow) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO user_flows (project_id, name, co2_consumption)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, flow.ProjectID, flow.Name, flow.CO2Consumption).
		Scan(&flow.ID, &flow.CreatedAt)
	if err != nil {
		return translateError(err, "create user flow")
	}
	return nil
}

func (r *userFlowRepository) Get(ctx context.Context, projectID, id int64) (*models.UserFlow, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	var f models.UserFlow
	err := scope.Q().QueryRow(ctx, `
		SELECT id, project_id, name, co2_consumption, created_at
		FROM user_flows
		WHERE id = $1 AND project_id = $2`, id, projectID).
		Scan(&f.ID, &f.ProjectID, &f.Name, &f.CO2Consumption, &f.CreatedAt)
	if err != nil {
		return nil, translateError(err, "get user flow")
	}
	return &f, nil
}

func (r *userFlowRepository) ListByProject(ctx context.Context, projectID int64) ([]models.UserFlow, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `
		SELECT id, project_id, name, co2_consumption, created_at
		FROM user_flows
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user flows: %w", err)
	}
	defer rows.Close()

	flows := make([]models.UserFlow, 0)
	for rows.Next() {
		var f models.UserFlow
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.CO2Consumption, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user flow: %w", err)
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

func (r *userFlowRepository) Update(ctx context.Context, flow *models.UserFlow) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		UPDATE user_flows
		SET name = $3, co2_consumption = $4
		WHERE id = $1 AND project_id = $2
		RETURNING created_at`, flow.ID, flow.ProjectID, flow.Name, flow.CO2Consumption).
		Scan(&flow.CreatedAt)
	if err != nil {
		return translateError(err, "update user flow")
	}
	return nil
}

func (r *userFlowRepository) Delete(ctx context.Context, projectID, id int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	result, err := scope.Q().Exec(ctx, `DELETE FROM user_flows WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete user flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
