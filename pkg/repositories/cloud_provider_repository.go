package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// CloudProviderRepository provides data access for cloud providers.
type CloudProviderRepository interface {
	Create(ctx context.Context, provider *models.CloudProvider) error
	List(ctx context.Context) ([]*models.CloudProvider, error)
	GetByName(ctx context.Context, name string) (*models.CloudProvider, error)
}

type cloudProviderRepository struct{}

// NewCloudProviderRepository creates a new CloudProviderRepository.
func NewCloudProviderRepository() CloudProviderRepository {
	return &cloudProviderRepository{}
}

var _ CloudProviderRepository = (*cloudProviderRepository)(nil)

func (r *cloudProviderRepository) Create(ctx context.Context, provider *models.CloudProvider) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx,
		`INSERT INTO cloud_providers (name) VALUES ($1) RETURNING id`, provider.Name).
		Scan(&provider.ID)
	if err != nil {
		return translateError(err, "create cloud provider")
	}
	return nil
}

func (r *cloudProviderRepository) List(ctx context.Context) ([]*models.CloudProvider, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `SELECT id, name FROM cloud_providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cloud providers: %w", err)
	}
	defer rows.Close()

	providers := make([]*models.CloudProvider, 0)
	for rows.Next() {
		var p models.CloudProvider
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan cloud provider: %w", err)
		}
		providers = append(providers, &p)
	}
	return providers, rows.Err()
}

func (r *cloudProviderRepository) GetByName(ctx context.Context, name string) (*models.CloudProvider, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	var p models.CloudProvider
	err := scope.Q().QueryRow(ctx, `SELECT id, name FROM cloud_providers WHERE name = $1`, name).
		Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, translateError(err, "get cloud provider")
	}
	return &p, nil
}
