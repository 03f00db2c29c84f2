package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// InfrastructureServiceRepository provides data access for infrastructure services
// and the metrics allowed on them.
type InfrastructureServiceRepository interface {
	Create(ctx context.Context, service *models.InfrastructureService) error
	List(ctx context.Context) ([]*models.InfrastructureService, error)
	Get(ctx context.Context, id int64) (*models.InfrastructureService, error)
	ListAllowedMetrics(ctx context.Context, serviceID int64) ([]models.AllowedMetric, error)
}

type infrastructureServiceRepository struct{}

// NewInfrastructureServiceRepository creates a new InfrastructureServiceRepository.
func NewInfrastructureServiceRepository() InfrastructureServiceRepository {
	return &infrastructureServiceRepository{}
}

var _ InfrastructureServiceRepository = (*infrastructureServiceRepository)(nil)

const serviceColumns = `s.id, s.type, s.category, s.cloud_provider_id, cp.name`

func scanService(row interface{ Scan(...any) error }) (*models.InfrastructureService, error) {
	var s models.InfrastructureService
	if err := row.Scan(&s.ID, &s.Type, &s.Category, &s.CloudProviderID, &s.CloudProvider); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts the service; CloudProviderID must be set. CloudProvider is filled from the provider row.
func (r *infrastructureServiceRepository) Create(ctx context.Context, service *models.InfrastructureService) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	query := `
		WITH inserted AS (
			INSERT INTO infrastructure_services (type, category, cloud_provider_id)
			VALUES ($1, $2, $3)
			RETURNING id, cloud_provider_id
		)
		SELECT i.id, cp.name
		FROM inserted i JOIN cloud_providers cp ON cp.id = i.cloud_provider_id`

	err := scope.Q().QueryRow(ctx, query, service.Type, service.Category, service.CloudProviderID).
		Scan(&service.ID, &service.CloudProvider)
	if err != nil {
		return translateError(err, "create infrastructure service")
	}
	return nil
}

func (r *infrastructureServiceRepository) List(ctx context.Context) ([]*models.InfrastructureService, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `
		SELECT `+serviceColumns+`
		FROM infrastructure_services s
		JOIN cloud_providers cp ON cp.id = s.cloud_provider_id
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list infrastructure services: %w", err)
	}
	defer rows.Close()

	services := make([]*models.InfrastructureService, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan infrastructure service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *infrastructureServiceRepository) Get(ctx context.Context, id int64) (*models.InfrastructureService, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	s, err := scanService(scope.Q().QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM infrastructure_services s
		JOIN cloud_providers cp ON cp.id = s.cloud_provider_id
		WHERE s.id = $1`, id))
	if err != nil {
		return nil, translateError(err, "get infrastructure service")
	}
	return s, nil
}

func (r *infrastructureServiceRepository) ListAllowedMetrics(ctx context.Context, serviceID int64) ([]models.AllowedMetric, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `
		SELECT md.id, s.type, s.category, md.metric_name, md.data_type, md.is_key_metric
		FROM allowed_metrics am
		JOIN infrastructure_services s ON s.id = am.infrastructure_service_id
		JOIN metric_definitions md ON md.id = am.metric_definition_id
		WHERE am.infrastructure_service_id = $1
		ORDER BY md.metric_name`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowed metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]models.AllowedMetric, 0)
	for rows.Next() {
		var m models.AllowedMetric
		if err := rows.Scan(&m.MetricDefinitionID, &m.ServiceType, &m.ServiceCategory, &m.MetricName, &m.DataType, &m.IsKeyMetric); err != nil {
			return nil, fmt.Errorf("failed to scan allowed metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
