package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// MetricDefinitionRepository provides data access for metric definitions and the
// allowed_metrics links between definitions and services.
type MetricDefinitionRepository interface {
	// Create inserts the definition and links it to ApplicableServiceIDs.
	Create(ctx context.Context, def *models.MetricDefinition) error
	Get(ctx context.Context, id int64) (*models.MetricDefinition, error)
	List(ctx context.Context) ([]*models.MetricDefinition, error)
	// LockServicesAndCountKeyMetrics locks the service rows FOR UPDATE and returns how many
	// key metrics apply to each. Must run inside a transaction for the lock to hold.
	// Unknown service IDs yield ErrNotFound.
	LockServicesAndCountKeyMetrics(ctx context.Context, serviceIDs []int64) (map[int64]int, error)
	IsAllowed(ctx context.Context, serviceID, definitionID int64) (bool, error)
}

type metricDefinitionRepository struct{}

// NewMetricDefinitionRepository creates a new MetricDefinitionRepository.
func NewMetricDefinitionRepository() MetricDefinitionRepository {
	return &metricDefinitionRepository{}
}

var _ MetricDefinitionRepository = (*metricDefinitionRepository)(nil)

func (r *metricDefinitionRepository) Create(ctx context.Context, def *models.MetricDefinition) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO metric_definitions (metric_name, data_type, is_key_metric)
		VALUES ($1, $2, $3)
		RETURNING id`, def.MetricName, def.DataType, def.IsKeyMetric).
		Scan(&def.ID)
	if err != nil {
		return translateError(err, "create metric definition")
	}

	def.ApplicableServiceIDs = uniqueIDs(def.ApplicableServiceIDs)
	if len(def.ApplicableServiceIDs) == 0 {
		return nil
	}

	_, err = scope.Q().Exec(ctx, `
		INSERT INTO allowed_metrics (infrastructure_service_id, metric_definition_id)
		SELECT unnest($1::bigint[]), $2`, def.ApplicableServiceIDs, def.ID)
	if err != nil {
		return translateError(err, "link metric definition to services")
	}
	return nil
}

func (r *metricDefinitionRepository) Get(ctx context.Context, id int64) (*models.MetricDefinition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	var d models.MetricDefinition
	err := scope.Q().QueryRow(ctx, `
		SELECT md.id, md.metric_name, md.data_type, md.is_key_metric,
		       COALESCE(array_agg(am.infrastructure_service_id ORDER BY am.infrastructure_service_id)
		                FILTER (WHERE am.infrastructure_service_id IS NOT NULL), '{}')
		FROM metric_definitions md
		LEFT JOIN allowed_metrics am ON am.metric_definition_id = md.id
		WHERE md.id = $1
		GROUP BY md.id`, id).
		Scan(&d.ID, &d.MetricName, &d.DataType, &d.IsKeyMetric, &d.ApplicableServiceIDs)
	if err != nil {
		return nil, translateError(err, "get metric definition")
	}
	return &d, nil
}

func (r *metricDefinitionRepository) List(ctx context.Context) ([]*models.MetricDefinition, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `
		SELECT md.id, md.metric_name, md.data_type, md.is_key_metric,
		       COALESCE(array_agg(am.infrastructure_service_id ORDER BY am.infrastructure_service_id)
		                FILTER (WHERE am.infrastructure_service_id IS NOT NULL), '{}')
		FROM metric_definitions md
		LEFT JOIN allowed_metrics am ON am.metric_definition_id = md.id
		GROUP BY md.id
		ORDER BY md.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metric definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]*models.MetricDefinition, 0)
	for rows.Next() {
		var d models.MetricDefinition
		if err := rows.Scan(&d.ID, &d.MetricName, &d.DataType, &d.IsKeyMetric, &d.ApplicableServiceIDs); err != nil {
			return nil, fmt.Errorf("failed to scan metric definition: %w", err)
		}
		defs = append(defs, &d)
	}
	return defs, rows.Err()
}

func (r *metricDefinitionRepository) LockServicesAndCountKeyMetrics(ctx context.Context, serviceIDs []int64) (map[int64]int, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	serviceIDs = uniqueIDs(serviceIDs)
	counts := make(map[int64]int, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return counts, nil
	}

	// Lock in ID order so concurrent writers cannot deadlock on each other.
	rows, err := scope.Q().Query(ctx, `
		SELECT id FROM infrastructure_services
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock infrastructure services: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan infrastructure service: %w", err)
		}
		counts[id] = 0
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock infrastructure services: %w", err)
	}

	for _, id := range serviceIDs {
		if _, found := counts[id]; !found {
			return nil, fmt.Errorf("%w: infrastructure service %d", apperrors.ErrNotFound, id)
		}
	}

	rows, err = scope.Q().Query(ctx, `
		SELECT am.infrastructure_service_id, COUNT(*)
		FROM allowed_metrics am
		JOIN metric_definitions md ON md.id = am.metric_definition_id
		WHERE md.is_key_metric AND am.infrastructure_service_id = ANY($1)
		GROUP BY am.infrastructure_service_id`, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count key metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan key metric count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *metricDefinitionRepository) IsAllowed(ctx context.Context, serviceID, definitionID int64) (bool, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return false, database.ErrNoScope
	}

	var allowed bool
	err := scope.Q().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM allowed_metrics
			WHERE infrastructure_service_id = $1 AND metric_definition_id = $2
		)`, serviceID, definitionID).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("failed to check allowed metric: %w", err)
	}
	return allowed, nil
}

// ============================================================================
// Metric values
// ============================================================================

// MetricValueRepository provides data access for metric observations.
type MetricValueRepository interface {
	// Create inserts the value; exactly one typed value must be set.
	Create(ctx context.Context, value *models.MetricValue) error
}

type metricValueRepository struct{}

// NewMetricValueRepository creates a new MetricValueRepository.
func NewMetricValueRepository() MetricValueRepository {
	return &metricValueRepository{}
}

var _ MetricValueRepository = (*metricValueRepository)(nil)

func (r *metricValueRepository) Create(ctx context.Context, value *models.MetricValue) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO metric_values (
			infrastructure_element_id, metric_definition_id,
			value_int, value_decimal, value_string, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		value.InfrastructureElementID, value.MetricDefinitionID,
		value.ValueInt, value.ValueDecimal, value.ValueString, value.Timestamp).
		Scan(&value.ID)
	if err != nil {
		return translateError(err, "create metric value")
	}
	return nil
}
