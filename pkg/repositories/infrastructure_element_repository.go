package repositories

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// InfrastructureElementRepository provides data access for infrastructure elements
// and their daily consumption series.
type InfrastructureElementRepository interface {
	Create(ctx context.Context, element *models.InfrastructureElement) error
	// Get loads the element with its service, tags, metric values and consumptions.
	Get(ctx context.Context, id int64) (*models.InfrastructureElement, error)
	// ListByTags loads matching elements with service, tags and consumptions.
	// Consumptions are restricted to window when it is non-nil. Metric values are not loaded.
	ListByTags(ctx context.Context, filter TagFilter, window *TimeWindow) ([]*models.InfrastructureElement, error)
	// ListMetricValues loads the metric values of elements, keyed by element ID.
	ListMetricValues(ctx context.Context, elementIDs []int64) (map[int64][]models.MetricValue, error)
	SetTags(ctx context.Context, elementID int64, tagIDs []int64) error
	AddConsumption(ctx context.Context, consumption *models.ElementConsumption) error
	ListConsumptions(ctx context.Context, elementID int64) ([]models.ElementConsumption, error)
}

type infrastructureElementRepository struct{}

// NewInfrastructureElementRepository creates a new InfrastructureElementRepository.
func NewInfrastructureElementRepository() InfrastructureElementRepository {
	return &infrastructureElementRepository{}
}

var _ InfrastructureElementRepository = (*infrastructureElementRepository)(nil)

const elementSelect = `
	SELECT e.id, e.name, e.infrastructure_service_id,
	       s.id, s.type, s.category, s.cloud_provider_id, cp.name
	FROM infrastructure_elements e
	JOIN infrastructure_services s ON s.id = e.infrastructure_service_id
	JOIN cloud_providers cp ON cp.id = s.cloud_provider_id`

func scanElement(row interface{ Scan(...any) error }) (*models.InfrastructureElement, error) {
	var e models.InfrastructureElement
	var s models.InfrastructureService
	err := row.Scan(&e.ID, &e.Name, &e.InfrastructureServiceID,
		&s.ID, &s.Type, &s.Category, &s.CloudProviderID, &s.CloudProvider)
	if err != nil {
		return nil, err
	}
	e.Service = &s
	return &e, nil
}

// ============================================================================
// CRUD Operations
// ============================================================================

func (r *infrastructureElementRepository) Create(ctx context.Context, element *models.InfrastructureElement) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO infrastructure_elements (name, infrastructure_service_id)
		VALUES ($1, $2)
		RETURNING id`, element.Name, element.InfrastructureServiceID).
		Scan(&element.ID)
	if err != nil {
		return translateError(err, "create infrastructure element")
	}
	return nil
}

func (r *infrastructureElementRepository) Get(ctx context.Context, id int64) (*models.InfrastructureElement, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	element, err := scanElement(scope.Q().QueryRow(ctx, elementSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, translateError(err, "get infrastructure element")
	}

	elements := []*models.InfrastructureElement{element}
	if err := r.attachChildren(ctx, scope.Q(), elements, nil); err != nil {
		return nil, err
	}

	values, err := r.ListMetricValues(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	element.MetricValues = values[id]

	return element, nil
}

func (r *infrastructureElementRepository) ListByTags(ctx context.Context, filter TagFilter, window *TimeWindow) ([]*models.InfrastructureElement, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	if len(filter.Tags) == 0 {
		return []*models.InfrastructureElement{}, nil
	}

	clause, args := tagFilterClause("e", elementTags.table, elementTags.fkColumn, filter, 1)
	rows, err := scope.Q().Query(ctx, elementSelect+` WHERE `+clause+` ORDER BY e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list infrastructure elements by tags: %w", err)
	}
	defer rows.Close()

	elements := make([]*models.InfrastructureElement, 0)
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan infrastructure element: %w", err)
		}
		elements = append(elements, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate infrastructure elements: %w", err)
	}

	if err := r.attachChildren(ctx, scope.Q(), elements, window); err != nil {
		return nil, err
	}
	return elements, nil
}

// attachChildren loads tags and consumptions for elements in two batched queries.
func (r *infrastructureElementRepository) attachChildren(ctx context.Context, q database.Querier, elements []*models.InfrastructureElement, window *TimeWindow) error {
	ids := make([]int64, 0, len(elements))
	for _, e := range elements {
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	tags, err := loadTags(ctx, q, elementTags, ids)
	if err != nil {
		return err
	}

	consumptions, err := loadConsumptions(ctx, q, ids, window)
	if err != nil {
		return err
	}

	for _, e := range elements {
		e.Tags = tagsOrEmpty(tags[e.ID])
		e.Consumptions = consumptions[e.ID]
	}
	return nil
}

func (r *infrastructureElementRepository) ListMetricValues(ctx context.Context, elementIDs []int64) (map[int64][]models.MetricValue, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	out := make(map[int64][]models.MetricValue, len(elementIDs))
	if len(elementIDs) == 0 {
		return out, nil
	}

	rows, err := scope.Q().Query(ctx, `
		SELECT mv.id, mv.infrastructure_element_id, mv.metric_definition_id,
		       md.metric_name, md.data_type, md.is_key_metric,
		       mv.value_int, mv.value_decimal, mv.value_string, mv.timestamp
		FROM metric_values mv
		JOIN metric_definitions md ON md.id = mv.metric_definition_id
		WHERE mv.infrastructure_element_id = ANY($1)
		ORDER BY mv.timestamp, mv.id`, elementIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.MetricValue
		err := rows.Scan(&v.ID, &v.InfrastructureElementID, &v.MetricDefinitionID,
			&v.MetricName, &v.DataType, &v.IsKeyMetric,
			&v.ValueInt, &v.ValueDecimal, &v.ValueString, &v.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric value: %w", err)
		}
		out[v.InfrastructureElementID] = append(out[v.InfrastructureElementID], v)
	}
	return out, rows.Err()
}

func (r *infrastructureElementRepository) SetTags(ctx context.Context, elementID int64, tagIDs []int64) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}
	return replaceTags(ctx, scope.Q(), elementTags, elementID, tagIDs)
}

// ============================================================================
// Consumptions
// ============================================================================

func (r *infrastructureElementRepository) AddConsumption(ctx context.Context, consumption *models.ElementConsumption) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return database.ErrNoScope
	}

	err := scope.Q().QueryRow(ctx, `
		INSERT INTO element_consumptions (infrastructure_element_id, date, co2_consumption)
		VALUES ($1, $2, $3)
		RETURNING id, date`,
		consumption.InfrastructureElementID, consumption.Date, consumption.CO2Consumption).
		Scan(&consumption.ID, &consumption.Date)
	if err != nil {
		return translateError(err, "add consumption")
	}
	return nil
}

func (r *infrastructureElementRepository) ListConsumptions(ctx context.Context, elementID int64) ([]models.ElementConsumption, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	byElement, err := loadConsumptions(ctx, scope.Q(), []int64{elementID}, nil)
	if err != nil {
		return nil, err
	}
	if byElement[elementID] == nil {
		return []models.ElementConsumption{}, nil
	}
	return byElement[elementID], nil
}

// loadConsumptions returns consumption rows per element ordered by date then insertion,
// so the first row of a day is the one recorded first.
func loadConsumptions(ctx context.Context, q database.Querier, elementIDs []int64, window *TimeWindow) (map[int64][]models.ElementConsumption, error) {
	query := `
		SELECT id, infrastructure_element_id, date, co2_consumption
		FROM element_consumptions
		WHERE infrastructure_element_id = ANY($1)`
	args := []any{elementIDs}
	if window != nil {
		query += ` AND date >= $2 AND date < $3`
		args = append(args, window.From.UTC(), window.To.UTC())
	}
	query += ` ORDER BY date, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load consumptions: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.ElementConsumption, len(elementIDs))
	for rows.Next() {
		var c models.ElementConsumption
		if err := rows.Scan(&c.ID, &c.InfrastructureElementID, &c.Date, &c.CO2Consumption); err != nil {
			return nil, fmt.Errorf("failed to scan consumption: %w", err)
		}
		out[c.InfrastructureElementID] = append(out[c.InfrastructureElementID], c)
	}
	return out, rows.Err()
}
