package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// MetricReading is the typed value of one metric observation.
type MetricReading struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Value     any             `json:"value"`
	DataType  models.DataType `json:"dataType"`
	Timestamp time.Time       `json:"timestamp"`
}

// ElementKeyMetrics is the compact figure set of an element summary.
type ElementKeyMetrics struct {
	DailyCO2Consumption float64        `json:"dailyCo2Consumption"`
	KeyMetric1          *MetricReading `json:"keyMetric1"`
	KeyMetric2          *MetricReading `json:"keyMetric2"`
}

// ElementSummary is an infrastructure element as listed on the operations dashboard.
// TotalCO2 is the latest daily consumption.
type ElementSummary struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	ServiceID     int64                  `json:"infrastructureServiceId"`
	Type          string                 `json:"type"`
	Category      models.ServiceCategory `json:"category"`
	CloudProvider string                 `json:"cloudProvider"`
	Tags          []models.Tag           `json:"tags"`
	TotalCO2      float64                `json:"totalCo2"`
	KeyMetrics    ElementKeyMetrics      `json:"keyMetrics"`
}

// ElementDetail adds the latest value of every metric the element recorded.
type ElementDetail struct {
	ElementSummary
	Metrics []MetricReading `json:"metrics"`
}

// CreateElementInput describes a new infrastructure element.
type CreateElementInput struct {
	Name      string
	ServiceID int64
	Tags      []string
}

// MetricValueInput is one metric observation. Value must match the definition's data type.
type MetricValueInput struct {
	MetricDefinitionID int64
	Value              any
}

// ConsumptionInput is the CO2 an element consumed on one day. Time of day is dropped.
type ConsumptionInput struct {
	Date           time.Time
	CO2Consumption float64
}

// ElementService manages infrastructure elements and their time series.
type ElementService interface {
	// Create stores an element of an existing service with its tags.
	Create(ctx context.Context, input CreateElementInput) (*ElementSummary, error)

	// List returns the summaries of elements matching the tag filter.
	List(ctx context.Context, tags []string, matchAll bool) ([]ElementSummary, error)

	// Get returns an element with the latest value of each of its metrics.
	Get(ctx context.Context, id int64) (*ElementDetail, error)

	// RecordMetricValue stores an observation stamped with the current time.
	// The metric must be allowed for the element's service.
	RecordMetricValue(ctx context.Context, elementID int64, input MetricValueInput) (*MetricReading, error)

	// AddConsumption stores a daily consumption row.
	AddConsumption(ctx context.Context, elementID int64, input ConsumptionInput) (*models.ElementConsumption, error)

	// ListConsumptions returns an element's consumption rows by date.
	ListConsumptions(ctx context.Context, elementID int64) ([]models.ElementConsumption, error)
}

type elementService struct {
	elementRepo repositories.InfrastructureElementRepository
	serviceRepo repositories.InfrastructureServiceRepository
	metricRepo  repositories.MetricDefinitionRepository
	valueRepo   repositories.MetricValueRepository
	tagRepo     repositories.TagRepository
	runInTx     TxRunner
	now         Clock
	logger      *zap.Logger
}

// NewElementService creates a new element service.
func NewElementService(
	elementRepo repositories.InfrastructureElementRepository,
	serviceRepo repositories.InfrastructureServiceRepository,
	metricRepo repositories.MetricDefinitionRepository,
	valueRepo repositories.MetricValueRepository,
	tagRepo repositories.TagRepository,
	runInTx TxRunner,
	now Clock,
	logger *zap.Logger,
) ElementService {
	return &elementService{
		elementRepo: elementRepo,
		serviceRepo: serviceRepo,
		metricRepo:  metricRepo,
		valueRepo:   valueRepo,
		tagRepo:     tagRepo,
		runInTx:     runInTx,
		now:         now,
		logger:      logger.Named("element-service"),
	}
}

var _ ElementService = (*elementService)(nil)

func (s *elementService) Create(ctx context.Context, input CreateElementInput) (*ElementSummary, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: element name is required", apperrors.ErrValidation)
	}

	service, err := s.serviceRepo.Get(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}

	element := &models.InfrastructureElement{
		Name:                    name,
		InfrastructureServiceID: service.ID,
		Service:                 service,
	}
	err = s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.elementRepo.Create(ctx, element); err != nil {
			return err
		}
		tags, err := s.tagRepo.Upsert(ctx, input.Tags)
		if err != nil {
			return fmt.Errorf("upsert tags: %w", err)
		}
		if err := s.elementRepo.SetTags(ctx, element.ID, tagIDs(tags)); err != nil {
			return fmt.Errorf("set element tags: %w", err)
		}
		element.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created infrastructure element",
		zap.Int64("element_id", element.ID),
		zap.Int64("service_id", service.ID),
		zap.Strings("tags", models.TagNames(element.Tags)))
	summary := summarizeElement(*element)
	return &summary, nil
}

func (s *elementService) List(ctx context.Context, tags []string, matchAll bool) ([]ElementSummary, error) {
	filter := repositories.TagFilter{Tags: tags, MatchAll: matchAll}
	elements, err := s.elementRepo.ListByTags(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return []ElementSummary{}, nil
	}

	ids := make([]int64, len(elements))
	for i, e := range elements {
		ids[i] = e.ID
	}
	values, err := s.elementRepo.ListMetricValues(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]ElementSummary, 0, len(elements))
	for _, e := range elements {
		e.MetricValues = values[e.ID]
		summaries = append(summaries, summarizeElement(*e))
	}
	return summaries, nil
}

func (s *elementService) Get(ctx context.Context, id int64) (*ElementDetail, error) {
	element, err := s.elementRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	latest := rollup.LatestMetricValues(element.MetricValues)
	detail := &ElementDetail{
		ElementSummary: summarizeElement(*element),
		Metrics:        make([]MetricReading, 0, len(latest)),
	}
	for _, v := range latest {
		detail.Metrics = append(detail.Metrics, readingOf(v))
	}
	return detail, nil
}

func (s *elementService) RecordMetricValue(ctx context.Context, elementID int64, input MetricValueInput) (*MetricReading, error) {
	element, err := s.elementRepo.Get(ctx, elementID)
	if err != nil {
		return nil, err
	}
	def, err := s.metricRepo.Get(ctx, input.MetricDefinitionID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.metricRepo.IsAllowed(ctx, element.InfrastructureServiceID, def.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: metric %q is not defined for the service of element %d",
			apperrors.ErrConflict, def.MetricName, elementID)
	}

	value := &models.MetricValue{
		InfrastructureElementID: elementID,
		MetricDefinitionID:      def.ID,
		MetricName:              def.MetricName,
		DataType:                def.DataType,
		IsKeyMetric:             def.IsKeyMetric,
		Timestamp:               s.now(),
	}
	if err := setMetricValue(value, input.Value); err != nil {
		return nil, err
	}
	if err := s.valueRepo.Create(ctx, value); err != nil {
		return nil, err
	}

	s.logger.Debug("Recorded metric value",
		zap.Int64("element_id", elementID),
		zap.String("metric_name", def.MetricName))
	reading := readingOf(*value)
	return &reading, nil
}

func (s *elementService) AddConsumption(ctx context.Context, elementID int64, input ConsumptionInput) (*models.ElementConsumption, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", apperrors.ErrValidation)
	}
	if input.CO2Consumption < 0 {
		return nil, fmt.Errorf("%w: co2Consumption cannot be negative", apperrors.ErrValidation)
	}

	consumption := &models.ElementConsumption{
		InfrastructureElementID: elementID,
		Date:                    rollup.ToCalendarDay(input.Date).Time(),
		CO2Consumption:          input.CO2Consumption,
	}
	// An unknown element surfaces as a foreign key violation, i.e. not found.
	if err := s.elementRepo.AddConsumption(ctx, consumption); err != nil {
		return nil, err
	}
	return consumption, nil
}

func (s *elementService) ListConsumptions(ctx context.Context, elementID int64) ([]models.ElementConsumption, error) {
	if _, err := s.elementRepo.Get(ctx, elementID); err != nil {
		return nil, err
	}
	return s.elementRepo.ListConsumptions(ctx, elementID)
}

// ============================================================================
// Helpers
// ============================================================================

func summarizeElement(e models.InfrastructureElement) ElementSummary {
	summary := ElementSummary{
		ID:        e.ID,
		Name:      e.Name,
		ServiceID: e.InfrastructureServiceID,
		Tags:      e.Tags,
	}
	if summary.Tags == nil {
		summary.Tags = []models.Tag{}
	}
	if e.Service != nil {
		summary.Type = e.Service.Type
		summary.Category = e.Service.Category
		summary.CloudProvider = e.Service.CloudProvider
	}
	if latest, ok := rollup.LatestConsumption(e.Consumptions); ok {
		summary.TotalCO2 = latest.CO2Consumption
		summary.KeyMetrics.DailyCO2Consumption = latest.CO2Consumption
	}

	keys := rollup.KeyMetrics(e.MetricValues)
	if len(keys) > 0 {
		r := readingOf(keys[0])
		summary.KeyMetrics.KeyMetric1 = &r
	}
	if len(keys) > 1 {
		r := readingOf(keys[1])
		summary.KeyMetrics.KeyMetric2 = &r
	}
	return summary
}

func readingOf(v models.MetricValue) MetricReading {
	return MetricReading{
		ID:        v.ID,
		Name:      v.MetricName,
		Value:     v.Value(),
		DataType:  v.DataType,
		Timestamp: v.Timestamp,
	}
}

// setMetricValue stores raw in the typed column matching v.DataType.
// JSON numbers arrive as float64 or json.Number; integers must be whole.
// Decimals also accept a numeric string.
func setMetricValue(v *models.MetricValue, raw any) error {
	if raw == nil {
		return fmt.Errorf("%w: value is required", apperrors.ErrValidation)
	}

	switch v.DataType {
	case models.DataTypeInteger:
		n, ok := asInteger(raw)
		if !ok {
			return fmt.Errorf("%w: metric %q expects an integer value", apperrors.ErrValidation, v.MetricName)
		}
		v.ValueInt = &n
	case models.DataTypeDecimal:
		f, ok := asDecimal(raw)
		if !ok {
			return fmt.Errorf("%w: metric %q expects a decimal value", apperrors.ErrValidation, v.MetricName)
		}
		v.ValueDecimal = &f
	case models.DataTypeString:
		str, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%w: metric %q expects a string value", apperrors.ErrValidation, v.MetricName)
		}
		v.ValueString = &str
	default:
		return fmt.Errorf("%w: unknown data type %q", apperrors.ErrValidation, v.DataType)
	}
	return nil
}

func asInteger(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func asDecimal(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}
