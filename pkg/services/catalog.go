package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
)

// CreateServiceInput describes a new infrastructure service. CloudProvider is a provider name.
type CreateServiceInput struct {
	Type          string
	Category      models.ServiceCategory
	CloudProvider string
}

// CreateMetricDefinitionInput describes a new metric definition.
type CreateMetricDefinitionInput struct {
	MetricName           string
	DataType             models.DataType
	IsKeyMetric          bool
	ApplicableServiceIDs []int64
}

// CatalogService manages the reference data of the operations side:
// cloud providers, infrastructure services and metric definitions.
type CatalogService interface {
	// ListCloudProviders returns every provider ordered by name.
	ListCloudProviders(ctx context.Context) ([]*models.CloudProvider, error)

	// CreateCloudProvider stores a provider. Duplicate names are a conflict.
	CreateCloudProvider(ctx context.Context, name string) (*models.CloudProvider, error)

	// ListServices returns every infrastructure service.
	ListServices(ctx context.Context) ([]*models.InfrastructureService, error)

	// CreateService stores a service under the provider with the given name.
	CreateService(ctx context.Context, input CreateServiceInput) (*models.InfrastructureService, error)

	// AllowedMetrics returns the metric definitions elements of a service may record.
	AllowedMetrics(ctx context.Context, serviceID int64) ([]models.AllowedMetric, error)

	// ListMetricDefinitions returns every metric definition with its applicable services.
	ListMetricDefinitions(ctx context.Context) ([]*models.MetricDefinition, error)

	// CreateMetricDefinition stores a definition and links it to its services.
	// A key metric is rejected with a conflict when any of its services already has
	// models.MaxKeyMetricsPerService key metrics; nothing is written in that case.
	CreateMetricDefinition(ctx context.Context, input CreateMetricDefinitionInput) (*models.MetricDefinition, error)
}

type catalogService struct {
	providerRepo repositories.CloudProviderRepository
	serviceRepo  repositories.InfrastructureServiceRepository
	metricRepo   repositories.MetricDefinitionRepository
	runInTx      TxRunner
	logger       *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	providerRepo repositories.CloudProviderRepository,
	serviceRepo repositories.InfrastructureServiceRepository,
	metricRepo repositories.MetricDefinitionRepository,
	runInTx TxRunner,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		providerRepo: providerRepo,
		serviceRepo:  serviceRepo,
		metricRepo:   metricRepo,
		runInTx:      runInTx,
		logger:       logger.Named("catalog-service"),
	}
}

var _ CatalogService = (*catalogService)(nil)

// ============================================================================
// Cloud providers and services
// ============================================================================

func (s *catalogService) ListCloudProviders(ctx context.Context) ([]*models.CloudProvider, error) {
	return s.providerRepo.List(ctx)
}

func (s *catalogService) CreateCloudProvider(ctx context.Context, name string) (*models.CloudProvider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: cloud provider name is required", apperrors.ErrValidation)
	}

	provider := &models.CloudProvider{Name: name}
	if err := s.providerRepo.Create(ctx, provider); err != nil {
		return nil, err
	}
	s.logger.Info("Created cloud provider", zap.Int64("provider_id", provider.ID), zap.String("name", name))
	return provider, nil
}

func (s *catalogService) ListServices(ctx context.Context) ([]*models.InfrastructureService, error) {
	return s.serviceRepo.List(ctx)
}

func (s *catalogService) CreateService(ctx context.Context, input CreateServiceInput) (*models.InfrastructureService, error) {
	serviceType := strings.TrimSpace(input.Type)
	if serviceType == "" {
		return nil, fmt.Errorf("%w: service type is required", apperrors.ErrValidation)
	}
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown service category %q", apperrors.ErrValidation, input.Category)
	}

	provider, err := s.providerRepo.GetByName(ctx, strings.TrimSpace(input.CloudProvider))
	if err != nil {
		return nil, fmt.Errorf("cloud provider %q: %w", input.CloudProvider, err)
	}

	service := &models.InfrastructureService{
		Type:            serviceType,
		Category:        input.Category,
		CloudProviderID: provider.ID,
	}
	if err := s.serviceRepo.Create(ctx, service); err != nil {
		return nil, err
	}

	s.logger.Info("Created infrastructure service",
		zap.Int64("service_id", service.ID),
		zap.String("type", service.Type),
		zap.String("cloud_provider", service.CloudProvider))
	return service, nil
}

func (s *catalogService) AllowedMetrics(ctx context.Context, serviceID int64) ([]models.AllowedMetric, error) {
	if _, err := s.serviceRepo.Get(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.serviceRepo.ListAllowedMetrics(ctx, serviceID)
}

// ============================================================================
// Metric definitions
// ============================================================================

func (s *catalogService) ListMetricDefinitions(ctx context.Context) ([]*models.MetricDefinition, error) {
	return s.metricRepo.List(ctx)
}

func (s *catalogService) CreateMetricDefinition(ctx context.Context, input CreateMetricDefinitionInput) (*models.MetricDefinition, error) {
	name := strings.TrimSpace(input.MetricName)
	if name == "" {
		return nil, fmt.Errorf("%w: metric name is required", apperrors.ErrValidation)
	}
	if !input.DataType.IsValid() {
		return nil, fmt.Errorf("%w: unknown data type %q", apperrors.ErrValidation, input.DataType)
	}

	def := &models.MetricDefinition{
		MetricName:           name,
		DataType:             input.DataType,
		IsKeyMetric:          input.IsKeyMetric,
		ApplicableServiceIDs: input.ApplicableServiceIDs,
	}

	err := s.runInTx(ctx, func(ctx context.Context) error {
		if def.IsKeyMetric && len(def.ApplicableServiceIDs) > 0 {
			if err := s.checkKeyMetricCapacity(ctx, def.ApplicableServiceIDs); err != nil {
				return err
			}
		}
		return s.metricRepo.Create(ctx, def)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created metric definition",
		zap.Int64("definition_id", def.ID),
		zap.String("metric_name", def.MetricName),
		zap.Bool("key_metric", def.IsKeyMetric),
		zap.Int64s("service_ids", def.ApplicableServiceIDs))
	return def, nil
}

// checkKeyMetricCapacity locks the service rows until the transaction ends, so two
// concurrent key-metric writes for the same service cannot both pass the check.
func (s *catalogService) checkKeyMetricCapacity(ctx context.Context, serviceIDs []int64) error {
	counts, err := s.metricRepo.LockServicesAndCountKeyMetrics(ctx, serviceIDs)
	if err != nil {
		return err
	}

	full := make([]int64, 0)
	for id, n := range counts {
		if n >= models.MaxKeyMetricsPerService {
			full = append(full, id)
		}
	}
	if len(full) == 0 {
		return nil
	}

	slices.Sort(full)
	s.logger.Warn("Key metric limit reached", zap.Int64s("service_ids", full))
	return fmt.Errorf("%w: infrastructure service %d already has %d key metrics",
		apperrors.ErrConflict, full[0], models.MaxKeyMetricsPerService)
}
