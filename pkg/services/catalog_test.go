package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

type catalogFixture struct {
	svc       CatalogService
	providers *mockProviderRepo
	services  *mockServiceRepo
	metrics   *mockMetricRepo
	tx        *passthroughTx
	logs      *observer.ObservedLogs
}

func newCatalogFixture() *catalogFixture {
	core, logs := observer.New(zap.DebugLevel)
	f := &catalogFixture{
		providers: newMockProviderRepo("AWS", "Azure"),
		services: newMockServiceRepo(
			models.InfrastructureService{ID: 1, Type: "EC2", Category: models.CategoryCompute, CloudProviderID: 1, CloudProvider: "AWS"},
			models.InfrastructureService{ID: 2, Type: "S3", Category: models.CategoryStorage, CloudProviderID: 1, CloudProvider: "AWS"},
		),
		metrics: newMockMetricRepo(),
		tx:      &passthroughTx{},
		logs:    logs,
	}
	f.svc = NewCatalogService(f.providers, f.services, f.metrics, f.tx.run, zap.New(core))
	return f
}

func TestCatalogService_CreateCloudProvider(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	p, err := f.svc.CreateCloudProvider(ctx, " GCP ")
	require.NoError(t, err)
	assert.Equal(t, "GCP", p.Name)

	_, err = f.svc.CreateCloudProvider(ctx, "GCP")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.CreateCloudProvider(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCatalogService_CreateService(t *testing.T) {
	f := newCatalogFixture()

	svc, err := f.svc.CreateService(context.Background(), CreateServiceInput{
		Type:          "Blob Storage",
		Category:      models.CategoryStorage,
		CloudProvider: "Azure",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), svc.CloudProviderID)
	assert.Equal(t, "Blob Storage", svc.Type)
}

func TestCatalogService_CreateService_Errors(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	_, err := f.svc.CreateService(ctx, CreateServiceInput{Type: "VM", Category: models.CategoryCompute, CloudProvider: "Oracle"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.CreateService(ctx, CreateServiceInput{Type: "VM", Category: "Serverless", CloudProvider: "AWS"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.CreateService(ctx, CreateServiceInput{Category: models.CategoryCompute, CloudProvider: "AWS"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, f.services.created)
}

func TestCatalogService_AllowedMetrics(t *testing.T) {
	f := newCatalogFixture()
	f.services.allowed[1] = []models.AllowedMetric{{MetricDefinitionID: 4, ServiceType: "EC2", MetricName: "cpu"}}

	got, err := f.svc.AllowedMetrics(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.AllowedMetrics(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCatalogService_CreateMetricDefinition_KeyMetricCap(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	for _, name := range []string{"cpu", "memory", "disk"} {
		_, err := f.svc.CreateMetricDefinition(ctx, CreateMetricDefinitionInput{
			MetricName:           name,
			DataType:             models.DataTypeDecimal,
			IsKeyMetric:          true,
			ApplicableServiceIDs: []int64{1},
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, f.metrics.keyCounts[1])

	_, err := f.svc.CreateMetricDefinition(ctx, CreateMetricDefinitionInput{
		MetricName:           "network",
		DataType:             models.DataTypeDecimal,
		IsKeyMetric:          true,
		ApplicableServiceIDs: []int64{2, 1},
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "service 1")

	assert.Equal(t, 3, f.metrics.createCalls, "rejected definition must not be written")
	assert.Equal(t, 3, f.metrics.keyCounts[1])
	assert.Equal(t, 0, f.metrics.keyCounts[2])
	assert.Equal(t, 1, f.logs.FilterMessage("Key metric limit reached").Len())
}

func TestCatalogService_CreateMetricDefinition_NonKeySkipsLock(t *testing.T) {
	f := newCatalogFixture()
	f.metrics.keyCounts[1] = 3

	def, err := f.svc.CreateMetricDefinition(context.Background(), CreateMetricDefinitionInput{
		MetricName:           "region",
		DataType:             models.DataTypeString,
		ApplicableServiceIDs: []int64{1},
	})
	require.NoError(t, err)
	assert.False(t, def.IsKeyMetric)
	assert.Equal(t, 0, f.metrics.lockCalls)
	assert.Equal(t, 1, f.tx.calls)
}

func TestCatalogService_CreateMetricDefinition_Validation(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	_, err := f.svc.CreateMetricDefinition(ctx, CreateMetricDefinitionInput{MetricName: "cpu", DataType: "float"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.CreateMetricDefinition(ctx, CreateMetricDefinitionInput{DataType: models.DataTypeInteger})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, 0, f.metrics.createCalls)
}
