package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
	"github.com/brightpath/studyplan-core/pkg/storage"
)

func newHealthDBMock(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	_ = mock
	db := sqlx.NewDb(raw, "sqlmock")
	return db, func() { _ = db.Close() }
}

func TestHealthServiceCheckAllHealthy(t *testing.T) {
	db, cleanup := newHealthDBMock(t)
	defer cleanup()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	h := NewHealthService(db, NewMetricsService(), store)
	report := h.Check(context.Background())

	assert.Equal(t, models.HealthHealthy, report.Status)
	assert.Equal(t, models.HealthHealthy, report.Checks["database"].Status)
	assert.Equal(t, models.HealthHealthy, report.Checks["model_gateway"].Status)
	assert.Equal(t, models.HealthHealthy, report.Checks["storage"].Status)
}

func TestHealthServiceCheckDatabaseUnhealthyWhenUnconfigured(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	h := NewHealthService(nil, NewMetricsService(), store)
	report := h.Check(context.Background())

	assert.Equal(t, models.HealthUnhealthy, report.Status)
	assert.Equal(t, models.HealthUnhealthy, report.Checks["database"].Status)
	assert.NotEmpty(t, report.Checks["database"].Detail)
}

func TestHealthServiceCheckStorageUnhealthyWhenUnconfigured(t *testing.T) {
	db, cleanup := newHealthDBMock(t)
	defer cleanup()

	h := NewHealthService(db, NewMetricsService(), nil)
	report := h.Check(context.Background())

	assert.Equal(t, models.HealthUnhealthy, report.Status)
	assert.Equal(t, models.HealthUnhealthy, report.Checks["storage"].Status)
}

func TestHealthServiceCheckModelGatewayDegradedBand(t *testing.T) {
	db, cleanup := newHealthDBMock(t)
	defer cleanup()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	metrics := NewMetricsService()
	// 6 successes, 4 failures -> success rate 0.6, inside [0.5, 0.8).
	for i := 0; i < 6; i++ {
		metrics.RecordExtractionResult(false)
	}
	for i := 0; i < 4; i++ {
		metrics.RecordExtractionResult(true)
	}

	h := NewHealthService(db, metrics, store)
	report := h.Check(context.Background())

	assert.Equal(t, models.HealthDegraded, report.Status)
	assert.Equal(t, models.HealthDegraded, report.Checks["model_gateway"].Status)
}

func TestHealthServiceCheckModelGatewayUnhealthyBand(t *testing.T) {
	db, cleanup := newHealthDBMock(t)
	defer cleanup()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	metrics := NewMetricsService()
	for i := 0; i < 9; i++ {
		metrics.RecordExtractionResult(true)
	}
	metrics.RecordExtractionResult(false) // success rate 0.1, below the unhealthy floor.

	h := NewHealthService(db, metrics, store)
	report := h.Check(context.Background())

	assert.Equal(t, models.HealthUnhealthy, report.Status)
	assert.Equal(t, models.HealthUnhealthy, report.Checks["model_gateway"].Status)
}
