package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
	"github.com/brightpath/studyplan-core/pkg/storage"
)

// Extraction success-rate bands feeding the model-gateway check (spec §6.3):
// below degradedSuccessRateFloor is unhealthy, below healthySuccessRateFloor
// is degraded, otherwise healthy.
const (
	healthySuccessRateFloor  = 0.8
	degradedSuccessRateFloor = 0.5
)

// HealthService composes the database, model-gateway, and storage checks
// behind GET /healthz. The model-gateway check is derived from the
// extraction success-rate gauge rather than a live model call, per spec.
type HealthService struct {
	db      *sqlx.DB
	metrics *MetricsService
	storage *storage.LocalStorage
}

// NewHealthService wires the health check's collaborators.
func NewHealthService(db *sqlx.DB, metrics *MetricsService, store *storage.LocalStorage) *HealthService {
	return &HealthService{db: db, metrics: metrics, storage: store}
}

// Check runs every component probe and folds them into an overall verdict:
// unhealthy if any check is unhealthy, degraded if any check is degraded,
// healthy otherwise.
func (h *HealthService) Check(ctx context.Context) models.HealthReport {
	checks := map[string]models.HealthCheck{
		"database":      h.checkDatabase(ctx),
		"model_gateway": h.checkModelGateway(),
		"storage":       h.checkStorage(),
	}

	overall := models.HealthHealthy
	for _, c := range checks {
		switch c.Status {
		case models.HealthUnhealthy:
			overall = models.HealthUnhealthy
		case models.HealthDegraded:
			if overall != models.HealthUnhealthy {
				overall = models.HealthDegraded
			}
		}
	}

	return models.HealthReport{Status: overall, Checks: checks}
}

func (h *HealthService) checkDatabase(ctx context.Context) models.HealthCheck {
	if h.db == nil {
		return models.HealthCheck{Status: models.HealthUnhealthy, Detail: "no database handle configured"}
	}
	if err := h.db.PingContext(ctx); err != nil {
		return models.HealthCheck{Status: models.HealthUnhealthy, Detail: err.Error()}
	}
	return models.HealthCheck{Status: models.HealthHealthy}
}

func (h *HealthService) checkModelGateway() models.HealthCheck {
	rate := h.metrics.ExtractionSuccessRate()
	switch {
	case rate >= healthySuccessRateFloor:
		return models.HealthCheck{Status: models.HealthHealthy}
	case rate >= degradedSuccessRateFloor:
		return models.HealthCheck{Status: models.HealthDegraded, Detail: "elevated extraction failure rate"}
	default:
		return models.HealthCheck{Status: models.HealthUnhealthy, Detail: "extraction success rate below threshold"}
	}
}

func (h *HealthService) checkStorage() models.HealthCheck {
	if h.storage == nil {
		return models.HealthCheck{Status: models.HealthUnhealthy, Detail: "no storage handle configured"}
	}
	if err := h.storage.Healthy(); err != nil {
		return models.HealthCheck{Status: models.HealthUnhealthy, Detail: err.Error()}
	}
	return models.HealthCheck{Status: models.HealthHealthy}
}
