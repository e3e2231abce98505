package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// ExtractionRunRepository persists extraction runs, the rows backing the
// per-(user,course) lock described in spec §4.3/§5.
type ExtractionRunRepository struct {
	db *sqlx.DB
}

// NewExtractionRunRepository constructs an extraction run repository.
func NewExtractionRunRepository(db *sqlx.DB) *ExtractionRunRepository {
	return &ExtractionRunRepository{db: db}
}

// FindRunning returns the current running extraction for (userID, courseID),
// if any. sql.ErrNoRows signals no lock is held.
func (r *ExtractionRunRepository) FindRunning(ctx context.Context, userID, courseID string) (*models.ExtractionRun, error) {
	const query = `SELECT id, user_id, course_id, file_id, input_hash, mode, status, result, created_at, updated_at
FROM extraction_runs WHERE user_id = $1 AND course_id = $2 AND status = $3
ORDER BY created_at DESC LIMIT 1`
	var run models.ExtractionRun
	if err := r.db.GetContext(ctx, &run, query, userID, courseID, models.ExtractionRunning); err != nil {
		return nil, err
	}
	return &run, nil
}

// Create inserts a new running extraction, acting as the lock acquisition.
func (r *ExtractionRunRepository) Create(ctx context.Context, run *models.ExtractionRun) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	const query = `INSERT INTO extraction_runs (id, user_id, course_id, file_id, input_hash, mode, status, result, created_at, updated_at)
VALUES (:id, :user_id, :course_id, :file_id, :input_hash, :mode, :status, :result, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create extraction run: %w", err)
	}
	return nil
}

// UpdateStatus transitions a run to a terminal (or needs_review) state and
// records its result payload. Every terminal exit path in the orchestrator
// calls this before responding, per spec §7's propagation policy.
func (r *ExtractionRunRepository) UpdateStatus(ctx context.Context, id string, status models.ExtractionStatus, result models.ExtractionResult) error {
	const query = `UPDATE extraction_runs SET status = $1, result = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, status, result, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update extraction run status: %w", err)
	}
	return nil
}

// FindByID loads a run by id, used to answer 202 in-progress polling.
func (r *ExtractionRunRepository) FindByID(ctx context.Context, id string) (*models.ExtractionRun, error) {
	const query = `SELECT id, user_id, course_id, file_id, input_hash, mode, status, result, created_at, updated_at
FROM extraction_runs WHERE id = $1`
	var run models.ExtractionRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}
