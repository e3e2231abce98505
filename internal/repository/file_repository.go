package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// FileRepository tracks uploaded source-file ownership records consulted by
// the extraction orchestrator's ownership check (spec §4.3 point 1).
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs a file repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindOwned loads a source file, returning sql.ErrNoRows when it does not
// exist, is not owned by userID, or does not belong to courseID.
func (r *FileRepository) FindOwned(ctx context.Context, fileID, userID, courseID string) (*models.SourceFile, error) {
	const query = `SELECT id, user_id, course_id, filename, status, created_at
FROM source_files WHERE id = $1 AND user_id = $2 AND course_id = $3`
	var file models.SourceFile
	if err := r.db.GetContext(ctx, &file, query, fileID, userID, courseID); err != nil {
		return nil, err
	}
	return &file, nil
}

// UpdateStatus transitions a file's ingestion status.
func (r *FileRepository) UpdateStatus(ctx context.Context, fileID string, status models.FileStatus) error {
	const query = `UPDATE source_files SET status = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, status, fileID); err != nil {
		return fmt.Errorf("update source file status: %w", err)
	}
	return nil
}
