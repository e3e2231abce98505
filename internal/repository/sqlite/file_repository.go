package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// FileRepository mirrors repository.FileRepository against SQLite.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs a source file repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindOwned loads a source file owned by userID under courseID.
func (r *FileRepository) FindOwned(ctx context.Context, fileID, userID, courseID string) (*models.SourceFile, error) {
	const query = `SELECT id, user_id, course_id, filename, status, created_at
FROM source_files WHERE id = ? AND user_id = ? AND course_id = ?`
	var f models.SourceFile
	if err := r.db.GetContext(ctx, &f, query, fileID, userID, courseID); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateStatus transitions a source file's ingestion status.
func (r *FileRepository) UpdateStatus(ctx context.Context, fileID string, status models.FileStatus) error {
	const query = `UPDATE source_files SET status = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, fileID); err != nil {
		return fmt.Errorf("update source file status: %w", err)
	}
	return nil
}
