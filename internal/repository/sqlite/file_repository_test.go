package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func seedCourse(t *testing.T, db *sqlx.DB, id, userID string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO courses (id, user_id, title, exam_date, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, "Course", time.Now().Add(30*24*time.Hour), models.CourseActive, time.Now(), time.Now())
	require.NoError(t, err)
}

func seedFile(t *testing.T, db *sqlx.DB, id, userID, courseID string, status models.FileStatus) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO source_files (id, user_id, course_id, filename, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, courseID, "syllabus.pdf", status, time.Now())
	require.NoError(t, err)
}

func TestFileRepositoryFindOwned(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "c1", "user-1")
	seedFile(t, db, "f1", "user-1", "c1", models.FileUploaded)

	repo := NewFileRepository(db)
	file, err := repo.FindOwned(context.Background(), "f1", "user-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "syllabus.pdf", file.Filename)
}

func TestFileRepositoryFindOwnedWrongCourseIsNotFound(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "c1", "user-1")
	seedFile(t, db, "f1", "user-1", "c1", models.FileUploaded)

	repo := NewFileRepository(db)
	_, err := repo.FindOwned(context.Background(), "f1", "user-1", "other-course")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFileRepositoryUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "c1", "user-1")
	seedFile(t, db, "f1", "user-1", "c1", models.FileUploaded)

	repo := NewFileRepository(db)
	require.NoError(t, repo.UpdateStatus(context.Background(), "f1", models.FileIngested))

	file, err := repo.FindOwned(context.Background(), "f1", "user-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.FileIngested, file.Status)
}
