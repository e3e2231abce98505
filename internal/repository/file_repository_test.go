package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func TestFileRepositoryFindOwned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "filename", "status", "created_at"}).
		AddRow("f1", "user-1", "c1", "syllabus.pdf", models.FileUploaded, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM source_files WHERE id = $1 AND user_id = $2 AND course_id = $3")).
		WithArgs("f1", "user-1", "c1").
		WillReturnRows(rows)

	file, err := repo.FindOwned(context.Background(), "f1", "user-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "syllabus.pdf", file.Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepositoryFindOwnedNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM source_files WHERE id = $1 AND user_id = $2 AND course_id = $3")).
		WithArgs("ghost", "user-1", "c1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindOwned(context.Background(), "ghost", "user-1", "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFileRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE source_files SET status = $1 WHERE id = $2")).
		WithArgs(models.FileIngested, "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "f1", models.FileIngested))
	assert.NoError(t, mock.ExpectationsWereMet())
}
