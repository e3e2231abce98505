package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func TestTopicRepositoryCountByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM topics WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryDeleteByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM topics WHERE course_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByCourse(context.Background(), nil, "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO topics")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO topics")).WillReturnResult(sqlmock.NewResult(1, 1))

	topics := []models.Topic{
		{ID: "t1", CourseID: "c1", UserID: "user-1", TopicKey: "t1", Title: "Sorting"},
		{ID: "t2", CourseID: "c1", UserID: "user-1", TopicKey: "t2", Title: "Searching"},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, topics))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryInsertBatchEmptyIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryUpdatePrerequisites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE topics SET prerequisites = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "t2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePrerequisites(context.Background(), nil, "t2", []string{"t1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryListPendingByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	cols := []string{"id", "course_id", "user_id", "topic_key", "title", "difficulty_weight", "exam_importance",
		"estimated_hours", "confidence_level", "notes", "source_page", "source_quote",
		"prerequisites", "status", "extraction_run_id", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).AddRow("t1", "c1", "user-1", "t1", "Sorting", 3, 4, 2.0,
		models.ConfidenceHigh, "", 0, "", "{}", models.TopicNotStarted, "run-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN courses c ON c.id = t.course_id")).
		WithArgs("user-1", models.TopicDone, models.CourseActive).
		WillReturnRows(rows)

	topics, err := repo.ListPendingByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Sorting", topics[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	cols := []string{"id", "course_id", "user_id", "topic_key", "title", "difficulty_weight", "exam_importance",
		"estimated_hours", "confidence_level", "notes", "source_page", "source_quote",
		"prerequisites", "status", "extraction_run_id", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).AddRow("t1", "c1", "user-1", "t1", "Sorting", 3, 4, 2.0,
		models.ConfidenceHigh, "", 0, "", "{t0}", models.TopicNotStarted, "run-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM topics WHERE course_id = $1")).
		WithArgs("c1").
		WillReturnRows(rows)

	topics, err := repo.ListByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, []string{"t0"}, topics[0].Prerequisites)
	assert.NoError(t, mock.ExpectationsWereMet())
}
