package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func TestCourseRepositoryCreateAndFindOwned(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)

	course := &models.Course{ID: "c1", UserID: "user-1", Title: "Algorithms", ExamDate: time.Now().Add(30 * 24 * time.Hour), Status: models.CourseActive}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.False(t, course.CreatedAt.IsZero())

	found, err := repo.FindOwned(context.Background(), "c1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Algorithms", found.Title)
}

func TestCourseRepositoryFindOwnedWrongUserIsNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)

	course := &models.Course{ID: "c1", UserID: "user-1", Title: "Algorithms", ExamDate: time.Now(), Status: models.CourseActive}
	require.NoError(t, repo.Create(context.Background(), course))

	_, err := repo.FindOwned(context.Background(), "c1", "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCourseRepositoryListActiveWithFutureExam(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)

	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), &models.Course{ID: "future", UserID: "user-1", Title: "Future", ExamDate: now.Add(10 * 24 * time.Hour), Status: models.CourseActive}))
	require.NoError(t, repo.Create(context.Background(), &models.Course{ID: "past", UserID: "user-1", Title: "Past", ExamDate: now.Add(-10 * 24 * time.Hour), Status: models.CourseActive}))
	require.NoError(t, repo.Create(context.Background(), &models.Course{ID: "archived", UserID: "user-1", Title: "Archived", ExamDate: now.Add(10 * 24 * time.Hour), Status: models.CourseArchived}))

	courses, err := repo.ListActiveWithFutureExam(context.Background(), "user-1", sql.NullTime{Time: now, Valid: true})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "future", courses[0].ID)
}
