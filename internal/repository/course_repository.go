package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// CourseRepository persists courses and enforces ownership at the query level.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindOwned loads a course, returning sql.ErrNoRows when it does not exist or
// is not owned by userID — the caller maps both cases to NotFound.
func (r *CourseRepository) FindOwned(ctx context.Context, courseID, userID string) (*models.Course, error) {
	const query = `SELECT id, user_id, title, exam_date, status, created_at, updated_at
FROM courses WHERE id = $1 AND user_id = $2`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, courseID, userID); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListActiveWithFutureExam returns active courses owned by userID whose exam
// date is strictly after asOf, the candidate set for plan generation.
func (r *CourseRepository) ListActiveWithFutureExam(ctx context.Context, userID string, asOf sql.NullTime) ([]models.Course, error) {
	const query = `SELECT id, user_id, title, exam_date, status, created_at, updated_at
FROM courses WHERE user_id = $1 AND status = $2 AND exam_date > $3 ORDER BY exam_date ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID, models.CourseActive, asOf.Time); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}
