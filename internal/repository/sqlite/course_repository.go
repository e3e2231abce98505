package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// CourseRepository mirrors repository.CourseRepository against SQLite.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course, used by schedulerctl's "course add" subcommand.
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	const query = `INSERT INTO courses (id, user_id, title, exam_date, status, created_at, updated_at)
VALUES (:id, :user_id, :title, :exam_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindOwned loads a course, returning sql.ErrNoRows when it does not exist or
// is not owned by userID.
func (r *CourseRepository) FindOwned(ctx context.Context, courseID, userID string) (*models.Course, error) {
	const query = `SELECT id, user_id, title, exam_date, status, created_at, updated_at
FROM courses WHERE id = ? AND user_id = ?`
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
FROM courses WHERE user_id = ? AND status = ? AND exam_date > ? ORDER BY exam_date ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID, models.CourseActive, asOf.Time); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}
