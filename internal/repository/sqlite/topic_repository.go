package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// TopicRepository mirrors repository.TopicRepository against SQLite.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository constructs a topic repository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// BeginTxx exposes transaction creation so the extraction orchestrator can
// run replace-mode delete, insert, and prerequisite resolution as a single
// atomic transition.
func (r *TopicRepository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// CountByUser returns the number of topics currently owned by userID.
func (r *TopicRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM topics WHERE user_id = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count topics by user: %w", err)
	}
	return count, nil
}

// DeleteByCourse removes every topic owned by a course.
func (r *TopicRepository) DeleteByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) error {
	const query = `DELETE FROM topics WHERE course_id = ?`
	if _, err := r.exec(exec).ExecContext(ctx, query, courseID); err != nil {
		return fmt.Errorf("delete topics by course: %w", err)
	}
	return nil
}

// InsertBatch inserts topics with their prerequisites already resolved to
// system identifiers.
func (r *TopicRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, topics []models.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	const query = `
INSERT INTO topics (id, course_id, user_id, topic_key, title, difficulty_weight, exam_importance,
                     estimated_hours, confidence_level, notes, source_page, source_quote,
                     prerequisites, status, extraction_run_id, created_at, updated_at)
VALUES (:id, :course_id, :user_id, :topic_key, :title, :difficulty_weight, :exam_importance,
        :estimated_hours, :confidence_level, :notes, :source_page, :source_quote,
        :prerequisites, :status, :extraction_run_id, :created_at, :updated_at)`
	target := r.exec(exec)
	for _, t := range topics {
		row := toTopicRow(t)
		if _, err := sqlx.NamedExecContext(ctx, target, query, &row); err != nil {
			return fmt.Errorf("insert topic %s: %w", t.ID, err)
		}
	}
	return nil
}

// UpdatePrerequisites rewrites one topic's prerequisite array.
func (r *TopicRepository) UpdatePrerequisites(ctx context.Context, exec sqlx.ExtContext, topicID string, prereqIDs []string) error {
	const query = `UPDATE topics SET prerequisites = ? WHERE id = ?`
	value, err := jsonStrings(prereqIDs).Value()
	if err != nil {
		return fmt.Errorf("encode prerequisites: %w", err)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, value, topicID); err != nil {
		return fmt.Errorf("update topic prerequisites: %w", err)
	}
	return nil
}

// ListPendingByUser returns every not-done topic owned by userID whose
// course is active and has a future exam date.
func (r *TopicRepository) ListPendingByUser(ctx context.Context, userID string) ([]models.Topic, error) {
	const query = `
SELECT t.id, t.course_id, t.user_id, t.topic_key, t.title, t.difficulty_weight, t.exam_importance,
       t.estimated_hours, t.confidence_level, t.notes, t.source_page, t.source_quote,
       t.prerequisites, t.status, t.extraction_run_id, t.created_at, t.updated_at
FROM topics t
JOIN courses c ON c.id = t.course_id
WHERE t.user_id = ? AND t.status != ? AND c.status = ? AND c.exam_date > ?
ORDER BY c.exam_date ASC, t.created_at ASC`
	var rows []topicRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, models.TopicDone, models.CourseActive, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("list pending topics: %w", err)
	}
	topics := make([]models.Topic, len(rows))
	for i, row := range rows {
		topics[i] = row.toModel()
	}
	return topics, nil
}

// ListByCourse returns every topic owned by a course.
func (r *TopicRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Topic, error) {
	const query = `
SELECT id, course_id, user_id, topic_key, title, difficulty_weight, exam_importance,
       estimated_hours, confidence_level, notes, source_page, source_quote,
       prerequisites, status, extraction_run_id, created_at, updated_at
FROM topics WHERE course_id = ?`
	var rows []topicRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list topics by course: %w", err)
	}
	topics := make([]models.Topic, len(rows))
	for i, row := range rows {
		topics[i] = row.toModel()
	}
	return topics, nil
}

// topicRow mirrors models.Topic but maps the prerequisites array through a
// JSON-text column, the SQLite stand-in for pq.StringArray.
type topicRow struct {
	ID               string      `db:"id"`
	CourseID         string      `db:"course_id"`
	UserID           string      `db:"user_id"`
	TopicKey         string      `db:"topic_key"`
	Title            string      `db:"title"`
	DifficultyWeight int         `db:"difficulty_weight"`
	ExamImportance   int         `db:"exam_importance"`
	EstimatedHours   float64     `db:"estimated_hours"`
	ConfidenceLevel  string      `db:"confidence_level"`
	Notes            string      `db:"notes"`
	SourcePage       int         `db:"source_page"`
	SourceQuote      string      `db:"source_quote"`
	Prerequisites    jsonStrings `db:"prerequisites"`
	Status           string      `db:"status"`
	ExtractionRunID  string      `db:"extraction_run_id"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func toTopicRow(t models.Topic) topicRow {
	return topicRow{
		ID:               t.ID,
		CourseID:         t.CourseID,
		UserID:           t.UserID,
		TopicKey:         t.TopicKey,
		Title:            t.Title,
		DifficultyWeight: t.DifficultyWeight,
		ExamImportance:   t.ExamImportance,
		EstimatedHours:   t.EstimatedHours,
		ConfidenceLevel:  string(t.ConfidenceLevel),
		Notes:            t.Notes,
		SourcePage:       t.SourcePage,
		SourceQuote:      t.SourceQuote,
		Prerequisites:    jsonStrings(t.Prerequisites),
		Status:           string(t.Status),
		ExtractionRunID:  t.ExtractionRunID,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func (row topicRow) toModel() models.Topic {
	return models.Topic{
		ID:               row.ID,
		CourseID:         row.CourseID,
		UserID:           row.UserID,
		TopicKey:         row.TopicKey,
		Title:            row.Title,
		DifficultyWeight: row.DifficultyWeight,
		ExamImportance:   row.ExamImportance,
		EstimatedHours:   row.EstimatedHours,
		ConfidenceLevel:  models.ConfidenceLevel(row.ConfidenceLevel),
		Notes:            row.Notes,
		SourcePage:       row.SourcePage,
		SourceQuote:      row.SourceQuote,
		Prerequisites:    []string(row.Prerequisites),
		Status:           models.TopicStatus(row.Status),
		ExtractionRunID:  row.ExtractionRunID,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
