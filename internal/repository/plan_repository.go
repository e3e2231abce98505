package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brightpath/studyplan-core/internal/models"
)

// PlanRepository persists study plans, days, and items. Versioning and the
// future/past split (spec §4.6 "Plan persistence", invariant P6) are
// enforced here rather than in the scheduler service.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs a plan repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// NextVersion returns max(plan_version)+1 for userID.
func (r *PlanRepository) NextVersion(ctx context.Context, exec sqlx.ExtContext, userID string) (int, error) {
	const query = `SELECT COALESCE(MAX(plan_version), 0) + 1 FROM study_plans WHERE user_id = $1`
	var version int
	if err := sqlx.GetContext(ctx, r.exec(exec), &version, query, userID); err != nil {
		return 0, fmt.Errorf("compute next plan version: %w", err)
	}
	return version, nil
}

// DeleteFutureDays removes days at or after asOf across every previous
// version owned by userID; past-dated days remain as history.
func (r *PlanRepository) DeleteFutureDays(ctx context.Context, exec sqlx.ExtContext, userID string, asOf time.Time) error {
	const query = `DELETE FROM study_plan_days WHERE user_id = $1 AND date >= $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, userID, asOf); err != nil {
		return fmt.Errorf("delete future plan days: %w", err)
	}
	return nil
}

// CreatePlan inserts the plan header row.
func (r *PlanRepository) CreatePlan(ctx context.Context, exec sqlx.ExtContext, plan *models.StudyPlan) error {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO study_plans (id, user_id, plan_version, created_at) VALUES (:id, :user_id, :plan_version, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, plan); err != nil {
		return fmt.Errorf("create study plan: %w", err)
	}
	return nil
}

// InsertDay inserts one plan day, recomputing total_hours from its items is
// the caller's responsibility before calling this.
func (r *PlanRepository) InsertDay(ctx context.Context, exec sqlx.ExtContext, day *models.StudyPlanDay) error {
	const query = `INSERT INTO study_plan_days (id, plan_id, user_id, plan_version, date, total_hours, is_off_day)
VALUES (:id, :plan_id, :user_id, :plan_version, :date, :total_hours, :is_off_day)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, day); err != nil {
		return fmt.Errorf("insert plan day: %w", err)
	}
	return nil
}

// InsertItem inserts one plan item under an already-persisted day.
func (r *PlanRepository) InsertItem(ctx context.Context, exec sqlx.ExtContext, item *models.StudyPlanItem) error {
	const query = `INSERT INTO study_plan_items (id, day_id, topic_id, course_id, allocated_hours, sequence_order, is_review)
VALUES (:id, :day_id, :topic_id, :course_id, :allocated_hours, :sequence_order, :is_review)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, item); err != nil {
		return fmt.Errorf("insert plan item: %w", err)
	}
	return nil
}

// ListMissedItems returns items placed on a past day whose topic has not
// been marked done, the input to the scheduler's missed-item urgency boost
// (spec §4.5) when a reschedule request sets includeMissedItems.
func (r *PlanRepository) ListMissedItems(ctx context.Context, userID string, asOf time.Time) ([]models.MissedItem, error) {
	const query = `
SELECT i.topic_id, i.course_id
FROM study_plan_items i
JOIN study_plan_days d ON d.id = i.day_id
JOIN topics t ON t.id = i.topic_id
WHERE d.user_id = $1 AND d.date < $2 AND t.status != $3`
	var items []models.MissedItem
	if err := r.db.SelectContext(ctx, &items, query, userID, asOf, models.TopicDone); err != nil {
		return nil, fmt.Errorf("list missed plan items: %w", err)
	}
	return items, nil
}

// BeginTxx exposes transaction creation so the plan generation service can
// bound deletion+insertion in one atomic boundary, per spec §5's ordering
// guarantee.
func (r *PlanRepository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// CurrentVersionDays returns the days and items of the newest plan version
// owned by userID.
func (r *PlanRepository) CurrentVersionDays(ctx context.Context, userID string) ([]models.StudyPlanDay, []models.StudyPlanItem, error) {
	const versionQuery = `SELECT COALESCE(MAX(plan_version), 0) FROM study_plans WHERE user_id = $1`
	var version int
	if err := r.db.GetContext(ctx, &version, versionQuery, userID); err != nil {
		return nil, nil, fmt.Errorf("resolve current plan version: %w", err)
	}
	if version == 0 {
		return nil, nil, nil
	}

	const daysQuery = `SELECT id, plan_id, user_id, plan_version, date, total_hours, is_off_day
FROM study_plan_days WHERE user_id = $1 AND plan_version = $2 ORDER BY date ASC`
	var days []models.StudyPlanDay
	if err := r.db.SelectContext(ctx, &days, daysQuery, userID, version); err != nil {
		return nil, nil, fmt.Errorf("list plan days: %w", err)
	}

	if len(days) == 0 {
		return days, nil, nil
	}
	dayIDs := make([]string, len(days))
	for i, d := range days {
		dayIDs[i] = d.ID
	}

	const itemsQuery = `SELECT id, day_id, topic_id, course_id, allocated_hours, sequence_order, is_review
FROM study_plan_items WHERE day_id = ANY($1) ORDER BY day_id, sequence_order ASC`
	var items []models.StudyPlanItem
	if err := r.db.SelectContext(ctx, &items, itemsQuery, pq.Array(dayIDs)); err != nil {
		return nil, nil, fmt.Errorf("list plan items: %w", err)
	}

	return days, items, nil
}
