package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/brightpath/studyplan-core/internal/models"
)

// PreferencesRepository persists per-user schedule preferences consulted by
// the calendar utilities and the feasibility analyzer.
type PreferencesRepository struct {
	db *sqlx.DB
}

// NewPreferencesRepository constructs a preferences repository.
func NewPreferencesRepository(db *sqlx.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetByUser returns userID's preferences, or the documented defaults
// (3h/day, no off-days, no blackout dates) when none have been set.
func (r *PreferencesRepository) GetByUser(ctx context.Context, userID string) (models.UserSchedulePreferences, error) {
	const query = `SELECT user_id, daily_capacity, weekly_off_days, blackout_dates FROM user_schedule_preferences WHERE user_id = $1`
	var row preferencesRow
	err := r.db.GetContext(ctx, &row, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserSchedulePreferences{
				UserID:        userID,
				DailyCapacity: models.DefaultDailyCapacity,
			}, nil
		}
		return models.UserSchedulePreferences{}, fmt.Errorf("get schedule preferences: %w", err)
	}
	return row.toModel(), nil
}

// Upsert stores or replaces userID's preferences.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs models.UserSchedulePreferences) error {
	if prefs.DailyCapacity <= 0 {
		prefs.DailyCapacity = models.DefaultDailyCapacity
	}
	const query = `
INSERT INTO user_schedule_preferences (user_id, daily_capacity, weekly_off_days, blackout_dates)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET daily_capacity = $2, weekly_off_days = $3, blackout_dates = $4`
	if _, err := r.db.ExecContext(ctx, query, prefs.UserID, prefs.DailyCapacity,
		pq.Array(prefs.WeeklyOffDays), pq.Array(prefs.BlackoutDates)); err != nil {
		return fmt.Errorf("upsert schedule preferences: %w", err)
	}
	return nil
}

type preferencesRow struct {
	UserID        string         `db:"user_id"`
	DailyCapacity float64        `db:"daily_capacity"`
	WeeklyOffDays pq.StringArray `db:"weekly_off_days"`
	BlackoutDates pq.StringArray `db:"blackout_dates"`
}

func (row preferencesRow) toModel() models.UserSchedulePreferences {
	return models.UserSchedulePreferences{
		UserID:        row.UserID,
		DailyCapacity: row.DailyCapacity,
		WeeklyOffDays: []string(row.WeeklyOffDays),
		BlackoutDates: []string(row.BlackoutDates),
	}
}
