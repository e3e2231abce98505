package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/models"
)

// PreferencesRepository mirrors repository.PreferencesRepository against
// SQLite.
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
	const query = `SELECT user_id, daily_capacity, weekly_off_days, blackout_dates FROM user_schedule_preferences WHERE user_id = ?`
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

// Upsert stores or replaces userID's preferences, the backing store for
// schedulerctl's "prefs set" subcommand.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs models.UserSchedulePreferences) error {
	if prefs.DailyCapacity <= 0 {
		prefs.DailyCapacity = models.DefaultDailyCapacity
	}
	offDays, err := jsonStrings(prefs.WeeklyOffDays).Value()
	if err != nil {
		return fmt.Errorf("encode weekly off days: %w", err)
	}
	blackout, err := jsonStrings(prefs.BlackoutDates).Value()
	if err != nil {
		return fmt.Errorf("encode blackout dates: %w", err)
	}
	const query = `
INSERT INTO user_schedule_preferences (user_id, daily_capacity, weekly_off_days, blackout_dates)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET daily_capacity = excluded.daily_capacity,
	weekly_off_days = excluded.weekly_off_days, blackout_dates = excluded.blackout_dates`
	if _, err := r.db.ExecContext(ctx, query, prefs.UserID, prefs.DailyCapacity, offDays, blackout); err != nil {
		return fmt.Errorf("upsert schedule preferences: %w", err)
	}
	return nil
}

type preferencesRow struct {
	UserID        string      `db:"user_id"`
	DailyCapacity float64     `db:"daily_capacity"`
	WeeklyOffDays jsonStrings `db:"weekly_off_days"`
	BlackoutDates jsonStrings `db:"blackout_dates"`
}

func (row preferencesRow) toModel() models.UserSchedulePreferences {
	return models.UserSchedulePreferences{
		UserID:        row.UserID,
		DailyCapacity: row.DailyCapacity,
		WeeklyOffDays: []string(row.WeeklyOffDays),
		BlackoutDates: []string(row.BlackoutDates),
	}
}
