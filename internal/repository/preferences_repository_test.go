package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func TestPreferencesRepositoryGetByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferencesRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "daily_capacity", "weekly_off_days", "blackout_dates"}).
		AddRow("user-1", 4.0, "{saturday,sunday}", "{}")
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_schedule_preferences WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(rows)

	prefs, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, prefs.DailyCapacity)
	assert.Equal(t, []string{"saturday", "sunday"}, prefs.WeeklyOffDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferencesRepositoryGetByUserFallsBackToDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferencesRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_schedule_preferences WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)

	prefs, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyCapacity, prefs.DailyCapacity)
	assert.Empty(t, prefs.WeeklyOffDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferencesRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferencesRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_schedule_preferences")).
		WithArgs("user-1", 5.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), models.UserSchedulePreferences{UserID: "user-1", DailyCapacity: 5.0})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferencesRepositoryUpsertAppliesDefaultWhenCapacityIsZero(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPreferencesRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_schedule_preferences")).
		WithArgs("user-1", models.DefaultDailyCapacity, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), models.UserSchedulePreferences{UserID: "user-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
