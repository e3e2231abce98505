package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func TestPreferencesRepositoryGetByUserDefaultsWhenUnset(t *testing.T) {
	db := newTestDB(t)
	repo := NewPreferencesRepository(db)

	prefs, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDailyCapacity, prefs.DailyCapacity)
	assert.Empty(t, prefs.WeeklyOffDays)
}

func TestPreferencesRepositoryUpsertThenGetByUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewPreferencesRepository(db)

	prefs := models.UserSchedulePreferences{UserID: "user-1", DailyCapacity: 4, WeeklyOffDays: []string{"saturday"}, BlackoutDates: []string{"2026-12-25"}}
	require.NoError(t, repo.Upsert(context.Background(), prefs))

	got, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.DailyCapacity)
	assert.Equal(t, []string{"saturday"}, got.WeeklyOffDays)
	assert.Equal(t, []string{"2026-12-25"}, got.BlackoutDates)
}

func TestPreferencesRepositoryUpsertOverwritesPriorValue(t *testing.T) {
	db := newTestDB(t)
	repo := NewPreferencesRepository(db)

	require.NoError(t, repo.Upsert(context.Background(), models.UserSchedulePreferences{UserID: "user-1", DailyCapacity: 4}))
	require.NoError(t, repo.Upsert(context.Background(), models.UserSchedulePreferences{UserID: "user-1", DailyCapacity: 6}))

	got, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.DailyCapacity)
}
