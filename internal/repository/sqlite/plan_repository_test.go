package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/models"
)

func TestPlanRepositoryNextVersionStartsAtOne(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)

	version, err := repo.NextVersion(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPlanRepositoryCreatePlanAdvancesNextVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)

	require.NoError(t, repo.CreatePlan(context.Background(), nil, &models.StudyPlan{ID: "plan-1", UserID: "user-1", PlanVersion: 1}))

	version, err := repo.NextVersion(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestPlanRepositoryInsertDayAndItemRoundTripViaCurrentVersionDays(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)

	require.NoError(t, repo.CreatePlan(context.Background(), nil, &models.StudyPlan{ID: "plan-1", UserID: "user-1", PlanVersion: 1}))
	day := &models.StudyPlanDay{ID: "day-1", PlanID: "plan-1", UserID: "user-1", PlanVersion: 1, Date: time.Now(), TotalHours: 2}
	require.NoError(t, repo.InsertDay(context.Background(), nil, day))
	item := &models.StudyPlanItem{ID: "item-1", DayID: "day-1", TopicID: "t1", CourseID: "c1", AllocatedHours: 2, SequenceOrder: 0}
	require.NoError(t, repo.InsertItem(context.Background(), nil, item))

	days, items, err := repo.CurrentVersionDays(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, items, 1)
	assert.Equal(t, "t1", items[0].TopicID)
}

func TestPlanRepositoryCurrentVersionDaysNoPlanYet(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)

	days, items, err := repo.CurrentVersionDays(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, days)
	assert.Nil(t, items)
}

func TestPlanRepositoryDeleteFutureDaysKeepsPastDays(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)
	now := time.Now()

	require.NoError(t, repo.CreatePlan(context.Background(), nil, &models.StudyPlan{ID: "plan-1", UserID: "user-1", PlanVersion: 1}))
	require.NoError(t, repo.InsertDay(context.Background(), nil, &models.StudyPlanDay{ID: "past", PlanID: "plan-1", UserID: "user-1", PlanVersion: 1, Date: now.AddDate(0, 0, -1)}))
	require.NoError(t, repo.InsertDay(context.Background(), nil, &models.StudyPlanDay{ID: "future", PlanID: "plan-1", UserID: "user-1", PlanVersion: 1, Date: now.AddDate(0, 0, 1)}))

	require.NoError(t, repo.DeleteFutureDays(context.Background(), nil, "user-1", now))

	days, _, err := repo.CurrentVersionDays(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "past", days[0].ID)
}

func TestPlanRepositoryListMissedItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)
	topics := NewTopicRepository(db)
	seedCourse(t, db, "c1", "user-1")

	require.NoError(t, topics.InsertBatch(context.Background(), nil, []models.Topic{
		{ID: "t1", CourseID: "c1", UserID: "user-1", TopicKey: "t1", Title: "Sorting", Status: models.TopicNotStarted},
	}))
	require.NoError(t, repo.CreatePlan(context.Background(), nil, &models.StudyPlan{ID: "plan-1", UserID: "user-1", PlanVersion: 1}))
	require.NoError(t, repo.InsertDay(context.Background(), nil, &models.StudyPlanDay{ID: "day-1", PlanID: "plan-1", UserID: "user-1", PlanVersion: 1, Date: time.Now().AddDate(0, 0, -1)}))
	require.NoError(t, repo.InsertItem(context.Background(), nil, &models.StudyPlanItem{ID: "item-1", DayID: "day-1", TopicID: "t1", CourseID: "c1", AllocatedHours: 1}))

	missed, err := repo.ListMissedItems(context.Background(), "user-1", time.Now())
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, "t1", missed[0].TopicID)
}

func TestPlanRepositoryBeginTxxCommits(t *testing.T) {
	db := newTestDB(t)
	repo := NewPlanRepository(db)

	tx, err := repo.BeginTxx(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.CreatePlan(context.Background(), tx, &models.StudyPlan{ID: "plan-1", UserID: "user-1", PlanVersion: 1}))
	require.NoError(t, tx.Commit())

	version, err := repo.NextVersion(context.Background(), nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}
