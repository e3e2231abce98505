package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/models"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

type fakePlanCourseReader struct {
	courses []models.Course
	err     error
}

func (f *fakePlanCourseReader) ListActiveWithFutureExam(_ context.Context, _ string, _ sql.NullTime) ([]models.Course, error) {
	return f.courses, f.err
}

type fakePlanTopicReader struct {
	topics []models.Topic
	err    error
}

func (f *fakePlanTopicReader) ListPendingByUser(_ context.Context, _ string) ([]models.Topic, error) {
	return f.topics, f.err
}

type fakePlanPreferencesReader struct {
	prefs models.UserSchedulePreferences
	err   error
}

func (f *fakePlanPreferencesReader) GetByUser(_ context.Context, _ string) (models.UserSchedulePreferences, error) {
	return f.prefs, f.err
}

type fakePlanMissedReader struct {
	items []models.MissedItem
	err   error
	calls int
}

func (f *fakePlanMissedReader) ListMissedItems(_ context.Context, _ string, _ time.Time) ([]models.MissedItem, error) {
	f.calls++
	return f.items, f.err
}

type fakePlanStore struct {
	db *sqlx.DB

	version        int
	nextVersionErr error
	deleteErr      error
	createErr      error
	insertDayErr   error
	insertItemErr  error

	plans []models.StudyPlan
	days  []models.StudyPlanDay
	items []models.StudyPlanItem
}

func (f *fakePlanStore) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return f.db.BeginTxx(ctx, nil)
}

func (f *fakePlanStore) NextVersion(_ context.Context, _ sqlx.ExtContext, _ string) (int, error) {
	if f.nextVersionErr != nil {
		return 0, f.nextVersionErr
	}
	f.version++
	return f.version, nil
}

func (f *fakePlanStore) DeleteFutureDays(_ context.Context, _ sqlx.ExtContext, _ string, _ time.Time) error {
	return f.deleteErr
}

func (f *fakePlanStore) CreatePlan(_ context.Context, _ sqlx.ExtContext, plan *models.StudyPlan) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.plans = append(f.plans, *plan)
	return nil
}

func (f *fakePlanStore) InsertDay(_ context.Context, _ sqlx.ExtContext, day *models.StudyPlanDay) error {
	if f.insertDayErr != nil {
		return f.insertDayErr
	}
	f.days = append(f.days, *day)
	return nil
}

func (f *fakePlanStore) InsertItem(_ context.Context, _ sqlx.ExtContext, item *models.StudyPlanItem) error {
	if f.insertItemErr != nil {
		return f.insertItemErr
	}
	f.items = append(f.items, *item)
	return nil
}

type planFixture struct {
	courses *fakePlanCourseReader
	topics  *fakePlanTopicReader
	prefs   *fakePlanPreferencesReader
	missed  *fakePlanMissedReader
	store   *fakePlanStore
	model   *fakeModel
	mock    sqlmock.Sqlmock
	svc     *PlanGenerationService
	today   time.Time
}

func newPlanFixture(t *testing.T) *planFixture {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	calendar := NewCalendarService()
	today := calendar.Today()

	fx := &planFixture{
		courses: &fakePlanCourseReader{},
		topics:  &fakePlanTopicReader{},
		prefs:   &fakePlanPreferencesReader{prefs: models.UserSchedulePreferences{DailyCapacity: 3}},
		missed:  &fakePlanMissedReader{},
		store:   &fakePlanStore{db: sqlx.NewDb(raw, "sqlmock")},
		model:   &fakeModel{},
		mock:    mock,
		today:   today,
	}

	scheduler := NewSchedulerService(calendar, fx.model, SchedulerConfig{})
	feasibility := NewFeasibilityService()
	validator := NewScheduleValidatorService(calendar)

	fx.svc = NewPlanGenerationService(fx.courses, fx.topics, fx.prefs, fx.missed, fx.store, calendar, feasibility, scheduler, validator, PlanGenerationConfig{})
	return fx
}

func (fx *planFixture) addCourseWithTopic(courseID string, daysOut int, topicID string, hours float64) {
	exam := fx.today.AddDate(0, 0, daysOut)
	fx.courses.courses = append(fx.courses.courses, models.Course{ID: courseID, Title: "Course " + courseID, ExamDate: exam, Status: models.CourseActive})
	fx.topics.topics = append(fx.topics.topics, models.Topic{ID: topicID, CourseID: courseID, Title: "Topic " + topicID, EstimatedHours: hours, ExamImportance: 3, DifficultyWeight: 3})
}

func TestPlanGenerationServiceNoActiveCourses(t *testing.T) {
	fx := newPlanFixture(t)
	_, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPlanGenerationServiceNoPendingTopics(t *testing.T) {
	fx := newPlanFixture(t)
	fx.courses.courses = []models.Course{{ID: "c1", ExamDate: fx.today.AddDate(0, 0, 20), Status: models.CourseActive}}

	_, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPlanGenerationServiceInfeasibleReturnsShortfall(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 40)
	// zero daily capacity makes every non-empty topic set infeasible
	// regardless of horizon, since totalAvailable collapses to 0.
	fx.prefs.prefs.DailyCapacity = 0

	_, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErr.Code)
}

func TestPlanGenerationServiceHappyPathPersistsPlan(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 2)

	placementDate := fx.today.AddDate(0, 0, 2)
	for placementDate.Weekday() == time.Saturday || placementDate.Weekday() == time.Sunday {
		placementDate = placementDate.AddDate(0, 0, 1)
	}
	fx.model.response = `{"placements":[{"topic_id":"t1","course_id":"c1","date":"` + placementDate.Format("2006-01-02") + `","hours":2,"sequence_order":0}]}`

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.True(t, result.ValidationPassed)
	assert.Equal(t, 1, result.PlanVersion)
	require.Len(t, result.Days, 1)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.TopicsScheduled)
	assert.Equal(t, 1, result.TopicsProvided)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestPlanGenerationServiceRepairRecoversInvalidProposal(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 2)

	goodDate := fx.today.AddDate(0, 0, 2)
	for goodDate.Weekday() == time.Saturday || goodDate.Weekday() == time.Sunday {
		goodDate = goodDate.AddDate(0, 0, 1)
	}

	fx.model.responses = []string{
		`{"placements":[{"topic_id":"t1","course_id":"c1","date":"2099-01-01","hours":2}]}`, // ineligible date
		`{"placements":[{"topic_id":"t1","course_id":"c1","date":"` + goodDate.Format("2006-01-02") + `","hours":2,"sequence_order":0}]}`,
	}

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.True(t, result.ValidationPassed)
	assert.Equal(t, 2, fx.model.calls)
}

func TestPlanGenerationServiceFallsBackWhenRepairErrors(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 2)

	fx.model.responses = []string{`{"placements":[{"topic_id":"t1","course_id":"c1","date":"2099-01-01","hours":2}]}`}
	fx.model.errAfter = errors.New("model unavailable for repair")

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.False(t, result.ValidationPassed)
}

func TestPlanGenerationServiceLoadsMissedItemsWhenRequested(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 2)
	fx.missed.items = []models.MissedItem{{TopicID: "old", CourseID: "c1"}}

	placementDate := fx.today.AddDate(0, 0, 2)
	for placementDate.Weekday() == time.Saturday || placementDate.Weekday() == time.Sunday {
		placementDate = placementDate.AddDate(0, 0, 1)
	}
	fx.model.response = `{"placements":[{"topic_id":"t1","course_id":"c1","date":"` + placementDate.Format("2006-01-02") + `","hours":2,"sequence_order":0}]}`

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{IncludeMissedItems: true})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.missed.calls)
}

func TestPlanGenerationServiceSkipsMissedItemsByDefault(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 2)

	placementDate := fx.today.AddDate(0, 0, 2)
	for placementDate.Weekday() == time.Saturday || placementDate.Weekday() == time.Sunday {
		placementDate = placementDate.AddDate(0, 0, 1)
	}
	fx.model.response = `{"placements":[{"topic_id":"t1","course_id":"c1","date":"` + placementDate.Format("2006-01-02") + `","hours":2,"sequence_order":0}]}`

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, fx.missed.calls)
}

func TestPlanGenerationServicePersistRollsBackOnInsertFailure(t *testing.T) {
	fx := newPlanFixture(t)
	fx.addCourseWithTopic("c1", 20, "t1", 2)
	fx.store.insertDayErr = errors.New("disk full")

	placementDate := fx.today.AddDate(0, 0, 2)
	for placementDate.Weekday() == time.Saturday || placementDate.Weekday() == time.Sunday {
		placementDate = placementDate.AddDate(0, 0, 1)
	}
	fx.model.response = `{"placements":[{"topic_id":"t1","course_id":"c1","date":"` + placementDate.Format("2006-01-02") + `","hours":2,"sequence_order":0}]}`

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.svc.Generate(context.Background(), models.RequestContext{UserID: "user-1"}, dto.GeneratePlanRequest{})
	require.Error(t, err)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}
