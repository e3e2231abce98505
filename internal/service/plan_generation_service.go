package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/models"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

type planCourseReader interface {
	ListActiveWithFutureExam(ctx context.Context, userID string, asOf sql.NullTime) ([]models.Course, error)
}

type planTopicReader interface {
	ListPendingByUser(ctx context.Context, userID string) ([]models.Topic, error)
}

type planPreferencesReader interface {
	GetByUser(ctx context.Context, userID string) (models.UserSchedulePreferences, error)
}

type planMissedReader interface {
	ListMissedItems(ctx context.Context, userID string, asOf time.Time) ([]models.MissedItem, error)
}

type planStore interface {
	NextVersion(ctx context.Context, exec sqlx.ExtContext, userID string) (int, error)
	DeleteFutureDays(ctx context.Context, exec sqlx.ExtContext, userID string, asOf time.Time) error
	CreatePlan(ctx context.Context, exec sqlx.ExtContext, plan *models.StudyPlan) error
	InsertDay(ctx context.Context, exec sqlx.ExtContext, day *models.StudyPlanDay) error
	InsertItem(ctx context.Context, exec sqlx.ExtContext, item *models.StudyPlanItem) error
	BeginTxx(ctx context.Context) (*sqlx.Tx, error)
}

// PlanGenerationConfig governs the planning horizon cap shared by the
// scheduler and the feasibility pre-check.
type PlanGenerationConfig struct {
	HorizonCapDays int
}

// PlanGenerationService implements the Generate Plan operation (spec §6.2):
// it assembles pending topics and preferences, runs the feasibility gate,
// delegates placement to the scheduler and its repair loop, then persists
// the result as a new plan version. This mirrors the extraction
// orchestrator's role as the composition point for an otherwise stateless
// service layer.
type PlanGenerationService struct {
	courses     planCourseReader
	topics      planTopicReader
	prefs       planPreferencesReader
	missed      planMissedReader
	plans       planStore
	calendar    *CalendarService
	feasibility *FeasibilityService
	scheduler   *SchedulerService
	validator   *ScheduleValidatorService
	cfg         PlanGenerationConfig
	idFactory   func() string
}

// NewPlanGenerationService wires the plan generation pipeline.
func NewPlanGenerationService(
	courses planCourseReader,
	topics planTopicReader,
	prefs planPreferencesReader,
	missed planMissedReader,
	plans planStore,
	calendar *CalendarService,
	feasibility *FeasibilityService,
	scheduler *SchedulerService,
	validator *ScheduleValidatorService,
	cfg PlanGenerationConfig,
) *PlanGenerationService {
	if cfg.HorizonCapDays <= 0 {
		cfg.HorizonCapDays = planningHorizonCap
	}
	return &PlanGenerationService{
		courses:     courses,
		topics:      topics,
		prefs:       prefs,
		missed:      missed,
		plans:       plans,
		calendar:    calendar,
		feasibility: feasibility,
		scheduler:   scheduler,
		validator:   validator,
		cfg:         cfg,
		idFactory:   func() string { return uuid.NewString() },
	}
}

// GenerateResult carries the persisted plan alongside diagnostics surfaced
// in the Generate Plan response (spec §6.2).
type GenerateResult struct {
	Days             []models.StudyPlanDay
	Items            []models.StudyPlanItem
	PlanVersion      int
	Warnings         []string
	CoursesIncluded  int
	Verdict          FeasibilityVerdict
	TopicsScheduled  int
	TopicsProvided   int
	ValidationPassed bool
	PerCourse        []dto.CourseShortfallDTO
}

// Generate runs the full plan-generation pipeline for one user.
func (s *PlanGenerationService) Generate(ctx context.Context, reqCtx models.RequestContext, req dto.GeneratePlanRequest) (GenerateResult, error) {
	today := s.calendar.Today()

	courses, err := s.courses.ListActiveWithFutureExam(ctx, reqCtx.UserID, sql.NullTime{Time: today, Valid: true})
	if err != nil {
		return GenerateResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active courses")
	}
	if len(courses) == 0 {
		return GenerateResult{}, appErrors.Clone(appErrors.ErrValidation, "no active courses with future exam dates")
	}

	allTopics, err := s.topics.ListPendingByUser(ctx, reqCtx.UserID)
	if err != nil {
		return GenerateResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending topics")
	}

	prefs, err := s.prefs.GetByUser(ctx, reqCtx.UserID)
	if err != nil {
		return GenerateResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule preferences")
	}

	courseTopics := groupTopicsByCourse(courses, allTopics)
	if len(courseTopics) == 0 {
		return GenerateResult{}, appErrors.Clone(appErrors.ErrValidation, "no pending topics for any active course")
	}

	horizon := s.horizonDays(today, courses)
	eligibleDates := s.calendar.EligibleDates(today, horizon, ToSet(prefs.WeeklyOffDays), ToSet(prefs.BlackoutDates))

	estimatedHours := make([]float64, 0, len(allTopics))
	for _, ct := range courseTopics {
		for _, t := range ct.Topics {
			estimatedHours = append(estimatedHours, t.EstimatedHours)
		}
	}
	verdict := s.feasibility.Analyze(estimatedHours, len(eligibleDates), prefs.DailyCapacity)
	if !verdict.Feasible {
		return GenerateResult{Verdict: verdict, PerCourse: s.perCourseShortfall(today, courseTopics)}, appErrors.Clone(appErrors.ErrInfeasible, "insufficient_time")
	}

	missedByCourse := map[string]int{}
	var missedItems []models.MissedItem
	if req.IncludeMissedItems || req.Reschedule {
		missedItems, err = s.missed.ListMissedItems(ctx, reqCtx.UserID, today)
		if err != nil {
			return GenerateResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load missed items")
		}
		for _, m := range missedItems {
			missedByCourse[m.CourseID]++
		}
	}

	in := SchedulerInput{
		Today:         today,
		EligibleDates: eligibleDates,
		DailyCapacity: prefs.DailyCapacity,
		Courses:       courseTopics,
		MissedItems:   missedItems,
		Reschedule:    req.Reschedule,
	}
	urgencies := s.scheduler.ComputeUrgencies(today, courseTopics, missedByCourse)
	budgets := s.scheduler.AllocateDailyBudgets(urgencies, prefs.DailyCapacity)

	vctx := NewValidationContext(s.calendar, eligibleDates, courseTopics)
	eventID := s.idFactory()

	placements, validationPassed, warnings, err := s.proposeAndValidate(ctx, in, verdict, vctx, urgencies, budgets, eventID)
	if err != nil {
		return GenerateResult{}, err
	}

	scheduledTopics := map[string]struct{}{}
	for _, p := range placements {
		scheduledTopics[p.TopicID] = struct{}{}
	}

	days, items, version, err := s.persist(ctx, reqCtx.UserID, today, placements)
	if err != nil {
		return GenerateResult{}, err
	}

	return GenerateResult{
		Days:             days,
		Items:            items,
		PlanVersion:      version,
		Warnings:         warnings,
		CoursesIncluded:  len(courseTopics),
		Verdict:          verdict,
		TopicsScheduled:  len(scheduledTopics),
		TopicsProvided:   len(allTopics),
		ValidationPassed: validationPassed,
	}, nil
}

// proposeAndValidate runs the propose -> validate -> repair -> fallback
// pipeline of spec §4.6.
func (s *PlanGenerationService) proposeAndValidate(
	ctx context.Context,
	in SchedulerInput,
	verdict FeasibilityVerdict,
	vctx ValidationContext,
	urgencies []CourseUrgency,
	budgets map[string]float64,
	eventID string,
) ([]dto.ScheduleLLMPlacement, bool, []string, error) {
	providedTopicCount := 0
	for _, ct := range in.Courses {
		providedTopicCount += len(ct.Topics)
	}

	proposal, err := s.scheduler.Propose(ctx, in, verdict.CoverageRatio, verdict.TotalRequiredHours, verdict.TotalAvailableHours, eventID)
	if err != nil {
		return nil, false, nil, err
	}

	result := s.validator.Validate(proposal.Placements, vctx, in.DailyCapacity, providedTopicCount)
	if result.Valid() {
		return proposal.Placements, true, result.Warnings, nil
	}

	repaired, repairErr := s.scheduler.Repair(ctx, in, verdict.CoverageRatio, verdict.TotalRequiredHours, verdict.TotalAvailableHours, proposal, result.Errors, eventID)
	if repairErr != nil {
		fallback := s.validator.Fallback(in, urgencies, budgets)
		return fallback, false, result.Warnings, nil
	}

	repairedResult := s.validator.Validate(repaired.Placements, vctx, in.DailyCapacity, providedTopicCount)
	if repairedResult.Valid() {
		return repaired.Placements, true, repairedResult.Warnings, nil
	}

	return repaired.Placements, false, repairedResult.Warnings, nil
}

func (s *PlanGenerationService) persist(ctx context.Context, userID string, today time.Time, placements []dto.ScheduleLLMPlacement) ([]models.StudyPlanDay, []models.StudyPlanItem, int, error) {
	tx, err := s.plans.BeginTxx(ctx)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin plan transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	version, err := s.plans.NextVersion(ctx, tx, userID)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute plan version")
	}
	if err := s.plans.DeleteFutureDays(ctx, tx, userID, today); err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear future plan days")
	}

	plan := &models.StudyPlan{ID: s.idFactory(), UserID: userID, PlanVersion: version, CreatedAt: time.Now().UTC()}
	if err := s.plans.CreatePlan(ctx, tx, plan); err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plan")
	}

	byDate := map[string][]dto.ScheduleLLMPlacement{}
	for _, p := range placements {
		byDate[p.Date] = append(byDate[p.Date], p)
	}

	var days []models.StudyPlanDay
	var items []models.StudyPlanItem
	for dateStr, dayPlacements := range byDate {
		date, parseErr := time.Parse("2006-01-02", dateStr)
		if parseErr != nil {
			continue
		}
		total := 0.0
		for _, p := range dayPlacements {
			total += p.Hours
		}
		day := models.StudyPlanDay{
			ID:          s.idFactory(),
			PlanID:      plan.ID,
			UserID:      userID,
			PlanVersion: version,
			Date:        date,
			TotalHours:  total,
		}
		if err := s.plans.InsertDay(ctx, tx, &day); err != nil {
			return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert plan day")
		}
		days = append(days, day)

		for _, p := range dayPlacements {
			item := models.StudyPlanItem{
				ID:             s.idFactory(),
				DayID:          day.ID,
				TopicID:        p.TopicID,
				CourseID:       p.CourseID,
				AllocatedHours: p.Hours,
				SequenceOrder:  p.SequenceOrder,
				IsReview:       p.IsReview,
			}
			if err := s.plans.InsertItem(ctx, tx, &item); err != nil {
				return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert plan item")
			}
			items = append(items, item)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan transaction")
	}
	committed = true

	return days, items, version, nil
}

func (s *PlanGenerationService) horizonDays(today time.Time, courses []models.Course) int {
	maxDays := 0
	for _, c := range courses {
		days := int(c.ExamDate.UTC().Sub(today).Hours() / 24)
		if days > maxDays {
			maxDays = days
		}
	}
	if maxDays < s.cfg.HorizonCapDays {
		return maxDays
	}
	return s.cfg.HorizonCapDays
}

func (s *PlanGenerationService) perCourseShortfall(today time.Time, courseTopics []CourseTopics) []dto.CourseShortfallDTO {
	out := make([]dto.CourseShortfallDTO, 0, len(courseTopics))
	for _, ct := range courseTopics {
		daysLeft := int(ct.Course.ExamDate.UTC().Sub(today).Hours() / 24)
		hoursNeeded := 0.0
		for _, t := range ct.Topics {
			hoursNeeded += t.EstimatedHours
		}
		out = append(out, dto.CourseShortfallDTO{
			CourseID:    ct.Course.ID,
			CourseTitle: ct.Course.Title,
			DaysLeft:    daysLeft,
			HoursNeeded: hoursNeeded,
		})
	}
	return out
}

func groupTopicsByCourse(courses []models.Course, topics []models.Topic) []CourseTopics {
	byCourse := make(map[string][]models.Topic, len(courses))
	for _, t := range topics {
		byCourse[t.CourseID] = append(byCourse[t.CourseID], t)
	}
	out := make([]CourseTopics, 0, len(courses))
	for _, c := range courses {
		ts := byCourse[c.ID]
		if len(ts) == 0 {
			continue
		}
		out = append(out, CourseTopics{Course: c, Topics: ts})
	}
	return out
}
