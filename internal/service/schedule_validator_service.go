package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/models"
)

// ValidationContext is the independent ground truth the validator checks a
// proposal against — it never consults the generator's own state (spec
// §4.6: "the validator is independent of the generator").
type ValidationContext struct {
	EligibleDates map[string]struct{}
	CourseExam    map[string]time.Time
	TopicCourse   map[string]string
	Prerequisites map[string][]string
}

// NewValidationContext builds a ValidationContext from the planning input,
// the single source both the scheduler and the validator derive from.
func NewValidationContext(calendar *CalendarService, eligibleDates []time.Time, courses []CourseTopics) ValidationContext {
	vc := ValidationContext{
		EligibleDates: make(map[string]struct{}, len(eligibleDates)),
		CourseExam:    make(map[string]time.Time, len(courses)),
		TopicCourse:   map[string]string{},
		Prerequisites: map[string][]string{},
	}
	for _, d := range eligibleDates {
		vc.EligibleDates[calendar.Format(d)] = struct{}{}
	}
	for _, ct := range courses {
		vc.CourseExam[ct.Course.ID] = ct.Course.ExamDate.UTC()
		for _, t := range ct.Topics {
			vc.TopicCourse[t.ID] = ct.Course.ID
			vc.Prerequisites[t.ID] = t.Prerequisites
		}
	}
	return vc
}

// ValidationResult is the outcome of Validate: errors fail the schedule,
// warnings do not (spec §4.6).
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the schedule has no errors.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ScheduleValidatorService independently checks a proposed schedule against
// a ValidationContext and builds the deterministic fallback schedule of
// spec §4.6; the repair loop itself is driven by
// PlanGenerationService.proposeAndValidate. It is modeled after the teacher's separation of
// proposal-building (`ScheduleGeneratorService`) from conflict-checking
// (`defaultScheduleConflictChecker`).
type ScheduleValidatorService struct {
	calendar *CalendarService
}

// NewScheduleValidatorService constructs a validator.
func NewScheduleValidatorService(calendar *CalendarService) *ScheduleValidatorService {
	return &ScheduleValidatorService{calendar: calendar}
}

// Validate checks every placement against the independent context,
// returning the error/warning taxonomy of §4.6.
func (v *ScheduleValidatorService) Validate(placements []dto.ScheduleLLMPlacement, ctx ValidationContext, dailyCapacity float64, providedTopicCount int) ValidationResult {
	result := ValidationResult{}

	dayTotals := map[string]float64{}
	placedDate := map[string]string{}     // topic_id -> date
	placedSeq := map[string]int{}          // topic_id -> sequence_order
	scheduledTopics := map[string]struct{}{}

	for _, p := range placements {
		courseID, knownTopic := ctx.TopicCourse[p.TopicID]
		if !knownTopic {
			result.Errors = append(result.Errors, fmt.Sprintf("unknown topic_id %q", p.TopicID))
			continue
		}
		if p.CourseID != "" && p.CourseID != courseID {
			result.Errors = append(result.Errors, fmt.Sprintf("topic %q placed under course %q but is owned by %q", p.TopicID, p.CourseID, courseID))
		}
		if _, ok := ctx.CourseExam[courseID]; !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("unknown course_id %q for topic %q", courseID, p.TopicID))
			continue
		}
		if _, eligible := ctx.EligibleDates[p.Date]; !eligible {
			result.Errors = append(result.Errors, fmt.Sprintf("topic %q placed on %q, which is not an eligible date", p.TopicID, p.Date))
		}
		if examDate, ok := ctx.CourseExam[courseID]; ok {
			placedDay, err := time.Parse("2006-01-02", p.Date)
			examDay := time.Date(examDate.Year(), examDate.Month(), examDate.Day(), 0, 0, 0, 0, time.UTC)
			if err == nil && !placedDay.Before(examDay) {
				result.Errors = append(result.Errors, fmt.Sprintf("topic %q placed on or after its course's exam date", p.TopicID))
			}
		}

		dayTotals[p.Date] += p.Hours
		placedDate[p.TopicID] = p.Date
		placedSeq[p.TopicID] = p.SequenceOrder
		scheduledTopics[p.TopicID] = struct{}{}
	}

	for topicID, prereqs := range ctx.Prerequisites {
		dependentDate, dependentPlaced := placedDate[topicID]
		if !dependentPlaced {
			continue
		}
		for _, prereqID := range prereqs {
			prereqDate, prereqPlaced := placedDate[prereqID]
			if !prereqPlaced {
				result.Errors = append(result.Errors, fmt.Sprintf("prerequisite %q of topic %q is missing from the schedule", prereqID, topicID))
				continue
			}
			if prereqDate > dependentDate {
				result.Errors = append(result.Errors, fmt.Sprintf("prerequisite %q placed after dependent topic %q", prereqID, topicID))
				continue
			}
			if prereqDate == dependentDate && placedSeq[prereqID] >= placedSeq[topicID] {
				result.Errors = append(result.Errors, fmt.Sprintf("prerequisite %q shares day with dependent %q but does not precede it in sequence_order", prereqID, topicID))
			}
		}
	}

	for date, total := range dayTotals {
		if total > overloadDayMultiple*dailyCapacity {
			result.Warnings = append(result.Warnings, fmt.Sprintf("day %q totals %.2fh, over %.1fx the daily capacity", date, total, overloadDayMultiple))
		}
	}
	if len(scheduledTopics) < providedTopicCount {
		result.Warnings = append(result.Warnings, fmt.Sprintf("only %d of %d provided topics were scheduled", len(scheduledTopics), providedTopicCount))
	}

	return result
}

// Fallback deterministically builds a schedule when the repair result is
// unparseable: it walks the eligible dates in order and, for each day,
// places the highest-priority prerequisite-ready topic from the course with
// the largest remaining urgency share until the daily budget is exhausted
// (spec §4.6).
func (v *ScheduleValidatorService) Fallback(in SchedulerInput, urgencies []CourseUrgency, budgets map[string]float64) []dto.ScheduleLLMPlacement {
	remaining := make(map[string][]models.Topic, len(in.Courses))
	placed := make(map[string]struct{})
	examByCourse := make(map[string]time.Time, len(in.Courses))
	for _, ct := range in.Courses {
		remaining[ct.Course.ID] = OrderTopics(ct.Topics)
		examByCourse[ct.Course.ID] = ct.Course.ExamDate.UTC()
	}

	order := make([]string, len(urgencies))
	for i, u := range urgencies {
		order[i] = u.CourseID
	}
	sort.SliceStable(order, func(i, j int) bool {
		return budgets[order[i]] > budgets[order[j]]
	})

	var placements []dto.ScheduleLLMPlacement

	for _, date := range in.EligibleDates {
		dateStr := v.calendar.Format(date)
		for _, courseID := range order {
			budget := budgets[courseID]
			exam := examByCourse[courseID]
			if !date.Before(exam) {
				continue
			}
			used := 0.0
			seq := 0
			var next []models.Topic
			for _, t := range remaining[courseID] {
				if used >= budget {
					next = append(next, t)
					continue
				}
				if !allPrereqsPlaced(t, topicIndex(remaining[courseID]), placed) {
					next = append(next, t)
					continue
				}
				hours := t.EstimatedHours
				if used+hours > budget {
					hours = budget - used
				}
				if hours < minTopicHours {
					next = append(next, t)
					continue
				}
				placements = append(placements, dto.ScheduleLLMPlacement{
					TopicID:       t.ID,
					CourseID:      courseID,
					Date:          dateStr,
					Hours:         hours,
					SequenceOrder: seq,
				})
				placed[t.ID] = struct{}{}
				used += hours
				seq++
			}
			remaining[courseID] = next
		}
	}

	return placements
}

func topicIndex(topics []models.Topic) map[string]models.Topic {
	idx := make(map[string]models.Topic, len(topics))
	for _, t := range topics {
		idx[t.ID] = t
	}
	return idx
}
