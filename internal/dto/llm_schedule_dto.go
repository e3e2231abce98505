package dto

import "github.com/brightpath/studyplan-core/internal/models"

// ScheduleLLMCourse describes one course's pending topics as sent to the
// generative model for placement (spec §4.5 "Schedule request to the LLM").
type ScheduleLLMCourse struct {
	CourseID    string             `json:"course_id"`
	Title       string             `json:"title"`
	ExamDate    string             `json:"exam_date"`
	DateCeiling string             `json:"date_ceiling"`
	Topics      []ScheduleLLMTopic `json:"topics"`
}

// ScheduleLLMTopic is a single topic offered to the model for placement.
type ScheduleLLMTopic struct {
	TopicID        string   `json:"topic_id"`
	Title          string   `json:"title"`
	DifficultyW    int      `json:"difficulty_weight"`
	ExamImportance int      `json:"exam_importance"`
	EstimatedHours float64  `json:"estimated_hours"`
	Prerequisites  []string `json:"prerequisites"`
}

// ScheduleLLMRequest is the full payload handed to the LLM Adapter to
// produce a schedule proposal.
type ScheduleLLMRequest struct {
	Today               string              `json:"today"`
	EligibleDates       []string            `json:"eligible_dates"`
	DailyCapacity       float64             `json:"daily_capacity"`
	Courses             []ScheduleLLMCourse `json:"courses"`
	TotalRequiredHours  float64             `json:"total_required_hours"`
	TotalAvailableHours float64             `json:"total_available_hours"`
	Reschedule          bool                `json:"reschedule,omitempty"`
	MissedTopicIDs      []string            `json:"missed_topic_ids,omitempty"`
}

// ScheduleLLMPlacement is a single proposed placement as parsed back from
// the model's JSON response.
type ScheduleLLMPlacement struct {
	TopicID       string  `json:"topic_id"`
	CourseID      string  `json:"course_id"`
	Date          string  `json:"date"`
	Hours         float64 `json:"hours"`
	SequenceOrder int     `json:"sequence_order"`
	IsReview      bool    `json:"is_review"`
}

// ScheduleLLMResponse is the model's proposed schedule before validation.
type ScheduleLLMResponse struct {
	Placements []ScheduleLLMPlacement `json:"placements"`
}

// ExtractionLLMResponse is the model's raw extraction output before
// sanitization. Topics reuse models.RawTopic directly: its fields are
// already untyped (any) so the sanitizer can coerce and clamp rather than
// rejecting a whole response on a single bad field.
type ExtractionLLMResponse struct {
	Topics              []models.RawTopic `json:"topics"`
	ClarifyingQuestions []string          `json:"clarifying_questions,omitempty"`
}
