package dto

import "github.com/brightpath/studyplan-core/internal/models"

// ExtractRequest is the wire shape of the Extract Topics request (spec §6.1).
type ExtractRequest struct {
	CourseID        string                `json:"courseId" validate:"required"`
	Text            string                `json:"text" validate:"required"`
	FileID          *string               `json:"fileId,omitempty"`
	Mode            models.ExtractionMode `json:"mode"`
	ExtractionRunID *string               `json:"extractionRunId,omitempty"`
}

// ExtractResponse is the wire shape of a successful (or in-progress) Extract
// Topics response.
type ExtractResponse struct {
	Success             bool     `json:"success"`
	JobID               string   `json:"job_id"`
	TopicsCount         int      `json:"topics_count"`
	NeedsReview         bool     `json:"needs_review"`
	Questions           []string `json:"questions"`
	CourseTitle         string   `json:"course_title"`
	Mode                string   `json:"mode"`
	ExtractionRunID     string   `json:"extraction_run_id"`
	TruncatedDueToQuota bool     `json:"truncated_due_to_quota"`
	CyclesDetected      bool     `json:"cycles_detected"`
	Status              string   `json:"status,omitempty"`
}
