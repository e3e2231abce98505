package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExtractionMode controls whether an extraction replaces or appends to a
// course's existing topics.
type ExtractionMode string

const (
	ExtractionModeReplace ExtractionMode = "replace"
	ExtractionModeAppend  ExtractionMode = "append"
)

// ExtractionStatus is the lifecycle state of an ExtractionRun. Transitions
// only ever move forward; there is no path back out of a terminal state.
type ExtractionStatus string

const (
	ExtractionRunning     ExtractionStatus = "running"
	ExtractionCompleted   ExtractionStatus = "completed"
	ExtractionNeedsReview ExtractionStatus = "needs_review"
	ExtractionFailed      ExtractionStatus = "failed"
)

// ExtractionResult is the structured outcome recorded on an ExtractionRun,
// persisted as JSONB alongside the row.
type ExtractionResult struct {
	OriginalTopicCount   int      `json:"original_topic_count"`
	InsertedCount        int      `json:"inserted_count"`
	TruncatedDueToQuota  bool     `json:"truncated_due_to_quota"`
	CyclesDetected       bool     `json:"cycles_detected"`
	ValidationNotes      []string `json:"validation_notes,omitempty"`
	ClarifyingQuestions  []string `json:"clarifying_questions,omitempty"`
	FailureMessage       string   `json:"failure_message,omitempty"`
}

// Value implements driver.Valuer for JSONB persistence.
func (r ExtractionResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB persistence.
func (r *ExtractionResult) Scan(src any) error {
	if src == nil {
		*r = ExtractionResult{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported scan type %T for ExtractionResult", src)
	}
}

// ExtractionRun is a single invocation of the topic extractor, used for
// idempotency, locking, and provenance.
type ExtractionRun struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	FileID    *string          `db:"file_id" json:"file_id,omitempty"`
	InputHash string           `db:"input_hash" json:"input_hash"`
	Mode      ExtractionMode   `db:"mode" json:"mode"`
	Status    ExtractionStatus `db:"status" json:"status"`
	Result    ExtractionResult `db:"result" json:"result"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// IsStale reports whether a running extraction is older than threshold and
// therefore eligible for a forced transition to failed.
func (r *ExtractionRun) IsStale(threshold time.Duration, now time.Time) bool {
	return r.Status == ExtractionRunning && now.Sub(r.CreatedAt) > threshold
}
