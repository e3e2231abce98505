package models

import "time"

// FileStatus tracks an uploaded source file through extraction.
type FileStatus string

const (
	FileUploaded FileStatus = "uploaded"
	FileFailed   FileStatus = "failed"
	FileIngested FileStatus = "ingested"
)

// SourceFile is the ownership/provenance record for an uploaded syllabus
// file. Conversion to text and blob storage are an external collaborator's
// responsibility; the core only needs enough of the record to check
// ownership before handing a file reference to the LLM adapter.
type SourceFile struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	Filename  string     `db:"filename" json:"filename"`
	Status    FileStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
