package models

import "time"

// JobStatus represents the lifecycle state of a document processing job.
type JobStatus string

const (
	// JobStatusQueued indicates the job is waiting to be processed.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates the job is actively running.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusDone indicates the job completed successfully.
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates the job terminated with an error.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusDone, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job is a persisted document processing job. One job is created per
// document per pipeline run.
type Job struct {
	// ID is the unique job identifier.
	ID string `json:"id"`
	// ProjectID is the project the resulting work items belong to.
	ProjectID string `json:"project_id"`
	// DocumentPath is the source document location.
	DocumentPath string `json:"document_path"`
	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`
	// Progress is the completion percentage, 0-100.
	Progress int `json:"progress"`
	// Message holds the terminal completion summary or error message.
	Message string `json:"message,omitempty"`
	// Minimal indicates the job runs with reduced item caps.
	Minimal bool `json:"minimal,omitempty"`
	// CreatedAt is when the job was enqueued.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the job was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}
