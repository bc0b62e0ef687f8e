package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planweave/planweave/pkg/models"
)

// ErrInvalidTransition is returned when a job status change is not allowed
// from the job's current state.
var ErrInvalidTransition = errors.New("invalid job status transition")

// CreateJob enqueues a document processing job.
func (db *DB) CreateJob(projectID, documentPath string, minimal bool) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		DocumentPath: documentPath,
		Status:       models.JobStatusQueued,
		Minimal:      minimal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := db.Exec(`
		INSERT INTO jobs (id, project_id, document_path, status, progress, message, minimal, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '', ?, ?, ?)
	`, job.ID, job.ProjectID, job.DocumentPath, string(job.Status),
		boolToInt(job.Minimal), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	return job, nil
}

// GetJob loads a job by id.
func (db *DB) GetJob(id string) (*models.Job, error) {
	row := db.QueryRow(`
		SELECT id, project_id, document_path, status, progress, COALESCE(message, ''), minimal, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)

	job, err := scanJobRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (db *DB) ListJobs() ([]*models.Job, error) {
	rows, err := db.Query(`
		SELECT id, project_id, document_path, status, progress, COALESCE(message, ''), minimal, created_at, updated_at
		FROM jobs ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextQueued returns the oldest queued job, or nil when none are waiting.
func (db *DB) NextQueued() (*models.Job, error) {
	row := db.QueryRow(`
		SELECT id, project_id, document_path, status, progress, COALESCE(message, ''), minimal, created_at, updated_at
		FROM jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1
	`, string(models.JobStatusQueued))

	job, err := scanJobRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// MarkProcessing moves a queued job to processing.
func (db *DB) MarkProcessing(id string) error {
	return db.transition(id, models.JobStatusProcessing, 0, "", models.JobStatusQueued)
}

// UpdateProgress records a progress checkpoint on a processing job.
func (db *DB) UpdateProgress(id string, progress int, message string) error {
	result, err := db.Exec(`
		UPDATE jobs SET progress = ?, message = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, progress, message, formatTime(time.Now().UTC()), id, string(models.JobStatusProcessing))
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return requireAffected(result, id)
}

// CompleteJob moves a processing job to done with its final message.
func (db *DB) CompleteJob(id, message string) error {
	return db.transition(id, models.JobStatusDone, 100, message, models.JobStatusProcessing)
}

// FailJob moves a processing job to failed with the failure message.
func (db *DB) FailJob(id, message string) error {
	return db.transition(id, models.JobStatusFailed, 0, message, models.JobStatusProcessing, models.JobStatusQueued)
}

// RetryJob moves a failed job back to queued for another attempt.
func (db *DB) RetryJob(id string) error {
	return db.transition(id, models.JobStatusQueued, 0, "", models.JobStatusFailed)
}

// transition applies a guarded status change: the update only lands when the
// job is currently in one of the allowed source states.
func (db *DB) transition(id string, to models.JobStatus, progress int, message string, from ...models.JobStatus) error {
	placeholders := ""
	args := []any{string(to), progress, message, formatTime(time.Now().UTC()), id}
	for i, f := range from {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(f))
	}

	result, err := db.Exec(`
		UPDATE jobs SET status = ?, progress = ?, message = ?, updated_at = ?
		WHERE id = ? AND status IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("transition job to %s: %w", to, err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id string) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("job %s: %w", id, ErrInvalidTransition)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*models.Job, error) {
	var job models.Job
	var status, createdAt, updatedAt string
	var minimal int

	err := s.Scan(&job.ID, &job.ProjectID, &job.DocumentPath, &status,
		&job.Progress, &job.Message, &minimal, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.Minimal = minimal != 0

	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse job created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse job updated_at: %w", err)
	}

	return &job, nil
}

func scanJobRow(row *sql.Row) (*models.Job, error) {
	return scanJob(row)
}

func scanJobRows(rows *sql.Rows) (*models.Job, error) {
	job, err := scanJob(rows)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return job, nil
}
