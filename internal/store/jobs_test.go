package store

import (
	"errors"
	"testing"

	"github.com/planweave/planweave/pkg/models"
)

func TestJobLifecycle(t *testing.T) {
	db := setupTestDB(t)
	project := testProject(t, db)

	job, err := db.CreateJob(project.ID, "/docs/requirements.md", false)
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.Status != models.JobStatusQueued {
		t.Errorf("new job status = %q, want queued", job.Status)
	}

	if err := db.MarkProcessing(job.ID); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}

	if err := db.UpdateProgress(job.ID, 30, "Document text extracted"); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
	loaded, err := db.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if loaded.Progress != 30 || loaded.Message != "Document text extracted" {
		t.Errorf("job = progress %d message %q, want 30 / extraction message", loaded.Progress, loaded.Message)
	}

	done := "Created 5 work items from 2 epics of file 'requirements.md'. Breakdown: 2 epics, 2 stories, 1 tasks, 0 subtasks"
	if err := db.CompleteJob(job.ID, done); err != nil {
		t.Fatalf("CompleteJob() error = %v", err)
	}
	loaded, err = db.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if loaded.Status != models.JobStatusDone || loaded.Progress != 100 {
		t.Errorf("job = %q progress %d, want done / 100", loaded.Status, loaded.Progress)
	}
	if loaded.Message != done {
		t.Errorf("job.Message = %q, want completion message preserved", loaded.Message)
	}
}

func TestJobInvalidTransitions(t *testing.T) {
	db := setupTestDB(t)
	project := testProject(t, db)

	job, err := db.CreateJob(project.ID, "/docs/a.txt", false)
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	// Completing a queued job skips processing.
	if err := db.CompleteJob(job.ID, "done"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CompleteJob(queued) error = %v, want ErrInvalidTransition", err)
	}
	// Retrying a queued job makes no sense.
	if err := db.RetryJob(job.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("RetryJob(queued) error = %v, want ErrInvalidTransition", err)
	}
	// Progress updates require a processing job.
	if err := db.UpdateProgress(job.ID, 10, "x"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("UpdateProgress(queued) error = %v, want ErrInvalidTransition", err)
	}
}

func TestJobRetry(t *testing.T) {
	db := setupTestDB(t)
	project := testProject(t, db)

	job, err := db.CreateJob(project.ID, "/docs/a.txt", true)
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := db.MarkProcessing(job.ID); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if err := db.FailJob(job.ID, "provider quota exhausted"); err != nil {
		t.Fatalf("FailJob() error = %v", err)
	}

	loaded, err := db.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if loaded.Status != models.JobStatusFailed {
		t.Fatalf("job.Status = %q, want failed", loaded.Status)
	}
	if !loaded.Minimal {
		t.Error("job.Minimal = false, want true")
	}

	if err := db.RetryJob(job.ID); err != nil {
		t.Fatalf("RetryJob() error = %v", err)
	}
	loaded, err = db.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if loaded.Status != models.JobStatusQueued || loaded.Progress != 0 || loaded.Message != "" {
		t.Errorf("retried job = %+v, want queued with reset progress and message", loaded)
	}
}

func TestNextQueued(t *testing.T) {
	db := setupTestDB(t)
	project := testProject(t, db)

	empty, err := db.NextQueued()
	if err != nil {
		t.Fatalf("NextQueued() error = %v", err)
	}
	if empty != nil {
		t.Errorf("NextQueued() = %+v, want nil on empty queue", empty)
	}

	first, err := db.CreateJob(project.ID, "/docs/first.txt", false)
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if _, err := db.CreateJob(project.ID, "/docs/second.txt", false); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	next, err := db.NextQueued()
	if err != nil {
		t.Fatalf("NextQueued() error = %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Errorf("NextQueued() = %+v, want the oldest job %s", next, first.ID)
	}

	if err := db.MarkProcessing(first.ID); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	next, err = db.NextQueued()
	if err != nil {
		t.Fatalf("NextQueued() error = %v", err)
	}
	if next == nil || next.DocumentPath != "/docs/second.txt" {
		t.Errorf("NextQueued() = %+v, want the second job", next)
	}
}
