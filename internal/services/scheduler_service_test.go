package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"urbanlens/internal/models"
	"urbanlens/internal/store"

	"github.com/lib/pq"
)

func newTestScheduler(jobs JobStore) *SchedulerService {
	return NewSchedulerService(fakeTxRunner{}, jobs, quietLogger(), SchedulerConfig{})
}

func TestCreateJobRejectsDuplicateActive(t *testing.T) {
	jobs := stubJobStore{
		hasActiveFn: func(_ context.Context, _ store.Getter, jobType, associatedID string) (bool, error) {
			return true, nil
		},
	}
	scheduler := newTestScheduler(jobs)
	_, err := scheduler.CreateJob(context.Background(), nil, models.JobTypeLocationBookingPayout, "booking-1", nil, time.Now())
	if err != ErrAlreadyScheduled {
		t.Fatalf("expected ErrAlreadyScheduled, got %v", err)
	}
}

func TestCreateJobRaceFallsBackToUniqueIndex(t *testing.T) {
	// The existence check can miss a concurrent insert; the unique index
	// violation maps to the same error.
	jobs := stubJobStore{
		createFn: func(_ context.Context, _ store.Execer, _ models.ScheduledJob) error {
			return &pq.Error{Code: "23505"}
		},
	}
	scheduler := newTestScheduler(jobs)
	_, err := scheduler.CreateJob(context.Background(), nil, models.JobTypeLocationBookingPayout, "booking-1", nil, time.Now())
	if err != ErrAlreadyScheduled {
		t.Fatalf("expected ErrAlreadyScheduled, got %v", err)
	}
}

func TestCreateJobReturnsPendingJob(t *testing.T) {
	var created models.ScheduledJob
	jobs := stubJobStore{
		createFn: func(_ context.Context, _ store.Execer, job models.ScheduledJob) error {
			created = job
			return nil
		},
	}
	scheduler := newTestScheduler(jobs)
	executeAt := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	job, err := scheduler.CreateJob(context.Background(), nil, models.JobTypeEventPayout, "event-1", []byte(`{}`), executeAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID == "" || job.ID != created.ID {
		t.Fatalf("job id not assigned: %q vs %q", job.ID, created.ID)
	}
	if job.Status != models.JobStatusPending || !job.ExecuteAt.Equal(executeAt) {
		t.Fatalf("unexpected job: %#v", job)
	}
}

func TestCancelJobNotFound(t *testing.T) {
	jobs := stubJobStore{
		cancelFn: func(_ context.Context, _ store.Execer, _ string) (int64, error) {
			return 0, nil
		},
	}
	scheduler := newTestScheduler(jobs)
	err := scheduler.CancelJob(context.Background(), nil, "missing")
	if err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCancelJobNotCancellable(t *testing.T) {
	jobs := stubJobStore{
		cancelFn: func(_ context.Context, _ store.Execer, _ string) (int64, error) {
			return 0, nil
		},
		getByIDFn: func(_ context.Context, _ store.Getter, jobID string) (models.ScheduledJob, error) {
			return models.ScheduledJob{ID: jobID, Status: models.JobStatusCompleted}, nil
		},
	}
	scheduler := newTestScheduler(jobs)
	err := scheduler.CancelJob(context.Background(), nil, "job-1")
	if err != ErrJobNotCancellable {
		t.Fatalf("expected ErrJobNotCancellable, got %v", err)
	}
}

func TestPollDueJobsDispatchesAndCompletes(t *testing.T) {
	job := models.ScheduledJob{ID: "job-1", JobType: models.JobTypeLocationBookingPayout, AssociatedID: "booking-1"}
	var completed, failed []string
	jobs := stubJobStore{
		claimDueFn: func(_ context.Context, _ store.Selecter, now, staleBefore time.Time, limit int) ([]models.ScheduledJob, error) {
			if limit != 50 {
				t.Fatalf("expected default batch size 50, got %d", limit)
			}
			if !staleBefore.Equal(now.Add(-5 * time.Minute)) {
				t.Fatalf("unexpected stale cutoff: now=%v stale=%v", now, staleBefore)
			}
			return []models.ScheduledJob{job}, nil
		},
		markCompletedFn: func(_ context.Context, _ store.Execer, jobID string) (int64, error) {
			completed = append(completed, jobID)
			return 1, nil
		},
		markFailedFn: func(_ context.Context, _ store.Execer, jobID, _ string) (int64, error) {
			failed = append(failed, jobID)
			return 1, nil
		},
	}
	scheduler := newTestScheduler(jobs)
	var handled []models.ScheduledJob
	scheduler.RegisterHandler(models.JobTypeLocationBookingPayout, func(_ context.Context, job models.ScheduledJob) error {
		handled = append(handled, job)
		return nil
	})

	if err := scheduler.PollDueJobs(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handled) != 1 || handled[0].ID != "job-1" {
		t.Fatalf("handler not invoked: %#v", handled)
	}
	if len(completed) != 1 || completed[0] != "job-1" {
		t.Fatalf("job not marked completed: %v", completed)
	}
	if len(failed) != 0 {
		t.Fatalf("job unexpectedly failed: %v", failed)
	}
}

func TestPollDueJobsRecordsHandlerFailure(t *testing.T) {
	job := models.ScheduledJob{ID: "job-1", JobType: models.JobTypeEventPayout, AssociatedID: "event-1"}
	var lastError string
	jobs := stubJobStore{
		claimDueFn: func(_ context.Context, _ store.Selecter, _, _ time.Time, _ int) ([]models.ScheduledJob, error) {
			return []models.ScheduledJob{job}, nil
		},
		markCompletedFn: func(_ context.Context, _ store.Execer, jobID string) (int64, error) {
			t.Fatalf("failed job marked completed")
			return 0, nil
		},
		markFailedFn: func(_ context.Context, _ store.Execer, _, msg string) (int64, error) {
			lastError = msg
			return 1, nil
		},
	}
	scheduler := newTestScheduler(jobs)
	scheduler.RegisterHandler(models.JobTypeEventPayout, func(_ context.Context, _ models.ScheduledJob) error {
		return errors.New("escrow unavailable")
	})

	if err := scheduler.PollDueJobs(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lastError != "escrow unavailable" {
		t.Fatalf("handler error not recorded: %q", lastError)
	}
}

func TestPollDueJobsFailsUnregisteredType(t *testing.T) {
	job := models.ScheduledJob{ID: "job-1", JobType: "UNKNOWN", AssociatedID: "x"}
	var lastError string
	jobs := stubJobStore{
		claimDueFn: func(_ context.Context, _ store.Selecter, _, _ time.Time, _ int) ([]models.ScheduledJob, error) {
			return []models.ScheduledJob{job}, nil
		},
		markFailedFn: func(_ context.Context, _ store.Execer, _, msg string) (int64, error) {
			lastError = msg
			return 1, nil
		},
	}
	scheduler := newTestScheduler(jobs)

	if err := scheduler.PollDueJobs(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lastError != "no handler registered" {
		t.Fatalf("expected unregistered-type failure, got %q", lastError)
	}
}
