package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"urbanlens/internal/models"
)

func TestJobStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO scheduled_jobs") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 6 {
				t.Fatalf("expected 6 args, got %d", len(args))
			}
			if args[1] != models.JobTypeLocationBookingPayout || args[4] != "booking-1" || args[5] != models.JobStatusPending {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewJobStore(stubDB{})
	err := store.Create(ctx, execer, models.ScheduledJob{
		ID:           "job-1",
		JobType:      models.JobTypeLocationBookingPayout,
		ExecuteAt:    time.Now(),
		AssociatedID: "booking-1",
		Status:       models.JobStatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJobStoreClaimDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-5 * time.Minute)
	selecter := stubSelecter{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE SKIP LOCKED") {
				t.Fatalf("expected skip-locked claim, got: %s", query)
			}
			if !strings.Contains(query, "SET claimed_at = $1") {
				t.Fatalf("expected claimed_at stamp, got: %s", query)
			}
			if args[0] != now || args[2] != stale || args[3] != 10 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]models.ScheduledJob) = []models.ScheduledJob{{ID: "job-1"}}
			return nil
		},
	}
	store := NewJobStore(stubDB{})
	jobs, err := store.ClaimDue(ctx, selecter, now, stale, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		t.Fatalf("unexpected jobs: %#v", jobs)
	}
}

func TestJobStoreCancelOnlyPending(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "AND status = $3") {
				t.Fatalf("expected status guard, got: %s", query)
			}
			if args[0] != models.JobStatusCancelled || args[2] != models.JobStatusPending {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewJobStore(stubDB{})
	rows, err := store.Cancel(ctx, execer, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected no rows for non-pending job, got %d", rows)
	}
}

func TestJobStoreMarkFailedKeepsError(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "last_error = $2") {
				t.Fatalf("expected last_error write, got: %s", query)
			}
			if args[1] != "boom" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewJobStore(stubDB{})
	rows, err := store.MarkFailed(ctx, execer, "job-1", "boom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
}

func TestJobStoreGetByIDReadsThroughGetter(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM scheduled_jobs") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != "job-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.ScheduledJob) = models.ScheduledJob{ID: "job-1", Status: models.JobStatusPending}
			return nil
		},
	}
	store := NewJobStore(stubDB{})
	job, err := store.GetByID(ctx, getter, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID != "job-1" {
		t.Fatalf("unexpected job: %#v", job)
	}
}

func TestJobStoreHasActive(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "SELECT EXISTS") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != models.JobTypeEventPayout || args[1] != "event-1" || args[2] != models.JobStatusPending {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*bool) = true
			return nil
		},
	}
	store := NewJobStore(stubDB{})
	active, err := store.HasActive(ctx, getter, models.JobTypeEventPayout, "event-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Fatalf("expected active job")
	}
}
