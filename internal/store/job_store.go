package store

import (
	"context"
	"time"

	"urbanlens/internal/models"
)

type JobStore struct {
	db DB
}

func NewJobStore(db DB) *JobStore {
	return &JobStore{db: db}
}

// Create relies on the partial unique index over (job_type, associated_id)
// WHERE status = 'PENDING' as the authoritative at-most-one-active-job guard;
// callers map the unique violation to AlreadyScheduled.
func (s *JobStore) Create(ctx context.Context, tx Execer, job models.ScheduledJob) error {
	query := `
		INSERT INTO scheduled_jobs (id, job_type, payload, execute_at, associated_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		job.ID, job.JobType, job.Payload, job.ExecuteAt, job.AssociatedID, job.Status,
	)
	return err
}

// GetByID reads through the caller's transaction so a job created in the same
// uncommitted unit of work is still visible.
func (s *JobStore) GetByID(ctx context.Context, q Getter, jobID string) (models.ScheduledJob, error) {
	var row models.ScheduledJob
	err := q.GetContext(ctx, &row, jobSelect+` WHERE id = $1`, jobID)
	if err != nil {
		return models.ScheduledJob{}, mapNoRows(err)
	}
	return row, nil
}

func (s *JobStore) HasActive(ctx context.Context, q Getter, jobType, associatedID string) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM scheduled_jobs
			WHERE job_type = $1 AND associated_id = $2 AND status = $3
		)
	`, jobType, associatedID, models.JobStatusPending)
	return exists, err
}

// Cancel is only valid while the job is still PENDING; returns the number of
// rows moved so callers can distinguish a lost race from success.
func (s *JobStore) Cancel(ctx context.Context, tx Execer, jobID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET status = $1, completed_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.JobStatusCancelled, jobID, models.JobStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClaimDue stamps claimed_at on due PENDING jobs and returns them. SKIP
// LOCKED keeps concurrent pollers from claiming the same row; a stale claim
// (handler crashed mid-flight) becomes reclaimable once staleBefore passes
// it, which is what makes dispatch at-least-once.
func (s *JobStore) ClaimDue(ctx context.Context, tx Selecter, now, staleBefore time.Time, limit int) ([]models.ScheduledJob, error) {
	var rows []models.ScheduledJob
	err := tx.SelectContext(ctx, &rows, `
		UPDATE scheduled_jobs
		SET claimed_at = $1
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE status = $2
			  AND execute_at <= $1
			  AND (claimed_at IS NULL OR claimed_at < $3)
			ORDER BY execute_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_type, payload, execute_at, associated_id, status,
		          claimed_at, completed_at, last_error, created_at
	`, now, models.JobStatusPending, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *JobStore) MarkCompleted(ctx context.Context, tx Execer, jobID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET status = $1, completed_at = NOW(), last_error = NULL
		WHERE id = $2 AND status = $3
	`, models.JobStatusCompleted, jobID, models.JobStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *JobStore) MarkFailed(ctx context.Context, tx Execer, jobID, lastError string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET status = $1, completed_at = NOW(), last_error = $2
		WHERE id = $3 AND status = $4
	`, models.JobStatusFailed, lastError, jobID, models.JobStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const jobSelect = `
	SELECT id, job_type, payload, execute_at, associated_id, status,
	       claimed_at, completed_at, last_error, created_at
	FROM scheduled_jobs
`
