package services

import (
	"context"
	"errors"
	"time"

	"urbanlens/internal/db"
	"urbanlens/internal/metrics"
	"urbanlens/internal/models"
	"urbanlens/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// JobHandler executes one claimed job. Handlers must be idempotent: a crash
// between execution and the terminal status write means the job runs again.
type JobHandler func(ctx context.Context, job models.ScheduledJob) error

type JobStore interface {
	Create(ctx context.Context, tx store.Execer, job models.ScheduledJob) error
	GetByID(ctx context.Context, q store.Getter, jobID string) (models.ScheduledJob, error)
	HasActive(ctx context.Context, q store.Getter, jobType, associatedID string) (bool, error)
	Cancel(ctx context.Context, tx store.Execer, jobID string) (int64, error)
	ClaimDue(ctx context.Context, tx store.Selecter, now, staleBefore time.Time, limit int) ([]models.ScheduledJob, error)
	MarkCompleted(ctx context.Context, tx store.Execer, jobID string) (int64, error)
	MarkFailed(ctx context.Context, tx store.Execer, jobID, lastError string) (int64, error)
}

type SchedulerConfig struct {
	// ClaimTimeout is how long a claim shields a job from other pollers.
	ClaimTimeout time.Duration
	// HandlerTimeout bounds a single handler execution.
	HandlerTimeout time.Duration
	// BatchSize caps how many jobs one poll claims.
	BatchSize int
}

// SchedulerService persists one-shot jobs and dispatches the due ones to
// registered handlers with at-least-once semantics.
type SchedulerService struct {
	txRunner db.TxRunner
	jobs     JobStore
	handlers map[string]JobHandler
	logger   *logrus.Logger
	cfg      SchedulerConfig
}

func NewSchedulerService(txRunner db.TxRunner, jobs JobStore, logger *logrus.Logger, cfg SchedulerConfig) *SchedulerService {
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 5 * time.Minute
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &SchedulerService{
		txRunner: txRunner,
		jobs:     jobs,
		handlers: make(map[string]JobHandler),
		logger:   logger,
		cfg:      cfg,
	}
}

// RegisterHandler binds a job type to its handler. Call before polling starts.
func (s *SchedulerService) RegisterHandler(jobType string, handler JobHandler) {
	s.handlers[jobType] = handler
}

// CreateJob schedules a one-shot job, joining the caller's transaction when
// one is given so the job commits or rolls back with the business change that
// requires it. At most one PENDING job per (job_type, associated_id) may
// exist; the database index enforces this even across concurrent creators.
func (s *SchedulerService) CreateJob(ctx context.Context, callerTx *sqlx.Tx, jobType, associatedID string, payload []byte, executeAt time.Time) (models.ScheduledJob, error) {
	job := models.ScheduledJob{
		ID:           uuid.NewString(),
		JobType:      jobType,
		Payload:      payload,
		ExecuteAt:    executeAt.UTC(),
		AssociatedID: associatedID,
		Status:       models.JobStatusPending,
	}
	err := s.txRunner.WithinTx(ctx, callerTx, func(tx *sqlx.Tx) error {
		active, err := s.jobs.HasActive(ctx, tx, jobType, associatedID)
		if err != nil {
			return err
		}
		if active {
			return ErrAlreadyScheduled
		}
		return s.jobs.Create(ctx, tx, job)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.ScheduledJob{}, ErrAlreadyScheduled
		}
		return models.ScheduledJob{}, err
	}
	return job, nil
}

// CancelJob withdraws a PENDING job. A job that already ran, failed or was
// cancelled is not cancellable.
func (s *SchedulerService) CancelJob(ctx context.Context, callerTx *sqlx.Tx, jobID string) error {
	return s.txRunner.WithinTx(ctx, callerTx, func(tx *sqlx.Tx) error {
		moved, err := s.jobs.Cancel(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if moved == 1 {
			return nil
		}
		if _, err := s.jobs.GetByID(ctx, tx, jobID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		return ErrJobNotCancellable
	})
}

// PollDueJobs claims one batch of due jobs and runs them. The claim commits
// before any handler runs, so a handler crash leaves a claimed PENDING row
// that becomes reclaimable after ClaimTimeout. Terminal statuses are written
// in their own transactions: a handler that committed money movements must
// not have its completion undone by an unrelated rollback.
func (s *SchedulerService) PollDueJobs(ctx context.Context) error {
	now := time.Now().UTC()
	var claimed []models.ScheduledJob
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.jobs.ClaimDue(ctx, tx, now, now.Add(-s.cfg.ClaimTimeout), s.cfg.BatchSize)
		if err != nil {
			return err
		}
		claimed = rows
		return nil
	})
	if err != nil {
		return err
	}
	for _, job := range claimed {
		s.dispatch(ctx, job)
	}
	return nil
}

func (s *SchedulerService) dispatch(ctx context.Context, job models.ScheduledJob) {
	log := s.logger.WithFields(logrus.Fields{
		"job_id":        job.ID,
		"job_type":      job.JobType,
		"associated_id": job.AssociatedID,
	})
	handler, ok := s.handlers[job.JobType]
	if !ok {
		log.Error("no handler registered for job type")
		s.finish(ctx, job, errors.New("no handler registered"))
		return
	}
	handlerCtx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	started := time.Now()
	err := handler(handlerCtx, job)
	cancel()
	metrics.ObserveJob(job.JobType, statusLabel(err), time.Since(started))
	if err != nil {
		log.WithError(err).Error("job handler failed")
	}
	s.finish(ctx, job, err)
}

// finish records the terminal status, retrying a few times so a transient
// database error does not leave a completed job claimable again.
func (s *SchedulerService) finish(ctx context.Context, job models.ScheduledJob, handlerErr error) {
	for attempt := 0; attempt < 3; attempt++ {
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if handlerErr != nil {
				_, err := s.jobs.MarkFailed(ctx, tx, job.ID, handlerErr.Error())
				return err
			}
			_, err := s.jobs.MarkCompleted(ctx, tx, job.ID)
			return err
		})
		if err == nil {
			return
		}
		s.logger.WithError(err).WithField("job_id", job.ID).
			Warn("failed to record job status, retrying")
		db.SleepWithBackoff(attempt)
	}
	s.logger.WithField("job_id", job.ID).
		Error("could not record terminal job status, job will be re-dispatched")
}

func statusLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "completed"
}
