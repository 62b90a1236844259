package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/jobs"
	"github.com/noah-isme/duetable-api/pkg/lmsproxy"
)

const finishedJobType = "finished_write"

type finishedWriter interface {
	UpdateFinished(ctx context.Context, update lmsproxy.FinishedUpdate) error
}

// OverridePersister stores confirmed finished flags.
type OverridePersister interface {
	Upsert(ctx context.Context, override *models.FinishedOverride) error
}

type sessionReader interface {
	Current() models.Session
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (string, error)
}

// PendingToggle tracks one optimistic toggle until its remote write settles.
type PendingToggle struct {
	AssignmentID string `json:"assignmentId"`
	IfFinished   bool   `json:"ifFinished"`
	JobID        string `json:"jobId"`

	previous bool
	update   lmsproxy.FinishedUpdate
	done     chan struct{}
	err      error
}

// Wait blocks until the remote write settled and returns its error. A
// rejected write has already been rolled back when Wait returns.
func (p *PendingToggle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return p.err
	}
}

func (p *PendingToggle) settle(err error) {
	p.err = err
	close(p.done)
}

// FinishedReconciler applies finished toggles locally at once and reconciles
// them with the backend in the background.
type FinishedReconciler struct {
	store        *AssignmentStore
	session      sessionReader
	writer       finishedWriter
	persister    OverridePersister
	metrics      *MetricsService
	logger       *zap.Logger
	writeTimeout time.Duration

	mu    sync.Mutex
	queue jobEnqueuer
}

// NewFinishedReconciler constructs a reconciler. persister may be nil.
func NewFinishedReconciler(store *AssignmentStore, session sessionReader, writer finishedWriter, persister OverridePersister, metrics *MetricsService, logger *zap.Logger) *FinishedReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinishedReconciler{
		store:        store,
		session:      session,
		writer:       writer,
		persister:    persister,
		metrics:      metrics,
		logger:       logger,
		writeTimeout: 30 * time.Second,
	}
}

// NewQueue builds the write queue and binds it to the reconciler. Writes are
// never retried: a rejected write is rolled back.
func (r *FinishedReconciler) NewQueue(cfg jobs.QueueConfig) *jobs.Queue {
	cfg.MaxRetries = 0
	cfg.OnFailure = r.rollback
	if cfg.Logger == nil {
		cfg.Logger = r.logger
	}
	q := jobs.NewQueue("finished-writes", r.handle, cfg)
	r.UseQueue(q)
	return q
}

// UseQueue swaps the queue writes are dispatched through.
func (r *FinishedReconciler) UseQueue(q jobEnqueuer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = q
}

// Toggle flips the finished flag of one assignment and schedules the remote
// write. The returned toggle already carries the new local value.
func (r *FinishedReconciler) Toggle(ctx context.Context, assignmentID string) (*PendingToggle, error) {
	session := r.session.Current()
	creds, ok := session.Credentials()
	if !ok {
		return nil, appErrors.ErrNoSession
	}
	assignment, previous, found := r.store.ToggleOverride(assignmentID)
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", assignmentID))
	}

	numericID := assignment.AssignmentID
	if numericID == 0 {
		if parsed, err := strconv.ParseInt(models.NormalizeID(assignment.ID), 10, 64); err == nil {
			numericID = parsed
		}
	}

	next := !assignment.IfFinished
	pending := &PendingToggle{
		AssignmentID: assignment.ID,
		IfFinished:   next,
		previous:     previous,
		update: lmsproxy.FinishedUpdate{
			AssignmentID: numericID,
			Term:         session.SelectedSemester,
			Email:        creds.Email,
			IfFinished:   next,
		},
		done: make(chan struct{}),
	}

	r.mu.Lock()
	queue := r.queue
	r.mu.Unlock()
	if queue == nil {
		r.rollback(jobs.Job{Payload: pending}, fmt.Errorf("no write queue"))
		return nil, appErrors.Clone(appErrors.ErrReconcile, "finished status writer unavailable")
	}

	jobID, err := queue.Enqueue(jobs.Job{Type: finishedJobType, Payload: pending})
	if err != nil {
		r.rollback(jobs.Job{Payload: pending}, err)
		return nil, appErrors.Wrap(err, appErrors.ErrReconcile.Code, appErrors.ErrReconcile.Status, "finished status update not scheduled")
	}
	pending.JobID = jobID
	r.logger.Debug("finished toggle scheduled", zap.String("assignment_id", pending.AssignmentID), zap.Bool("if_finished", next), zap.String("job_id", jobID))
	return pending, nil
}

func (r *FinishedReconciler) handle(ctx context.Context, job jobs.Job) error {
	pending, ok := job.Payload.(*PendingToggle)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	if err := r.writer.UpdateFinished(writeCtx, pending.update); err != nil {
		return appErrors.Wrap(err, appErrors.ErrReconcile.Code, appErrors.ErrReconcile.Status, err.Error())
	}

	r.metrics.RecordReconcile(OutcomeOK)
	if r.persister != nil {
		override := &models.FinishedOverride{
			AssignmentID: models.NormalizeID(pending.AssignmentID),
			Term:         pending.update.Term,
			Email:        pending.update.Email,
			Finished:     pending.IfFinished,
		}
		if err := r.persister.Upsert(writeCtx, override); err != nil {
			r.logger.Warn("persist finished override failed", zap.String("assignment_id", override.AssignmentID), zap.Error(err))
		}
	}
	pending.settle(nil)
	return nil
}

func (r *FinishedReconciler) rollback(job jobs.Job, cause error) {
	pending, ok := job.Payload.(*PendingToggle)
	if !ok {
		r.logger.Error("finished write failed with unexpected payload", zap.String("job_id", job.ID), zap.Error(cause))
		return
	}
	reverted := r.store.RevertOverride(pending.AssignmentID, pending.IfFinished, pending.previous)
	r.metrics.RecordReconcile(OutcomeRolledBack)
	r.logger.Error("finished status update failed",
		zap.String("assignment_id", pending.AssignmentID),
		zap.Bool("if_finished", pending.IfFinished),
		zap.Bool("reverted", reverted),
		zap.Error(cause))
	pending.settle(appErrors.FromError(cause))
}
