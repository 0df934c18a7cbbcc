// Package ledger owns the lifecycle of generation jobs: creation after a
// successful dispatch and the single pending-to-terminal transition.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"editorcore/internal/cache"
	"editorcore/internal/domain"
	"editorcore/internal/events"
)

// Dispatcher starts a job on the external compute provider and returns the
// provider's run id.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind domain.JobKind, payload json.RawMessage) (runID string, err error)
}

// SubmitRequest describes a generation job to start.
type SubmitRequest struct {
	Kind        domain.JobKind
	Payload     json.RawMessage
	WorkbenchID string
}

// Outcome is the terminal result reported for a run.
type Outcome struct {
	Status    domain.JobStatus
	ResultURL string
	Error     string
}

// Resolution reports what Resolve did. Conflict is set when the job was
// already terminal and the outcome was discarded.
type Resolution struct {
	Applied  bool
	Conflict bool
	Job      *domain.GenerationJob
}

// Ledger records dispatched jobs and applies their single terminal
// transition through the store's conditional update.
type Ledger struct {
	store      domain.JobStore
	dispatcher Dispatcher
	cache      cache.JobCache
	publisher  events.Publisher
	log        zerolog.Logger
	now        func() time.Time
	newID      func() string
	lookups    singleflight.Group
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCache puts a read-through job cache in front of the store.
func WithCache(c cache.JobCache) Option {
	return func(l *Ledger) { l.cache = c }
}

// WithPublisher sets where job.resolved events go.
func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithLogger sets the ledger's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New builds a Ledger with a no-op cache and publisher unless options say
// otherwise.
func New(store domain.JobStore, dispatcher Dispatcher, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		dispatcher: dispatcher,
		cache:      cache.Nop{},
		publisher:  events.Nop{},
		log:        zerolog.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit dispatches the job and records it as pending. Nothing is persisted
// when dispatch fails.
func (l *Ledger) Submit(ctx context.Context, req SubmitRequest) (*domain.GenerationJob, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidArgument, req.Kind)
	}
	payload := req.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", domain.ErrInvalidArgument)
	}

	runID, err := l.dispatcher.Dispatch(ctx, req.Kind, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDispatchFailure, err)
	}
	if runID == "" {
		return nil, fmt.Errorf("%w: provider returned no run id", domain.ErrDispatchFailure)
	}

	now := l.now()
	job := &domain.GenerationJob{
		ID:          l.newID(),
		Kind:        req.Kind,
		RunID:       runID,
		Status:      domain.JobStatusPending,
		WorkbenchID: req.WorkbenchID,
		Payload:     payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.Insert(ctx, job); err != nil {
		l.log.Error().Err(err).Str("run_id", runID).Str("kind", string(req.Kind)).Msg("dispatched job could not be recorded")
		return nil, fmt.Errorf("record job: %w", err)
	}

	l.remember(ctx, job)
	l.log.Info().Str("job_id", job.ID).Str("run_id", runID).Str("kind", string(job.Kind)).Msg("job submitted")
	return job, nil
}

// Resolve moves a pending job to the outcome's terminal status. It is the
// only mutation path and is safe to call repeatedly: the first terminal write
// wins and later ones report a conflict.
func (l *Ledger) Resolve(ctx context.Context, runID string, out Outcome) (*Resolution, error) {
	if !out.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %q is not terminal", domain.ErrInvalidArgument, out.Status)
	}
	patch := domain.JobPatch{
		Status:    out.Status,
		ResultURL: out.ResultURL,
		Error:     out.Error,
		UpdatedAt: l.now(),
	}
	if out.Status == domain.JobStatusSuccess {
		patch.Error = ""
	}

	n, err := l.store.UpdateByRunID(ctx, runID, patch)
	if err != nil {
		return nil, err
	}

	job, err := l.store.GetByRunID(ctx, runID)
	if n == 0 {
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
			}
			return nil, err
		}
		if !job.Status.Terminal() {
			return nil, fmt.Errorf("run %s: pending job was not updated", runID)
		}
		l.log.Warn().
			Err(domain.ErrReconciliationConflict).
			Str("run_id", runID).
			Str("status", string(job.Status)).
			Str("incoming_status", string(out.Status)).
			Msg("outcome for terminal job discarded")
		return &Resolution{Conflict: true, Job: job}, nil
	}

	if err != nil {
		l.log.Error().Err(err).Str("run_id", runID).Msg("resolved job could not be re-read")
		job = l.patchCached(ctx, runID, patch)
	} else {
		l.remember(ctx, job)
	}
	if err := l.publisher.Publish(ctx, events.Resolved(job)); err != nil {
		l.log.Warn().Err(err).Str("run_id", runID).Msg("job.resolved event not published")
	}
	l.log.Info().Str("job_id", job.ID).Str("run_id", runID).Str("status", string(job.Status)).Msg("job resolved")
	return &Resolution{Applied: true, Job: job}, nil
}

// Lookup returns the current job state without contacting the provider.
func (l *Ledger) Lookup(ctx context.Context, runID string) (*domain.GenerationJob, error) {
	if job, ok, err := l.cache.Get(ctx, runID); err != nil {
		l.log.Warn().Err(err).Str("run_id", runID).Msg("job cache read failed")
	} else if ok {
		return job, nil
	}

	v, err, _ := l.lookups.Do(runID, func() (any, error) {
		job, err := l.store.GetByRunID(ctx, runID)
		if err != nil {
			return nil, err
		}
		l.remember(ctx, job)
		return job, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
		}
		return nil, err
	}
	return v.(*domain.GenerationJob).Clone(), nil
}

// patchCached rebuilds an applied resolution when the store cannot be
// re-read. A cached copy gets the patch applied and replaces the pending
// entry; without one only the run-level fields are known and nothing is
// cached.
func (l *Ledger) patchCached(ctx context.Context, runID string, patch domain.JobPatch) *domain.GenerationJob {
	job, ok, err := l.cache.Get(ctx, runID)
	if err != nil || !ok {
		return &domain.GenerationJob{
			RunID:     runID,
			Status:    patch.Status,
			ResultURL: patch.ResultURL,
			Error:     patch.Error,
			UpdatedAt: patch.UpdatedAt,
		}
	}
	job.Status = patch.Status
	job.ResultURL = patch.ResultURL
	job.Error = patch.Error
	job.UpdatedAt = patch.UpdatedAt
	l.remember(ctx, job)
	return job
}

func (l *Ledger) remember(ctx context.Context, job *domain.GenerationJob) {
	if err := l.cache.Set(ctx, job); err != nil {
		l.log.Warn().Err(err).Str("run_id", job.RunID).Msg("job cache write failed")
	}
}
