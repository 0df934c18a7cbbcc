// Package cache holds read-through copies of generation jobs keyed by run id.
// The record store stays authoritative; a cache entry may only be stale for
// as long as its TTL.
package cache

import (
	"context"
	"time"

	"editorcore/internal/domain"
)

// JobCache is implemented by the in-process LRU and the redis cache.
type JobCache interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(ctx context.Context, runID string) (job *domain.GenerationJob, ok bool, err error)
	Set(ctx context.Context, job *domain.GenerationJob) error
}

// TTL picks an entry lifetime by job status. Pending entries expire sooner so
// a poll never serves a pending copy for long after the job resolved.
type TTL struct {
	Pending  time.Duration
	Terminal time.Duration
}

// DefaultTTL is used when configuration leaves a value unset.
var DefaultTTL = TTL{Pending: 5 * time.Second, Terminal: 10 * time.Minute}

func (t TTL) For(status domain.JobStatus) time.Duration {
	if status.Terminal() {
		if t.Terminal <= 0 {
			return DefaultTTL.Terminal
		}
		return t.Terminal
	}
	if t.Pending <= 0 {
		return DefaultTTL.Pending
	}
	return t.Pending
}

// Tiered checks front before back and fills front on a back hit.
type Tiered struct {
	Front JobCache
	Back  JobCache
}

func (t Tiered) Get(ctx context.Context, runID string) (*domain.GenerationJob, bool, error) {
	if job, ok, err := t.Front.Get(ctx, runID); err == nil && ok {
		return job, true, nil
	}
	job, ok, err := t.Back.Get(ctx, runID)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.Front.Set(ctx, job)
	return job, true, nil
}

func (t Tiered) Set(ctx context.Context, job *domain.GenerationJob) error {
	if err := t.Front.Set(ctx, job); err != nil {
		return err
	}
	return t.Back.Set(ctx, job)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.GenerationJob, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, *domain.GenerationJob) error                 { return nil }
