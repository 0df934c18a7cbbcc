package repo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"editorcore/internal/domain"
)

// JobRepositoryMemory keeps jobs in a map. It backs tests and single-process
// demos where no database is configured.
type JobRepositoryMemory struct {
	mu     sync.Mutex
	byRun  map[string]*domain.GenerationJob
	writes atomic.Int64
}

func NewJobRepositoryMemory() *JobRepositoryMemory {
	return &JobRepositoryMemory{byRun: make(map[string]*domain.GenerationJob)}
}

func (r *JobRepositoryMemory) Insert(_ context.Context, job *domain.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byRun[job.RunID]; exists {
		return fmt.Errorf("insert job %s: duplicate run id", job.RunID)
	}
	r.byRun[job.RunID] = job.Clone()
	r.writes.Add(1)
	return nil
}

func (r *JobRepositoryMemory) UpdateByRunID(_ context.Context, runID string, patch domain.JobPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byRun[runID]
	if !ok || job.Status != domain.JobStatusPending {
		return 0, nil
	}
	job.Status = patch.Status
	job.ResultURL = patch.ResultURL
	job.Error = patch.Error
	job.UpdatedAt = patch.UpdatedAt
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now().UTC()
	}
	r.writes.Add(1)
	return 1, nil
}

func (r *JobRepositoryMemory) GetByRunID(_ context.Context, runID string) (*domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byRun[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// Writes counts successful inserts and updates.
func (r *JobRepositoryMemory) Writes() int64 {
	return r.writes.Load()
}

var _ domain.JobStore = (*JobRepositoryMemory)(nil)
