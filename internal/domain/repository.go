package domain

import "context"

// JobStore persists generation jobs keyed by provider run id.
type JobStore interface {
	Insert(ctx context.Context, job *GenerationJob) error
	// UpdateByRunID applies patch only while the job is still pending and
	// returns the number of rows changed (0 or 1).
	UpdateByRunID(ctx context.Context, runID string, patch JobPatch) (int64, error)
	// GetByRunID returns ErrNotFound when no job carries runID.
	GetByRunID(ctx context.Context, runID string) (*GenerationJob, error)
}
