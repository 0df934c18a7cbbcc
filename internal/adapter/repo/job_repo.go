package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"editorcore/internal/domain"
	"editorcore/internal/infra"
	"editorcore/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobStore on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Insert persists a new job record.
func (r *JobRepositoryPG) Insert(ctx context.Context, job *domain.GenerationJob) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGenerationJob,
		job.ID,
		string(job.Kind),
		job.RunID,
		string(job.Status),
		job.WorkbenchID,
		nullableBytes(job.Payload),
		job.ResultURL,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.RunID, err)
	}
	return nil
}

// UpdateByRunID applies patch when the job is still pending.
func (r *JobRepositoryPG) UpdateByRunID(ctx context.Context, runID string, patch domain.JobPatch) (int64, error) {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QResolveGenerationJob,
		runID,
		string(patch.Status),
		patch.ResultURL,
		patch.Error,
		updatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("resolve job %s: %w", runID, err)
	}
	return tag.RowsAffected(), nil
}

// GetByRunID fetches a job by provider run id.
func (r *JobRepositoryPG) GetByRunID(ctx context.Context, runID string) (*domain.GenerationJob, error) {
	var (
		job    domain.GenerationJob
		kind   string
		status string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectGenerationJobByRunID, runID).Scan(
		&job.ID,
		&kind,
		&job.RunID,
		&status,
		&job.WorkbenchID,
		&job.Payload,
		&job.ResultURL,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", runID, err)
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
