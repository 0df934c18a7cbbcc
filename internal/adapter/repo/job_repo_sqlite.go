package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"editorcore/internal/domain"
	"editorcore/internal/sqlinline"
)

// JobRepositorySQLite implements domain.JobStore on the embedded database
// opened by infra.OpenSQLite.
type JobRepositorySQLite struct {
	db *sql.DB
}

// NewJobRepositorySQLite wraps a handle from infra.OpenSQLite.
func NewJobRepositorySQLite(db *sql.DB) *JobRepositorySQLite {
	return &JobRepositorySQLite{db: db}
}

func (r *JobRepositorySQLite) Insert(ctx context.Context, job *domain.GenerationJob) error {
	payload := string(job.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := r.db.ExecContext(ctx, sqlinline.QInsertGenerationJobSQLite, job.ID, string(job.Kind), job.RunID, string(job.Status), job.WorkbenchID, payload,
		job.ResultURL, job.Error, formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.RunID, err)
	}
	return nil
}

func (r *JobRepositorySQLite) UpdateByRunID(ctx context.Context, runID string, patch domain.JobPatch) (int64, error) {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, sqlinline.QResolveGenerationJobSQLite, string(patch.Status), patch.ResultURL, patch.Error, formatTime(updatedAt), runID)
	if err != nil {
		return 0, fmt.Errorf("resolve job %s: %w", runID, err)
	}
	return res.RowsAffected()
}

func (r *JobRepositorySQLite) GetByRunID(ctx context.Context, runID string) (*domain.GenerationJob, error) {
	row := r.db.QueryRowContext(ctx, sqlinline.QSelectGenerationJobByRunIDSQLite, runID)

	var (
		job                  domain.GenerationJob
		kind, status         string
		payload              string
		createdAt, updatedAt string
	)
	err := row.Scan(&job.ID, &kind, &job.RunID, &status, &job.WorkbenchID, &payload,
		&job.ResultURL, &job.Error, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", runID, err)
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.Payload = []byte(payload)
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return &job, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

var _ domain.JobStore = (*JobRepositorySQLite)(nil)
