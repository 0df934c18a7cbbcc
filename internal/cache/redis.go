package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"editorcore/internal/domain"
)

const jobKeyPrefix = "job:run:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis shares job snapshots between API replicas.
type Redis struct {
	client redisClient
	ttl    TTL
}

// NewRedis wraps a go-redis client (or anything with the same Get, Set and
// SetNX methods).
func NewRedis(client redisClient, ttl TTL) *Redis {
	return &Redis{client: client, ttl: ttl}
}

type jobRecord struct {
	ID          string           `json:"id"`
	Kind        domain.JobKind   `json:"kind"`
	RunID       string           `json:"run_id"`
	Status      domain.JobStatus `json:"status"`
	WorkbenchID string           `json:"workbench_id,omitempty"`
	Payload     json.RawMessage  `json:"payload,omitempty"`
	ResultURL   string           `json:"result_url,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func jobKey(runID string) string {
	return fmt.Sprintf("%s%s", jobKeyPrefix, runID)
}

func (c *Redis) Get(ctx context.Context, runID string) (*domain.GenerationJob, bool, error) {
	data, err := c.client.Get(ctx, jobKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", runID, err)
	}
	var rec jobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("decode cached job %s: %w", runID, err)
	}
	return &domain.GenerationJob{
		ID:          rec.ID,
		Kind:        rec.Kind,
		RunID:       rec.RunID,
		Status:      rec.Status,
		WorkbenchID: rec.WorkbenchID,
		Payload:     rec.Payload,
		ResultURL:   rec.ResultURL,
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, true, nil
}

func (c *Redis) Set(ctx context.Context, job *domain.GenerationJob) error {
	if job == nil || job.RunID == "" {
		return nil
	}
	data, err := json.Marshal(jobRecord{
		ID:          job.ID,
		Kind:        job.Kind,
		RunID:       job.RunID,
		Status:      job.Status,
		WorkbenchID: job.WorkbenchID,
		Payload:     job.Payload,
		ResultURL:   job.ResultURL,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	})
	if err != nil {
		return err
	}
	key, ttl := jobKey(job.RunID), c.ttl.For(job.Status)
	if !job.Status.Terminal() {
		// Pending snapshots only fill an empty key so they never replace a
		// resolution written by another replica.
		return c.client.SetNX(ctx, key, data, ttl).Err()
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}
