package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"editorcore/internal/domain"
)

func job(runID string, status domain.JobStatus) *domain.GenerationJob {
	return &domain.GenerationJob{ID: "id-" + runID, RunID: runID, Kind: domain.JobKindImage, Status: status}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, TTL{Pending: time.Minute, Terminal: time.Hour})
	_ = m.Set(ctx, job("a", domain.JobStatusPending))
	_ = m.Set(ctx, job("b", domain.JobStatusPending))
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Fatalf("a should be cached")
	}
	_ = m.Set(ctx, job("c", domain.JobStatusPending))
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Fatalf("a should survive eviction")
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d", m.Len())
	}
}

func TestMemoryExpiresPendingSooner(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(10, TTL{Pending: time.Second, Terminal: time.Minute})
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, job("p", domain.JobStatusPending))
	_ = m.Set(ctx, job("s", domain.JobStatusSuccess))
	now = now.Add(2 * time.Second)

	if _, ok, _ := m.Get(ctx, "p"); ok {
		t.Fatalf("pending entry should have expired")
	}
	if got, ok, _ := m.Get(ctx, "s"); !ok || got.Status != domain.JobStatusSuccess {
		t.Fatalf("terminal entry missing: %+v %v", got, ok)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(1, DefaultTTL)
	j := job("a", domain.JobStatusPending)
	_ = m.Set(ctx, j)
	j.Status = domain.JobStatusError
	got, _, _ := m.Get(ctx, "a")
	if got.Status != domain.JobStatusPending {
		t.Fatalf("cache aliased the caller's job")
	}
}

type fakeRedis struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func TestRedisRoundTripAndMiss(t *testing.T) {
	ctx := context.Background()
	fr := &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	c := NewRedis(fr, TTL{Pending: 3 * time.Second, Terminal: time.Hour})

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	j := job("r1", domain.JobStatusSuccess)
	j.ResultURL = "https://cdn/out.png"
	if err := c.Set(ctx, j); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if fr.ttls["job:run:r1"] != time.Hour {
		t.Fatalf("terminal ttl = %v", fr.ttls["job:run:r1"])
	}
	got, ok, err := c.Get(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.ResultURL != j.ResultURL || got.Status != j.Status || got.ID != j.ID {
		t.Fatalf("got %+v", got)
	}

	_ = c.Set(ctx, job("r2", domain.JobStatusPending))
	if fr.ttls["job:run:r2"] != 3*time.Second {
		t.Fatalf("pending ttl = %v", fr.ttls["job:run:r2"])
	}
}

func TestRedisErrorSurfaces(t *testing.T) {
	boom := errors.New("conn refused")
	c := NewRedis(&fakeRedis{err: boom}, DefaultTTL)
	if _, _, err := c.Get(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestTieredFillsFront(t *testing.T) {
	ctx := context.Background()
	front := NewMemory(4, DefaultTTL)
	back := NewMemory(4, DefaultTTL)
	_ = back.Set(ctx, job("a", domain.JobStatusSuccess))

	tc := Tiered{Front: front, Back: back}
	if _, ok, _ := tc.Get(ctx, "a"); !ok {
		t.Fatalf("tiered miss")
	}
	if _, ok, _ := front.Get(ctx, "a"); !ok {
		t.Fatalf("front not filled")
	}
}

func TestStaleSnapshotNeverReplacesResolution(t *testing.T) {
	ctx := context.Background()
	fr := &fakeRedis{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	caches := map[string]JobCache{
		"memory": NewMemory(4, DefaultTTL),
		"redis":  NewRedis(fr, DefaultTTL),
		"tiered": Tiered{Front: NewMemory(4, DefaultTTL), Back: NewMemory(4, DefaultTTL)},
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			if err := c.Set(ctx, job("r", domain.JobStatusPending)); err != nil {
				t.Fatalf("Set pending: %v", err)
			}
			if err := c.Set(ctx, job("r", domain.JobStatusSuccess)); err != nil {
				t.Fatalf("Set success: %v", err)
			}
			if err := c.Set(ctx, job("r", domain.JobStatusPending)); err != nil {
				t.Fatalf("Set stale pending: %v", err)
			}
			got, ok, err := c.Get(ctx, "r")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			if got.Status != domain.JobStatusSuccess {
				t.Fatalf("status = %s, want success", got.Status)
			}
		})
	}
}

func TestMemoryPendingRefillsAfterTerminalExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(4, TTL{Pending: time.Second, Terminal: time.Minute})
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, job("r", domain.JobStatusError))
	now = now.Add(2 * time.Minute)
	_ = m.Set(ctx, job("r", domain.JobStatusPending))
	if got, ok, _ := m.Get(ctx, "r"); !ok || got.Status != domain.JobStatusPending {
		t.Fatalf("expired entry should be replaceable: %+v %v", got, ok)
	}
}
