package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"editorcore/internal/domain"
)

type memEntry struct {
	runID   string
	job     *domain.GenerationJob
	expires time.Time
}

// Memory is a bounded LRU with per-entry expiry.
type Memory struct {
	mu    sync.Mutex
	size  int
	ttl   TTL
	ll    *list.List
	items map[string]*list.Element
	now   func() time.Time
}

// NewMemory builds an LRU holding at most size jobs (minimum 1).
func NewMemory(size int, ttl TTL) *Memory {
	if size < 1 {
		size = 1
	}
	return &Memory{
		size:  size,
		ttl:   ttl,
		ll:    list.New(),
		items: make(map[string]*list.Element, size),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, runID string) (*domain.GenerationJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[runID]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*memEntry)
	if !m.now().Before(e.expires) {
		m.ll.Remove(el)
		delete(m.items, runID)
		return nil, false, nil
	}
	m.ll.MoveToFront(el)
	return e.job.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, job *domain.GenerationJob) error {
	if job == nil || job.RunID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	expires := m.now().Add(m.ttl.For(job.Status))
	if el, ok := m.items[job.RunID]; ok {
		e := el.Value.(*memEntry)
		// Status only moves forward: a pending snapshot read before a
		// resolution must not replace the resolved entry.
		if e.job.Status.Terminal() && !job.Status.Terminal() && m.now().Before(e.expires) {
			return nil
		}
		e.job = job.Clone()
		e.expires = expires
		m.ll.MoveToFront(el)
		return nil
	}
	m.items[job.RunID] = m.ll.PushFront(&memEntry{runID: job.RunID, job: job.Clone(), expires: expires})
	for m.ll.Len() > m.size {
		oldest := m.ll.Back()
		m.ll.Remove(oldest)
		delete(m.items, oldest.Value.(*memEntry).runID)
	}
	return nil
}

// Len reports the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}
