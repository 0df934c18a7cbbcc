package segmentation

import (
	"container/list"
	"sync"
	"time"
)

type selectionEntry struct {
	id      string
	sel     *Selection
	pixels  int
	expires time.Time
}

// Selections holds the running selection of each workbench in a bounded LRU.
// An entry expires after ttl without a new click, and least recently used
// entries are evicted once either the entry count or the total mask pixels
// exceed their limit. The entry being written is never evicted by its own
// write.
type Selections struct {
	mu        sync.Mutex
	maxItems  int
	maxPixels int
	ttl       time.Duration
	ll        *list.List
	items     map[string]*list.Element
	pixels    int
	now       func() time.Time
}

// NewSelections builds a store for at most maxItems workbenches (minimum 1)
// holding at most maxPixels mask pixels in total. maxPixels <= 0 leaves the
// pixel total unbounded; ttl <= 0 disables expiry.
func NewSelections(maxItems, maxPixels int, ttl time.Duration) *Selections {
	if maxItems < 1 {
		maxItems = 1
	}
	return &Selections{
		maxItems:  maxItems,
		maxPixels: maxPixels,
		ttl:       ttl,
		ll:        list.New(),
		items:     make(map[string]*list.Element),
		now:       time.Now,
	}
}

// Add merges m into the workbench's selection and returns a copy of the
// running mask and the number of masks merged into it.
func (s *Selections) Add(id string, m *Mask) (*Mask, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	el, ok := s.items[id]
	if ok && s.expired(el.Value.(*selectionEntry), now) {
		s.remove(el)
		ok = false
	}
	if !ok {
		el = s.ll.PushFront(&selectionEntry{id: id, sel: &Selection{}})
		s.items[id] = el
	}
	e := el.Value.(*selectionEntry)
	if err := e.sel.Add(m); err != nil {
		if e.sel.Len() == 0 {
			s.remove(el)
		}
		return nil, 0, err
	}

	mask := e.sel.Mask()
	s.pixels += len(mask.Values) - e.pixels
	e.pixels = len(mask.Values)
	if s.ttl > 0 {
		e.expires = now.Add(s.ttl)
	}
	s.ll.MoveToFront(el)
	s.evict(el, now)
	return mask, e.sel.Len(), nil
}

// Delete drops a workbench's selection.
func (s *Selections) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[id]; ok {
		s.remove(el)
	}
}

// Len reports the number of stored selections, expired ones included.
func (s *Selections) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// Pixels reports the total mask pixels held.
func (s *Selections) Pixels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pixels
}

func (s *Selections) expired(e *selectionEntry, now time.Time) bool {
	return s.ttl > 0 && !now.Before(e.expires)
}

func (s *Selections) evict(keep *list.Element, now time.Time) {
	for oldest := s.ll.Back(); oldest != nil && oldest != keep; oldest = s.ll.Back() {
		over := s.ll.Len() > s.maxItems || (s.maxPixels > 0 && s.pixels > s.maxPixels)
		if !over && !s.expired(oldest.Value.(*selectionEntry), now) {
			return
		}
		s.remove(oldest)
	}
}

func (s *Selections) remove(el *list.Element) {
	e := el.Value.(*selectionEntry)
	s.ll.Remove(el)
	delete(s.items, e.id)
	s.pixels -= e.pixels
	e.sel.Clear()
}
