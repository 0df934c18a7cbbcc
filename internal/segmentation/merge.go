package segmentation

import (
	"fmt"
	"sync"
)

// MergeMasks ORs masks pixel-wise (max for probability masks). All masks
// must share the first mask's dimensions.
func MergeMasks(masks ...*Mask) (*Mask, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("%w: no masks to merge", ErrInvalidDimensions)
	}
	first := masks[0]
	if first == nil {
		return nil, fmt.Errorf("%w: nil mask at 0", ErrInvalidDimensions)
	}
	out := first.Clone()
	for i, m := range masks[1:] {
		if m == nil {
			return nil, fmt.Errorf("%w: nil mask at %d", ErrInvalidDimensions, i+1)
		}
		if m.Width != out.Width || m.Height != out.Height {
			return nil, fmt.Errorf("%w: mask %d is %dx%d, want %dx%d", ErrInvalidDimensions, i+1, m.Width, m.Height, out.Width, out.Height)
		}
		for j, v := range m.Values {
			if v > out.Values[j] {
				out.Values[j] = v
			}
		}
	}
	return out, nil
}

// Selection accumulates point-click masks into one running selection for a
// workbench.
type Selection struct {
	mu    sync.Mutex
	mask  *Mask
	count int
}

// Add merges m into the selection.
func (s *Selection) Add(m *Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mask == nil {
		if _, err := MergeMasks(m); err != nil {
			return err
		}
		s.mask = m.Clone()
		s.count = 1
		return nil
	}
	merged, err := MergeMasks(s.mask, m)
	if err != nil {
		return err
	}
	s.mask = merged
	s.count++
	return nil
}

// Mask returns a copy of the current selection, or nil when empty.
func (s *Selection) Mask() *Mask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mask == nil {
		return nil
	}
	return s.mask.Clone()
}

// Len is the number of masks merged since the last Clear.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Clear drops the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask = nil
	s.count = 0
}
