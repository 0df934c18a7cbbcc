package segmentation

import (
	"errors"
	"testing"
)

func maskOf(w, h int, set ...int) *Mask {
	m := NewMask(w, h)
	for _, i := range set {
		m.Values[i] = 1
	}
	return m
}

func TestMergeMasksIdempotent(t *testing.T) {
	m := maskOf(3, 3, 0, 4, 8)
	once, err := MergeMasks(m)
	if err != nil {
		t.Fatalf("MergeMasks: %v", err)
	}
	twice, err := MergeMasks(m, m)
	if err != nil {
		t.Fatalf("MergeMasks: %v", err)
	}
	if !once.Equal(twice) {
		t.Fatalf("merge not idempotent: %v vs %v", once.Values, twice.Values)
	}
}

func TestMergeMasksOrderIndependent(t *testing.T) {
	a := maskOf(4, 2, 0, 1)
	b := maskOf(4, 2, 1, 6)
	c := &Mask{Width: 4, Height: 2, Values: []float32{0, 0.3, 0.7, 0, 0, 0, 0.2, 0}}

	ab, _ := MergeMasks(a, b)
	ba, _ := MergeMasks(b, a)
	if !ab.Equal(ba) {
		t.Fatalf("merge not commutative")
	}

	left, _ := MergeMasks(a, b)
	left, _ = MergeMasks(left, c)
	bc, _ := MergeMasks(b, c)
	right, _ := MergeMasks(a, bc)
	if !left.Equal(right) {
		t.Fatalf("merge not associative: %v vs %v", left.Values, right.Values)
	}

	want := []float32{1, 1, 0.7, 0, 0, 0, 1, 0}
	for i, v := range want {
		if left.Values[i] != v {
			t.Fatalf("values = %v, want %v", left.Values, want)
		}
	}
}

func TestMergeMasksDoesNotMutateInputs(t *testing.T) {
	a := maskOf(2, 2, 0)
	b := maskOf(2, 2, 3)
	if _, err := MergeMasks(a, b); err != nil {
		t.Fatalf("MergeMasks: %v", err)
	}
	if a.Values[3] != 0 || b.Values[0] != 0 {
		t.Fatalf("inputs mutated")
	}
}

func TestMergeMasksDimensionMismatch(t *testing.T) {
	tests := []struct {
		name  string
		masks []*Mask
	}{
		{name: "empty", masks: nil},
		{name: "size mismatch", masks: []*Mask{NewMask(2, 2), NewMask(3, 2)}},
		{name: "nil mask", masks: []*Mask{NewMask(2, 2), nil}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := MergeMasks(tc.masks...); !errors.Is(err, ErrInvalidDimensions) {
				t.Fatalf("err = %v, want ErrInvalidDimensions", err)
			}
		})
	}
}

func TestSelectionAccumulates(t *testing.T) {
	var sel Selection
	if sel.Mask() != nil {
		t.Fatalf("new selection should be empty")
	}
	click := maskOf(2, 2, 0)
	if err := sel.Add(click); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := sel.Add(click); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sel.Mask().Equal(click) {
		t.Fatalf("repeated click changed the selection")
	}
	if err := sel.Add(maskOf(2, 2, 3)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := sel.Mask().Values; got[0] != 1 || got[3] != 1 {
		t.Fatalf("selection = %v", got)
	}
	if sel.Len() != 3 {
		t.Fatalf("Len = %d, want 3", sel.Len())
	}
	if err := sel.Add(NewMask(3, 3)); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("mismatched add err = %v", err)
	}
	sel.Clear()
	if sel.Mask() != nil || sel.Len() != 0 {
		t.Fatalf("Clear did not reset the selection")
	}
}
