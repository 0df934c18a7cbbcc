package trajectory

import (
	"errors"
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func diagonal(t *testing.T, opts ...Option) *Trajectory {
	t.Helper()
	traj, err := New([]Keyframe{
		{Timestamp: 0, Position: Point{X: 0, Y: 0}},
		{Timestamp: 1, Position: Point{X: 10, Y: 10}},
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return traj
}

func zigzag(t *testing.T, opts ...Option) *Trajectory {
	t.Helper()
	traj, err := New([]Keyframe{
		{Timestamp: 2, Position: Point{X: 40, Y: 0}, Scale: ptr(2)},
		{Timestamp: 0, Position: Point{X: 0, Y: 0}},
		{Timestamp: 1, Position: Point{X: 10, Y: 30}, Scale: ptr(1.5)},
		{Timestamp: 4, Position: Point{X: 40, Y: 40}},
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return traj
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		kfs  []Keyframe
		want error
	}{
		{name: "empty", kfs: nil, want: ErrInvalidArgument},
		{name: "single", kfs: []Keyframe{{Timestamp: 0}}, want: ErrInvalidArgument},
		{name: "duplicate", kfs: []Keyframe{{Timestamp: 0}, {Timestamp: 1}, {Timestamp: 1}}, want: ErrDuplicateTimestamp},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.kfs); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if !errors.Is(ErrDuplicateTimestamp, ErrInvalidArgument) {
		t.Fatalf("duplicate timestamp should be an invalid argument")
	}
}

func TestNewSortsKeyframes(t *testing.T) {
	traj := zigzag(t)
	kfs := traj.Keyframes()
	for i := 1; i < len(kfs); i++ {
		if kfs[i].Timestamp <= kfs[i-1].Timestamp {
			t.Fatalf("keyframes not strictly increasing: %+v", kfs)
		}
	}
}

func TestPositionMidpoint(t *testing.T) {
	for _, mode := range []Mode{ModeLinear, ModeEaseInOut, ModeCatmullRom} {
		got := diagonal(t, WithMode(mode)).Position(0.5)
		if !approx(got.X, 5) || !approx(got.Y, 5) || !approx(got.Scale, 1) {
			t.Fatalf("mode %s: Position(0.5) = %+v, want (5,5,1)", mode, got)
		}
	}
	if got := diagonal(t, WithMode(ModeEaseInOut)).Position(0.25); !approx(got.X, 2.5) {
		t.Fatalf("two keyframes should stay linear, got %+v", got)
	}
}

func TestPositionClampsOutsideRange(t *testing.T) {
	traj := zigzag(t)
	if got := traj.Position(-0.5); got != (Sample{X: 0, Y: 0, Scale: 1}) {
		t.Fatalf("Position(-0.5) = %+v", got)
	}
	if got := traj.Position(1.5); got != (Sample{X: 40, Y: 40, Scale: 1}) {
		t.Fatalf("Position(1.5) = %+v", got)
	}
}

func TestPositionHitsKeyframes(t *testing.T) {
	for _, mode := range []Mode{ModeLinear, ModeEaseInOut, ModeCatmullRom} {
		traj := zigzag(t, WithMode(mode))
		// t=0.5 is timestamp 2 on a 0..4 span.
		got := traj.Position(0.5)
		if !approx(got.X, 40) || !approx(got.Y, 0) || !approx(got.Scale, 2) {
			t.Fatalf("mode %s: Position(0.5) = %+v, want keyframe (40,0,2)", mode, got)
		}
	}
}

func TestPositionLinearSegment(t *testing.T) {
	traj := zigzag(t)
	// t=0.125 is timestamp 0.5, halfway between the first two keyframes.
	got := traj.Position(0.125)
	if !approx(got.X, 5) || !approx(got.Y, 15) || !approx(got.Scale, 1.25) {
		t.Fatalf("Position(0.125) = %+v", got)
	}
}

func TestPointsCountAndEnds(t *testing.T) {
	traj := zigzag(t, WithMode(ModeCatmullRom))
	for _, n := range []int{1, 2, 5, 37} {
		seq, err := traj.Points(n)
		if err != nil {
			t.Fatalf("Points(%d): %v", n, err)
		}
		var got []Sample
		for _, s := range seq {
			got = append(got, s)
		}
		if len(got) != n {
			t.Fatalf("Points(%d) yielded %d samples", n, len(got))
		}
		if got[0] != (Sample{X: 0, Y: 0, Scale: 1}) {
			t.Fatalf("first = %+v", got[0])
		}
		if n > 1 && got[n-1] != (Sample{X: 40, Y: 40, Scale: 1}) {
			t.Fatalf("last = %+v", got[n-1])
		}
	}
}

func TestPointsRestartable(t *testing.T) {
	seq, err := diagonal(t).Points(5)
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	collect := func() []Sample {
		var out []Sample
		for _, s := range seq {
			out = append(out, s)
		}
		return out
	}
	first, second := collect(), collect()
	if len(first) != 5 || len(second) != 5 {
		t.Fatalf("lengths %d, %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs between runs", i)
		}
	}
	for i, s := range seq {
		if i == 2 {
			if !approx(s.X, 5) {
				t.Fatalf("frame 2 = %+v", s)
			}
			break
		}
	}
}

func TestPointsRejectsNonPositiveFrameCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := diagonal(t).Points(n); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Points(%d) err = %v", n, err)
		}
	}
}

func TestSmoothPreservesEndpoints(t *testing.T) {
	traj := zigzag(t)
	raw, err := traj.Samples(25)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	for window := 1; window <= 30; window++ {
		smoothed, err := Smooth(raw, window)
		if err != nil {
			t.Fatalf("Smooth(%d): %v", window, err)
		}
		if len(smoothed) != len(raw) {
			t.Fatalf("Smooth(%d) changed length", window)
		}
		if smoothed[0] != raw[0] || smoothed[len(raw)-1] != raw[len(raw)-1] {
			t.Fatalf("Smooth(%d) moved an endpoint", window)
		}
	}
}

func TestSmoothAveragesJitter(t *testing.T) {
	samples := []Sample{{X: 0}, {X: 10}, {X: 0}, {X: 10}, {X: 0}}
	got, err := Smooth(samples, 3)
	if err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	want := []float64{0, 10.0 / 3, 20.0 / 3, 10.0 / 3, 0}
	for i, w := range want {
		if !approx(got[i].X, w) {
			t.Fatalf("X[%d] = %v, want %v", i, got[i].X, w)
		}
	}
	if samples[1].X != 10 {
		t.Fatalf("input mutated")
	}
}

func TestSmoothRejectsWindow(t *testing.T) {
	if _, err := Smooth([]Sample{{}, {}}, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestCameraPath(t *testing.T) {
	frames, err := zigzag(t).CameraPath(9, 3)
	if err != nil {
		t.Fatalf("CameraPath: %v", err)
	}
	if len(frames) != 9 {
		t.Fatalf("frames = %d", len(frames))
	}
	if frames[8].Frame != 8 || frames[8].X != 40 || frames[8].Y != 40 {
		t.Fatalf("last frame = %+v", frames[8])
	}
	if _, err := zigzag(t).CameraPath(0, 3); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
