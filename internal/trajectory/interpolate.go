package trajectory

import (
	"fmt"
	"iter"
	"sort"
)

// Position returns the interpolated sample at normalised time t, where 0 is
// the first keyframe and 1 the last. t outside [0,1] clamps to the ends.
func (t *Trajectory) Position(at float64) Sample {
	kfs := t.keyframes
	first, last := kfs[0], kfs[len(kfs)-1]
	if !(at > 0) {
		return first.sample()
	}
	if at >= 1 {
		return last.sample()
	}

	ts := first.Timestamp + at*t.Duration()
	next := sort.Search(len(kfs), func(i int) bool { return kfs[i].Timestamp > ts })
	if next >= len(kfs) {
		return last.sample()
	}
	prev := next - 1
	u := (ts - kfs[prev].Timestamp) / (kfs[next].Timestamp - kfs[prev].Timestamp)

	a, b := kfs[prev].sample(), kfs[next].sample()
	if len(kfs) == 2 {
		return lerpSample(a, b, u)
	}
	switch t.mode {
	case ModeEaseInOut:
		return lerpSample(a, b, easeInOutCubic(u))
	case ModeCatmullRom:
		p0 := a
		if prev > 0 {
			p0 = kfs[prev-1].sample()
		}
		p3 := b
		if next+1 < len(kfs) {
			p3 = kfs[next+1].sample()
		}
		return Sample{
			X:     catmullRom(p0.X, a.X, b.X, p3.X, u),
			Y:     catmullRom(p0.Y, a.Y, b.Y, p3.Y, u),
			Scale: catmullRom(p0.Scale, a.Scale, b.Scale, p3.Scale, u),
		}
	default:
		return lerpSample(a, b, u)
	}
}

// Points yields exactly frameCount samples evenly spaced over the whole
// trajectory. The sequence is lazy and can be ranged over repeatedly.
func (t *Trajectory) Points(frameCount int) (iter.Seq2[int, Sample], error) {
	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", ErrInvalidArgument, frameCount)
	}
	return func(yield func(int, Sample) bool) {
		for i := 0; i < frameCount; i++ {
			at := 0.0
			if frameCount > 1 {
				at = float64(i) / float64(frameCount-1)
			}
			if !yield(i, t.Position(at)) {
				return
			}
		}
	}, nil
}

// Samples collects Points into a slice.
func (t *Trajectory) Samples(frameCount int) ([]Sample, error) {
	seq, err := t.Points(frameCount)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, frameCount)
	for _, s := range seq {
		out = append(out, s)
	}
	return out, nil
}

func lerp(a, b, u float64) float64 {
	return a + (b-a)*u
}

func lerpSample(a, b Sample, u float64) Sample {
	return Sample{X: lerp(a.X, b.X, u), Y: lerp(a.Y, b.Y, u), Scale: lerp(a.Scale, b.Scale, u)}
}

func easeInOutCubic(u float64) float64 {
	if u < 0.5 {
		return 4 * u * u * u
	}
	v := -2*u + 2
	return 1 - v*v*v/2
}

func catmullRom(p0, p1, p2, p3, u float64) float64 {
	u2 := u * u
	u3 := u2 * u
	return 0.5 * (2*p1 +
		(-p0+p2)*u +
		(2*p0-5*p1+4*p2-p3)*u2 +
		(-p0+3*p1-3*p2+p3)*u3)
}
