// Package trajectory turns sparse, user-placed keyframes into dense per-frame
// camera paths for video generation requests.
package trajectory

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidArgument reports unusable interpolation input.
	ErrInvalidArgument = errors.New("trajectory: invalid argument")
	// ErrDuplicateTimestamp is returned when two keyframes share a timestamp.
	ErrDuplicateTimestamp = fmt.Errorf("%w: duplicate keyframe timestamp", ErrInvalidArgument)
)

// Point is a canvas position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keyframe is a user-authored position at a timestamp. A nil Scale means 1.
type Keyframe struct {
	Timestamp float64  `json:"timestamp"`
	Position  Point    `json:"position"`
	Scale     *float64 `json:"scale,omitempty"`
}

func (k Keyframe) scale() float64 {
	if k.Scale == nil {
		return 1
	}
	return *k.Scale
}

// Sample is an interpolated position.
type Sample struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

func (k Keyframe) sample() Sample {
	return Sample{X: k.Position.X, Y: k.Position.Y, Scale: k.scale()}
}

// Mode selects the piecewise interpolation between keyframes.
type Mode string

const (
	ModeLinear     Mode = "linear"
	ModeEaseInOut  Mode = "ease_in_out"
	ModeCatmullRom Mode = "catmull_rom"
)

// ParseMode maps user input to a Mode; unknown values fall back to linear.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeEaseInOut:
		return ModeEaseInOut
	case ModeCatmullRom:
		return ModeCatmullRom
	default:
		return ModeLinear
	}
}

// Option configures a Trajectory.
type Option func(*Trajectory)

// WithMode sets the interpolation mode.
func WithMode(m Mode) Option {
	return func(t *Trajectory) { t.mode = m }
}

// Trajectory is an immutable, time-ordered keyframe sequence.
type Trajectory struct {
	keyframes []Keyframe
	mode      Mode
}

// New validates and sorts keyframes. At least two keyframes with distinct
// timestamps are required.
func New(keyframes []Keyframe, opts ...Option) (*Trajectory, error) {
	if len(keyframes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 keyframes, got %d", ErrInvalidArgument, len(keyframes))
	}
	kfs := make([]Keyframe, len(keyframes))
	copy(kfs, keyframes)
	sort.SliceStable(kfs, func(i, j int) bool { return kfs[i].Timestamp < kfs[j].Timestamp })
	for i := 1; i < len(kfs); i++ {
		if kfs[i].Timestamp == kfs[i-1].Timestamp {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateTimestamp, kfs[i].Timestamp)
		}
	}
	t := &Trajectory{keyframes: kfs, mode: ModeLinear}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Keyframes returns a copy of the ordered keyframes.
func (t *Trajectory) Keyframes() []Keyframe {
	out := make([]Keyframe, len(t.keyframes))
	copy(out, t.keyframes)
	return out
}

// Duration is the span between the first and last keyframe.
func (t *Trajectory) Duration() float64 {
	return t.keyframes[len(t.keyframes)-1].Timestamp - t.keyframes[0].Timestamp
}
