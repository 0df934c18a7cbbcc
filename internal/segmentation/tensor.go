package segmentation

import (
	"fmt"
	"math"
)

// Shape describes a CHW tensor layout.
type Shape struct {
	Channels int `json:"channels"`
	Height   int `json:"height"`
	Width    int `json:"width"`
}

// Size returns the number of elements a tensor of this shape holds.
func (s Shape) Size() int {
	return s.Channels * s.Height * s.Width
}

func (s Shape) validate() error {
	if s.Channels <= 0 || s.Height <= 0 || s.Width <= 0 {
		return fmt.Errorf("%w: shape %dx%dx%d", ErrInvalidDimensions, s.Channels, s.Height, s.Width)
	}
	return nil
}

// Tensor is a flat CHW buffer. len(Data) always equals Shape.Size().
type Tensor struct {
	Shape Shape     `json:"shape"`
	Data  []float32 `json:"data"`
}

// NewTensor wraps data after checking it matches shape.
func NewTensor(shape Shape, data []float32) (*Tensor, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("%w: %d values for shape %dx%dx%d", ErrInvalidDimensions, len(data), shape.Channels, shape.Height, shape.Width)
	}
	return &Tensor{Shape: shape, Data: data}, nil
}

func (t *Tensor) index(c, y, x int) int {
	return c*t.Shape.Height*t.Shape.Width + y*t.Shape.Width + x
}

// At returns the value at channel c, row y, column x.
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[t.index(c, y, x)]
}

// SliceTensor extracts one channel plane as a single-channel tensor. Models
// that return several candidate masks are reduced to one this way.
func SliceTensor(t *Tensor, channel int) (*Tensor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrInvalidDimensions)
	}
	if channel < 0 || channel >= t.Shape.Channels {
		return nil, fmt.Errorf("%w: channel %d out of range [0,%d)", ErrInvalidDimensions, channel, t.Shape.Channels)
	}
	plane := t.Shape.Height * t.Shape.Width
	data := make([]float32, plane)
	copy(data, t.Data[channel*plane:(channel+1)*plane])
	return &Tensor{
		Shape: Shape{Channels: 1, Height: t.Shape.Height, Width: t.Shape.Width},
		Data:  data,
	}, nil
}

// BestChannel returns the index of the highest score, or -1 when scores is
// empty. Ties keep the lowest index.
func BestChannel(scores []float32) int {
	best := -1
	bestScore := float32(math.Inf(-1))
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
