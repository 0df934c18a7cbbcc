package handlers

import (
	"fmt"

	"editorcore/internal/domain"
	"editorcore/internal/segmentation"
)

// Limits caps the sizes a client controls directly. Zero fields use the
// matching DefaultLimits value.
type Limits struct {
	MaxTensorElements int
	MaxFrameCount     int
	MaxRegions        int
	MaxImagePixels    int
}

var DefaultLimits = Limits{
	MaxTensorElements: 32 << 20,
	MaxFrameCount:     3600,
	MaxRegions:        8,
	MaxImagePixels:    40_000_000,
}

func (l Limits) withDefaults() Limits {
	if l.MaxTensorElements <= 0 {
		l.MaxTensorElements = DefaultLimits.MaxTensorElements
	}
	if l.MaxFrameCount <= 0 {
		l.MaxFrameCount = DefaultLimits.MaxFrameCount
	}
	if l.MaxRegions <= 0 {
		l.MaxRegions = DefaultLimits.MaxRegions
	}
	if l.MaxImagePixels <= 0 {
		l.MaxImagePixels = DefaultLimits.MaxImagePixels
	}
	return l
}

func (l Limits) checkRegions(n int) error {
	if n > l.MaxRegions {
		return fmt.Errorf("%w: %d regions, at most %d", domain.ErrLimitExceeded, n, l.MaxRegions)
	}
	return nil
}

// checkTensors rejects count tensors of shape whose combined element count
// exceeds MaxTensorElements. Non-positive dimensions are left to the codec.
func (l Limits) checkTensors(shape segmentation.Shape, count int) error {
	if err := l.checkRegions(count); err != nil {
		return err
	}
	c, h, w := shape.Channels, shape.Height, shape.Width
	if count < 1 || c <= 0 || h <= 0 || w <= 0 {
		return nil
	}
	budget := l.MaxTensorElements / count
	if w > budget || h > budget/w || c > budget/(w*h) {
		return fmt.Errorf("%w: %d tensors of %dx%dx%d exceed %d elements",
			domain.ErrLimitExceeded, count, c, h, w, l.MaxTensorElements)
	}
	return nil
}

func (l Limits) checkFrames(n int) error {
	if n > l.MaxFrameCount {
		return fmt.Errorf("%w: frame_count %d, at most %d", domain.ErrLimitExceeded, n, l.MaxFrameCount)
	}
	return nil
}
