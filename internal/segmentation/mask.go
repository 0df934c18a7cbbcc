package segmentation

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DefaultThreshold is the probability above which a pixel is selected.
const DefaultThreshold float32 = 0.5

// Mask is a per-pixel selection map, binary (0/1) or probability in [0,1].
// Operations return new masks and never modify their inputs.
type Mask struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float32 `json:"values"`
}

// NewMask returns an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Values: make([]float32, width*height)}
}

// At returns the value at (x, y).
func (m *Mask) At(x, y int) float32 {
	return m.Values[y*m.Width+x]
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Values: make([]float32, len(m.Values))}
	copy(c.Values, m.Values)
	return c
}

// Equal reports whether both masks have the same size and values.
func (m *Mask) Equal(o *Mask) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Width != o.Width || m.Height != o.Height || len(m.Values) != len(o.Values) {
		return false
	}
	for i := range m.Values {
		if m.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// Bounds returns the smallest rectangle containing every pixel at or above
// DefaultThreshold. An empty mask yields an empty rectangle.
func (m *Mask) Bounds() image.Rectangle {
	minX, minY, maxX, maxY := m.Width, m.Height, -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Values[y*m.Width+x] < DefaultThreshold {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Gray renders the mask as an 8-bit grayscale image.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		img.Pix[i] = uint8(clamp01(v)*255 + 0.5)
	}
	return img
}

// Resize resamples the mask with nearest-neighbour interpolation.
func (m *Mask) Resize(width, height int) *Mask {
	if width == m.Width && height == m.Height {
		return m.Clone()
	}
	src := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			src.SetGray16(x, y, color.Gray16{Y: uint16(clamp01(m.At(x, y))*65535 + 0.5)})
		}
	}
	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Values[y*width+x] = float32(dst.Gray16At(x, y).Y) / 65535
		}
	}
	return out
}

// TensorToMask thresholds a single-channel probability tensor into a binary
// mask. Multi-channel tensors must be reduced with SliceTensor first.
func TensorToMask(t *Tensor, threshold float32) (*Mask, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrInvalidDimensions)
	}
	if t.Shape.Channels != 1 {
		return nil, fmt.Errorf("%w: expected 1 channel, got %d", ErrInvalidDimensions, t.Shape.Channels)
	}
	m := NewMask(t.Shape.Width, t.Shape.Height)
	for i, v := range t.Data {
		if v > threshold {
			m.Values[i] = 1
		}
	}
	return m, nil
}

// ProbabilityMask keeps the tensor's probabilities, clamped to [0,1].
func ProbabilityMask(t *Tensor) (*Mask, error) {
	if t == nil || t.Shape.Channels != 1 {
		return nil, fmt.Errorf("%w: expected a single-channel tensor", ErrInvalidDimensions)
	}
	m := NewMask(t.Shape.Width, t.Shape.Height)
	for i, v := range t.Data {
		m.Values[i] = clamp01(v)
	}
	return m, nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
