package segmentation

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// MaskToCutout copies src and scales each pixel's alpha by the mask value, so
// everything outside a binary mask becomes transparent. A mask whose size
// differs from src is first resampled nearest-neighbour to match.
func MaskToCutout(m *Mask, src image.Image) (*image.NRGBA, error) {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: empty mask", ErrInvalidDimensions)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no source image", ErrInvalidRegion)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty source image", ErrInvalidRegion)
	}
	if m.Width != b.Dx() || m.Height != b.Dy() {
		m = m.Resize(b.Dx(), b.Dy())
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	for i, v := range m.Values {
		a := &out.Pix[i*4+3]
		*a = uint8(float32(*a)*clamp01(v) + 0.5)
	}
	return out, nil
}
