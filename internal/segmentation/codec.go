package segmentation

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Rect addresses a rectangle in canvas pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// RectFrom converts an image.Rectangle to a Rect.
func RectFrom(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// PixelRegion is a captured sub-image of a source canvas. The canvas origin
// is the source image's bounds minimum.
type PixelRegion struct {
	Source image.Image
	Rect   Rect
}

// NewPixelRegion captures rect from src.
func NewPixelRegion(src image.Image, rect Rect) (PixelRegion, error) {
	region := PixelRegion{Source: src, Rect: rect}
	if err := region.validate(); err != nil {
		return PixelRegion{}, err
	}
	return region, nil
}

func (p PixelRegion) validate() error {
	if p.Rect.Width <= 0 || p.Rect.Height <= 0 {
		return fmt.Errorf("%w: zero-sized region %dx%d", ErrInvalidRegion, p.Rect.Width, p.Rect.Height)
	}
	if p.Source == nil {
		return fmt.Errorf("%w: no source image", ErrInvalidRegion)
	}
	if !p.sourceRect().In(p.Source.Bounds()) {
		return fmt.Errorf("%w: region %v outside canvas %v", ErrInvalidRegion, p.Rect.Image(), p.Source.Bounds())
	}
	return nil
}

func (p PixelRegion) sourceRect() image.Rectangle {
	return p.Rect.Image().Add(p.Source.Bounds().Min)
}

// Normalization maps 8-bit channel values into model space as
// (v/255 - Mean[c]) / Std[c]. Missing entries default to mean 0, std 1.
// Fill is written to padding cells unchanged.
type Normalization struct {
	Mean []float32 `json:"mean,omitempty"`
	Std  []float32 `json:"std,omitempty"`
	Fill float32   `json:"fill"`
}

// ImageNetNormalization is the RGB mean/std used by SAM-style image encoders.
var ImageNetNormalization = Normalization{
	Mean: []float32{0.485, 0.456, 0.406},
	Std:  []float32{0.229, 0.224, 0.225},
}

// UnitNormalization maps channel values into [0,1].
var UnitNormalization = Normalization{}

func (n Normalization) apply(c int, v float32) float32 {
	mean, std := float32(0), float32(1)
	if c < len(n.Mean) {
		mean = n.Mean[c]
	}
	if c < len(n.Std) && n.Std[c] != 0 {
		std = n.Std[c]
	}
	return (v - mean) / std
}

// Transform records how a region was placed inside a tensor so masks can be
// mapped back onto the canvas.
type Transform struct {
	Region       Rect    `json:"region"`
	Shape        Shape   `json:"shape"`
	Scale        float64 `json:"scale"`
	PadX         int     `json:"pad_x"`
	PadY         int     `json:"pad_y"`
	ScaledWidth  int     `json:"scaled_width"`
	ScaledHeight int     `json:"scaled_height"`
}

// Encoded is a model input tensor plus its placement.
type Encoded struct {
	Tensor    *Tensor   `json:"tensor"`
	Transform Transform `json:"transform"`
}

// RegionToTensor resizes the region into shape preserving its aspect ratio,
// centres it, pads the remainder with norm.Fill and normalises every channel.
// One channel is luminance, three are RGB, four are RGBA.
func RegionToTensor(region PixelRegion, shape Shape, norm Normalization) (*Encoded, error) {
	if err := region.validate(); err != nil {
		return nil, err
	}
	if err := shape.validate(); err != nil {
		return nil, err
	}
	switch shape.Channels {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidDimensions, shape.Channels)
	}

	tr := placement(region.Rect, shape)
	scaled := image.NewNRGBA(image.Rect(0, 0, tr.ScaledWidth, tr.ScaledHeight))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), region.Source, region.sourceRect(), draw.Src, nil)

	data := make([]float32, shape.Size())
	for i := range data {
		data[i] = norm.Fill
	}
	t := &Tensor{Shape: shape, Data: data}
	for y := 0; y < tr.ScaledHeight; y++ {
		for x := 0; x < tr.ScaledWidth; x++ {
			px := scaled.NRGBAAt(x, y)
			ty, tx := y+tr.PadY, x+tr.PadX
			for c := 0; c < shape.Channels; c++ {
				t.Data[t.index(c, ty, tx)] = norm.apply(c, channelValue(px, shape.Channels, c))
			}
		}
	}
	return &Encoded{Tensor: t, Transform: tr}, nil
}

func placement(r Rect, shape Shape) Transform {
	scale := math.Min(float64(shape.Width)/float64(r.Width), float64(shape.Height)/float64(r.Height))
	sw := clampInt(int(math.Round(float64(r.Width)*scale)), 1, shape.Width)
	sh := clampInt(int(math.Round(float64(r.Height)*scale)), 1, shape.Height)
	return Transform{
		Region:       r,
		Shape:        shape,
		Scale:        scale,
		PadX:         (shape.Width - sw) / 2,
		PadY:         (shape.Height - sh) / 2,
		ScaledWidth:  sw,
		ScaledHeight: sh,
	}
}

func channelValue(px color.NRGBA, channels, c int) float32 {
	if channels == 1 {
		return (0.299*float32(px.R) + 0.587*float32(px.G) + 0.114*float32(px.B)) / 255
	}
	switch c {
	case 0:
		return float32(px.R) / 255
	case 1:
		return float32(px.G) / 255
	case 2:
		return float32(px.B) / 255
	default:
		return float32(px.A) / 255
	}
}

// ToCanvas maps a tensor-space mask back onto a canvas of the given size.
// Pixels outside the original region are zero.
func (tr Transform) ToCanvas(m *Mask, canvasWidth, canvasHeight int) (*Mask, error) {
	if m == nil || m.Width != tr.Shape.Width || m.Height != tr.Shape.Height {
		return nil, fmt.Errorf("%w: mask does not match tensor shape %dx%d", ErrInvalidDimensions, tr.Shape.Width, tr.Shape.Height)
	}
	if canvasWidth <= 0 || canvasHeight <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidDimensions, canvasWidth, canvasHeight)
	}
	out := NewMask(canvasWidth, canvasHeight)
	bounds := tr.Region.Image().Intersect(image.Rect(0, 0, canvasWidth, canvasHeight))
	for cy := bounds.Min.Y; cy < bounds.Max.Y; cy++ {
		ty := tr.PadY + clampInt(int(float64(cy-tr.Region.Y)*tr.Scale+tr.Scale/2), 0, tr.ScaledHeight-1)
		for cx := bounds.Min.X; cx < bounds.Max.X; cx++ {
			tx := tr.PadX + clampInt(int(float64(cx-tr.Region.X)*tr.Scale+tr.Scale/2), 0, tr.ScaledWidth-1)
			out.Values[cy*canvasWidth+cx] = m.At(tx, ty)
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
