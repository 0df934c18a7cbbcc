package segmentation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// DecodeImage decodes PNG, JPEG or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DecodeImageMax decodes like DecodeImage but reads the header first and
// refuses images with more than maxPixels pixels. maxPixels <= 0 disables the
// check.
func DecodeImageMax(data []byte, maxPixels int) (image.Image, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
		}
	}
	return DecodeImage(data)
}

// DecodeBase64Image accepts raw base64 or a data URL.
func DecodeBase64Image(encoded string) (image.Image, error) {
	return DecodeBase64ImageMax(encoded, 0)
}

// DecodeBase64ImageMax is DecodeBase64Image with a pixel limit.
func DecodeBase64ImageMax(encoded string, maxPixels int) (image.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if idx := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && idx >= 0 {
		encoded = encoded[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return DecodeImageMax(raw, maxPixels)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
