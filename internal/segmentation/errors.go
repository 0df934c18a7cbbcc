package segmentation

import "errors"

var (
	// ErrInvalidRegion is returned for empty or out-of-canvas regions.
	ErrInvalidRegion = errors.New("segmentation: invalid region")
	// ErrInvalidDimensions is returned when shapes or mask sizes disagree.
	ErrInvalidDimensions = errors.New("segmentation: invalid dimensions")
	// ErrImageTooLarge is returned when a decoded image would exceed the
	// caller's pixel limit.
	ErrImageTooLarge = errors.New("segmentation: image too large")
)
