package nn

import "github.com/pkg/errors"

var (
	// ErrInvalidWidth is returned for a layer width below one.
	ErrInvalidWidth = errors.New("layer width must be positive")
	// ErrTooFewLayers is returned for an architecture with fewer than two widths.
	ErrTooFewLayers = errors.New("architecture needs at least 2 widths")
	// ErrShapeMismatch is returned when a vector length does not match a layer width.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmptyBatch is returned when training on or averaging over zero data points.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrSlowTrainerUnsupported is returned by LearnSlow.
	ErrSlowTrainerUnsupported = errors.New("numerical-gradient training is unsupported, use Train")
)

func shapeError(what string, got, want int) error {
	return errors.Wrapf(ErrShapeMismatch, "%s: got %d values, want %d", what, got, want)
}
