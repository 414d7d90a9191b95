package align

import "errors"

// Failure classes for the alignment stages. They never cross the Align
// boundary as Go errors: the facade folds them into Result.Error so callers
// only branch on Result.Success.
var (
	// ErrEmptyImage indicates an input image with a zero dimension.
	ErrEmptyImage = errors.New("empty image")

	// ErrInsufficientFeatures indicates that one of the images produced no
	// usable descriptors.
	ErrInsufficientFeatures = errors.New("insufficient features")

	// ErrInsufficientMatches indicates too few ratio-test survivors to
	// attempt a homography.
	ErrInsufficientMatches = errors.New("insufficient matches")

	// ErrNoHomography indicates that no RANSAC configuration produced a
	// valid matrix.
	ErrNoHomography = errors.New("homography estimation failed")
)
