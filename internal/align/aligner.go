// Package align registers a photographed identity document against its card
// template using ORB features and robust homography estimation.
package align

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Config holds configuration options for the aligner.
type Config struct {
	// TargetDimension is the longest-side size both images are normalized to
	// before feature detection (default: 800).
	TargetDimension int

	// MaxFeatures caps ORB keypoints per image (default: 2000). Hard scans
	// benefit from raising this toward 5000.
	MaxFeatures int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		TargetDimension: 800,
		MaxFeatures:     2000,
	}
}

// Aligner warps a photographed document into the pixel space of its
// template. It holds only read-only configuration, so a single instance may
// be shared across concurrent scans.
type Aligner struct {
	config Config
}

// New creates an Aligner with the given configuration. Zero fields fall back
// to defaults.
func New(config Config) *Aligner {
	if config.TargetDimension <= 0 {
		config.TargetDimension = 800
	}
	if config.MaxFeatures <= 0 {
		config.MaxFeatures = 2000
	}
	return &Aligner{config: config}
}

// Result describes one alignment attempt. Failure is a value, never a panic
// or an error return: Success is false and Error carries the stage message.
type Result struct {
	Success bool

	// Transform maps target original-resolution pixels into the template's
	// original-resolution pixel space. Nil unless Success.
	Transform *gocv.Mat

	// Aligned is the warped target at the template's original dimensions.
	// Nil unless Success.
	Aligned *gocv.Mat

	BaseFeatures   int
	TargetFeatures int
	GoodMatches    int
	Inliers        int
	InlierRatio    float64
	QualityScore   float64
	Error          string
}

// Close releases the Mats held by the result. Safe to call on failures.
func (r *Result) Close() {
	if r.Transform != nil {
		r.Transform.Close()
		r.Transform = nil
	}
	if r.Aligned != nil {
		r.Aligned.Close()
		r.Aligned = nil
	}
}

func failure(err error) *Result {
	return &Result{Success: false, Error: err.Error()}
}

// Align registers target (the photographed scan) against base (the card
// template) and warps it into the template's original pixel space. Inputs
// are not mutated; all intermediates are scoped to this call.
func (a *Aligner) Align(base, target gocv.Mat) *Result {
	baseNorm, err := Normalize(base, a.config.TargetDimension)
	if err != nil {
		return failure(fmt.Errorf("base: %w", err))
	}
	defer baseNorm.Close()

	targetNorm, err := Normalize(target, a.config.TargetDimension)
	if err != nil {
		return failure(fmt.Errorf("target: %w", err))
	}
	defer targetNorm.Close()

	ms, err := matchFeatures(baseNorm.Img, targetNorm.Img, a.config.MaxFeatures)
	if err != nil {
		return failure(err)
	}

	fit, err := estimateHomography(ms)
	if err != nil {
		return failure(err)
	}
	defer fit.Close()

	transform := composeTransform(fit.matrix, baseNorm.Scale, targetNorm.Scale)

	aligned := gocv.NewMat()
	gocv.WarpPerspective(target, &aligned, transform, image.Pt(base.Cols(), base.Rows()))

	return &Result{
		Success:        true,
		Transform:      &transform,
		Aligned:        &aligned,
		BaseFeatures:   len(ms.baseKeypoints),
		TargetFeatures: len(ms.targetKeypoints),
		GoodMatches:    len(ms.matches),
		Inliers:        fit.inliers,
		InlierRatio:    float64(fit.inliers) / float64(len(ms.matches)),
		QualityScore:   qualityScore(base, aligned),
	}
}
