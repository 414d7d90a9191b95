package detect

import "gocv.io/x/gocv"

// Detector defines the interface for field-detection implementations.
type Detector interface {
	// Detect runs the model over an image and returns raw labeled boxes.
	// Returns an empty slice if no fields are detected.
	Detect(img *gocv.Mat) ([]Detection, error)

	// TotalLabels reports how many distinct field labels the model was
	// trained with. It is the denominator for detection-yield shortfall.
	TotalLabels() int

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for field detection.
type Config struct {
	// ConfThreshold drops detections below this confidence (0.0-1.0).
	ConfThreshold float64

	// IOUThreshold is the overlap above which two boxes of the same label
	// count as the same position. Shared with the model's NMS.
	IOUThreshold float64

	// MaxPositionsPerLabel caps spatially distinct detections kept per label.
	MaxPositionsPerLabel int

	// TargetSize is the square input size the model expects.
	TargetSize int

	// EnhanceImage enables contrast enhancement before inference.
	EnhanceImage bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ConfThreshold:        0.33,
		IOUThreshold:         0.25,
		MaxPositionsPerLabel: 2,
		TargetSize:           640,
		EnhanceImage:         false,
	}
}
