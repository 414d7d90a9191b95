// Package scan runs the quality-gated two-phase detection flow: detect on
// the original photo, re-align against the card template when the detector
// under-performs, and keep whichever image yields more fields.
package scan

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/minhvu/cardscan/internal/align"
	"github.com/minhvu/cardscan/internal/detect"
)

// GateConfig is the single source of truth for alignment acceptance
// thresholds. The same values gate every card type.
type GateConfig struct {
	// MissingTolerance: alignment is attempted only when more than this
	// many known labels went undetected on the original photo.
	MissingTolerance int

	// Hard floor. An alignment failing any of these is rejected outright,
	// regardless of its weighted score.
	MinInliers     int
	MinGoodMatches int
	MinBlurScore   float64

	// MinAcceptScore is the weighted-score floor on the 0-100 scale.
	MinAcceptScore int
}

// DefaultGateConfig returns the gate thresholds used in production.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MissingTolerance: 3,
		MinInliers:       25,
		MinGoodMatches:   50,
		MinBlurScore:     50,
		MinAcceptScore:   50,
	}
}

// tier maps a metric floor to the points awarded at or above it.
type tier struct {
	floor  float64
	points int
}

// Weighted-score tiers: inliers contribute up to 40 points, good matches
// and blur up to 30 each. Shared by every card type.
var (
	inlierTiers = []tier{{100, 40}, {60, 35}, {40, 25}, {25, 15}}
	matchTiers  = []tier{{300, 30}, {150, 25}, {80, 20}, {50, 12}}
	blurTiers   = []tier{{300, 30}, {200, 25}, {100, 15}}
)

const (
	inlierFloorPoints = 5
	matchFloorPoints  = 5
	blurFloorPoints   = 10
)

func tierPoints(value float64, tiers []tier, floorPoints int) int {
	for _, t := range tiers {
		if value >= t.floor {
			return t.points
		}
	}
	return floorPoints
}

// AcceptanceScore computes the 0-100 weighted alignment quality score from
// inlier count, good-match count, and blur score.
func AcceptanceScore(inliers, goodMatches int, blurScore float64) int {
	return tierPoints(float64(inliers), inlierTiers, inlierFloorPoints) +
		tierPoints(float64(goodMatches), matchTiers, matchFloorPoints) +
		tierPoints(blurScore, blurTiers, blurFloorPoints)
}

// Decision records how the pipeline arrived at its final image.
type Decision string

const (
	// DecisionAlignmentSkipped: enough fields were found on the original.
	DecisionAlignmentSkipped Decision = "alignment_skipped"
	// DecisionAlignmentFailed: the aligner itself reported failure.
	DecisionAlignmentFailed Decision = "alignment_failed"
	// DecisionAlignmentRejected: alignment succeeded but failed the gate.
	DecisionAlignmentRejected Decision = "alignment_rejected"
	// DecisionAlignedDiscarded: the gate passed but re-detection did not
	// strictly improve the yield.
	DecisionAlignedDiscarded Decision = "aligned_discarded"
	// DecisionAlignedAdopted: the aligned image won.
	DecisionAlignedAdopted Decision = "aligned_adopted"
)

// Result is the outcome of one document scan.
type Result struct {
	// Detections is the filtered, rank-ordered field list from the chosen
	// image.
	Detections []detect.Detection

	// Image is the chosen image (original photo, or the cropped aligned
	// image when adopted). The caller owns it and must Close it.
	Image *gocv.Mat

	UsedAligned   bool
	Decision      Decision
	Missing       int
	OriginalCount int
	AlignedCount  int

	// Alignment metrics; zero values unless alignment ran and succeeded.
	Inliers      int
	GoodMatches  int
	QualityScore float64
	AcceptScore  int
	BlurScore    float64

	// Metrics describes the original photo.
	Metrics ImageMetrics
}

// Close releases the chosen image.
func (r *Result) Close() {
	if r.Image != nil {
		r.Image.Close()
		r.Image = nil
	}
}

// Pipeline wires the detector, the aligner, and the gate thresholds. It
// holds no per-scan state, so one instance serves concurrent scans; the
// detector serializes its own calls.
type Pipeline struct {
	detector detect.Detector
	aligner  *align.Aligner
	gate     GateConfig
	detcfg   detect.Config
}

// NewPipeline creates a scan pipeline.
func NewPipeline(detector detect.Detector, aligner *align.Aligner, gate GateConfig, detcfg detect.Config) *Pipeline {
	return &Pipeline{
		detector: detector,
		aligner:  aligner,
		gate:     gate,
		detcfg:   detcfg,
	}
}

// Process scans one document photo against its card template. The detector
// is called at most twice: once on the photo and, when an alignment passes
// the gate, once on the cropped aligned image. Detector errors abort the
// scan; alignment problems never do.
func (p *Pipeline) Process(template, photo gocv.Mat) (*Result, error) {
	if photo.Empty() {
		return nil, errors.New("empty photo")
	}

	original, err := p.detector.Detect(&photo)
	if err != nil {
		return nil, fmt.Errorf("detect original: %w", err)
	}

	res := &Result{
		OriginalCount: len(original),
		Missing:       p.detector.TotalLabels() - len(original),
		Metrics:       MeasureImage(photo),
	}

	chosenDetections := original
	chosenImage := photo

	switch {
	case res.Missing <= p.gate.MissingTolerance:
		res.Decision = DecisionAlignmentSkipped

	case template.Empty():
		log.Warn("no template for document, skipping alignment")
		res.Decision = DecisionAlignmentSkipped

	default:
		log.Infof("missing %d of %d labels, attempting alignment", res.Missing, p.detector.TotalLabels())

		ar := p.aligner.Align(template, photo)
		defer ar.Close()

		if !ar.Success {
			log.Warnf("alignment failed: %s", ar.Error)
			res.Decision = DecisionAlignmentFailed
			break
		}

		res.Inliers = ar.Inliers
		res.GoodMatches = ar.GoodMatches
		res.QualityScore = ar.QualityScore
		res.BlurScore = MeasureImage(*ar.Aligned).BlurScore

		if ar.Inliers < p.gate.MinInliers ||
			ar.GoodMatches < p.gate.MinGoodMatches ||
			res.BlurScore < p.gate.MinBlurScore {
			log.Infof("alignment below hard floor: inliers=%d matches=%d blur=%.1f",
				ar.Inliers, ar.GoodMatches, res.BlurScore)
			res.Decision = DecisionAlignmentRejected
			break
		}

		res.AcceptScore = AcceptanceScore(ar.Inliers, ar.GoodMatches, res.BlurScore)
		if res.AcceptScore < p.gate.MinAcceptScore {
			log.Infof("alignment score %d below %d, rejecting", res.AcceptScore, p.gate.MinAcceptScore)
			res.Decision = DecisionAlignmentRejected
			break
		}

		cropped := CropBlackPadding(*ar.Aligned)
		defer cropped.Close()

		aligned, err := p.detector.Detect(&cropped)
		if err != nil {
			return nil, fmt.Errorf("detect aligned: %w", err)
		}
		res.AlignedCount = len(aligned)

		// Adopt the aligned image only if it demonstrably helps; ties keep
		// the original.
		if len(aligned) > len(original) {
			log.Infof("aligned image improves yield %d -> %d, adopting", len(original), len(aligned))
			res.Decision = DecisionAlignedAdopted
			res.UsedAligned = true
			chosenDetections = aligned
			chosenImage = cropped
		} else {
			log.Infof("aligned yield %d does not beat %d, keeping original", len(aligned), len(original))
			res.Decision = DecisionAlignedDiscarded
		}
	}

	res.Detections = detect.Filter(chosenDetections, detect.FilterMultiPosition,
		p.detcfg.MaxPositionsPerLabel, p.detcfg.IOUThreshold)

	img := chosenImage.Clone()
	res.Image = &img
	return res, nil
}
