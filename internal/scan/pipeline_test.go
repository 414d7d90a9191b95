package scan

import (
	"testing"

	"github.com/minhvu/cardscan/internal/align"
	"github.com/minhvu/cardscan/internal/detect"
	"github.com/minhvu/cardscan/testdata"
)

func TestAcceptanceScore_Values(t *testing.T) {
	tests := []struct {
		name        string
		inliers     int
		goodMatches int
		blurScore   float64
		want        int
	}{
		{
			name:    "maximum",
			inliers: 100, goodMatches: 300, blurScore: 300,
			want: 100,
		},
		{
			name:    "all below tiers",
			inliers: 10, goodMatches: 20, blurScore: 30,
			want: 5 + 5 + 10,
		},
		{
			name:    "mid tiers",
			inliers: 60, goodMatches: 80, blurScore: 150,
			want: 35 + 20 + 15,
		},
		{
			name:    "hard floor boundary",
			inliers: 25, goodMatches: 50, blurScore: 100,
			want: 15 + 12 + 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcceptanceScore(tt.inliers, tt.goodMatches, tt.blurScore); got != tt.want {
				t.Errorf("AcceptanceScore(%d, %d, %f) = %d, want %d",
					tt.inliers, tt.goodMatches, tt.blurScore, got, tt.want)
			}
		})
	}
}

func TestAcceptanceScore_Monotonic(t *testing.T) {
	// Increasing any single factor must never lower the score.
	inliers := []int{0, 24, 25, 39, 40, 59, 60, 99, 100, 500}
	matches := []int{0, 49, 50, 79, 80, 149, 150, 299, 300, 1000}
	blurs := []float64{0, 99, 100, 199, 200, 299, 300, 1000}

	for i := 1; i < len(inliers); i++ {
		a := AcceptanceScore(inliers[i-1], 80, 150)
		b := AcceptanceScore(inliers[i], 80, 150)
		if b < a {
			t.Errorf("score decreased with inliers %d -> %d: %d -> %d", inliers[i-1], inliers[i], a, b)
		}
	}
	for i := 1; i < len(matches); i++ {
		a := AcceptanceScore(60, matches[i-1], 150)
		b := AcceptanceScore(60, matches[i], 150)
		if b < a {
			t.Errorf("score decreased with matches %d -> %d: %d -> %d", matches[i-1], matches[i], a, b)
		}
	}
	for i := 1; i < len(blurs); i++ {
		a := AcceptanceScore(60, 80, blurs[i-1])
		b := AcceptanceScore(60, 80, blurs[i])
		if b < a {
			t.Errorf("score decreased with blur %f -> %f: %d -> %d", blurs[i-1], blurs[i], a, b)
		}
	}
}

func sampleDetections(n int) []detect.Detection {
	dets := make([]detect.Detection, n)
	for i := range dets {
		dets[i] = detect.Detection{
			Label:      string(rune('a' + i)),
			Box:        detect.Rect{X1: i * 120, Y1: 0, X2: i*120 + 100, Y2: 50},
			Confidence: 0.9,
		}
	}
	return dets
}

func TestPipeline_AlignmentSkipped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	template := testdata.CardTemplate(400, 500)
	defer template.Close()
	photo := testdata.CardTemplate(400, 500)
	defer photo.Close()

	// 8 of 10 labels found: shortfall 2 is within tolerance.
	detector := detect.NewMockDetector(10)
	detector.SetDetections(sampleDetections(8))

	p := NewPipeline(detector, align.New(align.DefaultConfig()), DefaultGateConfig(), detect.DefaultConfig())

	result, err := p.Process(template, photo)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	defer result.Close()

	if result.Decision != DecisionAlignmentSkipped {
		t.Errorf("decision = %s, want %s", result.Decision, DecisionAlignmentSkipped)
	}
	if result.UsedAligned {
		t.Error("UsedAligned = true, want false")
	}
	if detector.Calls() != 1 {
		t.Errorf("detector called %d times, want 1", detector.Calls())
	}
}

func TestPipeline_KeepsOriginalOnTie(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	template := testdata.CardTemplate(800, 1000)
	defer template.Close()
	photo := template.Clone()
	defer photo.Close()

	// Shortfall 5 triggers alignment; the aligned image yields the same
	// count, so the original must win.
	detector := detect.NewMockDetector(10)
	detector.QueueDetections(sampleDetections(5))
	detector.QueueDetections(sampleDetections(5))

	p := NewPipeline(detector, align.New(align.DefaultConfig()), DefaultGateConfig(), detect.DefaultConfig())

	result, err := p.Process(template, photo)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	defer result.Close()

	if result.UsedAligned {
		t.Error("UsedAligned = true on a yield tie, want false")
	}
	if result.Decision != DecisionAlignedDiscarded {
		t.Errorf("decision = %s, want %s", result.Decision, DecisionAlignedDiscarded)
	}
	if result.OriginalCount != 5 || result.AlignedCount != 5 {
		t.Errorf("counts = %d/%d, want 5/5", result.OriginalCount, result.AlignedCount)
	}
}

func TestPipeline_AdoptsAlignedOnImprovement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	template := testdata.CardTemplate(800, 1000)
	defer template.Close()
	photo := template.Clone()
	defer photo.Close()

	detector := detect.NewMockDetector(10)
	detector.QueueDetections(sampleDetections(5))
	detector.QueueDetections(sampleDetections(6))

	p := NewPipeline(detector, align.New(align.DefaultConfig()), DefaultGateConfig(), detect.DefaultConfig())

	result, err := p.Process(template, photo)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	defer result.Close()

	if !result.UsedAligned {
		t.Fatalf("UsedAligned = false, want true (decision %s)", result.Decision)
	}
	if result.Decision != DecisionAlignedAdopted {
		t.Errorf("decision = %s, want %s", result.Decision, DecisionAlignedAdopted)
	}
	if detector.Calls() != 2 {
		t.Errorf("detector called %d times, want 2", detector.Calls())
	}
	if result.Inliers < DefaultGateConfig().MinInliers {
		t.Errorf("inliers = %d, want >= %d", result.Inliers, DefaultGateConfig().MinInliers)
	}
}

func TestPipeline_AlignmentFailureKeepsOriginal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// Featureless images make alignment fail; the scan must still complete
	// with the original photo.
	template := testdata.FlatImage(400, 500)
	defer template.Close()
	photo := testdata.FlatImage(400, 500)
	defer photo.Close()

	detector := detect.NewMockDetector(10)
	detector.SetDetections(sampleDetections(2))

	p := NewPipeline(detector, align.New(align.DefaultConfig()), DefaultGateConfig(), detect.DefaultConfig())

	result, err := p.Process(template, photo)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	defer result.Close()

	if result.Decision != DecisionAlignmentFailed {
		t.Errorf("decision = %s, want %s", result.Decision, DecisionAlignmentFailed)
	}
	if result.UsedAligned {
		t.Error("UsedAligned = true after alignment failure")
	}
	if len(result.Detections) != 2 {
		t.Errorf("got %d detections, want 2", len(result.Detections))
	}
}
