package align

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ORB pyramid parameters, fixed across all card types.
const (
	orbScaleFactor   = 1.2
	orbLevels        = 8
	orbEdgeThreshold = 31
	orbPatchSize     = 31
	orbFastThreshold = 20

	// loweRatio is the nearest/second-nearest distance ratio below which a
	// match survives the ratio test.
	loweRatio = 0.75

	// minGoodMatches is the fewest ratio-test survivors worth a homography
	// attempt.
	minGoodMatches = 10
)

// matchSet carries the keypoints of both images and the ratio-test
// survivors pairing them. Match indices follow detector order: QueryIdx
// into baseKeypoints, TrainIdx into targetKeypoints.
type matchSet struct {
	baseKeypoints   []gocv.KeyPoint
	targetKeypoints []gocv.KeyPoint
	matches         []gocv.DMatch
}

// grayscale returns a single-channel copy of img.
func grayscale(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if img.Channels() > 1 {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		img.CopyTo(&gray)
	}
	return gray
}

// preprocess prepares an image for feature detection: grayscale, CLAHE to
// lift local contrast on washed-out card photos, then a light blur to knock
// down sensor noise before FAST keypoint scoring.
func preprocess(img gocv.Mat) gocv.Mat {
	gray := grayscale(img)
	defer gray.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	defer enhanced.Close()

	out := gocv.NewMat()
	gocv.GaussianBlur(enhanced, &out, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
	return out
}

// matchFeatures detects ORB keypoints on both normalized images and returns
// the Lowe-filtered correspondences between them.
func matchFeatures(base, target gocv.Mat, maxFeatures int) (*matchSet, error) {
	baseProc := preprocess(base)
	defer baseProc.Close()
	targetProc := preprocess(target)
	defer targetProc.Close()

	orb := gocv.NewORBWithParams(maxFeatures, orbScaleFactor, orbLevels, orbEdgeThreshold,
		0, 2, gocv.ORBScoreTypeHarris, orbPatchSize, orbFastThreshold)
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	baseKp, baseDesc := orb.DetectAndCompute(baseProc, mask)
	defer baseDesc.Close()
	targetKp, targetDesc := orb.DetectAndCompute(targetProc, mask)
	defer targetDesc.Close()

	if baseDesc.Empty() || targetDesc.Empty() {
		return nil, fmt.Errorf("%w: base=%d target=%d keypoints", ErrInsufficientFeatures, len(baseKp), len(targetKp))
	}

	bf := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	defer bf.Close()

	knn := bf.KnnMatch(baseDesc, targetDesc, 2)

	good := make([]gocv.DMatch, 0, len(knn))
	for _, pair := range knn {
		if len(pair) < 2 {
			continue
		}
		if pair[0].Distance < loweRatio*pair[1].Distance {
			good = append(good, pair[0])
		}
	}

	if len(good) < minGoodMatches {
		return nil, fmt.Errorf("%w: %d good matches, need %d", ErrInsufficientMatches, len(good), minGoodMatches)
	}

	return &matchSet{
		baseKeypoints:   baseKp,
		targetKeypoints: targetKp,
		matches:         good,
	}, nil
}
