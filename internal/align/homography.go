package align

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ransacConfig pairs a reprojection threshold with the iteration budget and
// confidence used for that attempt. Tighter thresholds get larger budgets.
type ransacConfig struct {
	reprojThreshold float64
	maxIters        int
	confidence      float64
}

// ransacConfigs is the fixed attempt sequence, shared by every card type.
// A single threshold is brittle across document lighting and perspective
// variance, so each configuration is run and the one with the most inliers
// wins.
var ransacConfigs = []ransacConfig{
	{reprojThreshold: 1.5, maxIters: 5000, confidence: 0.98},
	{reprojThreshold: 3.0, maxIters: 3000, confidence: 0.99},
	{reprojThreshold: 5.0, maxIters: 2000, confidence: 0.995},
}

// homographyFit is a winning RANSAC attempt: a 3x3 matrix mapping
// target-normalized coordinates into base-normalized coordinates, plus its
// supporting inlier count.
type homographyFit struct {
	matrix  gocv.Mat
	inliers int
}

func (f *homographyFit) Close() {
	f.matrix.Close()
}

// estimateHomography fits a projective transform from the matched keypoints,
// running every RANSAC configuration and keeping the one with the highest
// inlier count. Ties keep the earlier configuration.
func estimateHomography(ms *matchSet) (*homographyFit, error) {
	n := len(ms.matches)

	// FindHomography maps src to dst; src is the target image so the matrix
	// pulls the photographed scan onto the template.
	srcPts := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV64FC2)
	defer srcPts.Close()
	dstPts := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV64FC2)
	defer dstPts.Close()

	for i, m := range ms.matches {
		kt := ms.targetKeypoints[m.TrainIdx]
		kb := ms.baseKeypoints[m.QueryIdx]
		srcPts.SetDoubleAt(i, 0, kt.X)
		srcPts.SetDoubleAt(i, 1, kt.Y)
		dstPts.SetDoubleAt(i, 0, kb.X)
		dstPts.SetDoubleAt(i, 1, kb.Y)
	}

	var best *homographyFit
	for _, cfg := range ransacConfigs {
		mask := gocv.NewMat()
		matrix := gocv.FindHomography(srcPts, &dstPts, gocv.HomographyMethodRANSAC,
			cfg.reprojThreshold, &mask, cfg.maxIters, cfg.confidence)

		if matrix.Empty() {
			matrix.Close()
			mask.Close()
			continue
		}

		inliers := 0
		for i := 0; i < mask.Rows(); i++ {
			if mask.GetUCharAt(i, 0) != 0 {
				inliers++
			}
		}
		mask.Close()

		if best == nil || inliers > best.inliers {
			if best != nil {
				best.Close()
			}
			best = &homographyFit{matrix: matrix, inliers: inliers}
		} else {
			matrix.Close()
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no RANSAC configuration converged", ErrNoHomography)
	}
	return best, nil
}
