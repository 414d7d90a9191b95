package align

import (
	"image"

	"gocv.io/x/gocv"
)

// qualityScore measures how closely the warped image structurally resembles
// the template: normalized cross-correlation damped by mean-squared pixel
// error, clamped to [0, 1]. It is independent of the RANSAC statistics and
// catches warps that are numerically valid but visually degenerate.
func qualityScore(base, warped gocv.Mat) float64 {
	w := base.Cols()
	if warped.Cols() < w {
		w = warped.Cols()
	}
	h := base.Rows()
	if warped.Rows() < h {
		h = warped.Rows()
	}
	if w <= 0 || h <= 0 {
		return 0
	}

	baseGray := grayscale(base)
	defer baseGray.Close()
	warpedGray := grayscale(warped)
	defer warpedGray.Close()

	baseSized := gocv.NewMat()
	defer baseSized.Close()
	gocv.Resize(baseGray, &baseSized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	warpedSized := gocv.NewMat()
	defer warpedSized.Close()
	gocv.Resize(warpedGray, &warpedSized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	// Both images have identical size so the correlation map is 1x1.
	corrMap := gocv.NewMat()
	defer corrMap.Close()
	maskMat := gocv.NewMat()
	defer maskMat.Close()
	gocv.MatchTemplate(baseSized, warpedSized, &corrMap, gocv.TmCcorrNormed, maskMat)
	corr := float64(corrMap.GetFloatAt(0, 0))

	baseF := gocv.NewMat()
	defer baseF.Close()
	baseSized.ConvertTo(&baseF, gocv.MatTypeCV32F)

	warpedF := gocv.NewMat()
	defer warpedF.Close()
	warpedSized.ConvertTo(&warpedF, gocv.MatTypeCV32F)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(baseF, warpedF, &diff)

	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(diff, diff, &sq)

	mse := sq.Mean().Val1 / (255.0 * 255.0)

	score := corr * (1 - mse)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
