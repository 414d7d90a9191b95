package align

import (
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// composeTransform folds the normalization scales into the normalized-space
// homography, producing a transform valid in original pixel coordinates:
//
//	final = inv(S_base) * H * S_target
//
// S_target maps target original pixels into target-normalized space, H maps
// those into base-normalized space, and the inverted base scale re-expands
// the result into the template's original resolution.
func composeTransform(h gocv.Mat, baseScale, targetScale float64) gocv.Mat {
	hm := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			hm.Set(r, c, h.GetDoubleAt(r, c))
		}
	}

	targetToNorm := mat.NewDense(3, 3, []float64{
		targetScale, 0, 0,
		0, targetScale, 0,
		0, 0, 1,
	})
	normToBase := mat.NewDense(3, 3, []float64{
		1 / baseScale, 0, 0,
		0, 1 / baseScale, 0,
		0, 0, 1,
	})

	var hs, final mat.Dense
	hs.Mul(hm, targetToNorm)
	final.Mul(normToBase, &hs)

	out := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.SetDoubleAt(r, c, final.At(r, c))
		}
	}
	return out
}
