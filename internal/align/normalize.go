package align

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Normalized is an image rescaled so its longest side equals the target
// dimension, together with the factor that maps original pixel coordinates
// into the rescaled space. It is scoped to a single Align call.
type Normalized struct {
	Img   gocv.Mat
	Scale float64
}

// Close releases the rescaled image.
func (n *Normalized) Close() {
	n.Img.Close()
}

// Normalize resizes img preserving aspect ratio so that its longest side
// equals targetDim. The returned scale satisfies
// scale = targetDim / max(width, height).
func Normalize(img gocv.Mat, targetDim int) (*Normalized, error) {
	w := img.Cols()
	h := img.Rows()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, w, h)
	}

	maxDim := w
	if h > w {
		maxDim = h
	}
	scale := float64(targetDim) / float64(maxDim)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(int(float64(w)*scale), int(float64(h)*scale)), 0, 0, gocv.InterpolationLinear)

	return &Normalized{Img: resized, Scale: scale}, nil
}
