package scan

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	// blackThreshold separates warp padding from card content; pixels at or
	// below this intensity count as padding, not content.
	blackThreshold = 10

	// cropMargin keeps a little slack around the detected content so field
	// boxes on the card edge survive the crop.
	cropMargin = 2
)

// CropBlackPadding trims the uniform black border that WarpPerspective
// leaves around an aligned card: threshold away near-black pixels, take the
// bounding box of the largest remaining region, and expand it by a small
// margin. If no non-black region exists the image is returned unchanged.
// The input is not mutated; the result is always a fresh Mat.
func CropBlackPadding(img gocv.Mat) gocv.Mat {
	gray := grayscale(img)
	defer gray.Close()

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, blackThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return img.Clone()
	}

	bestIdx := 0
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			bestArea = area
			bestIdx = i
		}
	}

	bounds := gocv.BoundingRect(contours.At(bestIdx))

	x1 := bounds.Min.X - cropMargin
	if x1 < 0 {
		x1 = 0
	}
	y1 := bounds.Min.Y - cropMargin
	if y1 < 0 {
		y1 = 0
	}
	x2 := bounds.Max.X + cropMargin
	if x2 > img.Cols() {
		x2 = img.Cols()
	}
	y2 := bounds.Max.Y + cropMargin
	if y2 > img.Rows() {
		y2 = img.Rows()
	}

	region := img.Region(image.Rect(x1, y1, x2, y2))
	defer region.Close()
	return region.Clone()
}
