package scan

import (
	"math"

	"gocv.io/x/gocv"
)

// ImageMetrics summarizes the photographic quality of a scan.
type ImageMetrics struct {
	// BlurScore is the variance of the Laplacian; higher is sharper.
	BlurScore float64 `json:"blur_score"`
	// Brightness is the mean gray level.
	Brightness float64 `json:"brightness"`
	// Contrast is the standard deviation of gray levels.
	Contrast float64 `json:"contrast"`
}

// MeasureImage computes quality metrics over a single image.
func MeasureImage(img gocv.Mat) ImageMetrics {
	gray := grayscale(img)
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	grayF := gocv.NewMat()
	defer grayF.Close()
	gray.ConvertTo(&grayF, gocv.MatTypeCV64F)

	contrast := variance(grayF)
	if contrast > 0 {
		contrast = math.Sqrt(contrast)
	}

	return ImageMetrics{
		BlurScore:  variance(lap),
		Brightness: gray.Mean().Val1,
		Contrast:   contrast,
	}
}

// variance computes E[x^2] - E[x]^2 over a single-channel float Mat.
func variance(m gocv.Mat) float64 {
	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(m, m, &sq)

	mean := m.Mean().Val1
	v := sq.Mean().Val1 - mean*mean
	if v < 0 {
		return 0
	}
	return v
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
