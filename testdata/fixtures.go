// Package testdata generates synthetic document images for tests, so
// alignment and pipeline tests need no binary assets.
package testdata

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// CardTemplate renders a synthetic identity-card image with enough corner
// structure for ORB to lock onto: a border, an emblem, and rows of field
// boxes with printed text.
func CardTemplate(width, height int) gocv.Mat {
	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(235, 242, 248, 0))

	ink := color.RGBA{R: 25, G: 25, B: 35}
	frame := color.RGBA{R: 60, G: 90, B: 160}
	accent := color.RGBA{R: 180, G: 60, B: 40}

	gocv.Rectangle(&img, image.Rect(8, 8, width-8, height-8), frame, 4)
	gocv.Circle(&img, image.Pt(width/6, height/6), height/10, accent, -1)
	gocv.Circle(&img, image.Pt(width/6, height/6), height/18, color.RGBA{R: 230, G: 220, B: 90}, -1)
	gocv.PutText(&img, "IDENTITY CARD", image.Pt(width/3, height/8), gocv.FontHersheySimplex, float64(width)/800.0, ink, 2)
	gocv.PutText(&img, "SOCIALIST REPUBLIC", image.Pt(width/3, height/8+height/16), gocv.FontHersheyPlain, float64(width)/600.0, ink, 1)

	rows := 8
	for i := 0; i < rows; i++ {
		y := height/3 + i*height/(rows+4)
		boxH := height / 24
		gocv.Rectangle(&img, image.Rect(width/12, y, width/12+width/5, y+boxH), frame, 2)
		gocv.PutText(&img, fmt.Sprintf("FIELD %d: A%d83 9S7 K1%d4", i, i*7, i*3),
			image.Pt(width/12+width/4, y+boxH-4), gocv.FontHersheyPlain, float64(width)/640.0, ink, 2)
		gocv.Line(&img, image.Pt(width/12, y+boxH+4),
			image.Pt(width/12+(i%3+4)*width/10, y+boxH+4), ink, 1)
	}

	// Photo box with diagonal hatching.
	photo := image.Rect(width-width/3, height/3, width-width/12, height/3+height/3)
	gocv.Rectangle(&img, photo, frame, 3)
	for x := photo.Min.X; x < photo.Max.X; x += 12 {
		gocv.Line(&img, image.Pt(x, photo.Min.Y), image.Pt(photo.Min.X, photo.Min.Y+(x-photo.Min.X)), accent, 1)
	}

	return img
}

// PhotographedCard embeds template into a larger canvas, as if the card had
// been photographed on a desk, and rotates the result by angleDeg around the
// canvas center.
func PhotographedCard(template gocv.Mat, width, height int, angleDeg float64) gocv.Mat {
	canvas := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	canvas.SetTo(gocv.NewScalar(70, 75, 80, 0))

	// Fit the card into 80% of the canvas, preserving aspect ratio.
	scale := 0.8 * float64(width) / float64(template.Cols())
	if s := 0.8 * float64(height) / float64(template.Rows()); s < scale {
		scale = s
	}
	cw := int(float64(template.Cols()) * scale)
	ch := int(float64(template.Rows()) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(template, &resized, image.Pt(cw, ch), 0, 0, gocv.InterpolationLinear)

	x := (width - cw) / 2
	y := (height - ch) / 2
	region := canvas.Region(image.Rect(x, y, x+cw, y+ch))
	resized.CopyTo(&region)
	region.Close()

	if angleDeg == 0 {
		return canvas
	}

	rot := gocv.GetRotationMatrix2D(image.Pt(width/2, height/2), angleDeg, 1.0)
	defer rot.Close()

	rotated := gocv.NewMat()
	gocv.WarpAffine(canvas, &rotated, rot, image.Pt(width, height))
	canvas.Close()
	return rotated
}

// FlatImage returns a uniform image with no texture at all, which yields no
// ORB descriptors.
func FlatImage(width, height int) gocv.Mat {
	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(128, 128, 128, 0))
	return img
}

// EncodeJPEG returns the JPEG bytes of img, for upload-style tests.
func EncodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
