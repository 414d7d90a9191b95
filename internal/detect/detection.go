// Package detect provides the field-detector contract, the detection data
// model, and the de-duplication filter used by the scan pipeline.
package detect

// Point is a 2D pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned box in pixel coordinates with X1 <= X2, Y1 <= Y2.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Area returns the rectangle area, 0 for degenerate boxes.
func (r Rect) Area() int {
	w := r.Width()
	h := r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

type bboxKind uint8

const (
	bboxRect bboxKind = iota
	bboxQuad
)

// BBox is the box shape a detector may report: either an axis-aligned
// rectangle or a four-point quadrilateral. Both canonicalize to a single
// Rect, so nothing downstream inspects the shape at runtime.
type BBox struct {
	kind bboxKind
	rect Rect
	quad [4]Point
}

// RectBox constructs an axis-aligned BBox.
func RectBox(x1, y1, x2, y2 int) BBox {
	return BBox{kind: bboxRect, rect: Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

// QuadBox constructs a four-point BBox.
func QuadBox(points [4]Point) BBox {
	return BBox{kind: bboxQuad, quad: points}
}

// Rect returns the canonical axis-aligned rectangle: the box itself for rect
// variants, the axis-aligned envelope for quad variants.
func (b BBox) Rect() Rect {
	if b.kind == bboxRect {
		return b.rect
	}

	r := Rect{X1: b.quad[0].X, Y1: b.quad[0].Y, X2: b.quad[0].X, Y2: b.quad[0].Y}
	for _, p := range b.quad[1:] {
		if p.X < r.X1 {
			r.X1 = p.X
		}
		if p.Y < r.Y1 {
			r.Y1 = p.Y
		}
		if p.X > r.X2 {
			r.X2 = p.X
		}
		if p.Y > r.Y2 {
			r.Y2 = p.Y
		}
	}
	return r
}

// Detection is one labeled box reported by the field detector.
type Detection struct {
	Label      string  `json:"label"`
	Box        Rect    `json:"bbox"`
	Confidence float64 `json:"confidence"`

	// PositionRank is the 0-based acceptance order assigned by the filter;
	// 0 marks the best-scoring detection for the label.
	PositionRank int `json:"position_rank"`
}

// IOU returns the intersection-over-union of two rectangles. Disjoint or
// degenerate boxes yield 0.
func IOU(a, b Rect) float64 {
	x1 := a.X1
	if b.X1 > x1 {
		x1 = b.X1
	}
	y1 := a.Y1
	if b.Y1 > y1 {
		y1 = b.Y1
	}
	x2 := a.X2
	if b.X2 < x2 {
		x2 = b.X2
	}
	y2 := a.Y2
	if b.Y2 < y2 {
		y2 = b.Y2
	}

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
