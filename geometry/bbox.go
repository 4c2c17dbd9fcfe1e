package geometry

import "math"

// BBox is an axis-aligned bounding box over float64 coordinates.
// Minimum is the top-left corner, Maximum the bottom-right.
type BBox struct {
	Minimum Point
	Maximum Point
}

// NewBBox creates a bounding box from its two corners.
func NewBBox(minimum, maximum Point) BBox {
	return BBox{Minimum: minimum, Maximum: maximum}
}

// ComputeBBox computes the bounding box of a set of points.
// An empty slice yields the zero box.
func ComputeBBox(points []Point) BBox {
	if len(points) == 0 {
		return BBox{}
	}
	b := BBox{Minimum: points[0], Maximum: points[0]}
	for _, p := range points[1:] {
		b.Minimum.X = math.Min(b.Minimum.X, p.X)
		b.Minimum.Y = math.Min(b.Minimum.Y, p.Y)
		b.Maximum.X = math.Max(b.Maximum.X, p.X)
		b.Maximum.Y = math.Max(b.Maximum.Y, p.Y)
	}
	return b
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 {
	return b.Maximum.X - b.Minimum.X
}

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 {
	return b.Maximum.Y - b.Minimum.Y
}

// Center returns the center point of the box.
func (b BBox) Center() Point {
	return Point{
		X: (b.Minimum.X + b.Maximum.X) / 2,
		Y: (b.Minimum.Y + b.Maximum.Y) / 2,
	}
}

// Size returns the width and height of the box.
func (b BBox) Size() Point {
	return Point{X: b.Width(), Y: b.Height()}
}

// Empty reports whether the box has no area.
func (b BBox) Empty() bool {
	return b.Maximum.X <= b.Minimum.X || b.Maximum.Y <= b.Minimum.Y
}

// Offset returns the box translated by the given vector.
func (b BBox) Offset(delta Point) BBox {
	return BBox{
		Minimum: b.Minimum.Add(delta),
		Maximum: b.Maximum.Add(delta),
	}
}

// Contains reports whether the point lies inside the box, borders included.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Minimum.X && p.X <= b.Maximum.X &&
		p.Y >= b.Minimum.Y && p.Y <= b.Maximum.Y
}

// ContainsBox reports whether other lies fully inside b, borders included.
// The relation is reflexive and agrees with Intersect: b.ContainsBox(o)
// holds exactly when Intersect(b, o) == o for non-empty boxes.
func (b BBox) ContainsBox(other BBox) bool {
	return b.Contains(other.Minimum) && b.Contains(other.Maximum)
}

// Intersect returns the intersection of two boxes and whether it is
// non-empty. Intersection is commutative and associative.
func Intersect(a, b BBox) (BBox, bool) {
	out := BBox{
		Minimum: Point{X: math.Max(a.Minimum.X, b.Minimum.X), Y: math.Max(a.Minimum.Y, b.Minimum.Y)},
		Maximum: Point{X: math.Min(a.Maximum.X, b.Maximum.X), Y: math.Min(a.Maximum.Y, b.Maximum.Y)},
	}
	if out.Empty() {
		return BBox{}, false
	}
	return out, true
}

// Union returns the smallest box containing both inputs.
func Union(a, b BBox) BBox {
	return BBox{
		Minimum: Point{X: math.Min(a.Minimum.X, b.Minimum.X), Y: math.Min(a.Minimum.Y, b.Minimum.Y)},
		Maximum: Point{X: math.Max(a.Maximum.X, b.Maximum.X), Y: math.Max(a.Maximum.Y, b.Maximum.Y)},
	}
}
