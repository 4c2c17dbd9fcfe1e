package geometry

import "math"

// Matrix represents a 2D affine transformation matrix.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translate creates a translation matrix.
func Translate(x, y float64) Matrix {
	return Matrix{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scale creates a scaling matrix.
func Scale(x, y float64) Matrix {
	return Matrix{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotate creates a rotation matrix (angle in radians).
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin, C: 0,
		D: sin, E: cos, F: 0,
	}
}

// Multiply multiplies two matrices (m * other).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// TransformPoint applies the transformation to a point.
func (m Matrix) TransformPoint(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// Invert returns the inverse matrix and whether the matrix is invertible.
func (m Matrix) Invert() (Matrix, bool) {
	det := m.A*m.E - m.B*m.D
	if det == 0 {
		return Matrix{}, false
	}
	inv := 1 / det
	return Matrix{
		A: m.E * inv,
		B: -m.B * inv,
		C: (m.B*m.F - m.C*m.E) * inv,
		D: -m.D * inv,
		E: m.A * inv,
		F: (m.C*m.D - m.A*m.F) * inv,
	}, true
}

// IsIdentity reports whether the matrix is the identity within epsilon.
func (m Matrix) IsIdentity(epsilon float64) bool {
	id := Identity()
	return math.Abs(m.A-id.A) <= epsilon && math.Abs(m.B-id.B) <= epsilon &&
		math.Abs(m.C-id.C) <= epsilon && math.Abs(m.D-id.D) <= epsilon &&
		math.Abs(m.E-id.E) <= epsilon && math.Abs(m.F-id.F) <= epsilon
}

// Homography is a full 3x3 projective transformation in row-major order.
// It maps non-affine (perspective) quad-to-quad correspondences that an
// affine Matrix cannot express.
type Homography [9]float64

// IdentityHomography returns the identity projective transform.
func IdentityHomography() Homography {
	return Homography{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// TransformPoint applies the projective transformation to a point,
// performing the perspective divide.
func (h Homography) TransformPoint(p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point{}
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Multiply returns h * other.
func (h Homography) Multiply(other Homography) Homography {
	var out Homography
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += h[row*3+k] * other[k*3+col]
			}
			out[row*3+col] = sum
		}
	}
	return out
}

// Invert returns the inverse homography via the adjugate and whether the
// matrix is invertible.
func (h Homography) Invert() (Homography, bool) {
	a, b, c := h[0], h[1], h[2]
	d, e, f := h[3], h[4], h[5]
	g, i, j := h[6], h[7], h[8]

	det := a*(e*j-f*i) - b*(d*j-f*g) + c*(d*i-e*g)
	if det == 0 {
		return Homography{}, false
	}
	inv := 1 / det
	return Homography{
		(e*j - f*i) * inv, (c*i - b*j) * inv, (b*f - c*e) * inv,
		(f*g - d*j) * inv, (a*j - c*g) * inv, (c*d - a*f) * inv,
		(d*i - e*g) * inv, (b*g - a*i) * inv, (a*e - b*d) * inv,
	}, true
}

// quadToUnitSquare computes the homography mapping the unit square
// (0,0) (1,0) (0,1) (1,1) onto the given quad. The quad corners are in
// scanline order: top-left, top-right, bottom-left, bottom-right.
func quadToUnitSquare(quad [4]Point) (Homography, bool) {
	p0, p1, p2, p3 := quad[0], quad[1], quad[2], quad[3]

	dx1 := p1.X - p3.X
	dx2 := p2.X - p3.X
	dy1 := p1.Y - p3.Y
	dy2 := p2.Y - p3.Y
	sx := p0.X - p1.X - p2.X + p3.X
	sy := p0.Y - p1.Y - p2.Y + p3.Y

	denom := dx1*dy2 - dx2*dy1
	if denom == 0 {
		return Homography{}, false
	}
	g := (sx*dy2 - sy*dx2) / denom
	i := (sy*dx1 - sx*dy1) / denom

	return Homography{
		p1.X - p0.X + g*p1.X, p2.X - p0.X + i*p2.X, p0.X,
		p1.Y - p0.Y + g*p1.Y, p2.Y - p0.Y + i*p2.Y, p0.Y,
		g, i, 1,
	}, true
}

// HomographyFromQuads computes the projective transformation mapping the
// source quad onto the destination quad. Corners are in scanline order:
// top-left, top-right, bottom-left, bottom-right.
func HomographyFromQuads(source, destination [4]Point) (Homography, bool) {
	srcToUnit, ok := quadToUnitSquare(source)
	if !ok {
		return Homography{}, false
	}
	unitToSrc, ok := srcToUnit.Invert()
	if !ok {
		return Homography{}, false
	}
	unitToDst, ok := quadToUnitSquare(destination)
	if !ok {
		return Homography{}, false
	}
	return unitToDst.Multiply(unitToSrc), true
}
