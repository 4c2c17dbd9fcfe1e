package geometry

import (
	"fmt"
	"math"
)

// BezierSurface is a tensor-product surface of cubic Bezier patches on a
// u×v grid of control points in scanline order. Grid dimensions must be of
// the form 4+3k so adjacent 4x4 patches share their edge rows and columns.
type BezierSurface struct {
	patches    [][16]Point
	gridWidth  int
	gridHeight int
	patchesX   int
	patchesY   int
}

// NewBezierSurface creates a surface from control points in scanline order.
// gridWidth and gridHeight must each be at least 4 and of the form 4+3k.
func NewBezierSurface(controlPoints []Point, gridWidth, gridHeight int) (*BezierSurface, error) {
	if len(controlPoints) != gridWidth*gridHeight {
		return nil, fmt.Errorf("geometry: control point count %d does not match %dx%d grid",
			len(controlPoints), gridWidth, gridHeight)
	}
	if gridWidth < 4 || gridHeight < 4 {
		return nil, fmt.Errorf("geometry: bezier surface must be at least cubic, got %dx%d grid",
			gridWidth, gridHeight)
	}
	if (gridWidth-4)%3 != 0 || (gridHeight-4)%3 != 0 {
		return nil, fmt.Errorf("geometry: %dx%d grid does not decompose into shared-edge 4x4 patches",
			gridWidth, gridHeight)
	}

	s := &BezierSurface{
		gridWidth:  gridWidth,
		gridHeight: gridHeight,
		patchesX:   1 + (gridWidth-4)/3,
		patchesY:   1 + (gridHeight-4)/3,
	}

	s.patches = make([][16]Point, 0, s.patchesX*s.patchesY)
	for py := 0; py < s.patchesY; py++ {
		for px := 0; px < s.patchesX; px++ {
			var patch [16]Point
			// Fill the 4x4 patch in scanline order; adjacent patches
			// overlap on their shared edge.
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					idx := (py*3+y)*gridWidth + (px*3 + x)
					patch[y*4+x] = controlPoints[idx]
				}
			}
			s.patches = append(s.patches, patch)
		}
	}
	return s, nil
}

// GridWidth returns the number of control point columns (the u dimension).
func (s *BezierSurface) GridWidth() int {
	return s.gridWidth
}

// GridHeight returns the number of control point rows (the v dimension).
func (s *BezierSurface) GridHeight() int {
	return s.gridHeight
}

// Patches returns the 4x4 cubic patches in scanline order.
func (s *BezierSurface) Patches() [][16]Point {
	return s.patches
}

// Evaluate returns the surface position at (u, v) in [0,1]².
func (s *BezierSurface) Evaluate(u, v float64) Point {
	patchSizeU := 1.0 / float64(s.patchesX)
	patchSizeV := 1.0 / float64(s.patchesY)

	// min guards the patch index when u or v is exactly 1.
	px := min(int(math.Floor(u/patchSizeU)), s.patchesX-1)
	py := min(int(math.Floor(v/patchSizeV)), s.patchesY-1)

	localU := (u - float64(px)*patchSizeU) / patchSizeU
	localV := (v - float64(py)*patchSizeV) / patchSizeV
	localU = math.Max(0, math.Min(1, localU))
	localV = math.Max(0, math.Min(1, localV))

	return evaluatePatch(s.patches[py*s.patchesX+px], localU, localV)
}

// Mesh samples the surface on a divisionsX×divisionsY lattice, applies the
// non-affine quad transform and bakes the result into a QuadMesh for
// per-pixel UV lookups. The transform quad corners are in scanline order
// over the unit square.
func (s *BezierSurface) Mesh(divisionsX, divisionsY int, nonAffine [4]Point) (*QuadMesh, error) {
	points := make([]Point, 0, divisionsX*divisionsY)
	for y := 0; y < divisionsY; y++ {
		v := float64(y) / float64(divisionsY-1)
		for x := 0; x < divisionsX; x++ {
			u := float64(x) / float64(divisionsX-1)
			points = append(points, s.Evaluate(u, v))
		}
	}
	return NewQuadMeshTransformed(points, nonAffine, divisionsX, divisionsY)
}

// evaluatePatch evaluates a cubic Bezier patch at local (u, v) by running
// De Casteljau across the four rows in u, then once more across v.
func evaluatePatch(patch [16]Point, u, v float64) Point {
	var curves [4]Point
	for row := 0; row < 4; row++ {
		curves[row] = evaluateCurve([4]Point{
			patch[row*4+0], patch[row*4+1], patch[row*4+2], patch[row*4+3],
		}, u)
	}
	return evaluateCurve(curves, v)
}

// evaluateCurve evaluates a cubic Bezier curve at parameter t using
// De Casteljau's algorithm.
func evaluateCurve(points [4]Point, t float64) Point {
	a := points[0].Lerp(points[1], t)
	b := points[1].Lerp(points[2], t)
	c := points[2].Lerp(points[3], t)

	d := a.Lerp(b, t)
	e := b.Lerp(c, t)

	return d.Lerp(e, t)
}
