// Package warp implements the smart-object warp engine: a Bezier patch
// surface composed with an affine and a non-affine (perspective) quad
// transform, baked into a quad mesh for per-pixel inverse lookups.
package warp

import (
	"fmt"
	"math"

	"github.com/gopsd/psd/geometry"
)

// epsilon bounds the comparisons behind NoOp and identity detection.
const epsilon = 1e-9

// Warp describes the deformation of a smart-object source in
// source-space order: Bezier surface, then affine quad, then non-affine
// quad. The control grid is in scanline order with dimensions of the
// form 4+3k so the surface decomposes into shared-edge cubic patches.
type Warp struct {
	width  float64
	height float64
	uDims  int
	vDims  int
	points []geometry.Point

	affine    [4]geometry.Point
	nonAffine [4]geometry.Point
}

// validGridDim reports whether n is 4+3k.
func validGridDim(n int) bool {
	return n >= 4 && (n-4)%3 == 0
}

// identityLattice returns the uniform control lattice over the source
// rectangle.
func identityLattice(width, height float64, uDims, vDims int) []geometry.Point {
	points := make([]geometry.Point, 0, uDims*vDims)
	for y := 0; y < vDims; y++ {
		v := float64(y) / float64(vDims-1)
		for x := 0; x < uDims; x++ {
			u := float64(x) / float64(uDims-1)
			points = append(points, geometry.Point{X: u * width, Y: v * height})
		}
	}
	return points
}

// sourceQuad returns the corner quad of the source rectangle in scanline
// order.
func sourceQuad(width, height float64) [4]geometry.Point {
	return [4]geometry.Point{
		{X: 0, Y: 0},
		{X: width, Y: 0},
		{X: 0, Y: height},
		{X: width, Y: height},
	}
}

// New creates an identity warp over a source of the given pixel size.
// uDims and vDims must be of the form 4+3k.
func New(width, height float64, uDims, vDims int) (*Warp, error) {
	if !validGridDim(uDims) || !validGridDim(vDims) {
		return nil, fmt.Errorf("warp: grid dimensions %dx%d must be 4+3k", uDims, vDims)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("warp: source size %gx%g must be positive", width, height)
	}
	return &Warp{
		width:     width,
		height:    height,
		uDims:     uDims,
		vDims:     vDims,
		points:    identityLattice(width, height, uDims, vDims),
		affine:    sourceQuad(width, height),
		nonAffine: sourceQuad(width, height),
	}, nil
}

// SourceSize returns the source pixel dimensions the warp spans.
func (w *Warp) SourceSize() (width, height float64) {
	return w.width, w.height
}

// GridWidth returns the number of control point columns (u dimension).
func (w *Warp) GridWidth() int {
	return w.uDims
}

// GridHeight returns the number of control point rows (v dimension).
func (w *Warp) GridHeight() int {
	return w.vDims
}

// Points returns the control points in scanline order.
func (w *Warp) Points() []geometry.Point {
	return w.points
}

// SetPoints replaces the full control grid.
func (w *Warp) SetPoints(points []geometry.Point) error {
	if len(points) != w.uDims*w.vDims {
		return fmt.Errorf("warp: expected %d control points, got %d", w.uDims*w.vDims, len(points))
	}
	w.points = append(w.points[:0:0], points...)
	return nil
}

// Point returns the control point at grid position (u, v).
func (w *Warp) Point(u, v int) geometry.Point {
	return w.points[v*w.uDims+u]
}

// SetPoint moves the control point at grid position (u, v).
func (w *Warp) SetPoint(u, v int, p geometry.Point) {
	w.points[v*w.uDims+u] = p
}

// AffineQuad returns the affine transform quad.
func (w *Warp) AffineQuad() [4]geometry.Point {
	return w.affine
}

// SetAffineQuad replaces the affine transform quad.
func (w *Warp) SetAffineQuad(quad [4]geometry.Point) {
	w.affine = quad
}

// NonAffineQuad returns the non-affine (perspective) transform quad.
func (w *Warp) NonAffineQuad() [4]geometry.Point {
	return w.nonAffine
}

// SetNonAffineQuad replaces the non-affine transform quad.
func (w *Warp) SetNonAffineQuad(quad [4]geometry.Point) {
	w.nonAffine = quad
}

// ApplyTransform maps both transform quads through the affine matrix,
// composing a move, scale or rotation onto the displayed extent.
func (w *Warp) ApplyTransform(m geometry.Matrix) {
	for i := range w.affine {
		w.affine[i] = m.TransformPoint(w.affine[i])
	}
	for i := range w.nonAffine {
		w.nonAffine[i] = m.TransformPoint(w.nonAffine[i])
	}
}

// ResetWarp restores the Bezier grid to the identity surface (linear in
// u and v) but preserves the affine and non-affine transforms.
func (w *Warp) ResetWarp() {
	w.points = identityLattice(w.width, w.height, w.uDims, w.vDims)
}

// ResetTransform restores both transform quads to the identity source
// quad but preserves the Bezier grid.
func (w *Warp) ResetTransform() {
	w.affine = sourceQuad(w.width, w.height)
	w.nonAffine = sourceQuad(w.width, w.height)
}

// quadsEqual compares two quads within epsilon.
func quadsEqual(a, b [4]geometry.Point) bool {
	for i := range a {
		if !a[i].Equals(b[i], epsilon) {
			return false
		}
	}
	return true
}

// NoOp reports whether the warp leaves the source untouched: control
// points on the initial uniform lattice and both transforms identity.
func (w *Warp) NoOp() bool {
	identity := identityLattice(w.width, w.height, w.uDims, w.vDims)
	for i, p := range w.points {
		if !p.Equals(identity[i], epsilon) {
			return false
		}
	}
	src := sourceQuad(w.width, w.height)
	return quadsEqual(w.affine, src) && quadsEqual(w.nonAffine, src)
}

// Surface builds the Bezier surface over the current control grid.
func (w *Warp) Surface() (*geometry.BezierSurface, error) {
	return geometry.NewBezierSurface(w.points, w.uDims, w.vDims)
}

// transformHomography composes the affine and non-affine transforms into
// one projective map.
func (w *Warp) transformHomography() (geometry.Homography, error) {
	src := sourceQuad(w.width, w.height)
	toAffine, ok := geometry.HomographyFromQuads(src, w.affine)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("warp: degenerate affine quad")
	}
	toNonAffine, ok := geometry.HomographyFromQuads(w.affine, w.nonAffine)
	if !ok {
		return geometry.Homography{}, fmt.Errorf("warp: degenerate non-affine quad")
	}
	return toNonAffine.Multiply(toAffine), nil
}

// Mesh samples the warped surface on a divisionsX by divisionsY lattice,
// applies the transforms and bakes the result into a QuadMesh whose UVs
// index the undeformed source.
func (w *Warp) Mesh(divisionsX, divisionsY int) (*geometry.QuadMesh, error) {
	if divisionsX < 2 || divisionsY < 2 {
		return nil, fmt.Errorf("warp: mesh divisions %dx%d must be at least 2x2", divisionsX, divisionsY)
	}
	surface, err := w.Surface()
	if err != nil {
		return nil, err
	}
	h, err := w.transformHomography()
	if err != nil {
		return nil, err
	}

	points := make([]geometry.Point, 0, divisionsX*divisionsY)
	for y := 0; y < divisionsY; y++ {
		v := float64(y) / float64(divisionsY-1)
		for x := 0; x < divisionsX; x++ {
			u := float64(x) / float64(divisionsX-1)
			points = append(points, h.TransformPoint(surface.Evaluate(u, v)))
		}
	}
	return geometry.NewQuadMesh(points, divisionsX, divisionsY)
}

// Bounds returns the bounding box of the fully transformed surface,
// which is the displayed extent of the warped source.
func (w *Warp) Bounds() (geometry.BBox, error) {
	mesh, err := w.Mesh(defaultMeshDivisions(w.uDims), defaultMeshDivisions(w.vDims))
	if err != nil {
		return geometry.BBox{}, err
	}
	return mesh.BBox(), nil
}

// defaultMeshDivisions picks a sampling density that resolves every
// patch without oversampling flat regions.
func defaultMeshDivisions(gridDim int) int {
	patches := 1 + (gridDim-4)/3
	n := patches*8 + 1
	return int(math.Max(float64(n), 9))
}
