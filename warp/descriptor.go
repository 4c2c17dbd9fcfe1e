package warp

import (
	"fmt"

	"github.com/gopsd/psd/format"
	"github.com/gopsd/psd/geometry"
)

// Descriptor item keys used by the warp persistence format.
const (
	keyWarp       = "warp"
	keyMeshPoints = "customEnvelopeWarp"
	keyMeshRows   = "deformNumRows"
	keyMeshCols   = "deformNumCols"
	keyNonAffine  = "nonAffineTransform"
	keyTransform  = "Trnf"
	keyWidth      = "Wdth"
	keyHeight     = "Hght"
	keyHorizontal = "Hrzn"
	keyVertical   = "Vrtc"
	keyRationalPt = "rationalPoint"
)

func pointDescriptor(p geometry.Point) *format.Descriptor {
	d := &format.Descriptor{ClassID: keyRationalPt}
	d.Put(keyHorizontal, p.X)
	d.Put(keyVertical, p.Y)
	return d
}

func pointFromDescriptor(v any) (geometry.Point, error) {
	d, ok := v.(*format.Descriptor)
	if !ok {
		return geometry.Point{}, fmt.Errorf("warp: descriptor point has type %T", v)
	}
	x, okX := d.GetFloat(keyHorizontal)
	y, okY := d.GetFloat(keyVertical)
	if !okX || !okY {
		return geometry.Point{}, fmt.Errorf("warp: descriptor point missing coordinates")
	}
	return geometry.Point{X: x, Y: y}, nil
}

func quadList(quad [4]geometry.Point) format.DescriptorList {
	list := make(format.DescriptorList, 0, 8)
	for _, p := range quad {
		list = append(list, p.X, p.Y)
	}
	return list
}

func quadFromList(list format.DescriptorList) ([4]geometry.Point, error) {
	var quad [4]geometry.Point
	if len(list) != 8 {
		return quad, fmt.Errorf("warp: transform quad has %d values, expected 8", len(list))
	}
	for i := 0; i < 4; i++ {
		x, okX := list[i*2].(float64)
		y, okY := list[i*2+1].(float64)
		if !okX || !okY {
			return quad, fmt.Errorf("warp: transform quad holds non-numeric values")
		}
		quad[i] = geometry.Point{X: x, Y: y}
	}
	return quad, nil
}

// ToDescriptor serializes the warp into the typed descriptor persisted
// inside the placed-layer tagged block: grid dimensions, control points,
// the non-affine quad, the transform matrix and the source dimensions.
func (w *Warp) ToDescriptor() *format.Descriptor {
	d := &format.Descriptor{ClassID: keyWarp}
	d.Put(keyWidth, format.UnitFloat{Unit: "#Pxl", Value: w.width})
	d.Put(keyHeight, format.UnitFloat{Unit: "#Pxl", Value: w.height})
	d.Put(keyMeshCols, int32(w.uDims))
	d.Put(keyMeshRows, int32(w.vDims))

	points := make(format.DescriptorList, 0, len(w.points))
	for _, p := range w.points {
		points = append(points, pointDescriptor(p))
	}
	mesh := &format.Descriptor{ClassID: keyMeshPoints}
	mesh.Put("meshPoints", points)
	d.Put(keyMeshPoints, mesh)

	// The affine part travels as its 3x3 matrix in row-major order; the
	// non-affine quad is stored verbatim.
	src := sourceQuad(w.width, w.height)
	matrix := format.DescriptorList{}
	if h, ok := geometry.HomographyFromQuads(src, w.affine); ok {
		for _, v := range h {
			matrix = append(matrix, v)
		}
	} else {
		for _, v := range geometry.IdentityHomography() {
			matrix = append(matrix, v)
		}
	}
	d.Put(keyTransform, matrix)
	d.Put(keyNonAffine, quadList(w.nonAffine))
	return d
}

// FromDescriptor reconstructs a warp from its persisted descriptor.
func FromDescriptor(d *format.Descriptor) (*Warp, error) {
	width, ok := d.GetFloat(keyWidth)
	if !ok {
		return nil, fmt.Errorf("warp: descriptor missing source width")
	}
	height, ok := d.GetFloat(keyHeight)
	if !ok {
		return nil, fmt.Errorf("warp: descriptor missing source height")
	}
	cols, ok := d.GetInt(keyMeshCols)
	if !ok {
		return nil, fmt.Errorf("warp: descriptor missing grid columns")
	}
	rows, ok := d.GetInt(keyMeshRows)
	if !ok {
		return nil, fmt.Errorf("warp: descriptor missing grid rows")
	}

	w, err := New(width, height, int(cols), int(rows))
	if err != nil {
		return nil, err
	}

	if mesh, ok := d.GetDescriptor(keyMeshPoints); ok {
		list, ok := mesh.GetList("meshPoints")
		if !ok {
			return nil, fmt.Errorf("warp: descriptor mesh has no points")
		}
		points := make([]geometry.Point, 0, len(list))
		for _, item := range list {
			p, err := pointFromDescriptor(item)
			if err != nil {
				return nil, err
			}
			points = append(points, p)
		}
		if err := w.SetPoints(points); err != nil {
			return nil, err
		}
	}

	if matrix, ok := d.GetList(keyTransform); ok && len(matrix) == 9 {
		var h geometry.Homography
		valid := true
		for i, v := range matrix {
			f, ok := v.(float64)
			if !ok {
				valid = false
				break
			}
			h[i] = f
		}
		if valid {
			src := sourceQuad(width, height)
			var affine [4]geometry.Point
			for i, p := range src {
				affine[i] = h.TransformPoint(p)
			}
			w.affine = affine
		}
	}

	if quad, ok := d.GetList(keyNonAffine); ok {
		nonAffine, err := quadFromList(quad)
		if err != nil {
			return nil, err
		}
		w.nonAffine = nonAffine
	}
	return w, nil
}
