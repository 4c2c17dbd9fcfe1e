package geometry

import (
	"math"
	"testing"
)

// latticePoints builds a deformed lattice for mesh tests.
func latticePoints(divX, divY int, deform func(x, y int) Point) []Point {
	points := make([]Point, 0, divX*divY)
	for y := 0; y < divY; y++ {
		for x := 0; x < divX; x++ {
			points = append(points, deform(x, y))
		}
	}
	return points
}

// TestMeshVertexUVLookup tests that every vertex position maps back to
// its own UV coordinate through the octree-accelerated lookup.
func TestMeshVertexUVLookup(t *testing.T) {
	tests := []struct {
		name   string
		divX   int
		divY   int
		deform func(x, y int) Point
	}{
		{
			name: "uniform grid",
			divX: 9, divY: 9,
			deform: func(x, y int) Point { return Pt(float64(x)*10, float64(y)*10) },
		},
		{
			name: "sheared grid",
			divX: 6, divY: 8,
			deform: func(x, y int) Point {
				return Pt(float64(x)*10+float64(y)*2, float64(y)*10)
			},
		},
		{
			name: "wavy grid",
			divX: 12, divY: 12,
			deform: func(x, y int) Point {
				return Pt(
					float64(x)*8+3*math.Sin(float64(y)/2),
					float64(y)*8+3*math.Cos(float64(x)/2),
				)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := NewQuadMesh(latticePoints(tt.divX, tt.divY, tt.deform), tt.divX, tt.divY)
			if err != nil {
				t.Fatalf("NewQuadMesh: %v", err)
			}
			for i, v := range mesh.Vertices() {
				uv, ok := mesh.UVCoordinate(v.Point)
				if !ok {
					t.Fatalf("vertex %d at %v not found on mesh", i, v.Point)
				}
				if math.Abs(uv.X-v.UV.X) > 1e-6 || math.Abs(uv.Y-v.UV.Y) > 1e-6 {
					t.Fatalf("vertex %d: uv = %v, want %v", i, uv, v.UV)
				}
			}
		})
	}
}

// TestMeshUVOutside tests that points off the mesh report no UV.
func TestMeshUVOutside(t *testing.T) {
	mesh, err := NewQuadMesh(latticePoints(4, 4, func(x, y int) Point {
		return Pt(float64(x)*10, float64(y)*10)
	}), 4, 4)
	if err != nil {
		t.Fatalf("NewQuadMesh: %v", err)
	}
	if _, ok := mesh.UVCoordinate(Pt(-5, -5)); ok {
		t.Error("point outside the mesh reported a UV")
	}
	if _, ok := mesh.UVCoordinate(Pt(100, 100)); ok {
		t.Error("point outside the mesh reported a UV")
	}
}

// TestMeshMove tests that translation moves the bbox and keeps lookups
// working.
func TestMeshMove(t *testing.T) {
	mesh, err := NewQuadMesh(latticePoints(5, 5, func(x, y int) Point {
		return Pt(float64(x)*4, float64(y)*4)
	}), 5, 5)
	if err != nil {
		t.Fatalf("NewQuadMesh: %v", err)
	}
	if err := mesh.Move(Pt(100, 200)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := mesh.BBox().Minimum; !got.Equals(Pt(100, 200), 1e-12) {
		t.Errorf("bbox minimum after move = %v, want (100, 200)", got)
	}
	uv, ok := mesh.UVCoordinate(Pt(108, 208))
	if !ok {
		t.Fatal("moved mesh lost its interior")
	}
	if math.Abs(uv.X-0.5) > 1e-6 || math.Abs(uv.Y-0.5) > 1e-6 {
		t.Errorf("uv at moved center = %v, want (0.5, 0.5)", uv)
	}
}

// TestHomographyFromQuads tests that the computed homography maps the
// source corners exactly onto the destination corners.
func TestHomographyFromQuads(t *testing.T) {
	source := [4]Point{Pt(0, 0), Pt(10, 0), Pt(0, 10), Pt(10, 10)}
	destination := [4]Point{Pt(1, 1), Pt(12, -1), Pt(-2, 11), Pt(14, 13)}

	h, ok := HomographyFromQuads(source, destination)
	if !ok {
		t.Fatal("HomographyFromQuads failed")
	}
	for i := range source {
		got := h.TransformPoint(source[i])
		if !got.Equals(destination[i], 1e-9) {
			t.Errorf("corner %d: got %v, want %v", i, got, destination[i])
		}
	}
}

// TestHomographyIdentity tests that equal quads produce the identity.
func TestHomographyIdentity(t *testing.T) {
	quad := [4]Point{Pt(0, 0), Pt(5, 0), Pt(0, 5), Pt(5, 5)}
	h, ok := HomographyFromQuads(quad, quad)
	if !ok {
		t.Fatal("HomographyFromQuads failed")
	}
	p := Pt(2.5, 1.25)
	if got := h.TransformPoint(p); !got.Equals(p, 1e-9) {
		t.Errorf("identity homography moved %v to %v", p, got)
	}
}
