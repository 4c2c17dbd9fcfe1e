package geometry

import (
	"math"
	"testing"
)

// identityGrid builds a uniform control lattice over [0,w]x[0,h].
func identityGrid(w, h float64, uDims, vDims int) []Point {
	points := make([]Point, 0, uDims*vDims)
	for y := 0; y < vDims; y++ {
		v := float64(y) / float64(vDims-1)
		for x := 0; x < uDims; x++ {
			u := float64(x) / float64(uDims-1)
			points = append(points, Pt(u*w, v*h))
		}
	}
	return points
}

// TestBezierSurfaceDimensions tests grid dimension validation.
func TestBezierSurfaceDimensions(t *testing.T) {
	tests := []struct {
		name    string
		uDims   int
		vDims   int
		wantErr bool
	}{
		{name: "minimal 4x4", uDims: 4, vDims: 4},
		{name: "two patches 7x4", uDims: 7, vDims: 4},
		{name: "large 10x13", uDims: 10, vDims: 13},
		{name: "too small", uDims: 3, vDims: 4, wantErr: true},
		{name: "not 4+3k", uDims: 5, vDims: 4, wantErr: true},
		{name: "not 4+3k vertical", uDims: 4, vDims: 6, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBezierSurface(identityGrid(1, 1, tt.uDims, tt.vDims), tt.uDims, tt.vDims)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBezierSurface error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestBezierSurfaceGridHeight tests that GridHeight reports the
// v-dimension, not the u-dimension.
func TestBezierSurfaceGridHeight(t *testing.T) {
	s, err := NewBezierSurface(identityGrid(1, 1, 7, 10), 7, 10)
	if err != nil {
		t.Fatalf("NewBezierSurface: %v", err)
	}
	if got := s.GridWidth(); got != 7 {
		t.Errorf("GridWidth = %d, want 7", got)
	}
	if got := s.GridHeight(); got != 10 {
		t.Errorf("GridHeight = %d, want 10", got)
	}
}

// TestBezierSurfaceIdentity tests that the uniform lattice evaluates to
// the linear surface.
func TestBezierSurfaceIdentity(t *testing.T) {
	const w, h = 100.0, 50.0
	s, err := NewBezierSurface(identityGrid(w, h, 7, 7), 7, 7)
	if err != nil {
		t.Fatalf("NewBezierSurface: %v", err)
	}

	for _, uv := range []struct{ u, v float64 }{
		{0, 0}, {1, 1}, {0.5, 0.5}, {0.25, 0.75}, {1, 0}, {0.1, 0.9},
	} {
		got := s.Evaluate(uv.u, uv.v)
		want := Pt(uv.u*w, uv.v*h)
		if !got.Equals(want, 1e-9) {
			t.Errorf("Evaluate(%g, %g) = %v, want %v", uv.u, uv.v, got, want)
		}
	}
}

// TestBezierSurfacePatchCount tests the shared-edge patch decomposition.
func TestBezierSurfacePatchCount(t *testing.T) {
	s, err := NewBezierSurface(identityGrid(1, 1, 10, 7), 10, 7)
	if err != nil {
		t.Fatalf("NewBezierSurface: %v", err)
	}
	if got, want := len(s.Patches()), 3*2; got != want {
		t.Errorf("patch count = %d, want %d", got, want)
	}
}

// TestEvaluateCurveEndpoints tests De Casteljau at the parameter ends.
func TestEvaluateCurveEndpoints(t *testing.T) {
	curve := [4]Point{Pt(0, 0), Pt(1, 3), Pt(2, -3), Pt(3, 0)}
	if got := evaluateCurve(curve, 0); !got.Equals(curve[0], 1e-12) {
		t.Errorf("t=0: got %v, want %v", got, curve[0])
	}
	if got := evaluateCurve(curve, 1); !got.Equals(curve[3], 1e-12) {
		t.Errorf("t=1: got %v, want %v", got, curve[3])
	}
	mid := evaluateCurve(curve, 0.5)
	if math.Abs(mid.X-1.5) > 1e-12 {
		t.Errorf("t=0.5: X = %g, want 1.5", mid.X)
	}
}
