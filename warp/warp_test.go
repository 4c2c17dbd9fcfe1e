package warp

import (
	"math"
	"testing"

	"github.com/gopsd/psd/geometry"
)

// TestNewValidation tests grid dimension checks.
func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		u, v    int
		wantErr bool
	}{
		{name: "4x4", u: 4, v: 4},
		{name: "7x10", u: 7, v: 10},
		{name: "3x4", u: 3, v: 4, wantErr: true},
		{name: "5x4", u: 5, v: 4, wantErr: true},
		{name: "4x8", u: 4, v: 8, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(100, 100, tt.u, tt.v)
			if (err != nil) != tt.wantErr {
				t.Errorf("New error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestNoOpDetection tests that only the untouched warp reports no-op.
func TestNoOpDetection(t *testing.T) {
	w, err := New(200, 100, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !w.NoOp() {
		t.Error("fresh warp is not a no-op")
	}

	// Deforming a control point breaks the no-op.
	w.SetPoint(1, 1, geometry.Pt(55, 55))
	if w.NoOp() {
		t.Error("deformed warp still reports no-op")
	}
	w.ResetWarp()
	if !w.NoOp() {
		t.Error("reset warp does not report no-op")
	}

	// Moving the transform quads breaks it too.
	w.ApplyTransform(geometry.Translate(10, 0))
	if w.NoOp() {
		t.Error("transformed warp still reports no-op")
	}
	w.ResetTransform()
	if !w.NoOp() {
		t.Error("reset transform does not report no-op")
	}
}

// TestResetIndependence tests that ResetWarp and ResetTransform preserve
// each other's state.
func TestResetIndependence(t *testing.T) {
	w, err := New(100, 100, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.SetPoint(2, 2, geometry.Pt(80, 20))
	w.ApplyTransform(geometry.Translate(5, 7))

	deformed := w.Point(2, 2)
	w.ResetTransform()
	if got := w.Point(2, 2); got != deformed {
		t.Error("ResetTransform touched the Bezier grid")
	}

	movedQuad := w.AffineQuad()
	w.ApplyTransform(geometry.Translate(5, 7))
	w.ResetWarp()
	if got := w.AffineQuad(); got == movedQuad {
		// The quad must still carry the second translation.
		t.Error("ResetWarp touched the transform quads")
	}
}

// TestMeshIdentity tests that an identity warp bakes into a mesh
// spanning exactly the source rectangle.
func TestMeshIdentity(t *testing.T) {
	w, err := New(64, 32, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mesh, err := w.Mesh(9, 9)
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	bbox := mesh.BBox()
	if !bbox.Minimum.Equals(geometry.Pt(0, 0), 1e-9) || !bbox.Maximum.Equals(geometry.Pt(64, 32), 1e-9) {
		t.Errorf("identity mesh bbox = %v", bbox)
	}

	// The mesh center must map back to the source center UV.
	uv, ok := mesh.UVCoordinate(geometry.Pt(32, 16))
	if !ok {
		t.Fatal("mesh center not found")
	}
	if math.Abs(uv.X-0.5) > 1e-6 || math.Abs(uv.Y-0.5) > 1e-6 {
		t.Errorf("center uv = %v, want (0.5, 0.5)", uv)
	}
}

// TestMeshTransform tests that the affine quad translates the baked
// mesh.
func TestMeshTransform(t *testing.T) {
	w, err := New(10, 10, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.ApplyTransform(geometry.Translate(100, 50))

	mesh, err := w.Mesh(5, 5)
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	if got := mesh.BBox().Minimum; !got.Equals(geometry.Pt(100, 50), 1e-6) {
		t.Errorf("translated mesh minimum = %v, want (100, 50)", got)
	}
}

// TestDescriptorRoundTrip tests warp persistence: grid, transforms and
// source dimensions survive the descriptor encoding.
func TestDescriptorRoundTrip(t *testing.T) {
	w, err := New(320, 240, 7, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.SetPoint(3, 1, geometry.Pt(123.5, 45.25))
	w.ApplyTransform(geometry.Translate(12, -8))
	w.SetNonAffineQuad([4]geometry.Point{
		geometry.Pt(10, -6), geometry.Pt(330, -10), geometry.Pt(14, 236), geometry.Pt(335, 240),
	})

	got, err := FromDescriptor(w.ToDescriptor())
	if err != nil {
		t.Fatalf("FromDescriptor: %v", err)
	}

	if got.GridWidth() != 7 || got.GridHeight() != 4 {
		t.Errorf("grid = %dx%d, want 7x4", got.GridWidth(), got.GridHeight())
	}
	gw, gh := got.SourceSize()
	if gw != 320 || gh != 240 {
		t.Errorf("source size = %gx%g, want 320x240", gw, gh)
	}
	for i, p := range w.Points() {
		if !p.Equals(got.Points()[i], 1e-9) {
			t.Fatalf("control point %d = %v, want %v", i, got.Points()[i], p)
		}
	}
	for i := range w.affine {
		if !w.affine[i].Equals(got.affine[i], 1e-6) {
			t.Errorf("affine corner %d = %v, want %v", i, got.affine[i], w.affine[i])
		}
	}
	for i := range w.nonAffine {
		if !w.nonAffine[i].Equals(got.nonAffine[i], 1e-9) {
			t.Errorf("non-affine corner %d = %v, want %v", i, got.nonAffine[i], w.nonAffine[i])
		}
	}
}
