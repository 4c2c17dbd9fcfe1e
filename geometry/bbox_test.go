package geometry

import "testing"

// TestIntersectCommutative tests that intersection is order-independent.
func TestIntersectCommutative(t *testing.T) {
	tests := []struct {
		name string
		a, b BBox
	}{
		{
			name: "overlapping",
			a:    NewBBox(Pt(0, 0), Pt(10, 10)),
			b:    NewBBox(Pt(5, 5), Pt(15, 15)),
		},
		{
			name: "contained",
			a:    NewBBox(Pt(0, 0), Pt(10, 10)),
			b:    NewBBox(Pt(2, 2), Pt(4, 4)),
		},
		{
			name: "disjoint",
			a:    NewBBox(Pt(0, 0), Pt(1, 1)),
			b:    NewBBox(Pt(5, 5), Pt(6, 6)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab, okAB := Intersect(tt.a, tt.b)
			ba, okBA := Intersect(tt.b, tt.a)
			if okAB != okBA || ab != ba {
				t.Errorf("Intersect(a, b) = %v, %v; Intersect(b, a) = %v, %v", ab, okAB, ba, okBA)
			}
		})
	}
}

// TestIntersectAssociative tests associativity over three boxes.
func TestIntersectAssociative(t *testing.T) {
	a := NewBBox(Pt(0, 0), Pt(10, 10))
	b := NewBBox(Pt(2, 2), Pt(12, 12))
	c := NewBBox(Pt(4, 1), Pt(9, 9))

	ab, _ := Intersect(a, b)
	abc1, ok1 := Intersect(ab, c)

	bc, _ := Intersect(b, c)
	abc2, ok2 := Intersect(a, bc)

	if ok1 != ok2 || abc1 != abc2 {
		t.Errorf("(a∩b)∩c = %v, %v; a∩(b∩c) = %v, %v", abc1, ok1, abc2, ok2)
	}
}

// TestContainsBox tests that containment is reflexive and agrees with
// the intersection semi-lattice.
func TestContainsBox(t *testing.T) {
	a := NewBBox(Pt(0, 0), Pt(10, 10))
	b := NewBBox(Pt(2, 2), Pt(8, 8))

	if !a.ContainsBox(a) {
		t.Error("ContainsBox is not reflexive")
	}
	if !a.ContainsBox(b) {
		t.Error("a should contain b")
	}
	if b.ContainsBox(a) {
		t.Error("b should not contain a")
	}

	// Containment must agree with intersection: a ⊇ b ⇔ a∩b == b.
	got, ok := Intersect(a, b)
	if !ok || got != b {
		t.Errorf("Intersect(a, b) = %v, want %v", got, b)
	}
}

// TestBBoxOffset tests translation.
func TestBBoxOffset(t *testing.T) {
	b := NewBBox(Pt(1, 2), Pt(3, 4)).Offset(Pt(10, 20))
	want := NewBBox(Pt(11, 22), Pt(13, 24))
	if b != want {
		t.Errorf("Offset = %v, want %v", b, want)
	}
}

// TestComputeBBox tests the hull of a point set.
func TestComputeBBox(t *testing.T) {
	points := []Point{Pt(3, 1), Pt(-2, 5), Pt(0, 0), Pt(7, -4)}
	got := ComputeBBox(points)
	want := NewBBox(Pt(-2, -4), Pt(7, 5))
	if got != want {
		t.Errorf("ComputeBBox = %v, want %v", got, want)
	}
}
