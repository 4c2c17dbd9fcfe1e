package geometry

import "fmt"

// Vertex is a mesh vertex: a position and its UV coordinate on the
// undeformed source surface.
type Vertex struct {
	Point Point
	UV    Point
}

// Face is a quad face referencing its four corner vertices by index into
// the owning mesh's vertex slice. Index-based backreferences keep octree
// rebuilds after vertex transforms cheap and cycle-free.
type Face struct {
	VertexIndices [4]int
	BBox          BBox
}

// Centroid returns the average position of the face's corners.
func (f Face) Centroid(m *QuadMesh) Point {
	var sum Point
	for _, idx := range f.VertexIndices {
		sum = sum.Add(m.vertices[idx].Point)
	}
	return sum.Div(4)
}

// QuadMesh is a baked grid of quad faces with per-vertex UVs, equipped
// with a spatial index that maps a canvas point to its containing face for
// per-pixel UV lookup during warp resampling.
type QuadMesh struct {
	vertices []Vertex
	faces    []Face
	bbox     BBox
	octree   *Octree
}

// NewQuadMesh builds a mesh from points in scanline order. UVs are
// assigned from the uniform lattice position of each point.
func NewQuadMesh(points []Point, divisionsX, divisionsY int) (*QuadMesh, error) {
	if len(points) != divisionsX*divisionsY {
		return nil, fmt.Errorf("geometry: point count %d does not match %dx%d lattice",
			len(points), divisionsX, divisionsY)
	}
	vertices := make([]Vertex, 0, len(points))
	for y := 0; y < divisionsY; y++ {
		v := float64(y) / float64(divisionsY-1)
		for x := 0; x < divisionsX; x++ {
			u := float64(x) / float64(divisionsX-1)
			vertices = append(vertices, Vertex{Point: points[y*divisionsX+x], UV: Point{X: u, Y: v}})
		}
	}
	return newQuadMesh(vertices, divisionsX, divisionsY)
}

// NewQuadMeshTransformed builds a mesh like NewQuadMesh and then maps the
// sampled points through the homography taking the lattice's bounding quad
// onto the given non-affine quad. Quad corners are in scanline order:
// top-left, top-right, bottom-left, bottom-right. Passing the bounding
// quad itself leaves the points untouched.
func NewQuadMeshTransformed(points []Point, nonAffine [4]Point, divisionsX, divisionsY int) (*QuadMesh, error) {
	bbox := ComputeBBox(points)
	source := [4]Point{
		bbox.Minimum,
		{X: bbox.Maximum.X, Y: bbox.Minimum.Y},
		{X: bbox.Minimum.X, Y: bbox.Maximum.Y},
		bbox.Maximum,
	}
	if nonAffine != source {
		h, ok := HomographyFromQuads(source, nonAffine)
		if !ok {
			return nil, fmt.Errorf("geometry: degenerate non-affine transform quad")
		}
		transformed := make([]Point, len(points))
		for i, p := range points {
			transformed[i] = h.TransformPoint(p)
		}
		points = transformed
	}
	return NewQuadMesh(points, divisionsX, divisionsY)
}

func newQuadMesh(vertices []Vertex, divisionsX, divisionsY int) (*QuadMesh, error) {
	if divisionsX < 2 || divisionsY < 2 {
		return nil, fmt.Errorf("geometry: mesh requires at least a 2x2 lattice, got %dx%d",
			divisionsX, divisionsY)
	}
	m := &QuadMesh{vertices: vertices}
	m.bbox = m.computeBBox()

	m.faces = make([]Face, 0, (divisionsX-1)*(divisionsY-1))
	for y := 0; y < divisionsY-1; y++ {
		for x := 0; x < divisionsX-1; x++ {
			v0 := y*divisionsX + x // top-left
			v1 := v0 + 1           // top-right
			v2 := v0 + divisionsX  // bottom-left
			v3 := v2 + 1           // bottom-right

			face := Face{VertexIndices: [4]int{v0, v1, v2, v3}}
			face.BBox = ComputeBBox([]Point{
				vertices[v0].Point, vertices[v1].Point, vertices[v2].Point, vertices[v3].Point,
			})
			m.faces = append(m.faces, face)
		}
	}

	if err := m.rebuildOctree(); err != nil {
		return nil, err
	}
	return m, nil
}

// Vertices returns the mesh vertices in scanline order.
func (m *QuadMesh) Vertices() []Vertex {
	return m.vertices
}

// Vertex returns the vertex at the given index.
func (m *QuadMesh) Vertex(index int) Vertex {
	return m.vertices[index]
}

// Faces returns the quad faces of the mesh.
func (m *QuadMesh) Faces() []Face {
	return m.faces
}

// Points returns the vertex positions in scanline order.
func (m *QuadMesh) Points() []Point {
	pts := make([]Point, len(m.vertices))
	for i, v := range m.vertices {
		pts[i] = v.Point
	}
	return pts
}

// BBox returns the bounding box of the mesh.
func (m *QuadMesh) BBox() BBox {
	return m.bbox
}

// Move translates every vertex by offset and rebuilds the face boxes and
// the spatial index.
func (m *QuadMesh) Move(offset Point) error {
	for i := range m.vertices {
		m.vertices[i].Point = m.vertices[i].Point.Add(offset)
	}
	m.bbox = m.computeBBox()
	m.rebuildFaceBBoxes()
	return m.rebuildOctree()
}

// UVCoordinate looks up the UV coordinate of the mesh at the given point.
// Returns false when the point does not lie on the mesh.
func (m *QuadMesh) UVCoordinate(position Point) (Point, bool) {
	if !m.bbox.Contains(position) {
		return Point{}, false
	}

	for _, faceIndex := range m.octree.Query(position) {
		face := m.faces[faceIndex]
		// Reject on the face bbox first; it is the cheaper test.
		if !face.BBox.Contains(position) {
			continue
		}
		v0 := m.vertices[face.VertexIndices[0]]
		v1 := m.vertices[face.VertexIndices[1]]
		v2 := m.vertices[face.VertexIndices[2]]
		v3 := m.vertices[face.VertexIndices[3]]

		if pointInQuad(position, v0.Point, v1.Point, v3.Point, v2.Point) {
			return interpolateUV(position, v0, v1, v3, v2), true
		}
	}
	return Point{}, false
}

func (m *QuadMesh) computeBBox() BBox {
	pts := make([]Point, len(m.vertices))
	for i, v := range m.vertices {
		pts[i] = v.Point
	}
	return ComputeBBox(pts)
}

// rebuildFaceBBoxes recomputes face bounding boxes after a transformation.
func (m *QuadMesh) rebuildFaceBBoxes() {
	for i := range m.faces {
		idx := m.faces[i].VertexIndices
		m.faces[i].BBox = ComputeBBox([]Point{
			m.vertices[idx[0]].Point, m.vertices[idx[1]].Point,
			m.vertices[idx[2]].Point, m.vertices[idx[3]].Point,
		})
	}
}

func (m *QuadMesh) rebuildOctree() error {
	m.octree = NewOctree(m.bbox, defaultOctreeDepth)
	for i := range m.faces {
		if err := m.octree.Insert(m, i); err != nil {
			return err
		}
	}
	return nil
}

// pointInTriangle reports whether the point lies inside the triangle using
// signed areas; points on an edge count as inside.
func pointInTriangle(p, a, b, c Point) bool {
	sign := func(p1, p2, p3 Point) float64 {
		return (p1.X-p3.X)*(p2.Y-p3.Y) - (p2.X-p3.X)*(p1.Y-p3.Y)
	}

	d1 := sign(p, a, b)
	d2 := sign(p, b, c)
	d3 := sign(p, c, a)

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0

	return !(hasNeg && hasPos)
}

// pointInQuad splits the quad into two triangles along the v0-v3 diagonal.
func pointInQuad(p, v0, v1, v3, v2 Point) bool {
	return pointInTriangle(p, v0, v1, v3) || pointInTriangle(p, v0, v2, v3)
}

// barycentric returns the barycentric weights of p in the triangle (a, b, c).
func barycentric(p, a, b, c Point) (u, v, w float64) {
	e0 := b.Sub(a)
	e1 := c.Sub(a)
	e2 := p.Sub(a)

	d00 := e0.Dot(e0)
	d01 := e0.Dot(e1)
	d11 := e1.Dot(e1)
	d20 := e2.Dot(e0)
	d21 := e2.Dot(e1)

	denom := d00*d11 - d01*d01
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	return u, v, w
}

// interpolateUV interpolates the UV at p across the split-triangle
// barycentric weights of the containing triangle.
func interpolateUV(p Point, v0, v1, v3, v2 Vertex) Point {
	if pointInTriangle(p, v0.Point, v1.Point, v3.Point) {
		u, v, w := barycentric(p, v0.Point, v1.Point, v3.Point)
		return Point{
			X: u*v0.UV.X + v*v1.UV.X + w*v3.UV.X,
			Y: u*v0.UV.Y + v*v1.UV.Y + w*v3.UV.Y,
		}
	}
	u, v, w := barycentric(p, v0.Point, v2.Point, v3.Point)
	return Point{
		X: u*v0.UV.X + v*v2.UV.X + w*v3.UV.X,
		Y: u*v0.UV.Y + v*v2.UV.Y + w*v3.UV.Y,
	}
}
