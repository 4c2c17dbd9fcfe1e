package geometry

import "fmt"

const (
	// maxLeafFaces is the number of face indices a leaf holds before it
	// subdivides.
	maxLeafFaces = 128

	// defaultOctreeDepth bounds subdivision to avoid runaway recursion on
	// degenerate geometry.
	defaultOctreeDepth = 16
)

// octreeNode is a node in the 2D-degenerate octree. Subdivision splits the
// box into the four quadrants of the plane; the z axis carries no extent,
// so the upper four children of the full 8-way split stay nil.
type octreeNode struct {
	bbox     BBox
	faces    []int
	children [8]*octreeNode
	leaf     bool
}

func newOctreeNode(bbox BBox) *octreeNode {
	return &octreeNode{bbox: bbox, leaf: true}
}

func (n *octreeNode) subdivide() {
	mid := n.bbox.Minimum.Add(n.bbox.Maximum).Mul(0.5)

	for i := 0; i < 4; i++ {
		var child BBox
		if i&1 != 0 {
			child.Minimum.X = mid.X
			child.Maximum.X = n.bbox.Maximum.X
		} else {
			child.Minimum.X = n.bbox.Minimum.X
			child.Maximum.X = mid.X
		}
		if i&2 != 0 {
			child.Minimum.Y = mid.Y
			child.Maximum.Y = n.bbox.Maximum.Y
		} else {
			child.Minimum.Y = n.bbox.Minimum.Y
			child.Maximum.Y = mid.Y
		}
		n.children[i] = newOctreeNode(child)
	}
	n.leaf = false
}

// insert recursively adds the face index, splitting when a leaf fills up.
func (n *octreeNode) insert(m *QuadMesh, faceIndex, depth, maxDepth int) error {
	faceBBox := m.faces[faceIndex].BBox
	if _, ok := Intersect(n.bbox, faceBBox); !ok && !n.bbox.ContainsBox(faceBBox) {
		return nil
	}

	if n.leaf {
		if len(n.faces) < maxLeafFaces {
			n.faces = append(n.faces, faceIndex)
			return nil
		}
		if depth >= maxDepth {
			return fmt.Errorf("geometry: octree depth %d exhausted with full leaves, increase depth or coarsen the mesh", maxDepth)
		}
		n.subdivide()
		pending := n.faces
		n.faces = nil
		pending = append(pending, faceIndex)
		for _, idx := range pending {
			for _, child := range n.children {
				if child == nil {
					continue
				}
				if err := child.insert(m, idx, depth+1, maxDepth); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, child := range n.children {
		if child == nil {
			continue
		}
		if err := child.insert(m, faceIndex, depth+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}

// query descends to the leaf containing the position and returns its
// candidate face indices.
func (n *octreeNode) query(position Point) []int {
	if !n.bbox.Contains(position) {
		return nil
	}
	if n.leaf {
		return n.faces
	}
	for _, child := range n.children {
		if child == nil {
			continue
		}
		if faces := child.query(position); len(faces) > 0 {
			return faces
		}
	}
	return nil
}

// Octree accelerates point-in-mesh queries over a QuadMesh. Faces are
// referenced by index into the mesh's face slice so the tree can be
// rebuilt cheaply after vertex transforms.
type Octree struct {
	root     *octreeNode
	maxDepth int
}

// NewOctree creates an empty octree covering the given bounding box.
func NewOctree(bbox BBox, maxDepth int) *Octree {
	if maxDepth <= 0 {
		maxDepth = defaultOctreeDepth
	}
	return &Octree{root: newOctreeNode(bbox), maxDepth: maxDepth}
}

// Insert adds the face at the given index of the mesh to the tree.
func (o *Octree) Insert(m *QuadMesh, faceIndex int) error {
	return o.root.insert(m, faceIndex, 0, o.maxDepth)
}

// Query returns the candidate faces whose leaf contains the position.
// The caller still has to test the faces themselves; the octree only
// narrows the search.
func (o *Octree) Query(position Point) []int {
	return o.root.query(position)
}
