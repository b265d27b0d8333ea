package scene

import (
	"github.com/matzehuels/temppivot/pkg/mat"
)

// Node is a handle on a scene node: an id plus the graph that resolves it.
// Two handles are the same node when their ids are equal; compare with
// [Node.ID], never with ==, since handles from different lookups may carry
// different Graph values.
type Node struct {
	g  Graph
	id NodeID
}

// NewNode returns a handle for id in g.
func NewNode(g Graph, id NodeID) Node { return Node{g: g, id: id} }

// ID returns the node identity.
func (n Node) ID() NodeID { return n.id }

// UUID returns the node identity as a plain string, the key used by the
// offset store.
func (n Node) UUID() string { return string(n.id) }

// Exists reports whether the node is still in the scene.
func (n Node) Exists() bool { return n.g != nil && n.g.Exists(n.id) }

// Name returns the short node name, or "" when the node is gone.
func (n Node) Name() string {
	if !n.Exists() {
		return ""
	}
	return n.g.Name(n.id)
}

// Path returns the full DAG path, or "" when the node is gone.
func (n Node) Path() string {
	if !n.Exists() {
		return ""
	}
	return n.g.Path(n.id)
}

// Depth returns the number of ancestors.
func (n Node) Depth() int { return n.g.Depth(n.id) }

// WorldMatrix returns the node's world transform.
func (n Node) WorldMatrix() (mat.Matrix, error) { return n.g.WorldMatrix(n.id) }

// SetWorldMatrix moves the node so its world transform becomes m.
func (n Node) SetWorldMatrix(m mat.Matrix) error { return n.g.SetWorldMatrix(n.id, m) }

// WorldInverseMatrix returns the inverse of the world transform.
func (n Node) WorldInverseMatrix() (mat.Matrix, error) {
	m, err := n.WorldMatrix()
	if err != nil {
		return m, err
	}
	return mat.Inverse(m), nil
}

// LocalMatrix returns the transform relative to the parent.
func (n Node) LocalMatrix() (mat.Matrix, error) { return n.g.LocalMatrix(n.id) }

// SetLocalMatrix sets the transform relative to the parent.
func (n Node) SetLocalMatrix(m mat.Matrix) error { return n.g.SetLocalMatrix(n.id, m) }

// WorldPosition returns the world-space translation.
func (n Node) WorldPosition() (mat.Vec3, error) {
	m, err := n.WorldMatrix()
	if err != nil {
		return mat.Vec3{}, err
	}
	return mat.Position(m), nil
}

// PivotWorldMatrix returns the world matrix with its translation replaced by
// the rotate pivot expressed in world space. When the pivot sits at the
// node's origin this equals [Node.WorldMatrix].
func (n Node) PivotWorldMatrix() (mat.Matrix, error) {
	world, err := n.WorldMatrix()
	if err != nil {
		return world, err
	}
	pivot, err := n.g.RotatePivot(n.id)
	if err != nil {
		return world, err
	}
	return mat.WithPosition(world, mat.TransformPoint(pivot, world)), nil
}

// RotatePivot returns the manipulator pivot in local space.
func (n Node) RotatePivot() (mat.Vec3, error) { return n.g.RotatePivot(n.id) }

// SetRotatePivot moves the manipulator pivot to p in local space.
func (n Node) SetRotatePivot(p mat.Vec3) error { return n.g.SetRotatePivot(n.id, p) }

// IsParentOf reports whether n is the direct parent of child.
func (n Node) IsParentOf(child Node) bool { return n.g.IsParentOf(n.id, child.id) }

// IsAncestorOf reports whether n is a direct or transitive parent of other.
func (n Node) IsAncestorOf(other Node) bool {
	cur := other.id
	for {
		parent, ok := n.g.Parent(cur)
		if !ok {
			return false
		}
		if parent == n.id {
			return true
		}
		cur = parent
	}
}

// Nodes wraps ids into handles on g.
func Nodes(g Graph, ids []NodeID) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = NewNode(g, id)
	}
	return out
}

// IDs extracts the identity of each handle.
func IDs(nodes []Node) []NodeID {
	out := make([]NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

// TransformSelection returns the active selection filtered to transform
// nodes, in selection order.
func TransformSelection(g Graph) []Node {
	var out []Node
	for _, id := range g.Selection() {
		if g.Exists(id) && g.IsTransform(id) {
			out = append(out, NewNode(g, id))
		}
	}
	return out
}
