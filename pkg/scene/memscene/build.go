package memscene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/scene"
)

// NodeDesc describes one transform of a [Description].
type NodeDesc struct {
	UUID        string // stable identity; derived from Name when empty
	Name        string
	Parent      string     // name of the parent node, empty for a root
	Translate   [3]float64 // local translation
	Rotate      [3]float64 // local XYZ euler rotation in degrees
	Scale       [3]float64 // local scale, zero vector means 1,1,1
	RotatePivot [3]float64 // local manipulator pivot
}

// Local returns the local matrix described by d.
func (d NodeDesc) Local() mat.Matrix {
	scale := mat.Vec3(d.Scale)
	if scale == (mat.Vec3{}) {
		scale = mat.Vec3{1, 1, 1}
	}
	return mat.Compose(mat.Vec3(d.Translate), mat.Vec3(d.Rotate), scale)
}

// Namespace seeds the name-derived uuids of [Build], so a node called "hips"
// gets the same identity in every scene built from a description.
var Namespace = uuid.MustParse("3f7d9b2e-5a1c-4e8f-9c0d-6b2a4e1f7c35")

// ID returns the node identity: UUID when set, else a uuid derived from Name.
func (d NodeDesc) ID() scene.NodeID {
	if d.UUID != "" {
		return scene.NodeID(d.UUID)
	}
	return scene.NodeID(uuid.NewSHA1(Namespace, []byte(d.Name)).String())
}

// Description is a declarative scene: a list of transforms and an initial
// selection by name.
type Description struct {
	Nodes     []NodeDesc
	Selection []string
	Time      float64
}

// Build creates a scene from desc. Parents may be listed after their
// children. Names must be unique.
func Build(desc Description) (*Scene, error) {
	s := New()
	byName := make(map[string]NodeDesc, len(desc.Nodes))
	for _, nd := range desc.Nodes {
		if _, dup := byName[nd.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", nd.Name)
		}
		byName[nd.Name] = nd
	}

	created := make(map[string]scene.NodeID, len(desc.Nodes))
	visiting := make(map[string]bool)
	var create func(name string) (scene.NodeID, error)
	create = func(name string) (scene.NodeID, error) {
		if id, ok := created[name]; ok {
			return id, nil
		}
		nd, ok := byName[name]
		if !ok {
			return "", fmt.Errorf("unknown node %q", name)
		}
		if visiting[name] {
			return "", fmt.Errorf("parent cycle through %q", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		var parent scene.NodeID
		if nd.Parent != "" {
			p, err := create(nd.Parent)
			if err != nil {
				return "", fmt.Errorf("parent of %q: %w", name, err)
			}
			parent = p
		}
		id := nd.ID()
		if _, taken := s.nodes[id]; taken {
			return "", fmt.Errorf("node %q: duplicate uuid %s", name, id)
		}
		n := s.add(id, nd.Name, kindTransform, parent)
		n.local = nd.Local()
		n.rotatePivot = mat.Vec3(nd.RotatePivot)
		created[name] = id
		return id, nil
	}

	for _, nd := range desc.Nodes {
		if _, err := create(nd.Name); err != nil {
			return nil, err
		}
	}

	sel := make([]scene.NodeID, 0, len(desc.Selection))
	for _, name := range desc.Selection {
		id, ok := created[name]
		if !ok {
			return nil, fmt.Errorf("selection: unknown node %q", name)
		}
		sel = append(sel, id)
	}
	s.selection = sel
	s.time = desc.Time
	return s, nil
}

// Resolve maps node names to ids.
func (s *Scene) Resolve(names ...string) ([]scene.NodeID, error) {
	ids := make([]scene.NodeID, 0, len(names))
	for _, name := range names {
		id, ok := s.FindByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
