package memscene

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/matzehuels/temppivot/pkg/mat"
)

// NodeState is a point-in-time view of one node, used for debugging output.
type NodeState struct {
	Path      string
	Container bool
	Locked    bool
	World     [3]float64 // world translation, transforms only
	Attrs     map[string]any
}

// Snapshot returns the state of every node in creation order.
func (s *Scene) Snapshot() []NodeState {
	out := make([]NodeState, 0, len(s.order))
	for _, id := range s.order {
		n := s.nodes[id]
		st := NodeState{
			Path:      s.Path(id),
			Container: n.kind == kindContainer,
			Locked:    n.locked,
			Attrs:     make(map[string]any, len(n.attrs)),
		}
		if n.kind == kindTransform {
			st.World = [3]float64(mat.Position(s.world(n)))
		}
		for name, a := range n.attrs {
			if a.kind == attrBool {
				st.Attrs[name] = a.b
			} else {
				st.Attrs[name] = a.s
			}
		}
		out = append(out, st)
	}
	return out
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders the scene snapshot, the selection and the pending queue as
// human-readable text.
func (s *Scene) Dump() string {
	selection := make([]string, len(s.selection))
	for i, id := range s.selection {
		selection[i] = s.Path(id)
	}
	return dumpConfig.Sdump(struct {
		Nodes         []NodeState
		Selection     []string
		Pending       int
		Subscriptions int
		UndoDepth     int
		Time          float64
	}{s.Snapshot(), selection, len(s.deferred), len(s.subs), s.undoDepth, s.time})
}
