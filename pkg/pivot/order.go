package pivot

import (
	"github.com/matzehuels/temppivot/pkg/dag"
	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/scene"
)

// SelectionGraph builds the ancestry graph of nodes: one vertex per node,
// in input order, and an edge A→B whenever A is a direct or transitive
// parent of B. Ancestors outside the input set are ignored. Vertices carry
// "name", "path" and "depth" metadata for rendering.
//
// Duplicate nodes are bound once. Pairwise ancestry checks make this
// O(n²·depth); selections are small.
func SelectionGraph(nodes []scene.Node) (*dag.DAG, error) {
	g := dag.New(nil)
	var members []scene.Node
	for _, n := range nodes {
		err := g.AddNode(dag.Node{
			ID: n.UUID(),
			Meta: dag.Metadata{
				"name":  n.Name(),
				"path":  n.Path(),
				"depth": n.Depth(),
			},
		})
		if err == dag.ErrDuplicateNodeID {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSelection, err, "add %q", n.Name())
		}
		members = append(members, n)
	}

	for _, a := range members {
		for _, b := range members {
			if a.ID() == b.ID() || !a.IsAncestorOf(b) {
				continue
			}
			if err := g.AddEdge(dag.Edge{From: a.UUID(), To: b.UUID()}); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "link %q to %q", a.Name(), b.Name())
			}
		}
	}
	return g, nil
}

// SortSelection orders nodes so that every node comes after all of its
// selected ancestors.
//
// Nodes without ordering constraints between them keep their relative input
// order, so the result is deterministic for a given input order but does not
// generally match selection order. An empty input is an
// [errors.ErrCodeInvalidInput] error.
func SortSelection(nodes []scene.Node) ([]scene.Node, error) {
	if len(nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to sort: empty selection")
	}

	g, err := SelectionGraph(nodes)
	if err != nil {
		return nil, err
	}
	ids, err := g.TopoSort()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "order selection")
	}

	byID := make(map[string]scene.Node, len(nodes))
	for _, n := range nodes {
		byID[n.UUID()] = n
	}
	sorted := make([]scene.Node, len(ids))
	for i, id := range ids {
		sorted[i] = byID[id]
	}
	return sorted, nil
}

// MaxDepth returns the largest hierarchy depth among nodes that still exist.
func MaxDepth(nodes []scene.Node) int {
	depth := 0
	for _, n := range nodes {
		if n.Exists() {
			depth = max(depth, n.Depth())
		}
	}
	return depth
}
