package pivot

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/scene"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// buildScene builds desc and returns handles for every node by name.
func buildScene(t *testing.T, desc memscene.Description) (*memscene.Scene, map[string]scene.Node) {
	t.Helper()
	s, err := memscene.Build(desc)
	require.NoError(t, err)
	nodes := make(map[string]scene.Node, len(desc.Nodes))
	for _, nd := range desc.Nodes {
		ids, err := s.Resolve(nd.Name)
		require.NoError(t, err)
		nodes[nd.Name] = scene.NewNode(s, ids[0])
	}
	return s, nodes
}

// pick returns the named handles in the given order.
func pick(nodes map[string]scene.Node, names ...string) []scene.Node {
	out := make([]scene.Node, len(names))
	for i, name := range names {
		out[i] = nodes[name]
	}
	return out
}

func world(t *testing.T, n scene.Node) mat.Matrix {
	t.Helper()
	m, err := n.WorldMatrix()
	require.NoError(t, err)
	return m
}

// chain is a -> b -> c with a bit of rotation and scale on the way.
var chain = memscene.Description{
	Nodes: []memscene.NodeDesc{
		{Name: "a", Translate: [3]float64{1, 0, 0}, Rotate: [3]float64{0, 30, 0}},
		{Name: "b", Parent: "a", Translate: [3]float64{0, 2, 0}, Scale: [3]float64{2, 2, 2}},
		{Name: "c", Parent: "b", Translate: [3]float64{0, 0, 1}, Rotate: [3]float64{45, 0, 10}},
	},
	Selection: []string{"c", "a", "b"},
}

// rig is a small skeleton plus an unrelated prop, for ordering tests.
var rig = memscene.Description{
	Nodes: []memscene.NodeDesc{
		{Name: "hips"},
		{Name: "spine", Parent: "hips"},
		{Name: "neck", Parent: "spine"},
		{Name: "head", Parent: "neck"},
		{Name: "armL", Parent: "spine"},
		{Name: "handL", Parent: "armL"},
		{Name: "legR", Parent: "hips"},
		{Name: "prop"},
		{Name: "propChild", Parent: "prop"},
	},
}

func nearVec(a, b mat.Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}
