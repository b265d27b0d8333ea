package pivot

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/observability"
	"github.com/matzehuels/temppivot/pkg/scene"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

func newEngine(s *memscene.Scene, opts ...Option) *Engine {
	return NewEngine(s, nil, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func setup(t *testing.T, e *Engine) scene.Node {
	t.Helper()
	ok, err := e.Setup(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	master, bound := e.Master()
	require.True(t, bound)
	return master
}

// deselect ends the session the way a user does and runs the idle tick.
func deselect(s *memscene.Scene) {
	s.SetSelection(nil)
	s.RunDeferred()
}

func assertBound(t *testing.T, e *Engine, eps float64) {
	t.Helper()
	master, _ := e.Master()
	m := world(t, master)
	for _, n := range e.Nodes() {
		offset, ok := e.Offset(n.ID())
		require.True(t, ok)
		assert.True(t, mat.Equivalent(world(t, n), mat.Mul(offset, m), eps), "%s drifted from its offset", n.Name())
	}
}

func TestEngine_SetupThenClearLeavesSceneUnchanged(t *testing.T) {
	for _, sel := range [][]string{{"a"}, {"a", "c"}, {"c", "b", "a"}} {
		s, nodes := buildScene(t, chain)
		_, err := LocateContainer(s, DefaultContainerName)
		require.NoError(t, err)
		s.SetSelection(scene.IDs(pick(nodes, sel...)))
		before := s.NodeIDs()

		e := newEngine(s)
		setup(t, e)
		assert.Len(t, s.NodeIDs(), len(before)+1)

		deselect(s)
		assert.Equal(t, before, s.NodeIDs())
		_, found := s.FindByName(DefaultMasterGroupName)
		assert.False(t, found)
		assert.Equal(t, 0, s.Subscriptions())
		assert.Equal(t, Closed, e.State())
	}
}

func TestEngine_SetupNoOp(t *testing.T) {
	t.Run("empty selection", func(t *testing.T) {
		s, _ := buildScene(t, chain)
		s.SetSelection(nil)
		ok, err := newEngine(s).Setup(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, s.ContainerNodes())
	})

	t.Run("selection holds a master group", func(t *testing.T) {
		s, nodes := buildScene(t, chain)
		first := newEngine(s)
		master := setup(t, first)

		s.SetSelection([]scene.NodeID{master.ID(), nodes["a"].ID()})
		second := newEngine(s)
		ok, err := second.Setup(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, Idle, second.State())
	})

	t.Run("closed engines do not rebind", func(t *testing.T) {
		s, _ := buildScene(t, chain)
		e := newEngine(s)
		setup(t, e)
		deselect(s)

		s.SetSelection(s.NodeIDs()[:1])
		ok, err := e.Setup(context.Background())
		assert.False(t, ok)
		assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, _ := buildScene(t, chain)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ok, err := newEngine(s).Setup(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid config", func(t *testing.T) {
		s, _ := buildScene(t, chain)
		ok, err := newEngine(s, WithEpsilon(0)).Setup(context.Background())
		assert.False(t, ok)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	})
}

func TestEngine_SetupState(t *testing.T) {
	s, nodes := buildScene(t, chain)
	e := newEngine(s)
	master := setup(t, e)

	assert.Equal(t, Bound, e.State())
	assert.Equal(t, []string{"a", "b", "c"}, names(e.Nodes()))
	assert.Equal(t, 2, e.MaxDepth())
	assert.Equal(t, []scene.NodeID{master.ID()}, s.Selection())
	assert.Equal(t, []string{"|a", "|a|b", "|a|b|c"}, s.KeyframeFocus())
	assert.Equal(t, 4, s.Subscriptions())
	assertBound(t, e, 1e-9)

	deselect(s)
	assert.Equal(t, scene.IDs(pick(nodes, "c", "a", "b")), s.Selection(), "prior selection order is restored")
	assert.Nil(t, s.KeyframeFocus())
}

func TestEngine_ChainConverges(t *testing.T) {
	moves := map[string]mat.Matrix{
		"translate":        mat.Translate(3, -1, 2),
		"rotate":           mat.RotateEuler(15, 70, -40),
		"scale":            mat.Scale(0.5, 2, 1),
		"translate+rotate": mat.Compose(mat.Vec3{-4, 0, 9}, mat.Vec3{90, 0, 45}, mat.Vec3{1, 1, 1}),
	}

	for name, move := range moves {
		t.Run(name, func(t *testing.T) {
			s, _ := buildScene(t, chain)
			e := newEngine(s)
			master := setup(t, e)

			require.NoError(t, master.SetWorldMatrix(mat.Mul(world(t, master), move)))
			assertBound(t, e, mat.DefaultEpsilon)

			res := e.Propagate()
			assert.True(t, res.Converged)
			assert.LessOrEqual(t, res.Passes, e.MaxDepth())
			assert.Equal(t, 0, res.Changed, "the live handler already settled every node")
		})
	}
}

func TestEngine_PropagateOnlyChildrenSelected(t *testing.T) {
	s, nodes := buildScene(t, chain)
	s.SetSelection(scene.IDs(pick(nodes, "c", "a")))
	e := newEngine(s)
	master := setup(t, e)

	bBefore := world(t, nodes["b"])
	require.NoError(t, master.SetWorldMatrix(mat.Mul(world(t, master), mat.Translate(0, 0, 5))))
	assertBound(t, e, mat.DefaultEpsilon)

	// b is not bound, but follows a through the hierarchy.
	assert.True(t, mat.Equivalent(world(t, nodes["b"]), mat.Mul(bBefore, mat.Translate(0, 0, 5)), 1e-9))
}

func TestEngine_SingleNodeScenario(t *testing.T) {
	s, nodes := buildScene(t, memscene.Description{
		Nodes: []memscene.NodeDesc{
			{Name: "n", Translate: [3]float64{3, 1, -2}, Rotate: [3]float64{0, 45, 0}},
		},
		Selection: []string{"n"},
	})
	n := nodes["n"]
	nWorld := world(t, n)

	e := newEngine(s)
	master := setup(t, e)
	assert.True(t, mat.Equivalent(world(t, master), nWorld, 1e-12), "master group coincides with the node")

	require.NoError(t, master.SetWorldMatrix(world(t, master)))
	assert.True(t, mat.Equivalent(world(t, n), nWorld, 1e-12), "an identity move leaves the node alone")

	deselect(s)

	offsets, err := NewContainerStore(s, "").Get()
	require.NoError(t, err)
	require.Contains(t, offsets, n.UUID())
	assert.True(t, mat.Equivalent(offsets[n.UUID()], mat.Identity(), 1e-9))
}

func TestEngine_TwoNodeCentroid(t *testing.T) {
	s, _ := buildScene(t, memscene.Description{
		Nodes: []memscene.NodeDesc{
			{Name: "p"},
			{Name: "q", Translate: [3]float64{2, 0, 0}},
		},
		Selection: []string{"p", "q"},
	})
	e := newEngine(s)
	master := setup(t, e)

	pos, err := master.WorldPosition()
	require.NoError(t, err)
	assert.Equal(t, mat.Vec3{1, 0, 0}, pos)

	deselect(s)
	offsets, err := NewContainerStore(s, "").Get()
	require.NoError(t, err)
	assert.Empty(t, offsets, "multi-node sessions do not learn")
}

func TestEngine_ClearIsIdempotent(t *testing.T) {
	s, nodes := buildScene(t, chain)
	e := newEngine(s)
	setup(t, e)

	e.Clear()
	e.Clear()
	assert.True(t, e.ClearPending())
	assert.Equal(t, 1, s.Pending(), "one deferred teardown at most")

	var restores int
	s.OnSelectionChanged(func() { restores++ })

	s.RunDeferred()
	e.Clear()
	e.Cancel()
	s.RunDeferred()

	assert.Equal(t, 1, restores, "selection is restored once")
	assert.Equal(t, scene.IDs(pick(nodes, "c", "a", "b")), s.Selection())
	assert.Equal(t, Closed, e.State())
	assert.False(t, e.ClearPending())
}

func TestEngine_ClearIsDeferred(t *testing.T) {
	s, _ := buildScene(t, chain)
	e := newEngine(s)
	master := setup(t, e)

	s.SetSelection(nil)
	assert.True(t, master.Exists(), "teardown waits for the idle tick")
	assert.Equal(t, Bound, e.State())

	s.RunDeferred()
	assert.False(t, master.Exists())
}

func TestEngine_Cancel(t *testing.T) {
	s, nodes := buildScene(t, chain)
	e := newEngine(s)
	master := setup(t, e)

	e.Cancel()
	assert.False(t, master.Exists())
	assert.Equal(t, scene.IDs(pick(nodes, "c", "a", "b")), s.Selection())
	assert.Equal(t, 0, s.Pending())
}

func TestEngine_UndoBracket(t *testing.T) {
	s, _ := buildScene(t, chain)
	e := newEngine(s)
	master := setup(t, e)

	require.NoError(t, master.SetWorldMatrix(mat.Translate(1, 0, 0)))
	require.NoError(t, master.SetWorldMatrix(mat.Translate(2, 0, 0)))
	assert.True(t, e.UndoOpen())
	assert.Equal(t, 1, s.UndoDepth(), "one chunk per drag")

	s.RunDeferred()
	assert.False(t, e.UndoOpen(), "the matrix attribute change closes the chunk")
	assert.Equal(t, 0, s.UndoDepth())
	assert.Equal(t, 1, s.UndoChunks())

	require.NoError(t, master.SetWorldMatrix(mat.Translate(3, 0, 0)))
	e.Cancel()
	assert.Equal(t, 0, s.UndoDepth(), "teardown closes an open chunk")
}

func TestEngine_PivotEdits(t *testing.T) {
	desc := memscene.Description{
		Nodes:     []memscene.NodeDesc{{Name: "n", Translate: [3]float64{1, 1, 1}}},
		Selection: []string{"n"},
	}

	t.Run("learned immediately", func(t *testing.T) {
		s, nodes := buildScene(t, desc)
		store := NewMemoryStore(nil)
		e := NewEngine(s, store, WithLogger(quietLogger()))
		master := setup(t, e)

		require.NoError(t, s.SetRotatePivot(master.ID(), mat.Vec3{0, 2, 0}))
		offsets, err := store.Get()
		require.NoError(t, err)
		require.Contains(t, offsets, nodes["n"].UUID())
		assert.True(t, mat.Equivalent(offsets[nodes["n"].UUID()], mat.Translate(0, 2, 0), 1e-9))
	})

	t.Run("learned at session end only", func(t *testing.T) {
		s, nodes := buildScene(t, desc)
		store := NewMemoryStore(nil)
		e := NewEngine(s, store, WithLogger(quietLogger()), WithLearnPivotEdits(false))
		master := setup(t, e)

		require.NoError(t, s.SetRotatePivot(master.ID(), mat.Vec3{0, 2, 0}))
		offsets, err := store.Get()
		require.NoError(t, err)
		assert.Empty(t, offsets)

		deselect(s)
		offsets, err = store.Get()
		require.NoError(t, err)
		assert.True(t, mat.Equivalent(offsets[nodes["n"].UUID()], mat.Translate(0, 2, 0), 1e-9))
	})
}

func TestEngine_LearnedPivotIsRestored(t *testing.T) {
	s, nodes := buildScene(t, memscene.Description{
		Nodes:     []memscene.NodeDesc{{Name: "n", Translate: [3]float64{1, 1, 1}, Rotate: [3]float64{0, 0, 90}}},
		Selection: []string{"n"},
	})
	n := nodes["n"]

	first := newEngine(s)
	master := setup(t, first)
	require.NoError(t, s.SetRotatePivot(master.ID(), mat.Vec3{2, 0, 0}))
	pivotWorld, err := master.PivotWorldMatrix()
	require.NoError(t, err)
	deselect(s)

	// Move the node; the next pivot keeps its place relative to it.
	require.NoError(t, n.SetWorldMatrix(mat.Mul(world(t, n), mat.Translate(0, 0, 7))))
	s.SetSelection([]scene.NodeID{n.ID()})

	second := newEngine(s)
	master = setup(t, second)
	want := mat.Mul(pivotWorld, mat.Translate(0, 0, 7))
	assert.True(t, mat.Equivalent(world(t, master), want, 1e-9))
	assertBound(t, second, 1e-9)
}

func TestEngine_TimeChangeReplacesMasterGroup(t *testing.T) {
	s, nodes := buildScene(t, memscene.Description{
		Nodes:     []memscene.NodeDesc{{Name: "n", Translate: [3]float64{0, 3, 0}}},
		Selection: []string{"n"},
	})
	n := nodes["n"]
	e := newEngine(s)
	master := setup(t, e)

	require.NoError(t, s.SetRotatePivot(master.ID(), mat.Vec3{1, 0, 0}))
	s.RunDeferred()
	nWorld := world(t, n)

	s.SetTime(12)
	assert.Equal(t, 1, s.Pending(), "re-placement waits for the time change to finish")
	s.RunDeferred()

	pos, err := master.WorldPosition()
	require.NoError(t, err)
	assert.True(t, nearVec(pos, mat.Vec3{1, 3, 0}), "master group moved onto its learned pivot, got %v", pos)
	assert.True(t, mat.Equivalent(world(t, n), nWorld, 1e-12), "the node stays put")
	assert.Equal(t, 4, s.Subscriptions(), "transform subscription is back")

	// Manipulation still propagates afterwards.
	require.NoError(t, master.SetWorldMatrix(mat.Mul(world(t, master), mat.Translate(0, 1, 0))))
	assert.True(t, mat.Equivalent(world(t, n), mat.Mul(nWorld, mat.Translate(0, 1, 0)), 1e-9))
}

func TestEngine_TimeChangeKeepsTaughtPivot(t *testing.T) {
	s, nodes := buildScene(t, memscene.Description{
		Nodes:     []memscene.NodeDesc{{Name: "n", Translate: [3]float64{0, 3, 0}}},
		Selection: []string{"n"},
	})
	n := nodes["n"]
	store := NewContainerStore(s, DefaultContainerName)

	first := newEngine(s)
	master := setup(t, first)
	require.NoError(t, s.SetRotatePivot(master.ID(), mat.Vec3{1, 0, 0}))
	s.RunDeferred()

	s.SetTime(1)
	s.RunDeferred()

	pivot, err := master.RotatePivot()
	require.NoError(t, err)
	assert.Equal(t, mat.Vec3{}, pivot, "re-placement puts the pivot back at the origin")
	pivotWorld, err := master.PivotWorldMatrix()
	require.NoError(t, err)
	assert.True(t, nearVec(mat.Position(pivotWorld), mat.Vec3{1, 3, 0}), "pivot at %v", mat.Position(pivotWorld))

	deselect(s)
	require.Equal(t, Closed, first.State())

	offsets, err := store.Get()
	require.NoError(t, err)
	assert.True(t, mat.Equivalent(offsets[n.UUID()], mat.Translate(1, 0, 0), 1e-9), "learned %v", offsets[n.UUID()])

	// A second time change in a new session still resumes the taught position.
	s.SetSelection([]scene.NodeID{n.ID()})
	second := newEngine(s)
	master = setup(t, second)
	pos, err := master.WorldPosition()
	require.NoError(t, err)
	assert.True(t, nearVec(pos, mat.Vec3{1, 3, 0}), "second session master at %v", pos)

	s.SetTime(2)
	s.RunDeferred()
	deselect(s)

	offsets, err = store.Get()
	require.NoError(t, err)
	assert.True(t, mat.Equivalent(offsets[n.UUID()], mat.Translate(1, 0, 0), 1e-9), "offset drifted to %v", offsets[n.UUID()])
}

func TestEngine_TimeChangeIgnoredForSeveralNodes(t *testing.T) {
	s, _ := buildScene(t, chain)
	e := newEngine(s)
	setup(t, e)

	s.SetTime(5)
	assert.Equal(t, 0, s.Pending())
}

type staleRecorder struct {
	observability.NoopSessionHooks
	ops []string
}

func (r *staleRecorder) OnStale(_, op string) { r.ops = append(r.ops, op) }

func TestEngine_StaleBoundNode(t *testing.T) {
	rec := &staleRecorder{}
	observability.SetSessionHooks(rec)
	defer observability.Reset()

	s, nodes := buildScene(t, memscene.Description{
		Nodes: []memscene.NodeDesc{
			{Name: "keep"},
			{Name: "doomed", Translate: [3]float64{4, 0, 0}},
		},
		Selection: []string{"keep", "doomed"},
	})
	e := newEngine(s)
	master := setup(t, e)

	require.NoError(t, s.DeleteNode(nodes["doomed"].ID()))
	require.NoError(t, master.SetWorldMatrix(mat.Mul(world(t, master), mat.Translate(0, 1, 0))))
	require.NoError(t, master.SetWorldMatrix(mat.Mul(world(t, master), mat.Translate(0, 1, 0))))

	pos, err := nodes["keep"].WorldPosition()
	require.NoError(t, err)
	assert.True(t, nearVec(pos, mat.Vec3{0, 2, 0}))
	assert.Equal(t, []string{"propagate"}, rec.ops, "a vanished node is reported once")

	deselect(s)
	assert.Equal(t, []scene.NodeID{nodes["keep"].ID()}, s.Selection())
	assert.NoError(t, e.Err())
}

func TestEngine_StaleMasterGroup(t *testing.T) {
	s, nodes := buildScene(t, chain)
	e := newEngine(s)
	master := setup(t, e)

	require.NoError(t, s.SetNodeLocked(master.ID(), false))
	require.NoError(t, s.DeleteNode(master.ID()))
	assert.Equal(t, PropagationResult{}, e.Propagate())

	deselect(s)
	assert.Equal(t, Closed, e.State())
	assert.Equal(t, scene.IDs(pick(nodes, "c", "a", "b")), s.Selection())
	assert.Equal(t, 0, s.Subscriptions())
}

func TestEngine_CorruptContainer(t *testing.T) {
	s, nodes := buildScene(t, chain)
	s.SetSelection([]scene.NodeID{nodes["b"].ID()})

	store := NewContainerStore(s, "")
	id, err := store.Container()
	require.NoError(t, err)
	require.NoError(t, s.SetAttrLocked(id, ContainerAttr, false))
	require.NoError(t, s.SetStringAttr(id, ContainerAttr, "not json"))

	e := newEngine(s)
	ok, err := e.Setup(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, errors.ErrCodeCorruptState))
	assert.Equal(t, Idle, e.State())
	assert.False(t, slices.ContainsFunc(s.NodeIDs(), func(id scene.NodeID) bool { return IsMasterGroup(s, id) }))
}

func TestEngine_CorruptContainerMidSession(t *testing.T) {
	s, nodes := buildScene(t, chain)
	s.SetSelection([]scene.NodeID{nodes["c"].ID()})
	store := NewContainerStore(s, "")
	e := NewEngine(s, store, WithLogger(quietLogger()))
	master := setup(t, e)

	id, err := store.Container()
	require.NoError(t, err)
	require.NoError(t, s.SetAttrLocked(id, ContainerAttr, false))
	require.NoError(t, s.SetStringAttr(id, ContainerAttr, "{"))

	deselect(s)
	assert.True(t, errors.Is(e.Err(), errors.ErrCodeCorruptState), "surfaced through Err")
	assert.False(t, master.Exists(), "teardown still completes")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "bound", Bound.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "unknown", State(9).String())
}
