package pivot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/scene"
	"github.com/matzehuels/temppivot/pkg/scene/memscene"
)

func newFactory(s *memscene.Scene, store OffsetStore) *Factory {
	return NewFactory(s, store, "", "", quietLogger())
}

func TestFactory_CentroidForSeveralNodes(t *testing.T) {
	s, nodes := buildScene(t, memscene.Description{
		Nodes: []memscene.NodeDesc{
			{Name: "left", Rotate: [3]float64{0, 90, 0}},
			{Name: "right", Translate: [3]float64{2, 0, 0}, Scale: [3]float64{3, 3, 3}},
		},
	})

	master, err := newFactory(s, NewMemoryStore(nil)).Create(pick(nodes, "left", "right"))
	require.NoError(t, err)

	assert.True(t, mat.Equivalent(world(t, master), mat.Translate(1, 0, 0), 1e-12),
		"master group sits at the centroid with identity rotation")
}

func TestFactory_SingleNode(t *testing.T) {
	desc := memscene.Description{
		Nodes: []memscene.NodeDesc{
			{Name: "parent", Translate: [3]float64{0, 5, 0}},
			{Name: "n", Parent: "parent", Translate: [3]float64{1, 2, 3}, Rotate: [3]float64{10, 20, 30}},
		},
	}

	t.Run("no learned offset", func(t *testing.T) {
		s, nodes := buildScene(t, desc)
		master, err := newFactory(s, NewMemoryStore(nil)).Create(pick(nodes, "n"))
		require.NoError(t, err)
		assert.True(t, mat.Equivalent(world(t, master), world(t, nodes["n"]), 1e-12))
	})

	t.Run("learned offset", func(t *testing.T) {
		s, nodes := buildScene(t, desc)
		n := nodes["n"]
		offset := mat.Translate(0, 0, 4)
		store := NewMemoryStore(Offsets{n.UUID(): offset})

		master, err := newFactory(s, store).Create([]scene.Node{n})
		require.NoError(t, err)
		want := mat.Mul(offset, world(t, n))
		assert.True(t, mat.Equivalent(world(t, master), want, 1e-12))
	})
}

func TestFactory_PlaceResetsPivotOnLearnedPose(t *testing.T) {
	s, nodes := buildScene(t, memscene.Description{
		Nodes: []memscene.NodeDesc{{Name: "n", Translate: [3]float64{0, 3, 0}}},
	})
	n := nodes["n"]
	store := NewMemoryStore(nil)
	f := newFactory(s, store)

	master, err := f.Create([]scene.Node{n})
	require.NoError(t, err)
	require.NoError(t, master.SetRotatePivot(mat.Vec3{1, 0, 0}))

	// Nothing learned: the pivot stays with the master group.
	require.NoError(t, f.Place(master, n))
	pivot, err := master.RotatePivot()
	require.NoError(t, err)
	assert.Equal(t, mat.Vec3{1, 0, 0}, pivot)

	require.NoError(t, store.Set(Offsets{n.UUID(): mat.Translate(1, 0, 0)}))
	require.NoError(t, f.Place(master, n))
	pivot, err = master.RotatePivot()
	require.NoError(t, err)
	assert.Equal(t, mat.Vec3{}, pivot)

	pivotWorld, err := master.PivotWorldMatrix()
	require.NoError(t, err)
	assert.True(t, mat.Equivalent(pivotWorld, mat.Translate(1, 3, 0), 1e-12))
}

func TestFactory_TagsLocksAndPublishes(t *testing.T) {
	s, nodes := buildScene(t, chain)
	master, err := newFactory(s, NewMemoryStore(nil)).Create(pick(nodes, "a"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMasterGroupName, master.Name())
	assert.True(t, IsMasterGroup(s, master.ID()))
	assert.False(t, IsMasterGroup(s, nodes["a"].ID()))
	assert.True(t, s.NodeLocked(master.ID()))
	assert.ErrorIs(t, s.DeleteNode(master.ID()), memscene.ErrLocked)

	container, err := LocateContainer(s, DefaultContainerName)
	require.NoError(t, err)
	assert.Contains(t, s.ContainerMembers(container), master.ID())
}

func TestFactory_CustomNames(t *testing.T) {
	s, nodes := buildScene(t, chain)
	master, err := NewFactory(s, NewMemoryStore(nil), "pivotHandle", "PivotCache", quietLogger()).Create(pick(nodes, "a"))
	require.NoError(t, err)

	assert.Equal(t, "pivotHandle", master.Name())
	containers := s.ContainerNodes()
	require.Len(t, containers, 1)
	assert.Equal(t, "PivotCache", s.Name(containers[0]))
}

func TestFactory_Errors(t *testing.T) {
	s, nodes := buildScene(t, chain)

	_, err := newFactory(s, NewMemoryStore(nil)).Create(nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	store := NewContainerStore(s, "")
	id, err := store.Container()
	require.NoError(t, err)
	require.NoError(t, s.SetAttrLocked(id, ContainerAttr, false))
	require.NoError(t, s.SetStringAttr(id, ContainerAttr, "{broken"))

	_, err = newFactory(s, store).Create(pick(nodes, "b"))
	assert.True(t, errors.Is(err, errors.ErrCodeCorruptState))
	_, found := s.FindByName(DefaultMasterGroupName)
	assert.False(t, found, "a failed create leaves no master group behind")
}
