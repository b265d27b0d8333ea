package pivot

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/observability"
	"github.com/matzehuels/temppivot/pkg/scene"
)

const (
	// MasterGroupAttr is the boolean attribute that tags master groups.
	MasterGroupAttr = "isMasterGroup"

	// DefaultMasterGroupName names new master groups. The host appends a
	// number when the name is taken.
	DefaultMasterGroupName = "master_group"
)

// IsMasterGroup reports whether id carries the master group marker.
func IsMasterGroup(h scene.Attributes, id scene.NodeID) bool {
	v, err := h.BoolAttr(id, MasterGroupAttr)
	return err == nil && v
}

// Factory creates and places master groups.
type Factory struct {
	host      scene.Host
	store     OffsetStore
	name      string
	container string
	logger    *log.Logger
}

// NewFactory returns a factory creating master groups called name inside the
// container called container. Empty names use the defaults.
func NewFactory(h scene.Host, store OffsetStore, name, container string, logger *log.Logger) *Factory {
	if name == "" {
		name = DefaultMasterGroupName
	}
	if container == "" {
		container = DefaultContainerName
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{host: h, store: store, name: name, container: container, logger: logger}
}

// Create builds a master group for ordered, which must not be empty.
//
// The new transform is tagged with [MasterGroupAttr], published in the
// offset container and locked against deletion, then placed: at the centroid
// of the nodes' world positions with identity rotation when there are several,
// or by [Factory.Place] for a single node. A failure after creation deletes
// the half-built group.
func (f *Factory) Create(ordered []scene.Node) (scene.Node, error) {
	if len(ordered) == 0 {
		return scene.Node{}, errors.New(errors.ErrCodeInvalidInput, "master group needs at least one node")
	}

	id, err := f.host.CreateTransform(f.name)
	if err != nil {
		return scene.Node{}, errors.Wrap(errors.ErrCodeInternal, err, "create %s", f.name)
	}
	master := scene.NewNode(f.host, id)

	if err := f.init(master, ordered); err != nil {
		f.discard(master)
		return scene.Node{}, err
	}
	return master, nil
}

func (f *Factory) init(master scene.Node, ordered []scene.Node) error {
	if err := f.host.AddBoolAttr(master.ID(), MasterGroupAttr, true); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "tag %s", master.Name())
	}
	container, err := LocateContainer(f.host, f.container)
	if err != nil {
		return err
	}
	if err := f.host.AddToContainer(container, master.ID()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "publish %s", master.Name())
	}
	if err := f.host.SetNodeLocked(master.ID(), true); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "lock %s", master.Name())
	}

	if len(ordered) == 1 {
		return f.Place(master, ordered[0])
	}

	points := make([]mat.Vec3, 0, len(ordered))
	for _, n := range ordered {
		p, err := n.WorldPosition()
		if err != nil {
			return errors.Wrap(errors.ErrCodeStaleReference, err, "position of %s", n.UUID())
		}
		points = append(points, p)
	}
	c := mat.Centroid(points)
	return master.SetWorldMatrix(mat.Translate(c[0], c[1], c[2]))
}

// Place moves master to the single node's learned pose: the cached offset
// composed with the node's world matrix, or the node's world matrix itself
// when nothing was learned.
//
// A learned pose already sits on the taught pivot, so the master group's
// rotate pivot goes back to its origin. Left in place, it would be counted
// again by the next learn.
func (f *Factory) Place(master, node scene.Node) error {
	offsets, err := f.store.Get()
	if err != nil {
		return err
	}
	world, err := node.WorldMatrix()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "world matrix of %s", node.UUID())
	}

	target := world
	offset, learned := offsets[node.UUID()]
	if learned {
		observability.Store().OnOffsetHit(node.UUID())
		target = mat.Mul(offset, world)
	} else {
		observability.Store().OnOffsetMiss(node.UUID())
	}
	f.logger.Debug("placing master group", "node", node.Name(), "learned", learned)
	if learned {
		if err := resetPivot(master); err != nil {
			return err
		}
	}
	return master.SetWorldMatrix(target)
}

func resetPivot(master scene.Node) error {
	pivot, err := master.RotatePivot()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "pivot of %s", master.Name())
	}
	if pivot == (mat.Vec3{}) {
		return nil
	}
	if err := master.SetRotatePivot(mat.Vec3{}); err != nil {
		return errors.Wrap(errors.ErrCodeStaleReference, err, "reset pivot of %s", master.Name())
	}
	return nil
}

func (f *Factory) discard(master scene.Node) {
	if !master.Exists() {
		return
	}
	_ = f.host.SetNodeLocked(master.ID(), false)
	if err := f.host.DeleteNode(master.ID()); err != nil {
		f.logger.Warn("could not discard master group", "node", master.Name(), "error", err)
	}
}
