// Package memscene is an in-memory scene host.
//
// It implements [scene.Host] closely enough to exercise the pivot engine
// without an editor: transform hierarchies with local matrices, dynamic
// attributes with locks, container nodes, synchronous change notifications,
// a FIFO deferred queue, undo chunk bookkeeping and a keyframe-display state.
//
// Two host rules are modelled on purpose because the engine depends on them:
//
//   - Nodes cannot be deleted while a notification is being dispatched
//     ([ErrMutationInCallback]); teardown must go through [Scene.Defer].
//   - Locked nodes cannot be deleted and locked attributes cannot be written
//     ([ErrLocked]).
//
// Deferred callbacks only run when [Scene.RunDeferred] is called, which plays
// the role of the editor's idle tick.
package memscene

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/scene"
)

var (
	// ErrNodeNotFound is returned when an id does not resolve to a live node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrLocked is returned when deleting a locked node or writing a locked attribute.
	ErrLocked = errors.New("locked")

	// ErrMutationInCallback is returned by DeleteNode while a notification is dispatching.
	ErrMutationInCallback = errors.New("scene graph deletion is not allowed inside a notification")

	// ErrAttrNotFound is returned when reading an attribute the node does not have.
	ErrAttrNotFound = errors.New("attribute not found")

	// ErrAttrExists is returned when adding an attribute twice.
	ErrAttrExists = errors.New("attribute already exists")

	// ErrAttrType is returned when reading an attribute as the wrong type.
	ErrAttrType = errors.New("attribute type mismatch")

	// ErrNotTransform is returned for matrix access on non-transform nodes.
	ErrNotTransform = errors.New("node is not a transform")

	// ErrNotContainer is returned by AddToContainer for non-container targets.
	ErrNotContainer = errors.New("node is not a container")

	// ErrUnknownSubscription is returned by Unsubscribe for ids that are not registered.
	ErrUnknownSubscription = errors.New("unknown subscription id")
)

type nodeKind int

const (
	kindTransform nodeKind = iota
	kindContainer
)

type attrKind int

const (
	attrBool attrKind = iota
	attrString
)

type attribute struct {
	kind   attrKind
	b      bool
	s      string
	locked bool
}

type node struct {
	id          scene.NodeID
	name        string
	kind        nodeKind
	parent      scene.NodeID
	children    []scene.NodeID
	local       mat.Matrix
	rotatePivot mat.Vec3
	locked      bool
	referenced  bool
	attrs       map[string]*attribute
	members     []scene.NodeID
}

// Scene is an in-memory [scene.Host]. The zero value is not usable; call [New].
// Scene is not safe for concurrent use, like the editor it stands in for.
type Scene struct {
	nodes     map[scene.NodeID]*node
	order     []scene.NodeID
	selection []scene.NodeID

	subs    map[scene.SubscriptionID]*subscription
	nextSub scene.SubscriptionID

	deferred    []func()
	pendingAttr map[string]bool
	dispatching int

	undoDepth  int
	undoChunks int

	keyframeFocus []string
	time          float64
}

var _ scene.Host = (*Scene)(nil)

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		nodes:       make(map[scene.NodeID]*node),
		subs:        make(map[scene.SubscriptionID]*subscription),
		pendingAttr: make(map[string]bool),
	}
}

func (s *Scene) lookup(id scene.NodeID) (*node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

func (s *Scene) transform(id scene.NodeID) (*node, error) {
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if n.kind != kindTransform {
		return nil, fmt.Errorf("%w: %s", ErrNotTransform, n.name)
	}
	return n, nil
}

// add creates a node. An empty id gets a random uuid.
func (s *Scene) add(id scene.NodeID, name string, kind nodeKind, parent scene.NodeID) *node {
	if id == "" {
		id = scene.NodeID(uuid.NewString())
	}
	n := &node{
		id:     id,
		name:   s.uniqueName(name),
		kind:   kind,
		parent: parent,
		local:  mat.Identity(),
		attrs:  make(map[string]*attribute),
	}
	s.nodes[n.id] = n
	s.order = append(s.order, n.id)
	if p, ok := s.nodes[parent]; ok {
		p.children = append(p.children, n.id)
	}
	return n
}

// uniqueName appends the smallest free numeric suffix when name is taken,
// the way the editor renames "master_group" to "master_group1".
func (s *Scene) uniqueName(name string) string {
	taken := make(map[string]bool, len(s.nodes))
	for _, n := range s.nodes {
		taken[n.name] = true
	}
	if !taken[name] {
		return name
	}
	base := strings.TrimRight(name, "0123456789")
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}

// AddTransform creates a transform under parent (empty for a scene root)
// with the given local matrix. It does not fire notifications.
func (s *Scene) AddTransform(name string, parent scene.NodeID, local mat.Matrix) (scene.NodeID, error) {
	if parent != "" {
		if _, err := s.transform(parent); err != nil {
			return "", err
		}
	}
	n := s.add("", name, kindTransform, parent)
	n.local = local
	return n.id, nil
}

// FindByName returns the first node with the given short name.
func (s *Scene) FindByName(name string) (scene.NodeID, bool) {
	for _, id := range s.order {
		if s.nodes[id].name == name {
			return id, true
		}
	}
	return "", false
}

// NodeIDs returns every node in creation order.
func (s *Scene) NodeIDs() []scene.NodeID { return slices.Clone(s.order) }

// MarkReferenced flags a node as coming from a referenced file.
func (s *Scene) MarkReferenced(id scene.NodeID, referenced bool) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	n.referenced = referenced
	return nil
}

// Selection returns a copy of the active selection.
func (s *Scene) Selection() []scene.NodeID { return slices.Clone(s.selection) }

// SetSelection replaces the selection and fires selection-changed.
func (s *Scene) SetSelection(ids []scene.NodeID) {
	sel := make([]scene.NodeID, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.nodes[id]; ok && !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	s.selection = sel
	s.fireSelectionChanged()
}

// Exists reports whether id is a live node.
func (s *Scene) Exists(id scene.NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Name returns the short name, "" for unknown ids.
func (s *Scene) Name(id scene.NodeID) string {
	if n, ok := s.nodes[id]; ok {
		return n.name
	}
	return ""
}

// Path returns the full DAG path, "" for unknown ids.
func (s *Scene) Path(id scene.NodeID) string {
	n, ok := s.nodes[id]
	if !ok {
		return ""
	}
	parts := []string{n.name}
	for p, ok := s.nodes[n.parent]; ok; p, ok = s.nodes[p.parent] {
		parts = append(parts, p.name)
	}
	slices.Reverse(parts)
	return "|" + strings.Join(parts, "|")
}

// IsTransform reports whether id is a transform node.
func (s *Scene) IsTransform(id scene.NodeID) bool {
	n, ok := s.nodes[id]
	return ok && n.kind == kindTransform
}

// Parent returns the parent of id.
func (s *Scene) Parent(id scene.NodeID) (scene.NodeID, bool) {
	n, ok := s.nodes[id]
	if !ok || n.parent == "" {
		return "", false
	}
	return n.parent, true
}

// IsParentOf reports whether parent is the direct parent of child.
func (s *Scene) IsParentOf(parent, child scene.NodeID) bool {
	c, ok := s.nodes[child]
	return ok && c.parent != "" && c.parent == parent
}

// Depth returns the number of ancestors of id.
func (s *Scene) Depth(id scene.NodeID) int {
	depth := 0
	for p, ok := s.Parent(id); ok; p, ok = s.Parent(p) {
		depth++
	}
	return depth
}

// WorldMatrix returns local * parent world.
func (s *Scene) WorldMatrix(id scene.NodeID) (mat.Matrix, error) {
	n, err := s.transform(id)
	if err != nil {
		return mat.Identity(), err
	}
	return s.world(n), nil
}

func (s *Scene) world(n *node) mat.Matrix {
	m := n.local
	for p, ok := s.nodes[n.parent]; ok; p, ok = s.nodes[p.parent] {
		m = mat.Mul(m, p.local)
	}
	return m
}

// SetWorldMatrix rewrites the local matrix so the world matrix becomes m.
func (s *Scene) SetWorldMatrix(id scene.NodeID, m mat.Matrix) error {
	n, err := s.transform(id)
	if err != nil {
		return err
	}
	parentWorld := mat.Identity()
	if p, ok := s.nodes[n.parent]; ok {
		parentWorld = s.world(p)
	}
	n.local = mat.Mul(m, mat.Inverse(parentWorld))
	s.matrixChanged(n, scene.TRS)
	return nil
}

// LocalMatrix returns the transform relative to the parent.
func (s *Scene) LocalMatrix(id scene.NodeID) (mat.Matrix, error) {
	n, err := s.transform(id)
	if err != nil {
		return mat.Identity(), err
	}
	return n.local, nil
}

// SetLocalMatrix sets the transform relative to the parent.
func (s *Scene) SetLocalMatrix(id scene.NodeID, m mat.Matrix) error {
	n, err := s.transform(id)
	if err != nil {
		return err
	}
	n.local = m
	s.matrixChanged(n, scene.TRS)
	return nil
}

// RotatePivot returns the rotate pivot in local space.
func (s *Scene) RotatePivot(id scene.NodeID) (mat.Vec3, error) {
	n, err := s.transform(id)
	if err != nil {
		return mat.Vec3{}, err
	}
	return n.rotatePivot, nil
}

// SetRotatePivot moves the manipulator pivot and fires a pivot-only change.
func (s *Scene) SetRotatePivot(id scene.NodeID, p mat.Vec3) error {
	n, err := s.transform(id)
	if err != nil {
		return err
	}
	n.rotatePivot = p
	s.fireTransformChanged(n.id, scene.RotatePivot)
	return nil
}

// matrixChanged notifies n and every descendant, whose world matrices moved
// with it, then queues the attribute-changed notification for n.
func (s *Scene) matrixChanged(n *node, kind scene.ChangeKind) {
	s.fireTransformChanged(n.id, kind)
	for _, d := range s.descendants(n.id) {
		s.fireTransformChanged(d, kind)
	}
	s.queueAttrChanged(n.id, "matrix")
}

func (s *Scene) descendants(id scene.NodeID) []scene.NodeID {
	var out []scene.NodeID
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	for _, c := range n.children {
		out = append(out, c)
		out = append(out, s.descendants(c)...)
	}
	return out
}

// CreateTransform adds a root transform.
func (s *Scene) CreateTransform(name string) (scene.NodeID, error) {
	return s.AddTransform(name, "", mat.Identity())
}

// DeleteNode removes id and its descendants.
func (s *Scene) DeleteNode(id scene.NodeID) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	if s.dispatching > 0 {
		return ErrMutationInCallback
	}
	doomed := append([]scene.NodeID{id}, s.descendants(id)...)
	for _, d := range doomed {
		if s.nodes[d].locked {
			return fmt.Errorf("delete %s: %w", s.nodes[d].name, ErrLocked)
		}
	}

	if p, ok := s.nodes[n.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c scene.NodeID) bool { return c == id })
	}
	for _, d := range doomed {
		delete(s.nodes, d)
		s.order = slices.DeleteFunc(s.order, func(o scene.NodeID) bool { return o == d })
		s.selection = slices.DeleteFunc(s.selection, func(o scene.NodeID) bool { return o == d })
		for _, c := range s.nodes {
			c.members = slices.DeleteFunc(c.members, func(o scene.NodeID) bool { return o == d })
		}
		s.dropSubscriptions(d)
	}
	return nil
}

// SetNodeLocked toggles the deletion lock.
func (s *Scene) SetNodeLocked(id scene.NodeID, locked bool) error {
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	n.locked = locked
	return nil
}

// NodeLocked reports the deletion lock, false for unknown ids.
func (s *Scene) NodeLocked(id scene.NodeID) bool {
	n, ok := s.nodes[id]
	return ok && n.locked
}

// ContainerNodes lists container nodes in creation order.
func (s *Scene) ContainerNodes() []scene.NodeID {
	var out []scene.NodeID
	for _, id := range s.order {
		if s.nodes[id].kind == kindContainer {
			out = append(out, id)
		}
	}
	return out
}

// CreateContainer adds a container node.
func (s *Scene) CreateContainer(name string) (scene.NodeID, error) {
	return s.add("", name, kindContainer, "").id, nil
}

// IsReferenced reports the referenced-file flag.
func (s *Scene) IsReferenced(id scene.NodeID) bool {
	n, ok := s.nodes[id]
	return ok && n.referenced
}

// AddToContainer publishes node inside container.
func (s *Scene) AddToContainer(container, id scene.NodeID) error {
	c, err := s.lookup(container)
	if err != nil {
		return err
	}
	if c.kind != kindContainer {
		return fmt.Errorf("%w: %s", ErrNotContainer, c.name)
	}
	if _, err := s.lookup(id); err != nil {
		return err
	}
	if !slices.Contains(c.members, id) {
		c.members = append(c.members, id)
	}
	return nil
}

// ContainerMembers returns the nodes published in container.
func (s *Scene) ContainerMembers(container scene.NodeID) []scene.NodeID {
	if c, ok := s.nodes[container]; ok {
		return slices.Clone(c.members)
	}
	return nil
}

// OpenUndoChunk opens an undo chunk.
func (s *Scene) OpenUndoChunk() {
	s.undoDepth++
	s.undoChunks++
}

// CloseUndoChunk closes the innermost undo chunk, if any.
func (s *Scene) CloseUndoChunk() {
	if s.undoDepth > 0 {
		s.undoDepth--
	}
}

// UndoDepth returns the number of currently open undo chunks.
func (s *Scene) UndoDepth() int { return s.undoDepth }

// UndoChunks returns how many undo chunks were ever opened.
func (s *Scene) UndoChunks() int { return s.undoChunks }

// ShowKeyframesFor focuses the time slider on paths.
func (s *Scene) ShowKeyframesFor(paths []string) { s.keyframeFocus = slices.Clone(paths) }

// ShowKeyframesForSelection restores the default keyframe display.
func (s *Scene) ShowKeyframesForSelection() { s.keyframeFocus = nil }

// KeyframeFocus returns the paths the time slider is focused on; nil means
// the default active-selection display.
func (s *Scene) KeyframeFocus() []string { return slices.Clone(s.keyframeFocus) }

// Time returns the current scene time.
func (s *Scene) Time() float64 { return s.time }

// SetTime changes the current time and fires time-changed.
func (s *Scene) SetTime(t float64) {
	s.time = t
	s.fireTimeChanged()
}
