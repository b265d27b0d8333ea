// Package scene defines the contract between the pivot engine and the 3D
// editor that hosts it.
//
// The editor owns the scene graph, the selection, the notification loop and
// the undo queue. This package only describes what the engine consumes from
// it, split by concern so that tests and alternative hosts can implement the
// pieces they need:
//
//   - [Graph]: node lookup, hierarchy queries, transform matrices, creation and deletion
//   - [Attributes]: dynamic boolean and string attributes with per-attribute locks
//   - [Containers]: container nodes used to park the engine's persistent data
//   - [Notifier]: transform, selection, time and attribute change subscriptions
//   - [Scheduler]: "run after the current notification" deferral
//   - [UndoRecorder]: undo chunk bracketing
//   - [Timeline]: which nodes the time slider shows keyframes for
//
// [Host] composes all of them. The in-memory implementation used by tests and
// the CLI lives in [github.com/matzehuels/temppivot/pkg/scene/memscene].
//
// Nodes are identified by [NodeID], the host's stable uuid string. Raw host
// handles never cross this boundary; [Node] pairs an id with the host that
// resolves it.
package scene

import (
	"github.com/matzehuels/temppivot/pkg/mat"
)

// NodeID is the stable identity (uuid) of a scene node.
type NodeID string

// SubscriptionID identifies a registered notification callback.
type SubscriptionID int

// InvalidSubscription is the zero subscription; unsubscribing it is an error.
const InvalidSubscription SubscriptionID = 0

// Graph exposes the scene hierarchy and node transforms.
type Graph interface {
	// Selection returns the active selection in selection order.
	Selection() []NodeID
	// SetSelection replaces the active selection. Unknown ids are ignored.
	SetSelection(ids []NodeID)

	Exists(id NodeID) bool
	Name(id NodeID) string
	// Path returns the full DAG path ("|group1|pCube1").
	Path(id NodeID) string
	// IsTransform reports whether the node carries a transform.
	IsTransform(id NodeID) bool
	// Parent returns the node's parent, false for scene roots.
	Parent(id NodeID) (NodeID, bool)
	// IsParentOf reports whether parent is the direct parent of child.
	IsParentOf(parent, child NodeID) bool
	// Depth returns the number of ancestors of the node.
	Depth(id NodeID) int

	WorldMatrix(id NodeID) (mat.Matrix, error)
	SetWorldMatrix(id NodeID, m mat.Matrix) error
	LocalMatrix(id NodeID) (mat.Matrix, error)
	SetLocalMatrix(id NodeID, m mat.Matrix) error
	// RotatePivot returns the manipulator pivot in the node's local space.
	RotatePivot(id NodeID) (mat.Vec3, error)
	// SetRotatePivot moves the manipulator pivot and reports a pivot-only
	// change.
	SetRotatePivot(id NodeID, p mat.Vec3) error

	// CreateTransform adds a new root transform node.
	CreateTransform(name string) (NodeID, error)
	// DeleteNode removes a node and its descendants.
	DeleteNode(id NodeID) error
	// SetNodeLocked toggles the lock that prevents interactive deletion.
	SetNodeLocked(id NodeID, locked bool) error
	NodeLocked(id NodeID) bool
}

// Attributes exposes dynamic attributes on nodes.
type Attributes interface {
	HasAttr(id NodeID, attr string) bool
	AddBoolAttr(id NodeID, attr string, value bool) error
	BoolAttr(id NodeID, attr string) (bool, error)
	AddStringAttr(id NodeID, attr, value string) error
	StringAttr(id NodeID, attr string) (string, error)
	// SetStringAttr fails while the attribute is locked.
	SetStringAttr(id NodeID, attr, value string) error
	SetAttrLocked(id NodeID, attr string, locked bool) error
}

// Containers exposes container nodes.
type Containers interface {
	// ContainerNodes lists every container node in the scene.
	ContainerNodes() []NodeID
	CreateContainer(name string) (NodeID, error)
	// IsReferenced reports whether the node comes from a referenced file.
	IsReferenced(id NodeID) bool
	// AddToContainer publishes node (and its hierarchy) inside container.
	AddToContainer(container, node NodeID) error
}

// Notifier registers change callbacks. Callbacks run on the host's main
// thread, one at a time.
type Notifier interface {
	OnTransformChanged(id NodeID, fn func(ChangeKind)) SubscriptionID
	OnSelectionChanged(fn func()) SubscriptionID
	OnTimeChanged(fn func()) SubscriptionID
	OnAttributeChanged(id NodeID, attr string, fn func()) SubscriptionID
	// Unsubscribe removes a callback. Unknown or already removed ids are an error.
	Unsubscribe(id SubscriptionID) error
}

// Scheduler defers work until the current notification has returned.
type Scheduler interface {
	// Defer queues fn. Queued callbacks run in FIFO order before the next
	// user-visible event loop tick.
	Defer(fn func())
}

// UndoRecorder brackets scene edits into one undoable step.
type UndoRecorder interface {
	OpenUndoChunk()
	CloseUndoChunk()
}

// Timeline controls the keyframe display of the time slider.
type Timeline interface {
	// ShowKeyframesFor focuses the time slider on the given node paths.
	ShowKeyframesFor(paths []string)
	// ShowKeyframesForSelection restores the default (active selection) display.
	ShowKeyframesForSelection()
}

// Host is everything the pivot engine needs from the editor.
type Host interface {
	Graph
	Attributes
	Containers
	Notifier
	Scheduler
	UndoRecorder
	Timeline
}
