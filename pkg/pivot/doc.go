// Package pivot implements temporary pivots: a transient "master group"
// transform that stands in for a selection of scene nodes, so moving,
// rotating or scaling the master group moves every bound node with it.
//
// # Overview
//
// A session runs through four stages:
//
//  1. [SortSelection] orders the selected transforms so every selected
//     ancestor comes before its selected descendants.
//  2. [Factory.Create] builds the master group, tags it, parks it in the
//     scene's container node and places it: at the centroid of the
//     selection, or, for a single node, where a previously learned offset
//     says it should go.
//  3. [Engine] binds each node by its offset to the master group
//     (node = offset * master) and re-applies those offsets whenever the
//     master group moves.
//  4. On deselection the engine tears the master group down, restores the
//     selection and, for single-node sessions, writes the node's offset into
//     the [OffsetStore] so the next session resumes from it.
//
// # Offset Store
//
// Learned offsets live in one JSON object on a locked string attribute of a
// container node ([ContainerStore]):
//
//	{"9f1c...": [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0.5, 2, 0, 1]}
//
// Each value holds the 16 matrix elements in host order. A blob that does
// not parse is reported as [errors.ErrCodeCorruptState]; the store never
// falls back to an empty mapping because nothing else writes that attribute.
//
// # Propagation
//
// Moving a bound parent drags its bound children along through the scene
// hierarchy, so a single pass over the nodes may leave residual drift. The
// engine repeats passes in topological order until one pass changes nothing,
// bounded by the deepest hierarchy level among the bound nodes. See
// [Engine.Propagate].
//
// # Scheduling
//
// Every engine entry point runs inside a host notification. The host forbids
// deleting nodes from inside a notification, so teardown is queued through
// [scene.Scheduler.Defer] and runs on the next idle tick. [Engine.Cancel] is
// the synchronous variant for callers outside a notification.
package pivot
