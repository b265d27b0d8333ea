// Package dag provides a small directed acyclic graph used to order scene
// nodes by ancestry.
//
// # Overview
//
// The pivot engine binds a user's selection to a shared master group and has
// to write world matrices parents-first: moving a parent drags its children
// through the host's own scene-graph evaluation, so children must be settled
// after their ancestors. This package holds the ancestry relation among the
// selected nodes and peels it into that order.
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]. Nodes must have unique IDs, and edges can only connect
// existing nodes:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "hips"})
//	g.AddNode(dag.Node{ID: "spine"})
//	g.AddEdge(dag.Edge{From: "hips", To: "spine"})
//	order, err := g.TopoSort()
//
// # Ordering
//
// Unlike a map-backed graph, [DAG] remembers node insertion order. [DAG.Nodes],
// [DAG.Sources] and [DAG.TopoSort] all report nodes in that order, so the
// result of sorting a selection is deterministic for identical input order.
// Ties between nodes that become ready at the same time are broken by
// insertion order; the result does not try to preserve selection order
// beyond that.
//
// # Transitive Edges
//
// Ancestry graphs built from pairwise "is ancestor of" checks contain every
// transitive edge (hips→spine, spine→neck and hips→neck). [TransitiveReduction]
// strips them for display; [DAG.TopoSort] does not need it.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. The pivot engine builds a
// fresh graph per session on the host's main thread.
package dag
