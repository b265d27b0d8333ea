// Package nodelink renders selection ancestry graphs as node-link diagrams.
//
// # Overview
//
// The graph built by [github.com/matzehuels/temppivot/pkg/pivot.SelectionGraph]
// has one vertex per selected node and an edge from every selected ancestor
// to its selected descendants. This package turns it into Graphviz DOT, with
// each node labelled by its position in the propagation order, and renders
// DOT to SVG in-process.
//
// # Usage
//
//	g, _ := pivot.SelectionGraph(selected)
//	order, _ := g.TopoSort()
//	dot := nodelink.ToDOT(g, nodelink.Options{Order: order})
//	svg, err := nodelink.RenderSVG(dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Order: propagation order; nodes are prefixed with their 1-based rank
//   - Detailed: labels also carry the DAG path and hierarchy depth
//
// # DOT Format
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded box
// nodes, so ancestors sit above their descendants. Transitive edges are kept;
// call [github.com/matzehuels/temppivot/pkg/dag.TransitiveReduction] first
// for a sparser picture.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
