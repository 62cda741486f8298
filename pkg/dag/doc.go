// Package dag checks whether a submitted pipeline graph is a directed acyclic
// graph (DAG).
//
// # Overview
//
// A visual pipeline editor submits its canvas as a list of node IDs and a list
// of directed edges. This package turns those lists into an adjacency mapping
// and runs a depth-first search over it to find cycles. It is the only part of
// pipecheck with algorithmic content; the HTTP service and CLI call into it
// with already-parsed lists.
//
// # Basic Usage
//
// For a yes/no answer use [Check]:
//
//	ok := dag.Check(
//	    []string{"input", "llm", "output"},
//	    []dag.Edge{{From: "input", To: "llm"}, {From: "llm", To: "output"}},
//	)
//	// ok == true
//
// Build a [Graph] with [NewGraph] to ask more than one question of the same
// input: [Graph.IsAcyclic], [Graph.FindCycle], [Graph.BackEdges],
// [Graph.Sources], [Graph.Sinks] and [Graph.TopologicalOrder].
//
// # Permissive Input
//
// The mapping is built the way the editor's backend always has:
//
//   - An edge whose source is not a node is silently dropped.
//   - An edge whose target is not a node is kept, but the target is a dead end
//     and can never be part of a cycle.
//   - Repeated node IDs collapse onto a single node.
//   - Parallel edges are allowed and do not change the result.
//
// None of these conditions is an error. Stricter validation belongs to the
// request layer.
//
// # Algorithm
//
// Cycle detection is a white/gray/black depth-first search. Each node not yet
// visited is used as a root, in node order, which covers disconnected
// components. A node is gray while it is on the active path; an arc to a gray
// node is a back edge and proves a cycle. A self-loop is the simplest case.
//
// The search keeps an explicit stack of (node, next-arc) frames instead of
// recursing, so very long chains cannot exhaust the goroutine stack. The
// visiting order is identical to the recursive formulation.
//
// # Concurrency
//
// [Check] and [NewGraph] allocate all working state per call. A [Graph] is
// immutable after construction and safe for concurrent readers.
package dag
