package transform

import "github.com/matzehuels/pipecheck/pkg/dag"

// BreakCycles returns a copy of g without its back edges, together with the
// number of arcs removed.
//
// BreakCycles uses the same white/gray/black depth-first search as
// [dag.Graph.IsAcyclic]. Every arc that points at a node still on the active
// path is dropped, including parallel copies of such an arc. What remains is
// made of tree, forward and cross arcs only, so the result is always acyclic.
//
// # Edge Selection
//
// The arcs removed depend on node and edge order but are deterministic for a
// given input. The choice does not minimize the number removed; a minimum
// feedback arc set is NP-hard and not attempted.
//
// # Nil Handling
//
// BreakCycles panics if g is nil. An empty graph yields an empty copy and 0.
//
// # Performance
//
// Time complexity is O(V + E). The search keeps its stack on the heap, so
// long chains do not risk overflowing the goroutine stack.
func BreakCycles(g *dag.Graph) (*dag.Graph, int) {
	back := g.BackEdges()
	if len(back) == 0 {
		return dag.NewGraph(g.NodeIDs(), g.Edges()), 0
	}

	drop := make(map[dag.Edge]bool, len(back))
	for _, e := range back {
		drop[e] = true
	}

	var kept []dag.Edge
	removed := 0
	for _, e := range g.Edges() {
		if drop[e] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	return dag.NewGraph(g.NodeIDs(), kept), removed
}
