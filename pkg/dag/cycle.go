package dag

import "slices"

// Node colors for depth-first search.
const (
	white = iota // not yet visited
	gray         // on the active path
	black        // fully explored
)

// frame is one level of the explicit depth-first stack: a node and the index
// of the next outgoing arc to examine.
type frame struct {
	id   string
	next int
}

// IsAcyclic reports whether the graph contains no directed cycle.
//
// Every node not yet visited is used as a root, in node order, so disconnected
// components are all covered. An arc to a node on the active path (a back
// edge) proves a cycle; self-loops are the one-node case. Arcs to unknown
// targets are dead ends and never close a cycle.
func (g *Graph) IsAcyclic() bool {
	acyclic := true
	g.walk(func([]frame, string) bool {
		acyclic = false
		return false
	})
	return acyclic
}

// FindCycle returns the first cycle met by the same traversal as
// [Graph.IsAcyclic], as a closed path [n0, n1, ..., n0] whose consecutive
// pairs are arcs of the graph. It returns nil if the graph is acyclic.
func (g *Graph) FindCycle() []string {
	var cycle []string
	g.walk(func(path []frame, to string) bool {
		start := slices.IndexFunc(path, func(f frame) bool { return f.id == to })
		for _, f := range path[start:] {
			cycle = append(cycle, f.id)
		}
		cycle = append(cycle, to)
		return false
	})
	return cycle
}

// BackEdges returns every arc that closes a cycle during a full traversal.
// The result is empty if and only if the graph is acyclic, and removing all
// of these arcs always leaves an acyclic graph.
func (g *Graph) BackEdges() []Edge {
	var out []Edge
	g.walk(func(path []frame, to string) bool {
		out = append(out, Edge{From: path[len(path)-1].id, To: to})
		return true
	})
	return out
}

// walk runs an iterative white/gray/black depth-first search over the whole
// graph and calls onBack for every arc that points at a gray node. path is
// the active stack, with the arc's source on top; it must not be retained.
// The search stops as soon as onBack returns false.
//
// The stack lives on the heap, so chains of any length are safe.
func (g *Graph) walk(onBack func(path []frame, to string) bool) {
	color := make(map[string]uint8, len(g.ids))
	var stack []frame

	for _, root := range g.ids {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack = append(stack[:0], frame{id: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.outgoing[top.id]
			if top.next == len(children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++

			if _, known := g.outgoing[child]; !known {
				continue
			}
			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{id: child})
			case gray:
				if !onBack(stack, child) {
					return
				}
			}
		}
	}
}
