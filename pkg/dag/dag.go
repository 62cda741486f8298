package dag

import (
	"container/heap"
	"errors"
	"slices"
)

var (
	// ErrGraphHasCycle is returned by [Graph.TopologicalOrder] when the graph
	// contains a directed cycle and therefore has no topological order.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Edge is a directed arc from one node ID to another.
//
// Either endpoint may reference an ID that is not a node of the graph. An edge
// whose From is unknown is dropped when the adjacency mapping is built; an edge
// whose To is unknown is kept as an outgoing arc but acts as a dead end.
type Edge struct {
	From string // Source node ID
	To   string // Target node ID
}

// Graph is the adjacency mapping derived from a node list and an edge list.
//
// It is built once by [NewGraph] and is read-only afterwards, so a single Graph
// may be queried from multiple goroutines. The zero value is an empty graph.
type Graph struct {
	ids      []string            // unique node IDs in first-seen order
	outgoing map[string][]string // nodeID -> target IDs in edge order
	arcs     int
}

// NewGraph builds the adjacency mapping for nodes and edges.
//
// Every ID in nodes becomes a key of the mapping, so nodes without outgoing
// edges map to an empty sequence. Repeated IDs collapse onto one key that keeps
// the position of its first occurrence. Edges are appended to their source's
// sequence in input order; edges whose source is not a known node are ignored.
func NewGraph(nodes []string, edges []Edge) *Graph {
	g := &Graph{
		ids:      make([]string, 0, len(nodes)),
		outgoing: make(map[string][]string, len(nodes)),
	}
	for _, id := range nodes {
		if _, seen := g.outgoing[id]; seen {
			continue
		}
		g.ids = append(g.ids, id)
		g.outgoing[id] = nil
	}
	for _, e := range edges {
		if _, ok := g.outgoing[e.From]; !ok {
			continue
		}
		g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
		g.arcs++
	}
	return g
}

// Check reports whether the graph formed by nodes and edges is acyclic.
// It is shorthand for NewGraph(nodes, edges).IsAcyclic().
//
// An empty node set is vacuously acyclic.
func Check(nodes []string, edges []Edge) bool {
	return NewGraph(nodes, edges).IsAcyclic()
}

// NodeIDs returns the distinct node IDs in first-seen order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.ids) }

// NodeCount returns the number of distinct node IDs.
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of arcs recorded in the adjacency mapping.
// Edges dropped because of an unknown source are not counted.
func (g *Graph) EdgeCount() int { return g.arcs }

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.outgoing[id]
	return ok
}

// Children returns the targets of id's outgoing arcs in edge order, including
// targets that are not nodes of the graph. It returns nil for unknown IDs.
func (g *Graph) Children(id string) []string {
	return slices.Clone(g.outgoing[id])
}

// Edges returns every recorded arc, grouped by source in node order and in
// edge order within a source.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.arcs)
	for _, from := range g.ids {
		for _, to := range g.outgoing[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// Sources returns the nodes that no arc points at, in node order.
func (g *Graph) Sources() []string {
	in := g.inDegrees()
	var out []string
	for _, id := range g.ids {
		if in[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Sinks returns the nodes without outgoing arcs, in node order.
// A node whose only arcs lead to unknown targets is not a sink.
func (g *Graph) Sinks() []string {
	var out []string
	for _, id := range g.ids {
		if len(g.outgoing[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// TopologicalOrder returns the known nodes ordered so that every arc between
// two known nodes points forward. Among nodes that are ready at the same time,
// the one earlier in the node list comes first.
//
// Returns [ErrGraphHasCycle] if no such order exists.
func (g *Graph) TopologicalOrder() ([]string, error) {
	in := g.inDegrees()
	pos := make(map[string]int, len(g.ids))
	for i, id := range g.ids {
		pos[id] = i
	}

	ready := &indexHeap{}
	for i, id := range g.ids {
		if in[id] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]string, 0, len(g.ids))
	for ready.Len() > 0 {
		id := g.ids[heap.Pop(ready).(int)]
		order = append(order, id)
		for _, child := range g.outgoing[id] {
			i, known := pos[child]
			if !known {
				continue
			}
			if in[child]--; in[child] == 0 {
				heap.Push(ready, i)
			}
		}
	}

	if len(order) != len(g.ids) {
		return nil, ErrGraphHasCycle
	}
	return order, nil
}

func (g *Graph) inDegrees() map[string]int {
	in := make(map[string]int, len(g.ids))
	for _, id := range g.ids {
		for _, to := range g.outgoing[id] {
			if _, known := g.outgoing[to]; known {
				in[to]++
			}
		}
	}
	return in
}

// indexHeap is a min-heap of node-list positions.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
