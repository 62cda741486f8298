package transform

import "github.com/matzehuels/pipecheck/pkg/dag"

// Stages groups the nodes of an acyclic graph into execution stages.
//
// Stages uses a longest-path layering via topological sort (Kahn's algorithm).
// Each node is placed one stage after the latest stage of any of its parents,
// so that:
//   - Source nodes (no incoming arcs) are in stage 0
//   - Every parent is in a strictly earlier stage than its children
//   - Nodes in the same stage do not depend on each other
//
// Within a stage, nodes keep their order from the graph's node list. Arcs to
// unknown targets are ignored.
//
// # Cycles
//
// Nodes on a cycle never reach in-degree zero, so no layering exists.
// Stages returns [dag.ErrGraphHasCycle] in that case; run [BreakCycles] first
// to layer the remaining structure.
//
// # Performance
//
// Time complexity is O(V + E). Space complexity is O(V).
func Stages(g *dag.Graph) ([][]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	rows := make(map[string]int, len(order))
	depth := 0
	for _, id := range order {
		for _, child := range g.Children(id) {
			if !g.HasNode(child) {
				continue
			}
			if row := rows[id] + 1; row > rows[child] {
				rows[child] = row
			}
		}
		depth = max(depth, rows[id]+1)
	}

	stages := make([][]string, depth)
	for _, id := range g.NodeIDs() {
		stages[rows[id]] = append(stages[rows[id]], id)
	}
	return stages, nil
}
