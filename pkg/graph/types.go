package graph

import (
	"encoding/json"
	"strconv"

	"github.com/matzehuels/pipecheck/pkg/dag"
)

// =============================================================================
// Request Types
// =============================================================================

// Pipeline is a submitted graph: the nodes and edges of an editor canvas.
type Pipeline struct {
	Nodes []Node `json:"nodes" validate:"required,dive"`
	Edges []Edge `json:"edges" validate:"required,dive"`
}

// Node is one block on the canvas. Only ID is used by the checker.
//
// The editor attaches arbitrary metadata to nodes. Type, Position and Data
// are kept when they have the expected JSON shape and left empty otherwise,
// so unexpected metadata never rejects a pipeline.
type Node struct {
	ID       string         `json:"id" validate:"required"`
	Type     string         `json:"type,omitempty"`
	Position *Position      `json:"position,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is a connection between two node handles.
//
// Source and Target are deliberately optional: an edge without a source is
// ignored by the checker and an edge without a target leads nowhere. ID and
// the handles are presentation metadata and are read as leniently as node
// metadata.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// UnmarshalJSON decodes a node, requiring only that id is a string.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string `json:"id"`
		Type     any    `json:"type"`
		Position any    `json:"position"`
		Data     any    `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*n = Node{
		ID:       raw.ID,
		Type:     stringOf(raw.Type),
		Position: positionOf(raw.Position),
	}
	if data, ok := raw.Data.(map[string]any); ok {
		n.Data = data
	}
	return nil
}

// UnmarshalJSON decodes an edge, requiring only that source and target are
// strings when present.
func (e *Edge) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID           any    `json:"id"`
		Source       string `json:"source"`
		Target       string `json:"target"`
		SourceHandle any    `json:"sourceHandle"`
		TargetHandle any    `json:"targetHandle"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Edge{
		ID:           stringOf(raw.ID),
		Source:       raw.Source,
		Target:       raw.Target,
		SourceHandle: stringOf(raw.SourceHandle),
		TargetHandle: stringOf(raw.TargetHandle),
	}
	return nil
}

// stringOf returns v as a string. Numbers keep their JSON text; any other
// non-string value yields "".
func stringOf(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func positionOf(v any) *Position {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	x, xok := m["x"].(float64)
	y, yok := m["y"].(float64)
	if !xok || !yok {
		return nil
	}
	return &Position{X: x, Y: y}
}

// Label returns the node's display label: data.label when it is a non-empty
// string, otherwise the node type, otherwise the ID.
func (n Node) Label() string {
	if s, ok := n.Data["label"].(string); ok && s != "" {
		return s
	}
	if n.Type != "" {
		return n.Type
	}
	return n.ID
}

// NodeIDs returns the node IDs in submission order, duplicates included.
func (p *Pipeline) NodeIDs() []string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Pairs returns the edges as (source, target) arcs in submission order.
func (p *Pipeline) Pairs() []dag.Edge {
	pairs := make([]dag.Edge, len(p.Edges))
	for i, e := range p.Edges {
		pairs[i] = dag.Edge{From: e.Source, To: e.Target}
	}
	return pairs
}

// Graph builds the checker's adjacency mapping for the pipeline.
func (p *Pipeline) Graph() *dag.Graph {
	return dag.NewGraph(p.NodeIDs(), p.Pairs())
}

// =============================================================================
// Response Types
// =============================================================================

// ParseResult is the response of the parse endpoint.
type ParseResult struct {
	NumNodes int  `json:"num_nodes"`
	NumEdges int  `json:"num_edges"`
	IsDAG    bool `json:"is_dag"`
}

// EdgeRef identifies an arc by its endpoints.
type EdgeRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Analysis is the response of the analyze endpoint: a [ParseResult] plus
// structural diagnostics.
type Analysis struct {
	ParseResult

	// Cycle is the first cycle found, as a closed path; empty for a DAG.
	Cycle []string `json:"cycle,omitempty"`
	// BackEdges are the arcs that close cycles; removing them yields a DAG.
	BackEdges []EdgeRef `json:"back_edges"`
	// Sources are nodes with no incoming arcs.
	Sources []string `json:"sources"`
	// Sinks are nodes with no outgoing arcs.
	Sinks []string `json:"sinks"`
	// Order is a topological order; omitted when the graph is cyclic.
	Order []string `json:"order,omitempty"`
	// Stages groups nodes that can run side by side. For a cyclic graph they
	// are computed with BackEdges removed.
	Stages [][]string `json:"stages,omitempty"`
	// IgnoredEdges counts edges whose source is not a submitted node.
	IgnoredEdges int `json:"ignored_edges"`
	// DanglingEdges counts edges whose target is not a submitted node.
	DanglingEdges int `json:"dangling_edges"`
}

// EdgeRefs converts arcs to their wire form.
func EdgeRefs(edges []dag.Edge) []EdgeRef {
	out := make([]EdgeRef, len(edges))
	for i, e := range edges {
		out[i] = EdgeRef{Source: e.From, Target: e.To}
	}
	return out
}
