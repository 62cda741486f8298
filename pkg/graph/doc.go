// Package graph provides the wire format for pipelines submitted by the
// visual editor and for the results returned to it.
//
// # Architecture
//
// The package sits at the serialization boundary between the editor's JSON
// and the checker:
//
//   - [Pipeline], [Node], [Edge]: request types (this package)
//   - [ParseResult], [Analysis]: response types (this package)
//   - pkg/dag.Graph: the adjacency mapping the checker works on
//
// Use [Pipeline.NodeIDs] and [Pipeline.Pairs], or [Pipeline.Graph], to turn a
// request into checker input.
//
// # Request Format
//
// A pipeline is the editor's canvas as React Flow serializes it:
//
//	{
//	  "nodes": [{"id": "customInput-1", "type": "customInput", "data": {...}}],
//	  "edges": [{"source": "customInput-1", "target": "llm-1", "id": "..."}]
//	}
//
// Only node "id" and edge "source"/"target" matter to the checker. Known
// presentation fields are decoded for rendering; everything else is ignored.
// Both arrays must be present, and every node must carry a non-empty id.
//
// # Response Format
//
// [ParseResult] is exactly {"num_nodes", "num_edges", "is_dag"}. The counts
// are the lengths of the submitted lists, whatever the checker filtered.
// [Analysis] extends it with cycle diagnostics and ordering information.
package graph
