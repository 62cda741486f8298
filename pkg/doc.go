// Package pkg provides the core libraries for pipecheck pipeline validation.
//
// # Overview
//
// pipecheck receives the graph a user draws in a node editor (blocks and the
// connections between them) and reports how many nodes and edges it has and
// whether it is a directed acyclic graph, which is what makes it runnable as
// a pipeline. The pkg directory is organized into these areas:
//
//  1. [dag] - Adjacency mapping, cycle detection, topological order
//  2. [graph] - Wire types for submitted pipelines and check results
//  3. [pipeline] - Orchestration (validate → check → cache)
//  4. [cache] - Result caching backends (memory, file, Redis, MongoDB)
//  5. [render] - Graphviz diagrams with cycles highlighted
//  6. [observability] - Hooks for metrics on checks, caching and HTTP
//
// # Architecture
//
// The typical data flow through pipecheck:
//
//	Editor submit (JSON)
//	         ↓
//	    [graph] package (decode + validate)
//	         ↓
//	    [pipeline] package (limits, cache lookup)
//	         ↓
//	    [dag] package (adjacency mapping + iterative DFS)
//	         ↓
//	    {num_nodes, num_edges, is_dag}
//
// # Quick Start
//
//	p, err := graph.ReadPipelineFile("pipeline.json")
//	if err != nil {
//	    return err
//	}
//	res := pipeline.Parse(p)
//	fmt.Println(res.NumNodes, res.NumEdges, res.IsDAG)
//
// [dag]: github.com/matzehuels/pipecheck/pkg/dag
// [graph]: github.com/matzehuels/pipecheck/pkg/graph
// [pipeline]: github.com/matzehuels/pipecheck/pkg/pipeline
// [cache]: github.com/matzehuels/pipecheck/pkg/cache
// [render]: github.com/matzehuels/pipecheck/pkg/render/nodelink
// [observability]: github.com/matzehuels/pipecheck/pkg/observability
package pkg
