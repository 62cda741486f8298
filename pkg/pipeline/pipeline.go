// Package pipeline runs the acyclicity checker on submitted pipelines.
//
// This package sits between the transport layers (HTTP handlers, CLI
// commands) and the checker in pkg/dag. It projects a decoded
// [graph.Pipeline] onto checker input, runs the check, and memoizes results
// in a [cache.Cache]. By centralizing this logic, the service and the CLI
// report identical results for identical input.
//
// # Operations
//
//   - Parse: node count, edge count and the DAG verdict
//   - Analyze: the same plus cycle, back edges, sources, sinks, a
//     topological order and execution stages
//
// A cyclic pipeline has no topological order. Its stages are computed with
// the back edges removed.
//
// Counts are the lengths of the submitted lists. Duplicate node IDs and edges
// whose source is not a node are still counted, even though the checker
// collapses or ignores them.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	runner.Limits = errors.Limits{MaxNodes: 10000}
//	res, err := runner.Parse(ctx, p)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.IsDAG)
//
// The package-level [Parse] and [Analyze] functions run without a cache.
package pipeline

import (
	"github.com/matzehuels/pipecheck/pkg/cache"
	"github.com/matzehuels/pipecheck/pkg/dag"
	"github.com/matzehuels/pipecheck/pkg/dag/transform"
	"github.com/matzehuels/pipecheck/pkg/graph"
)

// Parse computes the parse result for p without caching.
func Parse(p *graph.Pipeline) graph.ParseResult {
	return graph.ParseResult{
		NumNodes: len(p.Nodes),
		NumEdges: len(p.Edges),
		IsDAG:    dag.Check(p.NodeIDs(), p.Pairs()),
	}
}

// Analyze computes the full analysis for p without caching.
func Analyze(p *graph.Pipeline) (graph.Analysis, error) {
	g := p.Graph()

	a := graph.Analysis{
		ParseResult: graph.ParseResult{
			NumNodes: len(p.Nodes),
			NumEdges: len(p.Edges),
			IsDAG:    g.IsAcyclic(),
		},
		Cycle:        g.FindCycle(),
		BackEdges:    graph.EdgeRefs(g.BackEdges()),
		Sources:      orEmpty(g.Sources()),
		Sinks:        orEmpty(g.Sinks()),
		IgnoredEdges: len(p.Edges) - g.EdgeCount(),
	}
	for _, e := range p.Edges {
		if !g.HasNode(e.Target) {
			a.DanglingEdges++
		}
	}

	layered := g
	if a.IsDAG {
		order, err := g.TopologicalOrder()
		if err != nil {
			return graph.Analysis{}, err
		}
		a.Order = order
	} else {
		layered, _ = transform.BreakCycles(g)
	}
	stages, err := transform.Stages(layered)
	if err != nil {
		return graph.Analysis{}, err
	}
	a.Stages = stages
	return a, nil
}

// GraphHash returns the content hash identifying p's checker input.
// Presentation fields such as positions and labels do not affect it.
func GraphHash(p *graph.Pipeline) string {
	pairs := make([][2]string, len(p.Edges))
	for i, e := range p.Edges {
		pairs[i] = [2]string{e.Source, e.Target}
	}
	return cache.GraphHash(p.NodeIDs(), pairs)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
