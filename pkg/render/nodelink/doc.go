// Package nodelink renders submitted pipelines as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz, where
// pipeline nodes appear as boxes connected by arrows. It shows the checker's
// view of the canvas: arcs that close a cycle are drawn red and dashed, and
// edges that lead to an ID that is not a node end in a grey placeholder.
//
// # Usage
//
// Convert a pipeline to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(p, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Or pick the format by name:
//
//	out, err := nodelink.Render(ctx, p, nodelink.FormatSVG, opts)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: When true, node labels include the node type and data fields
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// The generated DOT uses left-to-right layout (rankdir=LR), the direction
// data flows on the editor canvas.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. No external binaries are needed.
package nodelink
