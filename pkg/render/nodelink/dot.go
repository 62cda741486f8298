package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pipecheck/pkg/dag"
	"github.com/matzehuels/pipecheck/pkg/errors"
	"github.com/matzehuels/pipecheck/pkg/graph"
)

// Output formats accepted by [Render].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the node type and data fields in node labels.
	// When false, only the display label is shown.
	Detailed bool
}

// ToDOT converts a pipeline to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Each distinct node ID becomes one DOT node labelled with [graph.Node.Label]
// of its first occurrence. Edges are drawn in submission order. Edges whose
// source is not a node are omitted, as the checker ignores them.
func ToDOT(p *graph.Pipeline, opts Options) string {
	g := p.Graph()

	back := make(map[dag.Edge]bool)
	for _, e := range g.BackEdges() {
		back[e] = true
	}
	onCycle := make(map[string]bool)
	for _, id := range g.FindCycle() {
		onCycle[id] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	seen := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
		if onCycle[n.ID] {
			attrs = append(attrs, "color=red", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	var missing []string
	for _, e := range g.Edges() {
		if !seen[e.To] {
			seen[e.To] = true
			missing = append(missing, e.To)
		}
	}
	for _, id := range missing {
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey, fontcolor=grey40];\n",
			id, id+" (missing)")
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if back[e] {
			fmt.Fprintf(&buf, "  %q -> %q [color=red, style=dashed];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n graph.Node, detailed bool) string {
	label := n.Label()
	if !detailed {
		return label
	}

	var parts []string
	if label != n.ID {
		parts = append(parts, "id: "+n.ID)
	}
	if n.Type != "" {
		parts = append(parts, "type: "+n.Type)
	}
	for _, k := range slices.Sorted(maps.Keys(n.Data)) {
		if k == "label" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Data[k]))
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// Render produces p in the named format: DOT source or an SVG image.
// Unknown formats are reported as INVALID_FORMAT errors.
func Render(ctx context.Context, p *graph.Pipeline, format string, opts Options) ([]byte, error) {
	dot := ToDOT(p, opts)
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q (use %s or %s)", format, FormatDOT, FormatSVG)
	}
}

// ContentType returns the media type of a [Render] format.
func ContentType(format string) string {
	if format == FormatSVG {
		return "image/svg+xml"
	}
	return "text/vnd.graphviz; charset=utf-8"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based root element with one
// whose width and height match the viewBox, so the image scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
