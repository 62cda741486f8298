package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipecheck/pkg/render/nodelink"
)

// renderOpts holds options for the render command.
type renderOpts struct {
	output   string
	format   string
	detailed bool
}

// renderCommand creates the render command for drawing pipelines.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw a pipeline as a Graphviz diagram",
		Long: `Render a pipeline JSON file (or "-" for stdin) as DOT source or SVG.

Nodes on a cycle and the edges closing it are drawn in red; edges to unknown
nodes point at a dashed placeholder. The format defaults to the output file's
extension, or dot when writing to stdout.`,
		Example: `  pipecheck render pipeline.json -o pipeline.svg
  pipecheck render --detailed pipeline.json | dot -Tpng > pipeline.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot or svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node type and data in labels")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, path string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	p, err := readPipeline(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	format := opts.format
	if format == "" {
		format = formatFromPath(opts.output)
	}
	logger.Debug("rendering", "format", format, "nodes", len(p.Nodes), "edges", len(p.Edges))

	data, err := nodelink.Render(ctx, p, format, nodelink.Options{Detailed: opts.detailed})
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess(cmd.ErrOrStderr(), "Rendered")
	printFile(cmd.ErrOrStderr(), opts.output)
	return nil
}

// formatFromPath infers the render format from an output file extension.
func formatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case nodelink.FormatSVG:
		return nodelink.FormatSVG
	case "", "gv", nodelink.FormatDOT:
		return nodelink.FormatDOT
	default:
		return ext
	}
}
