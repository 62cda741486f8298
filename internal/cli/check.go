package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipecheck/pkg/graph"
)

// errCyclic is returned by check --fail-on-cycle when the pipeline has a cycle.
var errCyclic = errors.New("pipeline contains a cycle")

// checkOpts holds options for the check command.
type checkOpts struct {
	json        bool
	analyze     bool
	noCache     bool
	failOnCycle bool
}

// checkCommand creates the check command for validating pipeline files.
func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Count nodes and edges and check that a pipeline is a DAG",
		Long: `Check a pipeline JSON file (or "-" for stdin) the way the service does.

The pipeline must be an object with "nodes" and "edges" arrays as sent by the
editor. With --analyze the report also names a cycle, the edges closing it,
the source and sink nodes and, for a DAG, an execution order and stages.`,
		Example: `  pipecheck check pipeline.json
  pipecheck check --analyze pipeline.json
  cat pipeline.json | pipecheck check --json -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	cmd.Flags().BoolVarP(&opts.analyze, "analyze", "a", false, "include cycle, source, sink and stage details")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the local result cache")
	cmd.Flags().BoolVar(&opts.failOnCycle, "fail-on-cycle", false, "exit with an error when the pipeline is not a DAG")

	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, path string, opts checkOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	p, err := readPipeline(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	out := cmd.OutOrStdout()
	var isDAG bool
	if opts.analyze {
		res, cached, err := runner.AnalyzeWithCacheInfo(ctx, p)
		if err != nil {
			return err
		}
		isDAG = res.IsDAG
		if opts.json {
			err = graph.WriteJSON(out, res)
		} else {
			printCheck(out, path, res.ParseResult, cached)
			printAnalysis(out, res)
		}
		if err != nil {
			return err
		}
	} else {
		res, cached, err := runner.ParseWithCacheInfo(ctx, p)
		if err != nil {
			return err
		}
		isDAG = res.IsDAG
		if opts.json {
			err = graph.WriteJSON(out, res)
		} else {
			printCheck(out, path, res, cached)
		}
		if err != nil {
			return err
		}
	}

	prog.done("Checked pipeline")
	if opts.failOnCycle && !isDAG {
		return errCyclic
	}
	return nil
}

func printCheck(w io.Writer, path string, res graph.ParseResult, cached bool) {
	name := path
	if path == stdinArg {
		name = "stdin"
	}
	fmt.Fprintln(w, StyleTitle.Render(name))
	printStats(w, res.NumNodes, res.NumEdges, cached)
	if res.IsDAG {
		printSuccess(w, "Pipeline is a DAG")
	} else {
		printWarning(w, "Pipeline contains a cycle")
	}
}

func printAnalysis(w io.Writer, a graph.Analysis) {
	fmt.Fprintln(w)
	if len(a.Cycle) > 0 {
		printKeyValue(w, "Cycle", formatPath(a.Cycle))
		edges := make([]string, len(a.BackEdges))
		for i, e := range a.BackEdges {
			edges[i] = e.Source + " " + iconArrow + " " + e.Target
		}
		printKeyValue(w, "Back edges", formatList(edges))
	}
	printKeyValue(w, "Sources", formatList(a.Sources))
	printKeyValue(w, "Sinks", formatList(a.Sinks))
	if a.IsDAG {
		printKeyValue(w, "Order", formatList(a.Order))
	}
	if len(a.Stages) > 0 && !a.IsDAG {
		printDetail(w, "stages ignore the back edges")
	}
	for i, stage := range a.Stages {
		printDetail(w, "stage %d: %s", i+1, strings.Join(stage, ", "))
	}
	if a.IgnoredEdges > 0 {
		printWarning(w, "%s from unknown nodes ignored", plural(a.IgnoredEdges, "edge"))
	}
	if a.DanglingEdges > 0 {
		printWarning(w, "%s to unknown nodes", plural(a.DanglingEdges, "edge"))
	}
}
