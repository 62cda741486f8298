package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipecheck/pkg/errors"
	"github.com/matzehuels/pipecheck/pkg/graph"
	"github.com/matzehuels/pipecheck/pkg/httputil"
)

// parsePath is the service route that checks a pipeline.
const parsePath = "/pipelines/parse"

// submitOpts holds options for the submit command.
type submitOpts struct {
	url  string
	json bool
}

// submitCommand creates the submit command, which sends a pipeline to a
// running service the way the editor's submit button does.
func (c *CLI) submitCommand() *cobra.Command {
	var opts submitOpts

	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Send a pipeline to a running pipecheck service",
		Long: `Submit a pipeline JSON file (or "-" for stdin) to a pipecheck service and
print the node count, edge count and DAG status it reports.`,
		Example: `  pipecheck submit pipeline.json
  pipecheck submit --url http://checker.internal:8000 pipeline.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSubmit(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", defaultServerURL, "service base URL")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the service response as JSON")

	return cmd
}

func (c *CLI) runSubmit(cmd *cobra.Command, path string, opts submitOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	body, err := readRaw(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return errors.New(errors.ErrCodeInvalidJSON, "%s is not valid JSON", path)
	}

	client, err := httputil.NewClient(opts.url)
	if err != nil {
		return err
	}

	logger.Debug("submitting pipeline", "url", client.BaseURL+parsePath, "bytes", len(body))
	spin := newSpinner(ctx, cmd.ErrOrStderr(), "Submitting pipeline...")
	spin.Start()
	var res graph.ParseResult
	err = client.PostJSON(ctx, parsePath, json.RawMessage(body), &res)
	spin.Stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		return graph.WriteJSON(out, res)
	}
	printKeyValue(out, "Nodes", fmt.Sprint(res.NumNodes))
	printKeyValue(out, "Edges", fmt.Sprint(res.NumEdges))
	printKeyValue(out, "Is DAG", yesNo(res.IsDAG))
	if res.IsDAG {
		printSuccess(out, "Pipeline is valid")
	} else {
		printWarning(out, "Pipeline contains a cycle and cannot be executed")
	}
	return nil
}

// readRaw returns the bytes of path, or of stdin when path is "-".
func readRaw(stdin io.Reader, path string) ([]byte, error) {
	if path == stdinArg {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
