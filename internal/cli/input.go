package cli

import (
	"io"

	"github.com/matzehuels/pipecheck/pkg/graph"
)

// stdinArg is the file argument that reads from standard input.
const stdinArg = "-"

// readPipeline loads the pipeline named by path, or from stdin when path is "-".
func readPipeline(stdin io.Reader, path string) (*graph.Pipeline, error) {
	if path == stdinArg {
		return graph.ReadPipeline(stdin)
	}
	return graph.ReadPipelineFile(path)
}
