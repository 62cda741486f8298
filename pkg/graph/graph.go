package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pipecheck/pkg/errors"
)

// =============================================================================
// Pipeline Serialization API
// =============================================================================

// ReadPipeline decodes and validates a pipeline from r.
//
// Malformed JSON, trailing data after the top-level object and missing
// required fields are reported as coded errors from pkg/errors. ReadPipeline
// does not close r.
func ReadPipeline(r io.Reader) (*Pipeline, error) {
	dec := json.NewDecoder(r)
	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidJSON, err, "decode pipeline")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidJSON, "decode pipeline: unexpected data after JSON object")
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadPipelineFile reads a JSON file at path and returns the decoded pipeline.
func ReadPipelineFile(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPipeline(f)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
