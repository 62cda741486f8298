package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/pipecheck/pkg/buildinfo"
	"github.com/matzehuels/pipecheck/pkg/errors"
	"github.com/matzehuels/pipecheck/pkg/graph"
	"github.com/matzehuels/pipecheck/pkg/render/nodelink"
)

// errorBody is the response for every failed request.
type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Ping": "Pong"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	p, err := s.readPipeline(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.Parse(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	p, err := s.readPipeline(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.Analyze(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = nodelink.FormatSVG
	}
	p, err := s.readPipeline(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := errors.ValidateLimits(len(p.Nodes), len(p.Edges), s.runner.Limits); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := nodelink.Render(r.Context(), p, format, nodelink.Options{
		Detailed: r.URL.Query().Get("detailed") == "true",
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", nodelink.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// readPipeline decodes the request body, enforcing the body size limit.
func (s *Server) readPipeline(w http.ResponseWriter, r *http.Request) (*graph.Pipeline, error) {
	body := r.Body
	if limit := s.cfg.Limits.MaxBodyBytes; limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	p, err := graph.ReadPipeline(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.ErrCodeBodyTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, err
	}
	return p, nil
}

// fail logs err and writes it as a client error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Debug("rejected pipeline",
		"code", errors.GetCode(err),
		"error", err,
		"request_id", RequestID(r.Context()))
	writeError(w, err)
}

// writeError writes the single failure response: 400 with the user message.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
