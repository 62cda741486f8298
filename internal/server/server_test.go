package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pipecheck/internal/config"
	"github.com/matzehuels/pipecheck/pkg/cache"
	"github.com/matzehuels/pipecheck/pkg/graph"
	"github.com/matzehuels/pipecheck/pkg/observability"
	"github.com/matzehuels/pipecheck/pkg/pipeline"
)

// editorPayload is what the editor's Submit button sends: React Flow nodes
// and edges with their presentation fields.
const editorPayload = `{
  "nodes": [
    {"id": "customInput-1", "type": "customInput", "position": {"x": 100, "y": 100}, "data": {"id": "customInput-1", "nodeType": "customInput"}, "width": 200, "height": 80},
    {"id": "llm-1", "type": "llm", "position": {"x": 400, "y": 100}, "data": {"id": "llm-1", "nodeType": "llm"}},
    {"id": "customOutput-1", "type": "customOutput", "position": {"x": 700, "y": 100}, "data": {}}
  ],
  "edges": [
    {"id": "reactflow__edge-customInput-1customInput-1-value-llm-1llm-1-prompt", "source": "customInput-1", "sourceHandle": "customInput-1-value", "target": "llm-1", "targetHandle": "llm-1-prompt", "type": "smoothstep", "animated": true, "markerEnd": {"type": "arrow"}},
    {"id": "e2", "source": "llm-1", "target": "customOutput-1"}
  ]
}`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	logger := log.New(io.Discard)
	mem, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(mem, cfg.Keyer(), logger)
	runner.Limits = cfg.PipelineLimits()
	return New(cfg, runner, logger)
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return body.Detail
}

func TestPing(t *testing.T) {
	rec := do(t, newTestServer(t, nil), "GET", "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"Ping":"Pong"}` {
		t.Errorf("body = %s", got)
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, nil), "GET", "/healthz", "", nil)
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["status"] != "ok" || body["version"] == "" {
		t.Errorf("healthz = %d %v", rec.Code, body)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want graph.ParseResult
	}{
		{"editor payload", editorPayload, graph.ParseResult{NumNodes: 3, NumEdges: 2, IsDAG: true}},
		{"empty", `{"nodes": [], "edges": []}`, graph.ParseResult{NumNodes: 0, NumEdges: 0, IsDAG: true}},
		{
			"cycle",
			`{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"source": "a", "target": "b"}, {"source": "b", "target": "a"}]}`,
			graph.ParseResult{NumNodes: 2, NumEdges: 2, IsDAG: false},
		},
		{
			"self loop",
			`{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "a"}]}`,
			graph.ParseResult{NumNodes: 1, NumEdges: 1, IsDAG: false},
		},
		{
			"unknown endpoints",
			`{"nodes": [{"id": "a"}], "edges": [{"source": "x", "target": "a"}, {"source": "a", "target": "y"}]}`,
			graph.ParseResult{NumNodes: 1, NumEdges: 2, IsDAG: true},
		},
	}
	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/pipelines/parse", tt.body, map[string]string{"Content-Type": "application/json"})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var got graph.ParseResult
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("result = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseResponseHasExactlyThreeFields(t *testing.T) {
	rec := do(t, newTestServer(t, nil), "POST", "/pipelines/parse", editorPayload, nil)
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 3 {
		t.Errorf("response has %d fields: %v", len(body), body)
	}
	for _, k := range []string{"num_nodes", "num_edges", "is_dag"} {
		if _, ok := body[k]; !ok {
			t.Errorf("response missing %s", k)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"malformed json", `{"nodes": [`, "decode pipeline"},
		{"not an object", `[1, 2]`, "decode pipeline"},
		{"missing nodes", `{"edges": []}`, "nodes is required"},
		{"null edges", `{"nodes": [], "edges": null}`, "edges is required"},
		{"node without id", `{"nodes": [{"id": "a"}, {"type": "llm"}], "edges": []}`, "nodes[1].id is required"},
		{"wrong type", `{"nodes": "a", "edges": []}`, "decode pipeline"},
		{"trailing data", `{"nodes": [], "edges": []} {}`, "unexpected data"},
		{"empty body", ``, "decode pipeline"},
	}
	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/pipelines/parse", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if d := detail(t, rec); !strings.Contains(d, tt.wantDetail) {
				t.Errorf("detail = %q, want it to contain %q", d, tt.wantDetail)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Limits.MaxNodes = 2
		c.Limits.MaxBodyBytes = 200
	})

	rec := do(t, s, "POST", "/pipelines/parse", `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}], "edges": []}`, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(detail(t, rec), "max 2") {
		t.Errorf("node limit: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, "POST", "/pipelines/parse", editorPayload, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(detail(t, rec), "exceeds 200 bytes") {
		t.Errorf("body limit: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyze(t *testing.T) {
	body := `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}], "edges": [
		{"source": "a", "target": "b"}, {"source": "b", "target": "c"}, {"source": "c", "target": "b"}]}`
	rec := do(t, newTestServer(t, nil), "POST", "/pipelines/analyze", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var a graph.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if a.IsDAG || a.NumNodes != 3 || a.NumEdges != 3 {
		t.Errorf("ParseResult = %+v", a.ParseResult)
	}
	if strings.Join(a.Cycle, ",") != "b,c,b" {
		t.Errorf("Cycle = %v", a.Cycle)
	}
	if len(a.BackEdges) != 1 || a.BackEdges[0] != (graph.EdgeRef{Source: "c", Target: "b"}) {
		t.Errorf("BackEdges = %v", a.BackEdges)
	}
}

func TestRender(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "POST", "/pipelines/render?format=dot", editorPayload, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), `"customInput-1" -> "llm-1";`) {
		t.Errorf("DOT output missing edge:\n%s", rec.Body.String())
	}

	rec = do(t, s, "POST", "/pipelines/render?format=gif", editorPayload, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(detail(t, rec), "unsupported format") {
		t.Errorf("bad format: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "GET", "/nope", "", nil)
	if rec.Code != http.StatusNotFound || detail(t, rec) != "Not Found" {
		t.Errorf("404: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, "GET", "/pipelines/parse", "", nil)
	if rec.Code != http.StatusMethodNotAllowed || detail(t, rec) != "Method Not Allowed" {
		t.Errorf("405: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)
	preflight := map[string]string{
		"Origin":                         "http://localhost:5173",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "content-type",
	}

	rec := do(t, s, "OPTIONS", "/pipelines/parse", "", preflight)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}

	preflight["Origin"] = "http://evil.test"
	rec = do(t, s, "OPTIONS", "/pipelines/parse", "", preflight)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin got Allow-Origin %q", got)
	}

	// Simple request from an allowed origin, including on failure.
	rec = do(t, s, "POST", "/pipelines/parse", `{`, map[string]string{"Origin": "http://127.0.0.1:5173"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://127.0.0.1:5173" {
		t.Errorf("Allow-Origin on error = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "GET", "/", "", map[string]string{"X-Request-ID": "abc-123"})
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}

	rec = do(t, s, "GET", "/", "", nil)
	if got := rec.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", got)
	}

	rec = do(t, s, "GET", "/", "", map[string]string{"X-Request-ID": "has space"})
	if got := rec.Header().Get("X-Request-ID"); got == "has space" {
		t.Error("invalid request IDs should be replaced")
	}
}

func TestRecovererReturnsDetail(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/pipelines/parse", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if d := detail(t, rec); !strings.Contains(d, "boom") {
		t.Errorf("detail = %q", d)
	}
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	routes []string
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.routes = append(h.routes, method+" "+route)
}

func TestHTTPHooksUseRoutePattern(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	do(t, newTestServer(t, nil), "POST", "/pipelines/parse", editorPayload, nil)
	if len(hooks.routes) != 1 || hooks.routes[0] != "POST /pipelines/parse" {
		t.Errorf("routes = %v", hooks.routes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetHTTPHooks(hooks)
	observability.SetCheckHooks(hooks)
	defer observability.Reset()

	cfg := config.Default()
	logger := log.New(io.Discard)
	s := New(cfg, pipeline.NewRunner(nil, nil, logger), logger,
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	do(t, s, "POST", "/pipelines/parse", editorPayload, nil)
	rec := do(t, s, "GET", "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{
		`pipecheck_checks_total{kind="parse",result="dag"} 1`,
		`pipecheck_http_requests_total{code="200",method="POST",route="/pipelines/parse"} 1`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %s", want)
		}
	}

	cfg = config.Default()
	cfg.Metrics.Enabled = false
	s = New(cfg, pipeline.NewRunner(nil, nil, logger), logger,
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	if rec := do(t, s, "GET", "/metrics", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("disabled metrics status = %d, want 404", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.ShutdownTimeout = time.Second })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/pipelines/parse", "application/json",
		bytes.NewReader([]byte(editorPayload)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
