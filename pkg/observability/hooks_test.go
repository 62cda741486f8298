package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Check hooks
	p := NoopCheckHooks{}
	p.OnCheckStart(ctx, "parse", 3, 2)
	p.OnCheckComplete(ctx, CheckEvent{Kind: "parse", Nodes: 3, Edges: 2, IsDAG: true, Duration: time.Millisecond})

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "parse")
	c.OnCacheMiss(ctx, "analyze")
	c.OnCacheSet(ctx, "parse", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/pipelines/parse")
	h.OnResponse(ctx, "POST", "/pipelines/parse", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Check().(NoopCheckHooks); !ok {
		t.Error("Check() should return NoopCheckHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customCheck := &testCheckHooks{}
	SetCheckHooks(customCheck)
	if Check() != customCheck {
		t.Error("SetCheckHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Check().(NoopCheckHooks); !ok {
		t.Error("Reset() should restore NoopCheckHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCheckHooks{}
	SetCheckHooks(custom)

	// Setting nil should be ignored
	SetCheckHooks(nil)

	if Check() != custom {
		t.Error("SetCheckHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	h := NewPrometheusHooks(reg)

	h.OnCheckComplete(ctx, CheckEvent{Kind: "parse", Nodes: 3, IsDAG: true})
	h.OnCheckComplete(ctx, CheckEvent{Kind: "parse", Nodes: 2})
	h.OnCheckComplete(ctx, CheckEvent{Kind: "analyze", Err: errors.New("boom")})

	if got := testutil.ToFloat64(h.checksTotal.WithLabelValues("parse", "dag")); got != 1 {
		t.Errorf("parse/dag checks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.checksTotal.WithLabelValues("parse", "cyclic")); got != 1 {
		t.Errorf("parse/cyclic checks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.checksTotal.WithLabelValues("analyze", "error")); got != 1 {
		t.Errorf("analyze/error checks = %v, want 1", got)
	}

	h.OnCacheHit(ctx, "parse")
	h.OnCacheMiss(ctx, "parse")
	h.OnCacheMiss(ctx, "parse")
	h.OnCacheSet(ctx, "parse", 40)
	if got := testutil.ToFloat64(h.cacheLookups.WithLabelValues("parse", "miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.cacheBytes.WithLabelValues("parse")); got != 40 {
		t.Errorf("cache bytes = %v, want 40", got)
	}

	h.OnRequest(ctx, "POST", "/pipelines/parse")
	if got := testutil.ToFloat64(h.inFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	h.OnResponse(ctx, "POST", "/pipelines/parse", 400, time.Millisecond)
	if got := testutil.ToFloat64(h.inFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}

	expected := `
# HELP pipecheck_http_requests_total HTTP requests by method, route and status code
# TYPE pipecheck_http_requests_total counter
pipecheck_http_requests_total{code="400",method="POST",route="/pipelines/parse"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "pipecheck_http_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestNewPrometheusHooksSeparateRegistries(t *testing.T) {
	NewPrometheusHooks(prometheus.NewRegistry())
	NewPrometheusHooks(prometheus.NewRegistry())
}

// Test implementations
type testCheckHooks struct{ NoopCheckHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
