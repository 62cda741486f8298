package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipecheck/pkg/cache"
	"github.com/matzehuels/pipecheck/pkg/errors"
	"github.com/matzehuels/pipecheck/pkg/graph"
	"github.com/matzehuels/pipecheck/pkg/observability"
)

// Runner encapsulates pipeline checks with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store results itself. Multiple goroutines can safely use the same Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Limits bounds accepted pipelines. The zero value accepts any size.
	Limits errors.Limits
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// ParseWithCacheInfo checks p and reports whether the result came from the
// cache.
func (r *Runner) ParseWithCacheInfo(ctx context.Context, p *graph.Pipeline) (graph.ParseResult, bool, error) {
	return run(ctx, r, cache.KindParse, p, func() (graph.ParseResult, error) {
		return Parse(p), nil
	})
}

// Parse is a convenience wrapper that calls ParseWithCacheInfo and discards the cache hit info.
func (r *Runner) Parse(ctx context.Context, p *graph.Pipeline) (graph.ParseResult, error) {
	res, _, err := r.ParseWithCacheInfo(ctx, p)
	return res, err
}

// AnalyzeWithCacheInfo analyzes p and reports whether the result came from
// the cache.
func (r *Runner) AnalyzeWithCacheInfo(ctx context.Context, p *graph.Pipeline) (graph.Analysis, bool, error) {
	return run(ctx, r, cache.KindAnalyze, p, func() (graph.Analysis, error) {
		return Analyze(p)
	})
}

// Analyze is a convenience wrapper that calls AnalyzeWithCacheInfo and discards the cache hit info.
func (r *Runner) Analyze(ctx context.Context, p *graph.Pipeline) (graph.Analysis, error) {
	res, _, err := r.AnalyzeWithCacheInfo(ctx, p)
	return res, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// run validates p, serves the result from the cache when possible and
// otherwise computes and stores it. Cache failures are logged and never fail
// the check. A panic anywhere in the check becomes an INTERNAL_ERROR.
func run[T any](ctx context.Context, r *Runner, kind string, p *graph.Pipeline, compute func() (T, error)) (res T, hit bool, err error) {
	if p == nil {
		return res, false, errors.New(errors.ErrCodeInvalidInput, "pipeline is required")
	}
	if err := errors.ValidateLimits(len(p.Nodes), len(p.Edges), r.Limits); err != nil {
		return res, false, err
	}

	start := time.Now()
	hooks := observability.Check()
	hooks.OnCheckStart(ctx, kind, len(p.Nodes), len(p.Edges))
	defer func() {
		if v := recover(); v != nil {
			var zero T
			res, hit, err = zero, false, errors.FromPanic(v)
			r.Logger.Error("check panicked", "kind", kind, "panic", v)
		}
		hooks.OnCheckComplete(ctx, observability.CheckEvent{
			Kind:     kind,
			Nodes:    len(p.Nodes),
			Edges:    len(p.Edges),
			IsDAG:    err == nil && isDAG(res),
			CacheHit: hit,
			Duration: time.Since(start),
			Err:      err,
		})
	}()

	key := r.Keyer.ResultKey(kind, GraphHash(p))
	if v, ok := r.lookup(ctx, kind, key); ok {
		var cached T
		if err := json.Unmarshal(v, &cached); err == nil {
			return cached, true, nil
		}
		r.Logger.Debug("discarding unreadable cache entry", "key", key)
	}

	res, err = compute()
	if err != nil {
		return res, false, errors.Wrap(errors.ErrCodeInternal, err, "%s pipeline", kind)
	}
	r.store(ctx, kind, key, res)

	r.Logger.Debug("checked pipeline",
		"kind", kind,
		"nodes", len(p.Nodes),
		"edges", len(p.Edges),
		"dag", isDAG(res),
		"duration", time.Since(start))
	return res, false, nil
}

func (r *Runner) lookup(ctx context.Context, kind, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, kind)
	} else {
		observability.Cache().OnCacheMiss(ctx, kind)
	}
	return data, hit
}

func (r *Runner) store(ctx context.Context, kind, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.Logger.Debug("cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

func isDAG(v any) bool {
	switch res := v.(type) {
	case graph.ParseResult:
		return res.IsDAG
	case graph.Analysis:
		return res.IsDAG
	}
	return false
}
