package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	pcerrors "github.com/matzehuels/pipecheck/pkg/errors"
	"github.com/matzehuels/pipecheck/pkg/httputil"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

// exerciseCache runs the behaviour every storing backend must share.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v1" {
		t.Fatalf("Get(k) = %q, %v, %v", data, hit, err)
	}

	// Overwrite
	if err := c.Set(ctx, "k", []byte("v2"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if data, _, _ := c.Get(ctx, "k"); string(data) != "v2" {
		t.Errorf("Get(k) after overwrite = %q, want v2", data)
	}

	// Expired entries are misses
	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should be a miss")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted entry should be a miss")
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exerciseCache(t, c)
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_, _, _ = c.Get(ctx, "a") // a is now most recently used
	_ = c.Set(ctx, "c", []byte("3"), 0)

	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("least recently used entry should be evicted")
	}
	if _, hit, _ := c.Get(ctx, "a"); !hit {
		t.Error("recently used entry should survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestMemoryCacheCopiesData(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(0)

	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, 0)
	buf[0] = 'X'

	data, _, _ := c.Get(ctx, "k")
	if string(data) != "abc" {
		t.Errorf("cached data changed with caller's buffer: %q", data)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exerciseCache(t, c)
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v; want miss", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache dir should be empty, has %d entries", len(entries))
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestGraphHash(t *testing.T) {
	nodes := []string{"a", "b"}
	pairs := [][2]string{{"a", "b"}}

	if GraphHash(nodes, pairs) != GraphHash([]string{"a", "b"}, [][2]string{{"a", "b"}}) {
		t.Error("GraphHash should be deterministic")
	}
	if GraphHash(nodes, pairs) == GraphHash(nodes, [][2]string{{"b", "a"}}) {
		t.Error("edge direction should change the hash")
	}
	if GraphHash(nodes, pairs) == GraphHash([]string{"b", "a"}, pairs) {
		t.Error("node order should change the hash")
	}
	if GraphHash(nodes, pairs) == GraphHash(nodes, append(pairs, [2]string{"a", "b"})) {
		t.Error("parallel edges should change the hash")
	}
	if !strings.HasPrefix(GraphHash(nil, nil), "graph:") {
		t.Error("GraphHash should be prefixed")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.ResultKey(KindParse, "abc"); got != "result:parse:abc" {
		t.Errorf("ResultKey unexpected: %s", got)
	}
	if k.ResultKey(KindParse, "abc") == k.ResultKey(KindAnalyze, "abc") {
		t.Error("different kinds should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "pipecheck:prod:")

	if got := scoped.ResultKey(KindAnalyze, "abc"); got != "pipecheck:prod:result:analyze:abc" {
		t.Errorf("ScopedKeyer ResultKey unexpected: %s", got)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	if got := scoped.ResultKey(KindParse, "h"); got != "prefix:result:parse:h" {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
		check   func(Cache) bool
	}{
		{"default is null", Options{}, false, func(c Cache) bool { _, ok := c.(*NullCache); return ok }},
		{"none", Options{Backend: BackendNone}, false, func(c Cache) bool { _, ok := c.(*NullCache); return ok }},
		{"memory", Options{Backend: BackendMemory, Size: 8}, false, func(c Cache) bool { _, ok := c.(*MemoryCache); return ok }},
		{"file", Options{Backend: BackendFile, Dir: t.TempDir()}, false, func(c Cache) bool { _, ok := c.(*FileCache); return ok }},
		{"file without dir", Options{Backend: BackendFile}, true, nil},
		{"redis without url", Options{Backend: BackendRedis}, true, nil},
		{"redis bad url", Options{Backend: BackendRedis, URL: "http://not-redis"}, true, nil},
		{"mongo without url", Options{Backend: BackendMongo}, true, nil},
		{"mongo bad uri", Options{Backend: BackendMongo, URL: "not-a-mongo-uri"}, true, nil},
		{"unknown", Options{Backend: "memcached"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Open(ctx, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if c != nil {
					t.Errorf("Open() returned non-nil cache %T on error", c)
				}
				return
			}
			defer c.Close()
			if !tt.check(c) {
				t.Errorf("Open() returned %T", c)
			}
		})
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	data, hit, err := c.Get(ctx, "missing")
	if err != nil || hit || data != nil {
		t.Fatalf("Get(missing) = %q, %v, %v; want a clean miss", data, hit, err)
	}

	if err := c.Set(ctx, "result:parse:h", []byte(`{"is_dag":true}`), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err = c.Get(ctx, "result:parse:h")
	if err != nil || !hit || string(data) != `{"is_dag":true}` {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if mr.TTL("result:parse:h") != 0 {
		t.Errorf("zero ttl should store without expiry, TTL = %v", mr.TTL("result:parse:h"))
	}

	if err := c.Delete(ctx, "result:parse:h"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "result:parse:h"); hit {
		t.Error("deleted entry should be a miss")
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	if err := c.Set(ctx, "k", []byte("v"), TTLResult); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if got := mr.TTL("k"); got != TTLResult {
		t.Errorf("TTL = %v, want %v", got, TTLResult)
	}

	mr.FastForward(TTLResult - time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Error("entry should survive until its TTL")
	}
	mr.FastForward(2 * time.Minute)
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("expired entry: hit %v, err %v; want a clean miss", hit, err)
	}
}

func TestRedisCacheServerError(t *testing.T) {
	mr, c := newTestRedis(t)
	mr.SetError("ERR backend unavailable")

	if _, _, err := c.Get(context.Background(), "k"); err == nil {
		t.Error("Get should report server errors")
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Open(context.Background(), Options{Backend: BackendRedis, URL: "redis://" + mr.Addr() + "/0"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*RedisCache); !ok {
		t.Fatalf("Open() returned %T", c)
	}

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if data, hit, _ := c.Get(ctx, "k"); !hit || string(data) != "v" {
		t.Errorf("Get = %q, %v", data, hit)
	}
}

func TestOpenRedisUnreachable(t *testing.T) {
	defer func(b httputil.Backoff) { connectBackoff = b }(connectBackoff)
	connectBackoff = httputil.Backoff{Attempts: 2, Delay: time.Millisecond}

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), Options{Backend: BackendRedis, URL: "redis://" + addr})
	if err == nil {
		t.Fatal("Open() should fail for a stopped server")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want it to wrap ErrNetwork", err)
	}
	if !pcerrors.Is(err, pcerrors.ErrCodeNetwork) {
		t.Errorf("code = %v, want %v", pcerrors.GetCode(err), pcerrors.ErrCodeNetwork)
	}
}

func TestMongoEntryExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Second), now.Add(time.Second)

	tests := []struct {
		name  string
		entry mongoEntry
		want  bool
	}{
		{"no expiry", mongoEntry{Key: "k"}, false},
		{"expires later", mongoEntry{Key: "k", ExpiresAt: &future}, false},
		{"expires now", mongoEntry{Key: "k", ExpiresAt: &now}, false},
		{"expired", mongoEntry{Key: "k", ExpiresAt: &past}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.expired(now); got != tt.want {
				t.Errorf("expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMongoCache runs against a real server when PIPECHECK_TEST_MONGO_URI is
// set, for example mongodb://localhost:27017.
func TestMongoCache(t *testing.T) {
	uri := os.Getenv("PIPECHECK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PIPECHECK_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	coll := "results_" + time.Now().Format("20060102150405")
	c, err := NewMongoCache(ctx, uri, "pipecheck_test", coll)
	if err != nil {
		t.Fatalf("NewMongoCache() error: %v", err)
	}
	defer func() {
		_ = c.coll.Drop(ctx)
		c.Close()
	}()

	exerciseCache(t, c)
}
