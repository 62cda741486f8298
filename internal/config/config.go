// Package config loads the pipecheck server configuration.
//
// Settings are resolved in four layers, each overriding the previous one:
//
//  1. Built-in defaults ([Default]), which reproduce the original service:
//     listen on :8000 and allow the editor's local development origins
//  2. An optional TOML file
//  3. Environment variables prefixed with PIPECHECK_, after loading a .env
//     file from the working directory when one exists
//  4. Command-line flags, applied by the caller
//
// A minimal file:
//
//	[server]
//	addr = ":8000"
//
//	[cors]
//	allowed_origins = ["http://localhost:5173"]
//
//	[cache]
//	backend = "redis"
//	url = "redis://localhost:6379/0"
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/matzehuels/pipecheck/pkg/cache"
	"github.com/matzehuels/pipecheck/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by [Config.ApplyEnv].
const EnvPrefix = "PIPECHECK_"

// DefaultOrigins are the editor's development origins.
var DefaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
}

// Log output formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogfmt = "logfmt"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	CORS    CORSConfig    `toml:"cors"`
	Limits  LimitsConfig  `toml:"limits"`
	Cache   CacheConfig   `toml:"cache"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// CORSConfig controls cross-origin access from the editor.
type CORSConfig struct {
	AllowedOrigins   []string `toml:"allowed_origins"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"` // Preflight cache lifetime in seconds
}

// LimitsConfig bounds submitted pipelines. Zero disables a limit.
type LimitsConfig struct {
	MaxBodyBytes int64 `toml:"max_body_bytes"`
	MaxNodes     int   `toml:"max_nodes"`
	MaxEdges     int   `toml:"max_edges"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend    string `toml:"backend"` // none, memory, file, redis or mongo
	Size       int    `toml:"size"`
	Dir        string `toml:"dir"`
	URL        string `toml:"url"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
	Prefix     string `toml:"prefix"` // Key namespace for shared backends
}

// LogConfig controls the server logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins:   append([]string(nil), DefaultOrigins...),
			AllowCredentials: true,
			MaxAge:           300,
		},
		Limits: LimitsConfig{
			MaxBodyBytes: 32 << 20,
		},
		Cache: CacheConfig{
			Backend: cache.BackendMemory,
			Size:    cache.DefaultMemorySize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (skipped
// when path is empty), a .env file in the working directory and the process
// environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load .env")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the TOML file at path into c. Keys the file sets replace
// the current values; unknown keys are an error.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides c with PIPECHECK_* variables found by lookup.
// PORT is also honoured, as on most container platforms.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok
	}

	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(port), ":")
	}

	var errs []string
	str := func(name string, dst *string) {
		if v, ok := env(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := env(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := env(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Server.Addr)
	if v, ok := env("CORS_ORIGINS"); ok {
		c.CORS.AllowedOrigins = splitList(v)
	}
	flag("CORS_CREDENTIALS", &c.CORS.AllowCredentials)
	if v, ok := env("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%sMAX_BODY_BYTES: %v", EnvPrefix, err))
		} else {
			c.Limits.MaxBodyBytes = n
		}
	}
	num("MAX_NODES", &c.Limits.MaxNodes)
	num("MAX_EDGES", &c.Limits.MaxEdges)
	str("CACHE_BACKEND", &c.Cache.Backend)
	num("CACHE_SIZE", &c.Cache.Size)
	str("CACHE_DIR", &c.Cache.Dir)
	str("CACHE_URL", &c.Cache.URL)
	str("CACHE_DATABASE", &c.Cache.Database)
	str("CACHE_COLLECTION", &c.Cache.Collection)
	str("CACHE_PREFIX", &c.Cache.Prefix)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	flag("METRICS", &c.Metrics.Enabled)

	if len(errs) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks c for consistency.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server.addr is required")
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if err := errors.ValidateOrigin(origin); err != nil {
			return err
		}
		if origin == "*" && c.CORS.AllowCredentials {
			return errors.New(errors.ErrCodeInvalidConfig, "cors: wildcard origin cannot be combined with credentials")
		}
	}
	if c.Limits.MaxBodyBytes < 0 || c.Limits.MaxNodes < 0 || c.Limits.MaxEdges < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits must not be negative")
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendMemory:
	case cache.BackendFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file backend")
		}
	case cache.BackendRedis, cache.BackendMongo:
		if c.Cache.URL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.url is required for the %s backend", c.Cache.Backend)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "log.level")
	}
	switch c.Log.Format {
	case "", LogFormatText, LogFormatJSON, LogFormatLogfmt:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown log format %q", c.Log.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New(errors.ErrCodeInvalidConfig, "metrics.path must start with /")
	}
	return nil
}

// CacheOptions converts the cache section for [cache.Open].
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:    c.Cache.Backend,
		Size:       c.Cache.Size,
		Dir:        c.Cache.Dir,
		URL:        c.Cache.URL,
		Database:   c.Cache.Database,
		Collection: c.Cache.Collection,
	}
}

// Keyer returns the cache keyer, scoped when a prefix is configured.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Cache.Prefix)
}

// PipelineLimits returns the node and edge limits.
func (c *Config) PipelineLimits() errors.Limits {
	return errors.Limits{MaxNodes: c.Limits.MaxNodes, MaxEdges: c.Limits.MaxEdges}
}

// NewLogger builds the server logger described by the log section.
// Call it after [Config.Validate]; an invalid level falls back to info.
func (c *Config) NewLogger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	formatter := log.TextFormatter
	switch c.Log.Format {
	case LogFormatJSON:
		formatter = log.JSONFormatter
	case LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Formatter:       formatter,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
