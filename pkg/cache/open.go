package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend    string // One of the Backend* names; empty means BackendNone
	Size       int    // MemoryCache capacity
	Dir        string // FileCache directory
	URL        string // Redis URL or MongoDB URI
	Database   string // MongoDB database
	Collection string // MongoDB collection
}

// Open creates the backend described by opts.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendMemory:
		return wrapOpen(NewMemoryCache(opts.Size))
	case BackendFile:
		if opts.Dir == "" {
			return nil, fmt.Errorf("file cache: directory is required")
		}
		return wrapOpen(NewFileCache(opts.Dir))
	case BackendRedis:
		if opts.URL == "" {
			return nil, fmt.Errorf("redis cache: url is required")
		}
		return wrapOpen(NewRedisCache(ctx, opts.URL))
	case BackendMongo:
		if opts.URL == "" {
			return nil, fmt.Errorf("mongo cache: url is required")
		}
		return wrapOpen(NewMongoCache(ctx, opts.URL, opts.Database, opts.Collection))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// wrapOpen converts a concrete constructor result to the interface without
// turning a nil pointer into a non-nil Cache.
func wrapOpen[C Cache](c C, err error) (Cache, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
