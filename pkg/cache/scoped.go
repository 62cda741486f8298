package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several deployments (staging, production) or several
// services share one Redis or MongoDB instance.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "pipecheck:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ResultKey generates a prefixed key for result caching.
func (k *ScopedKeyer) ResultKey(kind, graphHash string) string {
	return k.prefix + k.inner.ResultKey(kind, graphHash)
}
