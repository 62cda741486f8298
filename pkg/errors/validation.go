package errors

import (
	"strings"
	"unicode"
)

// Limits bounds the size of a submitted pipeline. A zero field means no limit.
type Limits struct {
	MaxNodes int
	MaxEdges int
}

// ValidateLimits checks node and edge counts against limits.
func ValidateLimits(nodes, edges int, limits Limits) error {
	if limits.MaxNodes > 0 && nodes > limits.MaxNodes {
		return New(ErrCodeTooManyNodes, "pipeline has %d nodes (max %d)", nodes, limits.MaxNodes)
	}
	if limits.MaxEdges > 0 && edges > limits.MaxEdges {
		return New(ErrCodeTooManyEdges, "pipeline has %d edges (max %d)", edges, limits.MaxEdges)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateOrigin validates a CORS origin from configuration.
//
// An origin is a scheme and host with an optional port and no path, such as
// "http://localhost:5173". The single wildcard "*" is accepted.
func ValidateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	if err := ValidateURL(origin); err != nil {
		return New(ErrCodeInvalidConfig, "invalid CORS origin %q: %s", origin, UserMessage(err))
	}
	for _, r := range origin {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "invalid CORS origin %q: contains whitespace", origin)
		}
	}
	rest := origin[strings.Index(origin, "://")+3:]
	if rest == "" {
		return New(ErrCodeInvalidConfig, "invalid CORS origin %q: missing host", origin)
	}
	if strings.Contains(rest, "/") {
		return New(ErrCodeInvalidConfig, "invalid CORS origin %q: must not contain a path", origin)
	}
	return nil
}
