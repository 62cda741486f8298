package cache

import (
	"errors"

	"github.com/matzehuels/pipecheck/pkg/httputil"
)

// ErrNetwork is wrapped around connection failures to remote backends.
var ErrNetwork = errors.New("network error")

// connectBackoff is how often shared backends retry the initial PING.
// Tests shorten it.
var connectBackoff = httputil.DefaultBackoff
