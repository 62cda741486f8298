// Package httputil provides the HTTP client used to submit pipelines to a
// running pipecheck server.
//
// # Overview
//
//   - [Client]: JSON POST with retry and server error decoding
//   - [Retry]: Automatic retry with exponential backoff
//
// # Retry
//
// [Retry] wraps operations with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Only errors marked with [Retryable] are retried. A failure still standing
// after the last attempt is reported as NETWORK_ERROR unless it carries its
// own code:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// # Server Errors
//
// The server reports every rejected pipeline as HTTP 400 with a JSON body
// {"detail": "..."}. [Client.PostJSON] turns such responses into coded errors
// whose message is the detail, so the CLI can show it as the editor would.
package httputil
