// Package probe gates the session lifecycle on HTTP readiness. A server
// that was just forked races its own listener bind; polling with a
// bounded deadline turns that race into a deterministic wait.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// perRequestTimeout caps a single GET so one hung accept cannot eat the
// whole readiness budget.
const perRequestTimeout = 5 * time.Second

// WaitReady polls url with GET until it answers with an HTTP success
// status or the timeout elapses. Connection refusals, request timeouts,
// and non-2xx statuses all count as "not yet ready" and are retried.
// The return value is a plain bool: the caller knows which process it
// was probing and attaches the fatal message itself.
func WaitReady(ctx context.Context, url string, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		status, err := Once(ctx, url)
		if err == nil && status >= 200 && status < 300 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return false
}

// Once performs a single GET against url and returns the status code.
func Once(ctx context.Context, url string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, perRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
