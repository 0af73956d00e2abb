package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReadyImmediate(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/admin/requests", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ready := WaitReady(context.Background(), srv.URL+"/admin/requests", 5*time.Second, 50*time.Millisecond)
	assert.True(t, ready)
}

func TestWaitReadyRetriesNonSuccess(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/login", func(w http.ResponseWriter, _ *http.Request) {
		// Simulate a server whose listener is up before its routes are
		// wired: two failures, then ready.
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ready := WaitReady(context.Background(), srv.URL+"/login", 5*time.Second, 20*time.Millisecond)
	assert.True(t, ready)
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestWaitReadyDeadline(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	start := time.Now()
	ready := WaitReady(context.Background(), srv.URL+"/login", 300*time.Millisecond, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ready)
	assert.Less(t, elapsed, 2*time.Second, "deadline exhaustion must be bounded")
}

func TestWaitReadyConnectionRefused(t *testing.T) {
	// Grab a URL, then close the listener so every GET is refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ready := WaitReady(context.Background(), url, 300*time.Millisecond, 50*time.Millisecond)
	assert.False(t, ready, "refused connections are retried, never surfaced, until the deadline")
}

func TestWaitReadyMonotonic(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := srv.URL + "/healthz"
	require.True(t, WaitReady(context.Background(), url, 5*time.Second, 50*time.Millisecond))

	// Once ready, immediate re-checks must agree (no flapping while the
	// server stays up).
	for i := 0; i < 3; i++ {
		assert.True(t, WaitReady(context.Background(), url, time.Second, 50*time.Millisecond))
	}
}

func TestWaitReadyCancelled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, WaitReady(ctx, url, 10*time.Second, 50*time.Millisecond))
}

func TestOnce(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	status, err := Once(context.Background(), srv.URL+"/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, err = Once(context.Background(), srv.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}
