package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/resilience"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := resilience.NewBreaker("test", 4, 0.5, time.Hour, zerolog.Nop())

	for i := 0; i < 4; i++ {
		require.True(t, b.Allow())
		b.Report(false)
	}
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := resilience.NewBreaker("test", 2, 0.5, 10*time.Millisecond, zerolog.Nop())
	b.Report(false)
	b.Report(false)
	require.Equal(t, resilience.Open, b.State())

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, resilience.HalfOpen, b.State())

	b.Report(true)
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := resilience.NewBreaker("test", 2, 0.5, 10*time.Millisecond, zerolog.Nop())
	b.Report(false)
	b.Report(false)

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	b.Report(false)
	require.Equal(t, resilience.Open, b.State())
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := resilience.HTTPClient{
		Client:      srv.Client(),
		BaseBackoff: time.Millisecond,
		MaxAttempts: 3,
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, calls.Load())
}

func TestHTTPClientStopsWhenBreakerOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := resilience.NewBreaker("test", 1, 0.5, time.Hour, zerolog.Nop())
	cl := resilience.HTTPClient{
		Client:      srv.Client(),
		Breaker:     b,
		BaseBackoff: time.Millisecond,
		MaxAttempts: 5,
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = cl.Do(context.Background(), req)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, 2*base, resilience.Backoff(base, 2, 0))
	require.Equal(t, 4*base, resilience.Backoff(base, 3, 0))
}
