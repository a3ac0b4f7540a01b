package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetries(t *testing.T) {
	t.Helper()
	retryDelayUnit = time.Millisecond
	t.Cleanup(func() { retryDelayUnit = time.Second })
}

func TestDoRequestWithRetry_Statuses(t *testing.T) {
	fastRetries(t)

	testcases := []struct {
		name         string
		failures     int
		failStatus   int
		wantStatus   int
		wantAttempts int32
	}{
		{"first-attempt-ok", 0, http.StatusTooManyRequests, http.StatusOK, 1},
		{"recovers-after-429", 2, http.StatusTooManyRequests, http.StatusOK, 3},
		{"gives-up-on-5xx", 5, http.StatusBadGateway, http.StatusBadGateway, 3},
		{"no-retry-on-4xx", 5, http.StatusUnauthorized, http.StatusUnauthorized, 1},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, `{"query":"go"}`, string(body), "body must be replayed on retries")
				if int(attempts.Add(1)) <= tc.failures {
					w.WriteHeader(tc.failStatus)
					return
				}
				_, _ = w.Write([]byte("ok"))
			}))
			t.Cleanup(server.Close)

			req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"query":"go"}`))
			require.NoError(t, err)

			resp, err := DoRequestWithRetry(&http.Client{Timeout: 5 * time.Second}, req)
			require.NoError(t, err)
			require.NotNil(t, resp)
			resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantAttempts, attempts.Load())
		})
	}
}

func TestDoRequestWithRetry_BackoffDoubles(t *testing.T) {
	fastRetries(t)
	retryDelayUnit = 20 * time.Millisecond

	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		if len(stamps) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := DoRequestWithRetry(&http.Client{Timeout: 5 * time.Second}, req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestDoRequestWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	retryDelayUnit = 5 * time.Second
	t.Cleanup(func() { retryDelayUnit = time.Second })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := DoRequestWithRetry(&http.Client{Timeout: 30 * time.Second}, req)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestParseRetryAfter(t *testing.T) {
	d, ok := parseRetryAfter("2")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT")
	assert.False(t, ok)
	_, ok = parseRetryAfter("")
	assert.False(t, ok)
}

func TestTruncateAndMask(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello world", 6))
	assert.Equal(t, "he", Truncate("hello", 2))

	assert.Equal(t, "********", MaskSecret("short"))
	assert.Equal(t, "tvly****7890", MaskSecret("tvly-abcdef1234567890"))
}
