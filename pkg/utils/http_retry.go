package utils

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	maxRetryAttempts = 3
	maxRetryDelay    = 30 * time.Second
)

// retryDelayUnit is the first backoff step; tests shrink it.
var retryDelayUnit = time.Second

// DoRequestWithRetry sends req, retrying on 429 and 5xx responses up to three
// attempts in total. The delay doubles after each attempt (capped at 30s) and
// a Retry-After header in seconds takes precedence. The last response is
// returned as-is when every attempt fails. Requests with a body must be
// replayable through req.GetBody.
func DoRequestWithRetry(client *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	delay := retryDelayUnit

	for attempt := 1; ; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if !shouldRetry(resp.StatusCode) || attempt >= maxRetryAttempts {
			return resp, nil
		}

		wait := delay
		if ra, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			wait = ra
		}
		wait = min(wait, maxRetryDelay)

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
