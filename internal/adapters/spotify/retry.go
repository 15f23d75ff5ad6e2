package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	defaultMaxRetries = 3
	defaultBackoffMs  = 500
)

// errServerStatus marks a 5xx response as a breaker failure without hiding it
// from the retry loop.
var errServerStatus = errors.New("spotify adapter: server error status")

// doWithRetry sends a body-less request, retrying transport errors, 429 and
// 5xx responses. maxRetries is the total number of attempts. The wait between
// attempts doubles from baseBackoff unless the response names a Retry-After.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	attempts := c.maxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	backoff := c.baseBackoff
	if backoff <= 0 {
		backoff = time.Duration(defaultBackoffMs) * time.Millisecond
	}

	ctx := req.Context()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("spotify adapter: request canceled: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify adapter: request canceled: %w", err)
		}

		resp, err := c.send(req)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("spotify adapter: service unavailable: %w", err)
		}
		if !retryable(resp, err) {
			return resp, err
		}

		wait := backoff << (attempt - 1)
		ev := c.log.Warn().Int("attempt", attempt).Int("max", attempts)
		if err != nil {
			lastErr = err
			ev.Err(err).Msg("retrying after error")
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if ra := parseRetryAfter(resp); ra > 0 {
				wait = ra
			}
			_ = resp.Body.Close()
			ev.Int("status", resp.StatusCode).Msg("retrying after status")
		}

		if attempt < attempts {
			if err := sleepWithContext(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("spotify adapter: request failed after %d attempts: %w", attempts, lastErr)
}

// send performs one attempt, through the circuit breaker when configured.
// Only transport errors and 5xx responses count against the breaker.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp != nil &&
		(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError)
}

// parseRetryAfter reads Retry-After as seconds or an HTTP date.
func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
