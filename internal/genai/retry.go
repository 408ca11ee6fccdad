package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// jitterFraction is the maximum jitter as a fraction of the delay (±25%).
const jitterFraction = 0.25

// RetryConfig bounds retry behavior for model requests.
type RetryConfig struct {
	// MaxAttempts includes the first try. Zero means 1.
	MaxAttempts int

	// BaseDelay is the first backoff delay; doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = 500 * time.Millisecond
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = 10 * time.Second
	}
	return r
}

// doWithRetry performs the POST with exponential backoff and jitter on
// retryable failures (429, 5xx, transport errors). The request body is a
// plain byte slice, so replaying an attempt is just building a new reader.
func (c *Client) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	cfg := c.Retry.withDefaults()
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt, cfg)
			c.Logger.Warn().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying model request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := c.newRequest(ctx, url, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient().Do(req)
		if err != nil {
			lastErr = err
			if !isRetryableErr(err) {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		lastErr = fmt.Errorf("HTTP %d from model endpoint", resp.StatusCode)
		if attempt == cfg.MaxAttempts-1 {
			// Last attempt: hand the response back with its body intact.
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	return nil, lastErr
}

// backoff returns base * 2^(attempt-1), capped, with ±25% jitter.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	jitter := (rand.Float64()*2 - 1) * jitterFraction * delay
	return time.Duration(delay + jitter)
}

func isRetryableErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
