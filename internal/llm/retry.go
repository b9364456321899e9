package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/deepcompress/deepcompress/internal/domain"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// shouldRetry determines if a status code is retryable.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// calculateBackoff returns the exponential backoff for the given attempt,
// capped at maxBackoff.
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// retryWithBackoff wraps an HTTP request with retry logic. Non-retryable
// status codes are returned to the caller untouched.
func (c *Client) retryWithBackoff(ctx context.Context, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if !shouldRetry(resp.StatusCode) {
				return resp, nil
			}
			if resp.Body != nil {
				resp.Body.Close()
			}
		}

		if attempt == maxRetries {
			break
		}

		backoff := calculateBackoff(attempt)
		c.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("LLM request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, domain.APIError(
		fmt.Sprintf("LLM request failed after %d retries", maxRetries), lastErr)
}
