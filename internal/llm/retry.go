package llm

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultMaxRetries is used when configuration does not override it.
const DefaultMaxRetries = 3

// RetryableError indicates a transient failure (rate limiting or a server
// error) that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff returns an exponential delay for attempt n (0-indexed), capped at
// 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := min(time.Duration(1<<uint(min(attempt, 5)))*time.Second, 30*time.Second)
	return base + time.Duration(rand.Int64N(int64(base)/2))
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
