package memory

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout is matched by errors.Is when a request exceeded its deadline.
var ErrTimeout = errors.New("timeout")

// NetworkError describes a failed memory service call. Status is the HTTP
// status code when a response arrived (a 2xx status means its body could not
// be decoded) and zero otherwise.
type NetworkError struct {
	Op      string
	Status  int
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("supermemory %s: timeout", e.Op)
	case e.Status != 0 && (e.Status < 200 || e.Status > 299):
		return fmt.Sprintf("supermemory %s: request failed (%d)", e.Op, e.Status)
	default:
		return fmt.Sprintf("supermemory %s: %v", e.Op, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable reports whether a caller may reasonably retry: timeouts,
// connection failures, 429 and 5xx responses. Cancellation is final.
func (e *NetworkError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.Timeout || e.Status == 0 {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}
