package optimizer

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyResourceID is returned by Submit before any attempt is made.
var ErrEmptyResourceID = errors.New("resource id is required")

// TransportError covers network failures, timed-out attempts and non-success statuses.
type TransportError struct {
	StatusCode int
	Message    string
	TimedOut   bool
	Timeout    time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.TimedOut && e.Timeout > 0:
		return fmt.Sprintf("attempt timed out after %s", e.Timeout)
	case e.TimedOut:
		return "attempt timed out"
	case e.Message != "":
		return e.Message
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// LogicalFailureError means the backend answered but reported success=false.
type LogicalFailureError struct {
	Message string
}

func (e *LogicalFailureError) Error() string {
	if e.Message == "" {
		return "failed to optimize resume"
	}
	return e.Message
}

// MalformedResponseError means the response body did not have the expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "malformed response"
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// BudgetExhaustedError is the only failure Submit surfaces once retries ran out.
type BudgetExhaustedError struct {
	// Attempts is the total number of attempts made, MaxRetries+1.
	Attempts   int
	MaxRetries int
	Err        error
}

// Error reports MaxRetries rather than Attempts.
func (e *BudgetExhaustedError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("Failed after %d attempts. %s", e.MaxRetries, msg)
}

func (e *BudgetExhaustedError) Unwrap() error { return e.Err }
