package transport

import "fmt"

// TransientError covers network failures, 5xx responses, and timeouts.
// Synchronizers retry these with bounded exponential backoff
// (internal/backoff).
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: transient error: %v", e.Err)
	}
	return fmt.Sprintf("transport: transient backend error, status=%d", e.Status)
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthError is a 401/403 at auth or at segmentChanges. Surfaced as a
// fatal signal to the push manager.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: auth error: %v", e.Err)
	}
	return fmt.Sprintf("transport: auth error, status=%d", e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError is malformed JSON or an unexpected status code that
// isn't transient or auth-related. The offending item is skipped by the
// caller and the loop continues.
type ProtocolError struct {
	Status int
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: protocol error: %v", e.Err)
	}
	return fmt.Sprintf("transport: protocol error, status=%d", e.Status)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsRetryable classifies a Backend error for internal/backoff.Run:
// transient errors retry, auth/protocol errors do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	_, transient := err.(*TransientError)
	return transient
}
