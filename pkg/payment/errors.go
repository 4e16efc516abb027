package payment

import (
	"errors"
	"fmt"
)

// UnavailableError means the gateway could not be reached or did not answer in time.
type UnavailableError struct {
	Op       string
	TimedOut bool
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("gateway %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was the call deadline rather than a network error.
func (e *UnavailableError) Timeout() bool { return e.TimedOut }

// ProtocolError means the gateway answered, but with a bad status code or an unusable body.
type ProtocolError struct {
	Op         string
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: http %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Detail)
}

// ErrUnexpectedStatus marks an execute status outside the known enumeration.
var ErrUnexpectedStatus = errors.New("unexpected gateway transaction status")

// IsTimeout reports whether err is a gateway timeout.
func IsTimeout(err error) bool {
	var u *UnavailableError
	return errors.As(err, &u) && u.Timeout()
}
