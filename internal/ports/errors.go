package ports

import (
	"errors"
	"fmt"
)

type TransportErrorKind string

const (
	Unreachable       TransportErrorKind = "unreachable"
	Timeout           TransportErrorKind = "timeout"
	HTTPStatus        TransportErrorKind = "http_status"
	MalformedResponse TransportErrorKind = "malformed_response"
)

// TransportError is returned by every HubTransport call that did not complete. It may be transient.
type TransportError struct {
	Kind   TransportErrorKind
	Op     string
	Status int // set for HTTPStatus
	Err    error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case HTTPStatus:
		return fmt.Sprintf("%s: hub returned HTTP %d", e.Op, e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches another *TransportError by kind, and by status when the target sets one.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

// Transient reports whether err is a transport failure worth retrying later: the hub being
// unreachable, slow, or answering with a 5xx.
func Transient(err error) bool {
	var terr *TransportError
	if !errors.As(err, &terr) {
		return false
	}
	switch terr.Kind {
	case Unreachable, Timeout:
		return true
	case HTTPStatus:
		return terr.Status >= 500
	}
	return false
}
