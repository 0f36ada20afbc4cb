package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindParseFailed       Kind = "ParseFailed"
	KindGenerateFailed    Kind = "GenerateFailed"
	KindMalformedResponse Kind = "MalformedResponse"
	KindRequestFailed     Kind = "RequestFailed"
)

// NetworkMessage replaces transport-level error text in user-facing
// messages; the original error stays reachable through Unwrap.
const NetworkMessage = "unable to reach the backend service"

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrParseFailed       = &Error{Kind: KindParseFailed}
	ErrGenerateFailed    = &Error{Kind: KindGenerateFailed}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrRequestFailed     = &Error{Kind: KindRequestFailed}
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Network is set when no HTTP response was received at all.
	Network bool
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}
