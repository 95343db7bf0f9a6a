package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a billing failure so the HTTP boundary can pick a
// status code without inspecting messages.
type ErrorKind int

const (
	// KindValidation covers malformed input and duplicate order numbers
	// detected by the service's own checks.
	KindValidation ErrorKind = iota + 1
	// KindInvalidArgument covers misuse of a component's contract, such as
	// registering a gateway under an empty id.
	KindInvalidArgument
	// KindNotFound covers lookups of gateways or receipts that do not exist.
	KindNotFound
	// KindPaymentProcessing covers payments the gateway explicitly declined.
	KindPaymentProcessing
	// KindStorage covers I/O failures in the receipt store, including the
	// unique-constraint backstop firing at commit time.
	KindStorage
	// KindTransport covers gateway calls that could not complete at all
	// (network unreachable, timeout), as opposed to explicit declines.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindPaymentProcessing:
		return "payment_processing"
	case KindStorage:
		return "storage"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the single error type crossing layer boundaries. It carries the
// kind, a caller-facing message, and an optional wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a new Error with a formatted message.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the ErrorKind carried by err, or 0 when err is not a
// billing Error.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
