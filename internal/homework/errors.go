package homework

import (
	"errors"
	"fmt"
)

// Kind classifies failures of the poll pipeline.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport is a network, timeout or connection fault during fetch or notify.
	KindTransport
	// KindUnexpectedResponse is a non-200 status or an unparseable body.
	KindUnexpectedResponse
	// KindInvalidStatus is a homework status missing from the catalog.
	KindInvalidStatus
	// KindMalformedRecord is a homework without a name or a resolvable verdict.
	KindMalformedRecord
	// KindDelivery is a messaging sink failure. It never leaves the notifier.
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport_fault"
	case KindUnexpectedResponse:
		return "unexpected_server_response"
	case KindInvalidStatus:
		return "invalid_review_status"
	case KindMalformedRecord:
		return "malformed_record"
	case KindDelivery:
		return "notification_delivery_fault"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrTransport          = errors.New("transport fault")
	ErrUnexpectedResponse = errors.New("unexpected server response")
	ErrInvalidStatus      = errors.New("invalid review status")
	ErrMalformedRecord    = errors.New("malformed homework record")
	ErrDelivery           = errors.New("notification delivery fault")

	// Both are MalformedRecord, but callers can tell them apart.
	ErrMissingName    = fmt.Errorf("%w: missing homework name", ErrMalformedRecord)
	ErrMissingVerdict = fmt.Errorf("%w: missing verdict", ErrMalformedRecord)
)

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindUnexpectedResponse:
		return ErrUnexpectedResponse
	case KindInvalidStatus:
		return ErrInvalidStatus
	case KindMalformedRecord:
		return ErrMalformedRecord
	case KindDelivery:
		return ErrDelivery
	default:
		return nil
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string // "fetch", "validate", "format", "notify"
	Err  error
}

// NewError wraps err with a kind and operation. A nil err becomes the kind sentinel.
func NewError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = kind.sentinel()
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e.Kind, in addition to whatever Err wraps.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrUnexpectedResponse):
		return KindUnexpectedResponse
	case errors.Is(err, ErrInvalidStatus):
		return KindInvalidStatus
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	}
	return KindUnknown
}
