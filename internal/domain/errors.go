package domain

import (
	"fmt"
)

type ErrorKind string

const (
	KindSecurity          ErrorKind = "security"
	KindValidation        ErrorKind = "validation"
	KindConfiguration     ErrorKind = "configuration"
	KindPaymentDeclined   ErrorKind = "payment_declined"
	KindTransientGateway  ErrorKind = "transient_gateway"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidTransition ErrorKind = "invalid_transition"
)

// Error is the error type surfaced by the checkout core. Field is set for
// validation failures; Message carries the processor's reason for declines.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrValidation)
// holds for every validation failure regardless of field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrSecurity          = &Error{Kind: KindSecurity, Message: "checkout token rejected"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid submission"}
	ErrConfiguration     = &Error{Kind: KindConfiguration, Message: "gateway is not configured"}
	ErrPaymentDeclined   = &Error{Kind: KindPaymentDeclined, Message: "payment declined"}
	ErrTransientGateway  = &Error{Kind: KindTransientGateway, Message: "payment processor unavailable"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "order is not pending"}
)

func Security(msg string, err error) *Error {
	return &Error{Kind: KindSecurity, Message: msg, Err: err}
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func Configuration(msg string) *Error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// Declined carries the processor's reason verbatim, e.g. "insufficient_funds".
func Declined(reason string) *Error {
	return &Error{Kind: KindPaymentDeclined, Message: reason}
}

func TransientGateway(err error) *Error {
	return &Error{Kind: KindTransientGateway, Message: "payment processor unavailable", Err: err}
}

func NotFound(id fmt.Stringer) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("order %s not found", id)}
}

func InvalidTransition(id fmt.Stringer, from, to OrderStatus) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("order %s cannot move from %s to %s", id, from, to)}
}
