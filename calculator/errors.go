package calculator

import (
	"errors"
	"fmt"

	"github.com/giygas/desprescricao-api/equivalence"
	"github.com/giygas/desprescricao-api/taper"
)

// Kind classifies calculation failures.
type Kind string

const (
	KindInvalidDose            Kind = "invalid_dose"
	KindUnknownDrug            Kind = "unknown_drug"
	KindUnsupportedDestination Kind = "unsupported_destination"
	KindInvalidDate            Kind = "invalid_date"
	KindSafetyLimitExceeded    Kind = "safety_limit_exceeded"
	KindUnknownProtocol        Kind = "unknown_protocol"
	KindInternal               Kind = "internal_computation_error"
)

// BadInput reports whether the caller can fix the error by changing the
// request. Only KindInternal is not.
func (k Kind) BadInput() bool {
	return k != KindInternal
}

// Error is the only error type returned by Calculate.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var calcErr *Error
	if errors.As(err, &calcErr) {
		return calcErr.Kind
	}
	return KindInternal
}

// classify maps errors from the equivalence and taper packages.
func classify(err error) *Error {
	var calcErr *Error
	switch {
	case errors.As(err, &calcErr):
		return calcErr
	case errors.Is(err, equivalence.ErrUnknownDrug):
		return newError(KindUnknownDrug, "unknown benzodiazepine", err)
	case errors.Is(err, equivalence.ErrUnsupportedDestination):
		return newError(KindUnsupportedDestination, "unsupported destination drug", err)
	case errors.Is(err, equivalence.ErrInvalidDose), errors.Is(err, taper.ErrInvalidInitialDose):
		return newError(KindInvalidDose, "invalid dose", err)
	case errors.Is(err, taper.ErrSafetyLimitExceeded):
		return newError(KindSafetyLimitExceeded, "initial dose exceeds the safety limit", err)
	default:
		return newError(KindInternal, "internal computation error", err)
	}
}
