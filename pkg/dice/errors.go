package dice

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidToken
	InsufficientOperands
	NotAnOperand
	NotAnOperator
	InvalidRollParameters
	MalformedExpression
)

// String returns the stable machine-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case InvalidToken:
		return "INVALID_TOKEN"
	case InsufficientOperands:
		return "INSUFFICIENT_OPERANDS"
	case NotAnOperand:
		return "NOT_AN_OPERAND"
	case NotAnOperator:
		return "NOT_AN_OPERATOR"
	case InvalidRollParameters:
		return "INVALID_ROLL_PARAMETERS"
	case MalformedExpression:
		return "MALFORMED_EXPRESSION"
	default:
		return "UNKNOWN"
	}
}

// Error is returned for every tokenizing or evaluation failure.
type Error struct {
	Kind Kind
	Msg  string
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidToken          = &Error{Kind: InvalidToken}
	ErrInsufficientOperands  = &Error{Kind: InsufficientOperands}
	ErrNotAnOperand          = &Error{Kind: NotAnOperand}
	ErrNotAnOperator         = &Error{Kind: NotAnOperator}
	ErrInvalidRollParameters = &Error{Kind: InvalidRollParameters}
	ErrMalformedExpression   = &Error{Kind: MalformedExpression}
)

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the engine error kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return KindUnknown, false
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
