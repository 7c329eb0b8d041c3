// Package apperr classifies domain failures so transports can map them to
// status codes without knowing every package's sentinel errors.
package apperr

import "errors"

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	// KindUpstream covers storage and provider failures. It is the zero value
	// so that unclassified errors are treated as unexpected.
	KindUpstream Kind = iota
	KindValidation
	KindNotFound
	KindPrecondition
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindForbidden:
		return "forbidden"
	default:
		return "upstream"
	}
}

// Error is an expected failure with a stable machine readable code.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New returns a classified error.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func Validation(code, msg string) *Error   { return New(KindValidation, code, msg) }
func NotFound(code, msg string) *Error     { return New(KindNotFound, code, msg) }
func Precondition(code, msg string) *Error { return New(KindPrecondition, code, msg) }
func Forbidden(code, msg string) *Error    { return New(KindForbidden, code, msg) }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// CodeOf returns the code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal"
}

// Expected reports whether err is a classified, non-upstream failure.
func Expected(err error) bool {
	return err != nil && KindOf(err) != KindUpstream
}
