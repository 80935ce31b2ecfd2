// Package errs carries the error categories shared by the domain and the
// orchestration services. Domain operations return either a value or a
// non-empty List so callers see every independent failure in one round trip.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Error is a categorized domain error. Code is stable and machine readable,
// Message is for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Unexpected(code, message string) *Error {
	return &Error{Kind: KindUnexpected, Code: code, Message: message}
}

// IsKind reports whether err (or any error it wraps) is an *Error of the
// given kind. A List matches when any of its entries does.
func IsKind(err error, kind Kind) bool {
	var l List
	if errors.As(err, &l) {
		for _, entry := range l {
			if IsKind(entry, kind) {
				return true
			}
		}
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// List accumulates independent failures from one pass. The zero value is
// usable; a nil List means no errors.
type List []error

func (l List) Error() string {
	if len(l) == 1 {
		return l[0].Error()
	}
	parts := make([]string, 0, len(l))
	for _, err := range l {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is/As see through the accumulated entries.
func (l List) Unwrap() []error {
	return l
}

func (l *List) Add(errs ...error) {
	for _, err := range errs {
		if err != nil {
			*l = append(*l, err)
		}
	}
}

func (l List) Empty() bool {
	return len(l) == 0
}

// OrNil returns the list as an error, or nil when nothing was accumulated.
func (l List) OrNil() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
