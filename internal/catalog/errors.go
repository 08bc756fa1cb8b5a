package catalog

import (
	"errors"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateFileName = errors.New("file name already catalogued")
	ErrNotFound          = errors.New("no matching song")
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrIOFailure         = errors.New("content store failure")
	ErrIndexFailure      = errors.New("catalog index failure")
	ErrArchiveFailure    = errors.New("archive failure")
)

// Error is returned by every engine operation. Warnings describe store/index
// inconsistencies the failed operation left behind.
type Error struct {
	Op       string
	Kind     error
	Err      error
	Warnings []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error, warnings ...string) *Error {
	return &Error{Op: op, Kind: kind, Err: err, Warnings: warnings}
}

// Warnings returns the inconsistency warnings carried by err, if any.
func Warnings(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Warnings
	}
	return nil
}
