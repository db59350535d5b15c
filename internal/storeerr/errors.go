// Package storeerr defines the error taxonomy shared by the Store and the
// components layered on top of it.
package storeerr

import "errors"

// Kind classifies an error into the taxonomy callers switch on.
type Kind int

const (
	// KindValidation marks a caller-visible, 4xx-class error: a malformed
	// payload or bad path.
	KindValidation Kind = iota
	// KindNotFound marks an unknown project, event, or conversation id.
	KindNotFound
	// KindConflict marks a duplicate project path on create.
	KindConflict
	// KindTransient marks a retryable failure: store contention, LLM
	// timeout, or a 5xx from an external collaborator.
	KindTransient
	// KindFatal marks an unrecoverable failure: storage corruption,
	// unreadable configuration.
	KindFatal
)

// Error is a taxonomy-tagged error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFound(op string, err error) error   { return newErr(KindNotFound, op, err) }
func Validation(op string, err error) error { return newErr(KindValidation, op, err) }
func Conflict(op string, err error) error   { return newErr(KindConflict, op, err) }
func Transient(op string, err error) error  { return newErr(KindTransient, op, err) }
func Fatal(op string, err error) error      { return newErr(KindFatal, op, err) }

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
