package core

import "github.com/pkg/errors"

// FieldError reports a problem with one input field, keyed by its JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries service-level input failures (uniqueness checks,
// payment reference formats, illegal status values) that the struct
// validator cannot express. The HTTP layer renders Fields as a 400 body.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks errors after which the API server cannot keep serving;
// the error handler signals a graceful stop when it sees one.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown looks through the wrap chain.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
