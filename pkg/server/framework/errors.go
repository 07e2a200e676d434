package framework

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a single request parameter.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ErrorResponse is the structure of error payloads sent back for requests outside the resolution binding.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// SafeError is used to pass an error during the request through the server with
// web specific context. 'Safe' here means that the error messages do not include
// any sensitive information and can be sent straight back to the requester
type SafeError struct {
	Err        error
	StatusCode int
	Fields     []FieldError
}

// SafeError implements the `error` interface. It uses the default message of the
// wrapped error. This is what will be shown in a server's logs
func (err *SafeError) Error() string {
	return err.Err.Error()
}

// Errors returns the error message and all field errors as a single string
func (err *SafeError) Errors() string {
	if len(err.Fields) == 0 {
		return err.Err.Error()
	}
	errs := make([]string, 0, len(err.Fields))
	for _, field := range err.Fields {
		errs = append(errs, field.Field+": "+field.Error)
	}
	return err.Err.Error() + ": " + strings.Join(errs, ", ")
}

// NewRequestError wraps a provided error with an HTTP status code. This function should be used
// when handlers encounter expected errors.
func NewRequestError(err error, statusCode int) error {
	return &SafeError{Err: err, StatusCode: statusCode}
}

func NewRequestErrorMsg(msg string, statusCode int) error {
	return NewRequestError(errors.New(msg), statusCode)
}

// NewFieldErrors returns a SafeError listing every offending field.
func NewFieldErrors(msg string, statusCode int, fields []FieldError) error {
	return &SafeError{Err: errors.New(msg), StatusCode: statusCode, Fields: fields}
}

// AsSafeError unwraps err to a SafeError, if it is one.
func AsSafeError(err error) (*SafeError, bool) {
	var safe *SafeError
	if errors.As(err, &safe) {
		return safe, true
	}
	return nil, false
}

// shutdown is a type used to help with graceful shutdown of a server.
type shutdown struct {
	Message string
}

// shutdown implements the Error interface
func (s *shutdown) Error() string {
	return s.Message
}

// NewShutdownError returns an error that causes the framework to signal
// a graceful shutdown
func NewShutdownError(message string) error {
	return &shutdown{message}
}

// IsShutdown checks to see if the shutdown error is contained in
// the specified error value.
func IsShutdown(err error) bool {
	var shutdownErr *shutdown
	return errors.As(errors.Cause(err), &shutdownErr)
}
