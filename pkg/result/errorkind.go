package result

import (
	"net/http"
	"strings"
)

// ErrorKind is one of the fixed error categories a resolver reports in an error descriptor's type.
type ErrorKind string

const (
	InvalidDID                 ErrorKind = "INVALID_DID"
	InvalidDIDURL              ErrorKind = "INVALID_DID_URL"
	InvalidOptions             ErrorKind = "INVALID_OPTIONS"
	NotFound                   ErrorKind = "NOT_FOUND"
	RepresentationNotSupported ErrorKind = "REPRESENTATION_NOT_SUPPORTED"
	InvalidDIDDocument         ErrorKind = "INVALID_DID_DOCUMENT"
	MethodNotSupported         ErrorKind = "METHOD_NOT_SUPPORTED"
	FeatureNotSupported        ErrorKind = "FEATURE_NOT_SUPPORTED"
	InternalError              ErrorKind = "INTERNAL_ERROR"
)

// ErrorTypeURIPrefix is prepended to an ErrorKind in its full URI spelling.
const ErrorTypeURIPrefix = "https://www.w3.org/ns/did#"

// Statuses of the binding that are not tied to an error object.
const (
	StatusServiceRedirect = http.StatusSeeOther
	StatusDeactivated     = http.StatusGone
)

var errorStatuses = map[ErrorKind]int{
	InvalidDID:                 http.StatusBadRequest,
	InvalidDIDURL:              http.StatusBadRequest,
	InvalidOptions:             http.StatusBadRequest,
	NotFound:                   http.StatusNotFound,
	RepresentationNotSupported: http.StatusNotAcceptable,
	InvalidDIDDocument:         http.StatusInternalServerError,
	MethodNotSupported:         http.StatusNotImplemented,
	FeatureNotSupported:        http.StatusNotImplemented,
	InternalError:              http.StatusInternalServerError,
}

// ErrorKinds lists every known kind in a stable order.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{
		InvalidDID,
		InvalidDIDURL,
		InvalidOptions,
		NotFound,
		RepresentationNotSupported,
		InvalidDIDDocument,
		MethodNotSupported,
		FeatureNotSupported,
		InternalError,
	}
}

// ParseErrorKind normalizes either spelling of an error type, the short token or the URI form, to its ErrorKind.
func ParseErrorKind(s string) (ErrorKind, bool) {
	token := strings.TrimPrefix(strings.TrimSpace(s), ErrorTypeURIPrefix)
	kind := ErrorKind(token)
	if _, ok := errorStatuses[kind]; !ok {
		return "", false
	}
	return kind, true
}

func (k ErrorKind) String() string {
	return string(k)
}

// URI returns the full URI spelling of the kind.
func (k ErrorKind) URI() string {
	return ErrorTypeURIPrefix + string(k)
}

// HTTPStatus returns the status code the binding prescribes for the kind, or 0 if the kind is unknown.
func (k ErrorKind) HTTPStatus() int {
	return errorStatuses[k]
}

// Matches reports whether an error type value denotes this kind in either spelling.
func (k ErrorKind) Matches(errorType string) bool {
	parsed, ok := ParseErrorKind(errorType)
	return ok && parsed == k
}
