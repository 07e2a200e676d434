package binding

import (
	"mime"
	"strings"
)

// Media types of the DID Resolution HTTP(S) binding.
const (
	MediaTypeDIDResolution       = "application/did-resolution"
	MediaTypeDIDURLDereferencing = "application/did-url-dereferencing"
	MediaTypeDIDJSON             = "application/did+json"
	MediaTypeDIDLDJSON           = "application/did+ld+json"
	MediaTypeJSON                = "application/json"
	MediaTypeURIList             = "text/uri-list"

	// MediaTypeUnsupported is a representation no resolver is expected to support.
	MediaTypeUnsupported = "application/x-unsupported-did-representation-99999"
)

// RepresentationMediaTypes are the DID document representations probed when asking for a bare document.
var RepresentationMediaTypes = []string{MediaTypeDIDJSON, MediaTypeDIDLDJSON}

// HasMediaType reports whether a Content-Type header value contains the given media type.
func HasMediaType(header, mediaType string) bool {
	if header == "" || mediaType == "" {
		return false
	}
	return strings.Contains(strings.ToLower(header), strings.ToLower(mediaType))
}

// BaseMediaType strips parameters from a Content-Type value, returning it unchanged when it does not parse.
func BaseMediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	return mt
}
