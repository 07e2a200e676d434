// Package oracle decides what a resolver response means and whether its HTTP status, headers and body agree with the
// HTTP(S) binding.
package oracle

import (
	"strconv"
	"strings"

	"github.com/oliveagle/jsonpath"

	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
	"github.com/tbd54566975/did-resolution-conformance/pkg/schema"
)

// VerdictKind is what a response was classified as.
type VerdictKind string

const (
	VerdictSuccess     VerdictKind = "success"
	VerdictError       VerdictKind = "error"
	VerdictRedirect    VerdictKind = "redirect"
	VerdictDeactivated VerdictKind = "deactivated"
	// VerdictAcceptableAlternate is a 200 returned in place of a 406 for an unsupported representation.
	VerdictAcceptableAlternate VerdictKind = "acceptable-alternate"
	VerdictUnclassified        VerdictKind = "unclassified"
)

const (
	resolutionErrorPath    = "$.didResolutionMetadata.error"
	dereferencingErrorPath = "$.dereferencingMetadata.error"
)

// Policy tunes the judgements that the binding leaves open.
type Policy struct {
	Strictness result.Strictness

	// AllowRepresentationFallback accepts a 200 with some supported representation where a 406 would be expected.
	AllowRepresentationFallback bool

	// Documents, if set, additionally validates the didDocument of successful results.
	Documents schema.DocumentValidator

	// RequireTLS fails plain http endpoints instead of skipping the TLS scenario for them.
	RequireTLS bool
}

// DefaultPolicy is strict about error metadata and tolerates representation fallback.
func DefaultPolicy() Policy {
	return Policy{
		Strictness:                  result.StrictMetadata,
		AllowRepresentationFallback: true,
	}
}

// Verdict is the classification of one response with every violation found on the way.
type Verdict struct {
	Kind       VerdictKind
	ErrorKind  result.ErrorKind
	StatusCode int
	Envelope   result.Envelope
	result.Outcome
}

// Oracle classifies responses. It holds no mutable state and is safe for concurrent use.
type Oracle struct {
	policy Policy
}

func New(policy Policy) *Oracle {
	return &Oracle{policy: policy}
}

func (o *Oracle) Policy() Policy {
	return o.policy
}

// Classify interprets a resolution or dereferencing response.
func (o *Oracle) Classify(resp *binding.Response) Verdict {
	v := Verdict{StatusCode: resp.StatusCode, Kind: VerdictUnclassified}

	switch resp.StatusCode {
	case result.StatusServiceRedirect:
		v.Kind = VerdictRedirect
		if resp.Location() == "" {
			v.Add(result.Violation{Category: result.CategoryBinding, Field: "Location", Expected: "header present", Actual: "absent",
				Message: "a 303 response MUST carry a Location header"})
		}
		if len(resp.Body) != 0 {
			v.Add(result.Violation{Category: result.CategoryBinding, Field: "body", Expected: "empty", Actual: strconv.Itoa(len(resp.Body)) + " bytes",
				Message: "a 303 response MUST NOT carry a body"})
		}
		return v
	case result.StatusDeactivated:
		v.Kind = VerdictDeactivated
		return v
	}

	body, decoded := result.Decode(resp.Body)
	if !decoded.OK() {
		v.Merge(decoded)
		o.checkStatusWithoutError(&v)
		return v
	}

	errValue, isError := lookup(body, resolutionErrorPath)
	if !isError {
		errValue, isError = lookup(body, dereferencingErrorPath)
	}
	if isError {
		o.classifyError(&v, body, errValue)
		return v
	}

	if resp.StatusCode != 200 {
		v.Merge(structureOnly(body))
		o.checkStatusWithoutError(&v)
		return v
	}

	env, shape := result.ParseValue(body, o.policy.Strictness)
	v.Merge(shape)
	v.Envelope = env
	if env == nil {
		return v
	}
	v.Kind = VerdictSuccess

	var metadata result.Metadata
	switch e := env.(type) {
	case *result.SuccessEnvelope:
		metadata = e.ResolutionMetadata
		if o.policy.Documents != nil {
			v.Merge(o.policy.Documents.ValidateDocument(e.Document, "$."+result.FieldDocument))
		}
	case *result.DereferencingEnvelope:
		metadata = e.DereferencingMetadata
	}
	v.Merge(CheckContentType(resp, metadata))
	return v
}

func (o *Oracle) classifyError(v *Verdict, body, errValue any) {
	env, shape := result.ParseValue(body, o.policy.Strictness)
	v.Merge(shape)
	v.Envelope = env

	typeValue, hasType := lookup(errValue, "$.type")
	errorType, isString := typeValue.(string)
	if !hasType || !isString {
		// the schema violation for the descriptor is already recorded
		v.Add(result.Violation{Category: result.CategoryClassification, Field: "error.type", Expected: "error kind", Actual: "missing",
			Message: "error object does not name an error kind"})
		return
	}

	kind, known := result.ParseErrorKind(errorType)
	if !known {
		v.Add(result.Violation{Category: result.CategoryClassification, Field: "error.type", Expected: "known error kind", Actual: errorType,
			Message: "unknown error type"})
		return
	}

	v.Kind = VerdictError
	v.ErrorKind = kind
	if want := kind.HTTPStatus(); v.StatusCode != want {
		v.Add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: strconv.Itoa(want), Actual: strconv.Itoa(v.StatusCode),
			Message: "HTTP status does not match the error kind " + kind.String()})
	}
}

// checkStatusWithoutError judges a non-redirect response that carries no error object.
func (o *Oracle) checkStatusWithoutError(v *Verdict) {
	switch {
	case v.StatusCode >= 400:
		v.Add(result.Violation{Category: result.CategoryClassification, Field: "error", Expected: "error object", Actual: "absent",
			Message: "error status " + strconv.Itoa(v.StatusCode) + " without an error object in the metadata"})
	case v.StatusCode != 200:
		v.Add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: "200", Actual: strconv.Itoa(v.StatusCode),
			Message: "unexpected HTTP status"})
	}
}

// structureOnly is used when the status already failed; the body is reported only if it is not even an object.
func structureOnly(body any) result.Outcome {
	var out result.Outcome
	if _, ok := body.(map[string]any); !ok {
		out.Add(result.Violation{Category: result.CategorySchema, Field: "$", Expected: "object", Actual: "non-object body",
			Message: "body must be a JSON object"})
	}
	return out
}

// CheckContentType requires the Content-Type header to carry the contentType metadata value of a successful result.
func CheckContentType(resp *binding.Response, metadata result.Metadata) result.Outcome {
	var out result.Outcome
	want := metadata.ContentType()
	if want == "" {
		out.Addf(result.CategoryBinding, "contentType", "metadata must carry a contentType property when the result is successful")
		return out
	}
	got := resp.ContentType()
	if got == "" {
		out.Add(result.Violation{Category: result.CategoryBinding, Field: "Content-Type", Expected: want, Actual: "absent",
			Message: "response MUST carry a Content-Type header"})
		return out
	}
	if !strings.Contains(got, want) {
		out.Add(result.Violation{Category: result.CategoryBinding, Field: "Content-Type", Expected: want, Actual: got,
			Message: "Content-Type header must be the contentType metadata value"})
	}
	return out
}

// lookup resolves a JSON path, distinguishing an absent or null value from a present one.
func lookup(v any, path string) (any, bool) {
	found, err := jsonpath.JsonPathLookup(v, path)
	if err != nil || found == nil {
		return nil, false
	}
	return found, true
}
