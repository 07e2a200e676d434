package oracle

import (
	"strconv"
	"strings"

	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

// ExpectSuccess classifies resp and requires a successful result.
func (o *Oracle) ExpectSuccess(resp *binding.Response) Verdict {
	v := o.Classify(resp)
	if v.Kind != VerdictSuccess && v.OK() {
		v.Add(result.Violation{Category: result.CategoryClassification, Expected: string(VerdictSuccess), Actual: describe(v),
			Message: "expected a successful result"})
	}
	return v
}

// ExpectResolutionSuccess is ExpectSuccess for a resolution request: the result must be a DID resolution result
// with a document, not a dereferencing result.
func (o *Oracle) ExpectResolutionSuccess(resp *binding.Response) Verdict {
	v := o.ExpectSuccess(resp)
	if v.Kind != VerdictSuccess {
		return v
	}
	if _, ok := v.Envelope.(*result.SuccessEnvelope); !ok {
		v.Add(result.Violation{Category: result.CategoryClassification, Field: "$", Expected: "DID resolution result",
			Actual: "DID URL dereferencing result", Message: "a resolution request must be answered with a resolution result"})
	}
	return v
}

// ExpectError classifies resp and requires an error of the given kind, in either spelling, with a null document
// and metadata judged by the policy's strictness.
func (o *Oracle) ExpectError(resp *binding.Response, kind result.ErrorKind) Verdict {
	return o.ExpectErrorOneOf(resp, kind)
}

// ExpectErrorOneOf is ExpectError for requests where more than one kind is acceptable. The first kind is the one
// whose status is expected when the response cannot be classified.
func (o *Oracle) ExpectErrorOneOf(resp *binding.Response, kinds ...result.ErrorKind) Verdict {
	v := o.Classify(resp)
	if len(kinds) == 0 {
		return v
	}
	expected := make([]string, 0, len(kinds))
	for _, k := range kinds {
		expected = append(expected, k.String())
	}

	switch {
	case v.Kind == VerdictError && !containsKind(kinds, v.ErrorKind):
		v.Add(result.Violation{Category: result.CategoryClassification, Field: "error.type", Expected: strings.Join(expected, " or "),
			Actual: v.ErrorKind.String(), Message: "error type does not match the expected kind"})
	case v.Kind != VerdictError && v.Kind != VerdictUnclassified:
		v.Add(result.Violation{Category: result.CategoryClassification, Expected: strings.Join(expected, " or "), Actual: describe(v),
			Message: "expected an error result"})
	}
	if want := kinds[0].HTTPStatus(); v.Kind == VerdictUnclassified && v.StatusCode != want && !v.Has(result.CategoryBinding) {
		v.Add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: strconv.Itoa(want),
			Actual: strconv.Itoa(v.StatusCode), Message: "HTTP status does not match the expected error kind " + kinds[0].String()})
	}
	return v
}

func containsKind(kinds []result.ErrorKind, kind result.ErrorKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ExpectStatus requires only the HTTP status, for checks where the body is judged elsewhere.
func ExpectStatus(resp *binding.Response, want int) result.Outcome {
	var out result.Outcome
	if resp.StatusCode != want {
		out.Add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: strconv.Itoa(want), Actual: strconv.Itoa(resp.StatusCode),
			Message: "unexpected HTTP status"})
	}
	return out
}

// ExpectRepresentationNotSupported judges the answer to an unsupported Accept media type. A 200 is an acceptable
// alternate when the policy allows fallback; anything else must be a REPRESENTATION_NOT_SUPPORTED error.
func (o *Oracle) ExpectRepresentationNotSupported(resp *binding.Response) Verdict {
	if resp.StatusCode == 200 {
		if o.policy.AllowRepresentationFallback {
			return Verdict{Kind: VerdictAcceptableAlternate, StatusCode: resp.StatusCode}
		}
		v := Verdict{Kind: VerdictUnclassified, StatusCode: resp.StatusCode}
		v.Add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: "406", Actual: "200",
			Message: "representation fallback is not allowed"})
		return v
	}
	return o.ExpectError(resp, result.RepresentationNotSupported)
}

// ExpectRepresentation requires a bare document in the requested representation media type.
func (o *Oracle) ExpectRepresentation(resp *binding.Response, mediaType string) Verdict {
	v := Verdict{Kind: VerdictUnclassified, StatusCode: resp.StatusCode}
	if resp.StatusCode != 200 {
		v.Merge(ExpectStatus(resp, 200))
		return v
	}
	if !binding.HasMediaType(resp.ContentType(), mediaType) {
		v.Add(result.Violation{Category: result.CategoryBinding, Field: "Content-Type", Expected: mediaType, Actual: resp.ContentType(),
			Message: "Content-Type header must be the requested representation"})
	}
	body, decoded := result.Decode(resp.Body)
	if !decoded.OK() {
		v.Merge(decoded)
		return v
	}
	v.Merge(result.ValidateRepresentation(body))
	if o.policy.Documents != nil {
		v.Merge(o.policy.Documents.ValidateDocument(body, "$"))
	}
	if v.OK() {
		v.Kind = VerdictSuccess
	}
	return v
}

func describe(v Verdict) string {
	if v.Kind == VerdictError {
		return string(v.Kind) + " " + v.ErrorKind.String()
	}
	return string(v.Kind) + " (status " + strconv.Itoa(v.StatusCode) + ")"
}
