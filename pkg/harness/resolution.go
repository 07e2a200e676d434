package harness

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/corpus"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

// ResolutionSuite checks the DID resolution function: successful resolution of every configured DID and
// rejection of missing or malformed input.
func ResolutionSuite(impl config.Implementation) []Scenario {
	var scenarios []Scenario
	for _, req := range impl.SupportedDIDs.Valid {
		req := req
		scenarios = append(scenarios,
			Scenario{
				Suite: SuiteResolution,
				Name:  fmt.Sprintf("resolves %s in a conformant representation", req.DID),
				Link:  linkImplementsResolution,
				Run:   func(t *T) { resolvesValidDID(t, req) },
			},
			Scenario{
				Suite: SuiteResolution,
				Name:  fmt.Sprintf("didResolutionMetadata is present for %s", req.DID),
				Link:  linkResolutionMetadata,
				Run:   func(t *T) { hasResolutionMetadata(t, req) },
			},
			Scenario{
				Suite: SuiteResolution,
				Name:  fmt.Sprintf("didDocument of %s is a conformant DID document", req.DID),
				Link:  linkConformantDocument,
				Run:   func(t *T) { returnsConformantDocument(t, req) },
			},
			Scenario{
				Suite: SuiteResolution,
				Name:  fmt.Sprintf("resolving %s twice yields identical results", req.DID),
				Link:  linkImplementsResolution,
				Run:   func(t *T) { resolvesIdempotently(t, req) },
			},
		)
	}

	scenarios = append(scenarios, Scenario{
		Suite: SuiteResolution,
		Name:  "the did input is required",
		Link:  linkDIDRequired,
		Run:   requiresDID,
	})

	for _, bad := range corpus.UnconformantDIDs() {
		bad := bad
		scenarios = append(scenarios, Scenario{
			Suite: SuiteResolution,
			Name:  fmt.Sprintf("unconformant DID %q is INVALID_DID", bad),
			Link:  linkConformantDID,
			Run: func(t *T) {
				resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, bad), binding.MediaTypeDIDResolution)
				if !ok {
					return
				}
				t.Check(t.oracle.ExpectError(resp, result.InvalidDID).Outcome)
			},
		})
	}

	if req, ok := firstValid(impl); ok {
		for _, bad := range corpus.BadMediaTypes() {
			bad := bad
			scenarios = append(scenarios, Scenario{
				Suite: SuiteResolution,
				Name:  fmt.Sprintf("accept option %q is INVALID_OPTIONS", bad),
				Link:  linkMediaTypeASCII,
				Run: func(t *T) {
					u, ok := t.resolutionURL(req, binding.Options{{Name: corpus.ParamAccept, Value: bad}})
					if !ok {
						return
					}
					resp, ok := t.Get(u, binding.MediaTypeDIDResolution)
					if !ok {
						return
					}
					t.Check(t.oracle.ExpectError(resp, result.InvalidOptions).Outcome)
				},
			})
		}
	}
	return scenarios
}

func resolve(t *T, req config.ResolutionRequest) (*binding.Response, bool) {
	u, ok := t.resolutionURL(req, nil)
	if !ok {
		return nil, false
	}
	return t.Get(u, binding.MediaTypeDIDResolution)
}

func resolvesValidDID(t *T, req config.ResolutionRequest) {
	resp, ok := resolve(t, req)
	if !ok {
		return
	}
	v := t.oracle.ExpectResolutionSuccess(resp)
	t.Check(v.Outcome)
	t.Check(oracle.ExpectStatus(resp, 200))
	if !binding.HasMediaType(resp.ContentType(), binding.MediaTypeDIDResolution) {
		t.add(result.Violation{Category: result.CategoryBinding, Field: "Content-Type", Expected: binding.MediaTypeDIDResolution,
			Actual: resp.ContentType(), Message: "Content-Type must be the DID resolution result media type"})
	}
	t.checkRoundTrip(v.Envelope, req.DID)
}

func hasResolutionMetadata(t *T, req config.ResolutionRequest) {
	resp, ok := resolve(t, req)
	if !ok {
		return
	}
	t.Check(oracle.ExpectStatus(resp, 200))
	body, decoded := result.Decode(resp.Body)
	if !t.Check(decoded) {
		return
	}
	obj, isObject := body.(map[string]any)
	if !isObject {
		t.Errorf(result.CategorySchema, "$", "body must be a JSON object")
		return
	}
	if meta, present := obj[result.FieldResolutionMetadata]; !present {
		t.Errorf(result.CategorySchema, "$."+result.FieldResolutionMetadata, "is required")
	} else if _, isObject := meta.(map[string]any); !isObject {
		t.Errorf(result.CategorySchema, "$."+result.FieldResolutionMetadata, "must be an object")
	}
}

func returnsConformantDocument(t *T, req config.ResolutionRequest) {
	resp, ok := resolve(t, req)
	if !ok {
		return
	}
	v := t.oracle.ExpectResolutionSuccess(resp)
	t.Check(v.Outcome)
	t.checkRoundTrip(v.Envelope, req.DID)
}

// resolvesIdempotently compares two resolutions of the same request: same classification, same error kind, same
// document. Metadata is not compared since it may legitimately carry timestamps.
func resolvesIdempotently(t *T, req config.ResolutionRequest) {
	first, ok := resolve(t, req)
	if !ok {
		return
	}
	second, ok := resolve(t, req)
	if !ok {
		return
	}

	a, b := t.oracle.Classify(first), t.oracle.Classify(second)
	if diff := cmp.Diff(fingerprint(a), fingerprint(b)); diff != "" {
		t.Errorf(result.CategoryClassification, "$", "repeated resolution differs (-first +second):\n%s", diff)
	}
}

type resolutionFingerprint struct {
	Kind       oracle.VerdictKind
	ErrorKind  result.ErrorKind
	StatusCode int
	Document   map[string]any
}

func fingerprint(v oracle.Verdict) resolutionFingerprint {
	fp := resolutionFingerprint{Kind: v.Kind, ErrorKind: v.ErrorKind, StatusCode: v.StatusCode}
	if success, ok := v.Envelope.(*result.SuccessEnvelope); ok {
		fp.Document = success.Document
	}
	return fp
}

func requiresDID(t *T) {
	resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, ""), binding.MediaTypeDIDResolution)
	if !ok {
		return
	}
	t.Check(oracle.ExpectStatus(resp, 400))
}
