package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

// UnsupportedMethodDID uses a method no resolver is expected to support.
const UnsupportedMethodDID = "did:unsupported:123456789abcdefghi"

// BindingSuite checks the HTTP(S) binding: status codes, headers and bodies of resolution and dereferencing.
func BindingSuite(impl config.Implementation) []Scenario {
	scenarios := []Scenario{{
		Suite: SuiteBinding,
		Name:  "All HTTPS bindings MUST use TLS",
		Link:  linkBindings,
		Run:   usesTLS,
	}}

	for _, req := range impl.SupportedDIDs.Valid {
		scenarios = append(scenarios, validDIDBindingScenarios(req)...)
	}

	for _, bad := range []string{"not-a-did", "did:example"} {
		bad := bad
		scenarios = append(scenarios, bindingScenario(fmt.Sprintf("INVALID_DID error MUST map to HTTP status 400 (input: %q)", bad), func(t *T) {
			resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, bad), binding.MediaTypeDIDResolution)
			if !ok {
				return
			}
			t.Check(oracle.ExpectStatus(resp, result.InvalidDID.HTTPStatus()))
		}))
	}

	scenarios = append(scenarios, bindingScenario("METHOD_NOT_SUPPORTED error MUST map to HTTP status 501", func(t *T) {
		resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, UnsupportedMethodDID), binding.MediaTypeDIDResolution)
		if !ok {
			return
		}
		t.Check(t.oracle.ExpectError(resp, result.MethodNotSupported).Outcome)
	}))

	scenarios = append(scenarios, perInput(impl.SupportedDIDs.NotFound, "NOT_FOUND error MUST map to HTTP status 404", "not_found",
		func(t *T, did string) {
			resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, did), binding.MediaTypeDIDResolution)
			if !ok {
				return
			}
			t.Check(t.oracle.ExpectError(resp, result.NotFound).Outcome)
		})...)

	if req, ok := firstValid(impl); ok {
		scenarios = append(scenarios, bindingScenario("REPRESENTATION_NOT_SUPPORTED error MUST map to HTTP status 406", func(t *T) {
			resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, req.DID), binding.MediaTypeUnsupported)
			if !ok {
				return
			}
			t.Check(t.oracle.ExpectRepresentationNotSupported(resp).Outcome)
		}))
	}

	scenarios = append(scenarios, perInput(impl.SupportedDIDs.Deactivated, "If deactivated metadata property is true, HTTP response status MUST be 410", "deactivated",
		func(t *T, did string) {
			resp, ok := t.Get(binding.ResourceURL(t.impl.Endpoint, did), binding.MediaTypeDIDResolution)
			if !ok {
				return
			}
			t.Check(oracle.ExpectStatus(resp, result.StatusDeactivated))
		})...)

	scenarios = append(scenarios, dereferencingScenarios(impl.SupportedDIDs.DerefURLs)...)
	scenarios = append(scenarios, serviceDereferencingScenarios(impl.SupportedDIDs.ServiceDerefURLs)...)
	return scenarios
}

func bindingScenario(name string, run func(t *T)) Scenario {
	return Scenario{Suite: SuiteBinding, Name: name, Link: linkBindings, Run: run}
}

// perInput builds one scenario per configured input, or a single skipped scenario when the optional list is empty.
func perInput(inputs []string, name, setting string, run func(t *T, input string)) []Scenario {
	if len(inputs) == 0 {
		return []Scenario{skipped(name, setting)}
	}
	scenarios := make([]Scenario, 0, len(inputs))
	for _, input := range inputs {
		input := input
		scenarios = append(scenarios, bindingScenario(fmt.Sprintf("%s (%s)", name, input), func(t *T) { run(t, input) }))
	}
	return scenarios
}

func skipped(name, setting string) Scenario {
	return bindingScenario(name, func(t *T) {
		t.Skip("no " + setting + " configured for this implementation")
	})
}

// usesTLS requires an https endpoint under a RequireTLS policy; otherwise plain http is skipped for local bindings.
func usesTLS(t *T) {
	if !strings.HasPrefix(strings.ToLower(t.impl.Endpoint), "https://") {
		if t.oracle.Policy().RequireTLS {
			t.add(result.Violation{Category: result.CategoryBinding, Field: "endpoint", Expected: "https://",
				Actual: t.impl.Endpoint, Message: "the HTTPS binding must be served over TLS"})
			return
		}
		t.Skip("endpoint is not https")
		return
	}
	// a completed handshake is all that is checked here
	t.GetManual(t.impl.Endpoint, binding.MediaTypeDIDResolution)
}

func validDIDBindingScenarios(req config.ResolutionRequest) []Scenario {
	named := func(name string, run func(t *T)) Scenario {
		return bindingScenario(fmt.Sprintf("%s (%s)", name, req.DID), run)
	}
	return []Scenario{
		named("All conforming DID resolvers MUST implement the GET version of the HTTPS binding", func(t *T) {
			resp, ok := resolve(t, req)
			if !ok {
				return
			}
			if !resp.OK() {
				t.add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: "2xx", Actual: strconv.Itoa(resp.StatusCode),
					Message: "GET must succeed for a supported DID"})
			}
		}),
		named("If Accept is application/did-resolution, HTTP body MUST contain a DID resolution result", func(t *T) {
			body, ok := resolveBody(t, req)
			if !ok {
				return
			}
			t.Check(result.ValidateSuccessResult(body))
		}),
		named("If function is successful and returns a didDocument, HTTP response status code MUST be 200", func(t *T) {
			resp, ok := resolve(t, req)
			if !ok {
				return
			}
			t.Check(oracle.ExpectStatus(resp, 200))
		}),
		named("HTTP response MUST contain a Content-Type header whose value MUST equal contentType in didResolutionMetadata", func(t *T) {
			resp, ok := resolve(t, req)
			if !ok || !requireOK(t, resp) {
				return
			}
			env, shape := result.Parse(resp.Body, t.oracle.Policy().Strictness)
			if !t.Check(shape) {
				return
			}
			success, isSuccess := env.(*result.SuccessEnvelope)
			if !isSuccess {
				t.Errorf(result.CategoryClassification, "$", "expected a successful resolution result")
				return
			}
			t.Check(oracle.CheckContentType(resp, success.ResolutionMetadata))
		}),
		named("HTTP response body MUST contain the didDocument result of the DID resolution function", func(t *T) {
			body, ok := resolveBody(t, req)
			if !ok {
				return
			}
			obj, _ := body.(map[string]any)
			if _, isObject := obj[result.FieldDocument].(map[string]any); !isObject {
				t.Errorf(result.CategorySchema, "$."+result.FieldDocument, "must be an object")
			}
		}),
		named("If Accept is set to a DID representation media type, response body MUST contain only the didDocument", func(t *T) {
			bareRepresentation(t, req)
		}),
		named("GET binding: resolver MUST accept URL-encoded DIDs", func(t *T) {
			u, ok := t.compose(binding.ResourceURL(t.impl.Endpoint, binding.EncodeComponent(req.DID)), binding.OptionsFromMap(req.ResolutionOptions))
			if !ok {
				return
			}
			resp, ok := t.Get(u, binding.MediaTypeDIDResolution)
			if !ok || !requireOK(t, resp) {
				return
			}
			body, decoded := result.Decode(resp.Body)
			if !t.Check(decoded) {
				return
			}
			t.Check(result.ValidateSuccessResult(body))
		}),
	}
}

// resolveBody resolves req and decodes a 2xx body.
func resolveBody(t *T, req config.ResolutionRequest) (any, bool) {
	resp, ok := resolve(t, req)
	if !ok || !requireOK(t, resp) {
		return nil, false
	}
	body, decoded := result.Decode(resp.Body)
	return body, t.Check(decoded)
}

func requireOK(t *T, resp *binding.Response) bool {
	if resp.OK() {
		return true
	}
	t.add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: "2xx", Actual: strconv.Itoa(resp.StatusCode),
		Message: "expected a successful response"})
	return false
}

// bareRepresentation tries each representation media type and judges the first one the resolver serves. A resolver
// serving none of them passes vacuously.
func bareRepresentation(t *T, req config.ResolutionRequest) {
	u, ok := t.resolutionURL(req, nil)
	if !ok {
		return
	}
	for _, mediaType := range binding.RepresentationMediaTypes {
		resp, ok := t.Get(u, mediaType)
		if !ok {
			return
		}
		if resp.StatusCode == result.RepresentationNotSupported.HTTPStatus() || !resp.OK() {
			continue
		}
		v := t.oracle.ExpectRepresentation(resp, mediaType)
		t.Check(v.Outcome)
		if body, decoded := result.Decode(resp.Body); decoded.OK() {
			if obj, isObject := body.(map[string]any); isObject {
				if _, wrapped := obj[result.FieldResolutionMetadata]; wrapped {
					t.Errorf(result.CategoryBinding, "$."+result.FieldResolutionMetadata,
						"a bare %s representation must not be wrapped in a resolution result", mediaType)
				}
			}
		}
		return
	}
}

func dereferencingScenarios(urls []config.DerefURL) []Scenario {
	if len(urls) == 0 {
		return []Scenario{skipped("DID URL dereferencing binding", "deref_urls")}
	}
	var scenarios []Scenario
	for _, u := range urls {
		u := u
		named := func(name string, run func(t *T, url string)) Scenario {
			return bindingScenario(fmt.Sprintf("%s (%s)", name, u.DIDURL), func(t *T) {
				url, ok := t.dereferencingURL(u)
				if !ok {
					return
				}
				run(t, url)
			})
		}
		scenarios = append(scenarios,
			named("If Accept is application/did-url-dereferencing, HTTP body MUST contain a DID URL dereferencing result", func(t *T, url string) {
				resp, ok := t.Get(url, binding.MediaTypeDIDURLDereferencing)
				if !ok || !requireOK(t, resp) {
					return
				}
				body, decoded := result.Decode(resp.Body)
				if !t.Check(decoded) {
					return
				}
				t.Check(result.ValidateDereferencingResult(body))
			}),
			named("If DID URL dereferencing returns a non-uri-list contentStream, HTTP status MUST be 200", func(t *T, url string) {
				resp, ok := t.GetManual(url, binding.MediaTypeDIDURLDereferencing)
				if !ok || resp.StatusCode == result.StatusServiceRedirect {
					return
				}
				t.Check(oracle.ExpectStatus(resp, 200))
			}),
			named("If DID URL dereferencing succeeds, Content-Type MUST equal contentType in dereferencingMetadata", func(t *T, url string) {
				resp, ok := t.Get(url, binding.MediaTypeDIDURLDereferencing)
				if !ok || resp.StatusCode != 200 {
					return
				}
				env, shape := result.Parse(resp.Body, t.oracle.Policy().Strictness)
				if !t.Check(shape) {
					return
				}
				deref, isDeref := env.(*result.DereferencingEnvelope)
				if !isDeref {
					t.Errorf(result.CategoryClassification, "$", "expected a successful dereferencing result")
					return
				}
				t.Check(oracle.CheckContentType(resp, deref.DereferencingMetadata))
			}),
			named("HTTP response body MUST contain the contentStream from DID URL dereferencing", func(t *T, url string) {
				resp, ok := t.Get(url, binding.MediaTypeDIDURLDereferencing)
				if !ok || resp.StatusCode != 200 {
					return
				}
				if len(strings.TrimSpace(string(resp.Body))) == 0 {
					t.Errorf(result.CategoryBinding, "body", "response body must not be empty")
				}
			}),
			named("If Accept is set to a content media type, response body MUST contain only the contentStream", func(t *T, url string) {
				resp, ok := t.Get(url, binding.MediaTypeJSON)
				if !ok || resp.StatusCode == result.RepresentationNotSupported.HTTPStatus() || !resp.OK() {
					return
				}
				body, decoded := result.Decode(resp.Body)
				if !t.Check(decoded) {
					return
				}
				if obj, isObject := body.(map[string]any); isObject {
					if _, wrapped := obj[result.FieldDereferencingMetadata]; wrapped {
						t.Errorf(result.CategoryBinding, "$."+result.FieldDereferencingMetadata,
							"bare content must not be wrapped in a dereferencing result")
					}
				}
			}),
		)
	}
	return scenarios
}

func serviceDereferencingScenarios(urls []config.ServiceDerefURL) []Scenario {
	if len(urls) == 0 {
		return []Scenario{skipped("service endpoint redirect", "service_deref_urls")}
	}
	var scenarios []Scenario
	for _, u := range urls {
		u := u
		named := func(name string, run func(t *T, resp *binding.Response)) Scenario {
			return bindingScenario(fmt.Sprintf("%s (%s)", name, u.DIDURL), func(t *T) {
				resp, ok := t.GetManual(binding.ResourceURL(t.impl.Endpoint, binding.EncodeComponent(u.DIDURL)), binding.MediaTypeDIDURLDereferencing)
				if !ok || !t.Check(oracle.ExpectStatus(resp, result.StatusServiceRedirect)) {
					return
				}
				run(t, resp)
			})
		}
		scenarios = append(scenarios,
			named("If contentType is text/uri-list, HTTP response status MUST be 303", func(*T, *binding.Response) {}),
			named("If 303 response, HTTP response MUST contain a Location header with the selected DID service endpoint URL", func(t *T, resp *binding.Response) {
				if resp.Location() == "" {
					t.add(result.Violation{Category: result.CategoryBinding, Field: "Location", Expected: "header present", Actual: "absent",
						Message: "a 303 response MUST carry a Location header"})
				}
			}),
			named("If 303 response, HTTP response body MUST be empty", func(t *T, resp *binding.Response) {
				if len(resp.Body) != 0 {
					t.add(result.Violation{Category: result.CategoryBinding, Field: "body", Expected: "empty", Actual: strconv.Itoa(len(resp.Body)) + " bytes",
						Message: "a 303 response MUST NOT carry a body"})
				}
			}),
		)
	}
	return scenarios
}
