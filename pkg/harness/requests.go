package harness

import (
	"strings"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

// resolutionURL is the binding URL resolving req, with its resolution options plus extra.
func (t *T) resolutionURL(req config.ResolutionRequest, extra binding.Options) (string, bool) {
	return t.compose(binding.ResourceURL(t.impl.Endpoint, req.DID), append(binding.OptionsFromMap(req.ResolutionOptions), extra...))
}

// dereferencingURL is the binding URL dereferencing u. The DID URL is URL-encoded when options are sent or when it
// carries a query or fragment, which would otherwise be read as part of the HTTP URL.
func (t *T) dereferencingURL(u config.DerefURL) (string, bool) {
	opts := binding.OptionsFromMap(u.DereferencingOptions)
	didURL := u.DIDURL
	if len(opts) > 0 || strings.ContainsAny(didURL, "?#") {
		didURL = binding.EncodeComponent(didURL)
	}
	return t.compose(binding.ResourceURL(t.impl.Endpoint, didURL), opts)
}

func (t *T) compose(base string, opts binding.Options) (string, bool) {
	u, err := binding.ComposeURL(base, opts)
	if err != nil {
		t.Errorf(result.CategoryHarness, "endpoint", "could not build request url: %s", err)
		return "", false
	}
	return u, true
}

// firstValid is the request the parameter and representation scenarios build on.
func firstValid(impl config.Implementation) (config.ResolutionRequest, bool) {
	if len(impl.SupportedDIDs.Valid) == 0 {
		return config.ResolutionRequest{}, false
	}
	return impl.SupportedDIDs.Valid[0], true
}

// checkRoundTrip requires the resolved document id to be the requested DID. Without a resolution result there is
// no document to compare; that is a violation unless the scenario already failed for it.
func (t *T) checkRoundTrip(env result.Envelope, did string) {
	success, ok := env.(*result.SuccessEnvelope)
	if !ok {
		if !t.Failed() {
			t.add(result.Violation{Category: result.CategoryClassification, Field: "$." + result.FieldDocument, Expected: did,
				Actual: "no resolution result", Message: "resolved document id could not be compared with the requested DID"})
		}
		return
	}
	if id := success.DocumentID(); id != did {
		t.add(result.Violation{Category: result.CategorySchema, Field: "$.didDocument.id", Expected: did, Actual: id,
			Message: "resolved document id must be the requested DID"})
	}
}

// isAccepted is true for the statuses a resolver may answer a valid, non-rejected request with.
func isAccepted(status int) bool {
	return status == 200 || status == result.StatusServiceRedirect
}
