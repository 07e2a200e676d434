package harness

import (
	"fmt"
	"strconv"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/corpus"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

// rejectedParameterKinds are the error kinds a resolver may use to reject a malformed DID parameter.
var rejectedParameterKinds = []result.ErrorKind{result.InvalidOptions, result.InvalidDIDURL}

// control is a valid value sent after a corpus sweep to show the resolver did not simply reject the parameter.
type control struct {
	value string
	// success requires a conformant successful resolution result rather than any accepted status.
	success bool
}

type parameterCheck struct {
	name    string
	param   string
	link    string
	inputs  []string
	control *control
}

func parameterChecks() []parameterCheck {
	return []parameterCheck{
		{
			name: "service parameter MUST be an ASCII string", param: corpus.ParamService, link: linkService,
			inputs: corpus.NonASCIIStrings(), control: &control{value: corpus.ValidService},
		},
		{
			name: "serviceType parameter MUST be an ASCII string", param: corpus.ParamServiceType, link: linkServiceType,
			inputs: corpus.NonASCIIStrings(), control: &control{value: corpus.ValidServiceType},
		},
		{
			name: "relativeRef parameter MUST be an ASCII string", param: corpus.ParamRelativeRef, link: linkRelativeRef,
			inputs: corpus.NonASCIIStrings(),
		},
		{
			name: "relativeRef parameter MUST be percent-encoded", param: corpus.ParamRelativeRef, link: linkRelativeRef,
			inputs: corpus.NonPercentEncodedRelativeRefs(), control: &control{value: corpus.PercentEncodedRelativeRef},
		},
		{
			name: "versionId parameter MUST be an ASCII string", param: corpus.ParamVersionID, link: linkVersionID,
			inputs: corpus.NonASCIIStrings(),
		},
		{
			name: "versionTime parameter MUST be an ASCII string", param: corpus.ParamVersionTime, link: linkVersionTime,
			inputs: corpus.NonASCIIStrings(),
		},
		{
			name: "versionTime parameter MUST be a valid XML datetime", param: corpus.ParamVersionTime, link: linkXMLDateTime,
			inputs: corpus.InvalidXMLDateTimes(),
		},
		{
			name: "versionTime parameter MUST be normalized to UTC without sub-second precision", param: corpus.ParamVersionTime,
			link: linkNormalizedTime, inputs: corpus.NonNormalizedDateTimes(),
			control: &control{value: corpus.NormalizedVersionTime, success: true},
		},
		{
			name: "hl parameter MUST be an ASCII string", param: corpus.ParamHashLink, link: linkHashLink,
			inputs: corpus.NonASCIIStrings(),
		},
	}
}

// ParametersSuite sweeps the negative-input corpus through every DID parameter of the first valid DID.
func ParametersSuite(impl config.Implementation) []Scenario {
	req, ok := firstValid(impl)
	if !ok {
		return nil
	}
	var scenarios []Scenario
	for _, check := range parameterChecks() {
		check := check
		scenarios = append(scenarios, Scenario{
			Suite: SuiteParameters,
			Name:  check.name,
			Link:  check.link,
			Run:   func(t *T) { runParameterCheck(t, req, check) },
		})
	}
	return scenarios
}

func runParameterCheck(t *T, req config.ResolutionRequest, check parameterCheck) {
	for _, input := range check.inputs {
		u, ok := t.resolutionURL(req, binding.Options{{Name: check.param, Value: input}})
		if !ok {
			return
		}
		resp, ok := t.Get(u, binding.MediaTypeDIDResolution)
		if !ok {
			continue
		}
		t.CheckInput(input, t.oracle.ExpectErrorOneOf(resp, rejectedParameterKinds...).Outcome)
	}

	if check.control == nil {
		return
	}
	u, ok := t.resolutionURL(req, binding.Options{{Name: check.param, Value: check.control.value}})
	if !ok {
		return
	}
	if !check.control.success {
		// service selection may legitimately answer with a redirect to the service endpoint
		resp, ok := t.GetManual(u, binding.MediaTypeDIDResolution)
		if !ok {
			return
		}
		if !isAccepted(resp.StatusCode) {
			t.add(result.Violation{Category: result.CategoryBinding, Field: "status", Expected: "200 or 303", Actual: strconv.Itoa(resp.StatusCode),
				Message: fmt.Sprintf("valid %s value %q must not be rejected", check.param, check.control.value)})
		}
		return
	}
	resp, ok := t.Get(u, binding.MediaTypeDIDResolution)
	if !ok {
		return
	}
	t.CheckInput(check.control.value, t.oracle.ExpectResolutionSuccess(resp).Outcome)
}
