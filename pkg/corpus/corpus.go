// Package corpus holds the fixed negative inputs used to drive the negative-path scenarios, grouped by the rule
// each input violates, together with the positive controls the scenarios pair them with.
//
// Every accessor returns a fresh slice so the same corpus can be reused across resolvers and runs without mutation.
package corpus

// Rule names the normative requirement a group of inputs violates.
type Rule string

const (
	RuleASCII              Rule = "MUST be an ASCII string"
	RulePercentEncoding    Rule = "MUST use percent-encoding as specified in RFC3986 Section 2.1"
	RuleXMLDateTime        Rule = "MUST be a valid XML datetime value"
	RuleNormalizedDateTime Rule = "MUST be normalized to UTC 00:00:00 without sub-second decimal precision"
	RuleConformantDID      Rule = "MUST be a conformant DID"
	RuleMediaType          Rule = "Media Type MUST be expressed as an ASCII string"
)

// Positive controls, paired with the negative inputs above.
const (
	ValidService              = "linkedDomain"
	ValidServiceType          = "LinkedDomain"
	PercentEncodedRelativeRef = "my%20path/file"
	NormalizedVersionTime     = "2025-10-07T14:30:00Z"
)

// Resolution and dereferencing parameter names that carry ASCII-only values.
const (
	ParamService     = "service"
	ParamServiceType = "serviceType"
	ParamRelativeRef = "relativeRef"
	ParamVersionID   = "versionId"
	ParamVersionTime = "versionTime"
	ParamHashLink    = "hl"
	ParamAccept      = "accept"
)

var (
	nonASCIIStrings = []string{
		"🔥💥🚫",         // emojis
		"Привет",        // Cyrillic
		"こんにちは",         // Japanese
		"مرحبا",         // Arabic
		"foo\u200Bbar",     // zero-width space
	}

	nonPercentEncodedRelativeRefs = []string{
		"my path/file",         // space not percent-encoded
		"file#section",         // '#' not percent-encoded
		"dir/with?query=value", // '?' not percent-encoded
	}

	invalidXMLDateTimes = []string{
		"2025-10-07 12:30:45",       // space instead of 'T'
		"2025/10/07T12:30:45",       // wrong date separator
		"2025-13-07T12:30:45",       // month 13
		"2025-10-32T12:30:45",       // day 32
		"2025-10-07T25:00:00",       // hour 25
		"2025-10-07T12:30:60",       // second 60
		"2025-10-07T12:30:45+24:00", // timezone offset out of range
		"2025-10-07",                // missing time
		"2025-10-07T12:30:45abc",    // trailing characters
		"T12:30:45",                 // missing date
	}

	nonNormalizedDateTimes = []string{
		"2025-10-07T00:00:00+02:00",     // offset +02:00
		"2025-10-07T00:00:00-05:00",     // offset -05:00
		"2025-10-07T00:00:00",           // no timezone
		"2025-10-07T00:00:00.123Z",      // sub-second precision
		"2025-10-07T00:00:00.999+01:00", // fractional seconds and offset
	}

	unconformantDIDs = []string{
		"not-a-did",
		"did:example",
	}

	badMediaTypes = []string{
		"application/😊",
		"123",
	}
)

// NonASCIIStrings violate every "MUST be an ASCII string" parameter rule.
func NonASCIIStrings() []string { return clone(nonASCIIStrings) }

// NonPercentEncodedRelativeRefs contain reserved characters that RFC3986 requires to be percent-encoded.
func NonPercentEncodedRelativeRefs() []string { return clone(nonPercentEncodedRelativeRefs) }

// InvalidXMLDateTimes are syntactically invalid XSD dateTime values.
func InvalidXMLDateTimes() []string { return clone(invalidXMLDateTimes) }

// NonNormalizedDateTimes are valid XSD dateTime values that are not UTC or carry sub-second precision.
func NonNormalizedDateTimes() []string { return clone(nonNormalizedDateTimes) }

// UnconformantDIDs are not DIDs under the DID 1.0 syntax.
func UnconformantDIDs() []string { return clone(unconformantDIDs) }

// BadMediaTypes are values of the accept option that are not ASCII media types.
func BadMediaTypes() []string { return clone(badMediaTypes) }

// Group is one set of inputs violating a single rule, together with the parameters it applies to.
type Group struct {
	Rule       Rule
	Parameters []string
	Inputs     []string
}

// Groups enumerates the whole corpus in a stable order.
func Groups() []Group {
	return []Group{
		{
			Rule:       RuleASCII,
			Parameters: []string{ParamService, ParamServiceType, ParamRelativeRef, ParamVersionID, ParamVersionTime, ParamHashLink},
			Inputs:     NonASCIIStrings(),
		},
		{
			Rule:       RulePercentEncoding,
			Parameters: []string{ParamRelativeRef},
			Inputs:     NonPercentEncodedRelativeRefs(),
		},
		{
			Rule:       RuleXMLDateTime,
			Parameters: []string{ParamVersionTime},
			Inputs:     InvalidXMLDateTimes(),
		},
		{
			Rule:       RuleNormalizedDateTime,
			Parameters: []string{ParamVersionTime},
			Inputs:     NonNormalizedDateTimes(),
		},
		{
			Rule:       RuleMediaType,
			Parameters: []string{ParamAccept},
			Inputs:     BadMediaTypes(),
		},
		{
			Rule:   RuleConformantDID,
			Inputs: UnconformantDIDs(),
		},
	}
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
