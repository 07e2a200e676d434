package result

import (
	"github.com/goccy/go-json"
)

// Envelope is the typed form of a parsed response body. It is one of SuccessEnvelope, ErrorEnvelope,
// DereferencingEnvelope or DereferencingErrorEnvelope.
type Envelope interface {
	isEnvelope()
}

// Metadata is a metadata structure as returned by a resolver.
type Metadata map[string]any

// ContentType returns the contentType metadata property, if it is a string.
func (m Metadata) ContentType() string {
	ct, _ := m[FieldContentType].(string)
	return ct
}

// Deactivated reports whether the deactivated metadata property is true.
func (m Metadata) Deactivated() bool {
	d, _ := m["deactivated"].(bool)
	return d
}

// ErrorDescriptor is the value of a metadata error property.
type ErrorDescriptor struct {
	// Type is the error type exactly as the resolver spelled it.
	Type string
	// Kind is the normalized kind; empty when Type is not a known kind.
	Kind   ErrorKind
	Title  string
	Detail string
}

// Known reports whether Type normalized to a known kind.
func (e ErrorDescriptor) Known() bool {
	return e.Kind != ""
}

// SuccessEnvelope is a DID resolution result carrying a document.
type SuccessEnvelope struct {
	ResolutionMetadata Metadata
	Document           map[string]any
	DocumentMetadata   Metadata
}

// DocumentID returns the didDocument id, if it is a string.
func (e *SuccessEnvelope) DocumentID() string {
	id, _ := e.Document["id"].(string)
	return id
}

// ErrorEnvelope is a DID resolution result whose metadata carries an error.
type ErrorEnvelope struct {
	ResolutionMetadata Metadata
	Error              ErrorDescriptor
	DocumentMetadata   Metadata
}

// DereferencingEnvelope is a DID URL dereferencing result carrying a content stream.
type DereferencingEnvelope struct {
	DereferencingMetadata Metadata
	ContentStream         any
	ContentMetadata       Metadata
}

// DereferencingErrorEnvelope is a DID URL dereferencing result whose metadata carries an error.
type DereferencingErrorEnvelope struct {
	DereferencingMetadata Metadata
	Error                 ErrorDescriptor
	ContentMetadata       Metadata
}

func (*SuccessEnvelope) isEnvelope()            {}
func (*ErrorEnvelope) isEnvelope()              {}
func (*DereferencingEnvelope) isEnvelope()      {}
func (*DereferencingErrorEnvelope) isEnvelope() {}

// Decode parses a raw body into generic JSON values. Explicit nulls stay present as nil values.
func Decode(body []byte) (any, Outcome) {
	var out Outcome
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		out.Add(Violation{Category: CategorySchema, Field: "$", Expected: "JSON", Actual: "unparseable body", Message: err.Error()})
		return nil, out
	}
	return v, out
}

// Parse decodes body and classifies it into an Envelope in one step. It fails closed: any field not matching its
// expected type is reported as a violation and a nil Envelope is returned when the shape cannot be determined.
func Parse(body []byte, strictness Strictness) (Envelope, Outcome) {
	v, out := Decode(body)
	if !out.OK() {
		return nil, out
	}
	env, shape := ParseValue(v, strictness)
	out.Merge(shape)
	return env, out
}

// ParseValue is Parse for an already decoded body.
func ParseValue(v any, strictness Strictness) (Envelope, Outcome) {
	var out Outcome
	obj, ok := requireRoot(&out, v)
	if !ok {
		return nil, out
	}

	if _, deref := obj[FieldDereferencingMetadata]; deref {
		meta, _ := obj[FieldDereferencingMetadata].(map[string]any)
		if errValue, failed := meta[FieldError]; failed {
			out.Merge(ValidateDereferencingErrorResult(obj, "", strictness))
			desc, ok := ParseErrorDescriptor(errValue)
			if !ok {
				return nil, out
			}
			contentMeta, _ := obj[FieldContentMetadata].(map[string]any)
			return &DereferencingErrorEnvelope{DereferencingMetadata: meta, Error: desc, ContentMetadata: contentMeta}, out
		}
		out.Merge(ValidateDereferencingResult(obj))
		if !out.OK() {
			return nil, out
		}
		return &DereferencingEnvelope{
			DereferencingMetadata: meta,
			ContentStream:         obj[FieldContentStream],
			ContentMetadata:       obj[FieldContentMetadata].(map[string]any),
		}, out
	}

	meta, _ := obj[FieldResolutionMetadata].(map[string]any)
	if errValue, failed := meta[FieldError]; failed {
		out.Merge(ValidateErrorResult(obj, "", strictness))
		desc, ok := ParseErrorDescriptor(errValue)
		if !ok {
			return nil, out
		}
		docMeta, _ := obj[FieldDocumentMetadata].(map[string]any)
		return &ErrorEnvelope{ResolutionMetadata: meta, Error: desc, DocumentMetadata: docMeta}, out
	}

	out.Merge(ValidateSuccessResult(obj))
	if !out.OK() {
		return nil, out
	}
	return &SuccessEnvelope{
		ResolutionMetadata: meta,
		Document:           obj[FieldDocument].(map[string]any),
		DocumentMetadata:   obj[FieldDocumentMetadata].(map[string]any),
	}, out
}

// ParseErrorDescriptor reads an error object. It returns false when v is not an object with a string type.
func ParseErrorDescriptor(v any) (ErrorDescriptor, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return ErrorDescriptor{}, false
	}
	t, ok := obj["type"].(string)
	if !ok {
		return ErrorDescriptor{}, false
	}
	desc := ErrorDescriptor{Type: t}
	if kind, known := ParseErrorKind(t); known {
		desc.Kind = kind
	}
	desc.Title, _ = obj["title"].(string)
	desc.Detail, _ = obj["detail"].(string)
	return desc, true
}
