package result

import (
	"fmt"
)

// Canonical DID context URIs a conformant DID document's @context must carry.
const (
	DIDContextV1  = "https://www.w3.org/ns/did/v1"
	DIDContextV11 = "https://www.w3.org/ns/did/v1.1"
)

// Strictness selects how the metadata of a failed result is judged.
type Strictness int

const (
	// StrictMetadata requires didDocumentMetadata (or contentMetadata) to be exactly {} on error.
	StrictMetadata Strictness = iota
	// LenientMetadata only requires it to be a present object.
	LenientMetadata
)

// Envelope field names.
const (
	FieldResolutionMetadata    = "didResolutionMetadata"
	FieldDocument              = "didDocument"
	FieldDocumentMetadata      = "didDocumentMetadata"
	FieldDereferencingMetadata = "dereferencingMetadata"
	FieldContentStream         = "contentStream"
	FieldContentMetadata       = "contentMetadata"
	FieldError                 = "error"
	FieldContentType           = "contentType"
)

// ValidateSuccessResult checks that body is a DID resolution result of a successful resolution, including that the
// didDocument is a conformant DID document.
func ValidateSuccessResult(body any) Outcome {
	var out Outcome
	obj, ok := requireRoot(&out, body)
	if !ok {
		return out
	}

	requireObject(&out, obj, FieldResolutionMetadata, "$")

	doc, present := obj[FieldDocument]
	switch {
	case !present:
		out.Addf(CategorySchema, path("$", FieldDocument), "is required")
	case doc == nil:
		out.Add(Violation{Category: CategorySchema, Field: path("$", FieldDocument), Expected: "object", Actual: "null",
			Message: "must not be null when resolution is successful"})
	default:
		out.Merge(ValidateDocument(doc, path("$", FieldDocument)))
	}

	requireObject(&out, obj, FieldDocumentMetadata, "$")
	return out
}

// ValidateErrorResult checks that body is a DID resolution result of a failed resolution. When expected is not empty
// the error type must denote that kind in either spelling.
func ValidateErrorResult(body any, expected ErrorKind, strictness Strictness) Outcome {
	var out Outcome
	obj, ok := requireRoot(&out, body)
	if !ok {
		return out
	}

	if meta, ok := requireObject(&out, obj, FieldResolutionMetadata, "$"); ok {
		checkErrorDescriptor(&out, meta, path("$", FieldResolutionMetadata), expected)
	}

	doc, present := obj[FieldDocument]
	switch {
	case !present:
		out.Addf(CategorySchema, path("$", FieldDocument), "is required and MUST be null on error")
	case doc != nil:
		out.Add(Violation{Category: CategorySchema, Field: path("$", FieldDocument), Expected: "null", Actual: typeName(doc),
			Message: "MUST be null on error"})
	}

	checkEmptyMetadata(&out, obj, FieldDocumentMetadata, strictness)
	return out
}

// ValidateDereferencingResult checks that body is a DID URL dereferencing result of a successful dereference.
func ValidateDereferencingResult(body any) Outcome {
	var out Outcome
	obj, ok := requireRoot(&out, body)
	if !ok {
		return out
	}

	if meta, ok := requireObject(&out, obj, FieldDereferencingMetadata, "$"); ok {
		if _, hasError := meta[FieldError]; hasError {
			out.Addf(CategorySchema, path("$", FieldDereferencingMetadata, FieldError), "must be absent when dereferencing is successful")
		}
	}

	stream, present := obj[FieldContentStream]
	switch {
	case !present:
		out.Addf(CategorySchema, path("$", FieldContentStream), "is required")
	case stream == nil:
		out.Add(Violation{Category: CategorySchema, Field: path("$", FieldContentStream), Expected: "value", Actual: "null",
			Message: "must not be null when dereferencing is successful"})
	}

	requireObject(&out, obj, FieldContentMetadata, "$")
	return out
}

// ValidateDereferencingErrorResult checks that body is a DID URL dereferencing result of a failed dereference.
func ValidateDereferencingErrorResult(body any, expected ErrorKind, strictness Strictness) Outcome {
	var out Outcome
	obj, ok := requireRoot(&out, body)
	if !ok {
		return out
	}

	if meta, ok := requireObject(&out, obj, FieldDereferencingMetadata, "$"); ok {
		checkErrorDescriptor(&out, meta, path("$", FieldDereferencingMetadata), expected)
	}

	if stream, present := obj[FieldContentStream]; present && stream != nil {
		out.Add(Violation{Category: CategorySchema, Field: path("$", FieldContentStream), Expected: "null or absent", Actual: typeName(stream),
			Message: "MUST be null on error"})
	}

	checkEmptyMetadata(&out, obj, FieldContentMetadata, strictness)
	return out
}

// ValidateDocument checks the minimal shape of a conformant DID document: a string id and an @context equal to or
// containing the DID context.
func ValidateDocument(doc any, field string) Outcome {
	var out Outcome
	obj, ok := doc.(map[string]any)
	if !ok {
		out.Add(Violation{Category: CategorySchema, Field: field, Expected: "object", Actual: typeName(doc), Message: "DID document must be an object"})
		return out
	}

	id, present := obj["id"]
	switch {
	case !present:
		out.Addf(CategorySchema, path(field, "id"), "is required")
	default:
		if _, isString := id.(string); !isString {
			out.Add(Violation{Category: CategorySchema, Field: path(field, "id"), Expected: "string", Actual: typeName(id), Message: "must be a string"})
		}
	}

	ctx, present := obj["@context"]
	if !present {
		out.Addf(CategorySchema, path(field, "@context"), "is required")
		return out
	}
	if !hasDIDContext(ctx) {
		out.Add(Violation{Category: CategorySchema, Field: path(field, "@context"), Expected: DIDContextV1,
			Actual: fmt.Sprint(ctx), Message: "must be or contain the DID context"})
	}
	return out
}

// ValidateRepresentation checks a bare DID document returned for a representation media type: it must carry an id
// and must not be wrapped in a resolution result.
func ValidateRepresentation(body any) Outcome {
	var out Outcome
	obj, ok := requireRoot(&out, body)
	if !ok {
		return out
	}
	if _, wrapped := obj[FieldResolutionMetadata]; wrapped {
		out.Addf(CategorySchema, path("$", FieldResolutionMetadata), "must be absent when only the didDocument is requested")
	}
	id, present := obj["id"]
	if !present {
		out.Addf(CategorySchema, path("$", "id"), "is required")
	} else if _, isString := id.(string); !isString {
		out.Add(Violation{Category: CategorySchema, Field: path("$", "id"), Expected: "string", Actual: typeName(id), Message: "must be a string"})
	}
	return out
}

func hasDIDContext(ctx any) bool {
	switch c := ctx.(type) {
	case string:
		return isDIDContext(c)
	case []any:
		for _, item := range c {
			if s, ok := item.(string); ok && isDIDContext(s) {
				return true
			}
		}
	}
	return false
}

func isDIDContext(s string) bool {
	return s == DIDContextV1 || s == DIDContextV11
}

func requireRoot(out *Outcome, body any) (map[string]any, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		out.Add(Violation{Category: CategorySchema, Field: "$", Expected: "object", Actual: typeName(body), Message: "body must be a JSON object"})
	}
	return obj, ok
}

func requireObject(out *Outcome, obj map[string]any, key, parent string) (map[string]any, bool) {
	v, present := obj[key]
	if !present {
		out.Addf(CategorySchema, path(parent, key), "is required")
		return nil, false
	}
	child, ok := v.(map[string]any)
	if !ok {
		out.Add(Violation{Category: CategorySchema, Field: path(parent, key), Expected: "object", Actual: typeName(v), Message: "must be an object"})
		return nil, false
	}
	return child, true
}

func checkErrorDescriptor(out *Outcome, meta map[string]any, parent string, expected ErrorKind) {
	errObj, ok := requireObject(out, meta, FieldError, parent)
	if !ok {
		return
	}
	field := path(parent, FieldError, "type")
	t, present := errObj["type"]
	if !present {
		out.Addf(CategorySchema, field, "is required")
		return
	}
	errorType, isString := t.(string)
	if !isString {
		out.Add(Violation{Category: CategorySchema, Field: field, Expected: "string", Actual: typeName(t), Message: "must be a string"})
		return
	}
	if expected != "" && !expected.Matches(errorType) {
		out.Add(Violation{Category: CategoryClassification, Field: field, Expected: expected.String(), Actual: errorType,
			Message: "error type does not match the expected kind"})
	}
}

func checkEmptyMetadata(out *Outcome, obj map[string]any, key string, strictness Strictness) {
	meta, ok := requireObject(out, obj, key, "$")
	if !ok {
		return
	}
	if strictness == StrictMetadata && len(meta) != 0 {
		out.Add(Violation{Category: CategorySchema, Field: path("$", key), Expected: "{}", Actual: fmt.Sprintf("object with %d properties", len(meta)),
			Message: "MUST be empty on error"})
	}
}

func path(parent string, keys ...string) string {
	p := parent
	for _, k := range keys {
		p += "." + k
	}
	return p
}
