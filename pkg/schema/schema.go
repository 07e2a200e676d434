// Package schema validates DID documents against a JSON Schema.
package schema

import (
	"bytes"
	_ "embed"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

const documentSchemaURL = "did-document.schema.json"

//go:embed did-document.schema.json
var documentSchema []byte

// DocumentValidator checks a decoded DID document and reports violations under the given field path.
type DocumentValidator interface {
	ValidateDocument(doc any, field string) result.Outcome
}

// Validator is a DocumentValidator backed by a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the bundled DID document schema.
func NewValidator() (*Validator, error) {
	return NewValidatorFromSchema(documentSchema)
}

// NewValidatorFromSchema compiles a caller supplied DID document schema.
func NewValidatorFromSchema(schemaJSON []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(documentSchemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, errors.Wrap(err, "adding DID document schema")
	}
	s, err := compiler.Compile(documentSchemaURL)
	if err != nil {
		return nil, errors.Wrap(err, "compiling DID document schema")
	}
	return &Validator{schema: s}, nil
}

// ValidateDocument validates doc and converts every leaf schema error into a schema violation.
func (v *Validator) ValidateDocument(doc any, field string) result.Outcome {
	var out result.Outcome
	err := v.schema.Validate(doc)
	if err == nil {
		return out
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		logrus.WithError(err).Warn("DID document schema validation failed unexpectedly")
		out.Addf(result.CategorySchema, field, "schema validation failed: %s", err.Error())
		return out
	}

	for _, e := range ve.BasicOutput().Errors {
		// The basic output also lists the wrapping errors of every subschema; only leaves carry a useful message.
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		out.Add(result.Violation{
			Category: result.CategorySchema,
			Field:    instancePath(field, e.InstanceLocation),
			Message:  e.Error,
		})
	}
	if out.OK() {
		out.Addf(result.CategorySchema, field, "%s", ve.Message)
	}
	return out
}

// instancePath joins a JSON pointer instance location onto a dotted field path.
func instancePath(field, pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return field
	}
	return field + "." + strings.ReplaceAll(pointer, "/", ".")
}

// Minimal is a DocumentValidator that applies only the id and @context checks of the result package.
type Minimal struct{}

func (Minimal) ValidateDocument(doc any, field string) result.Outcome {
	return result.ValidateDocument(doc, field)
}
