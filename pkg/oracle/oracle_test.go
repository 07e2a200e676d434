package oracle

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
	"github.com/tbd54566975/did-resolution-conformance/pkg/schema"
)

const (
	successBody = `{"didResolutionMetadata":{"contentType":"application/did-resolution"},"didDocument":{"@context":"https://www.w3.org/ns/did/v1","id":"did:example:123"},"didDocumentMetadata":{}}`
	notFoundURI = `{"didResolutionMetadata":{"error":{"type":"https://www.w3.org/ns/did#NOT_FOUND"}},"didDocument":null,"didDocumentMetadata":{}}`
)

func response(status int, contentType, body string) *binding.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &binding.Response{StatusCode: status, Header: header, Body: []byte(body)}
}

func categories(out result.Outcome) []result.Category {
	var cs []result.Category
	for _, v := range out.Violations {
		cs = append(cs, v.Category)
	}
	return cs
}

func TestClassify(t *testing.T) {
	o := New(DefaultPolicy())

	t.Run("success", func(tt *testing.T) {
		v := o.Classify(response(200, "application/did-resolution; charset=utf-8", successBody))
		assert.True(tt, v.OK(), v.Err())
		assert.Equal(tt, VerdictSuccess, v.Kind)
		env, ok := v.Envelope.(*result.SuccessEnvelope)
		require.True(tt, ok)
		assert.Equal(tt, "did:example:123", env.DocumentID())
	})

	t.Run("content type must match the metadata", func(tt *testing.T) {
		v := o.Classify(response(200, "application/json", successBody))
		assert.Equal(tt, VerdictSuccess, v.Kind)
		require.Len(tt, v.Violations, 1)
		assert.Equal(tt, result.CategoryBinding, v.Violations[0].Category)
		assert.Equal(tt, "Content-Type", v.Violations[0].Field)

		v = o.Classify(response(200, "", successBody))
		assert.Equal(tt, "absent", v.Violations[0].Actual)
	})

	t.Run("missing contentType metadata", func(tt *testing.T) {
		v := o.Classify(response(200, "application/did-resolution", `{"didResolutionMetadata":{},"didDocument":{"@context":"https://www.w3.org/ns/did/v1","id":"did:example:123"},"didDocumentMetadata":{}}`))
		assert.Equal(tt, []result.Category{result.CategoryBinding}, categories(v.Outcome))
	})

	t.Run("error spelled as uri with matching status", func(tt *testing.T) {
		v := o.Classify(response(404, "application/did-resolution", notFoundURI))
		assert.True(tt, v.OK(), v.Err())
		assert.Equal(tt, VerdictError, v.Kind)
		assert.Equal(tt, result.NotFound, v.ErrorKind)
		_, ok := v.Envelope.(*result.ErrorEnvelope)
		assert.True(tt, ok)
	})

	t.Run("status mismatch is a binding violation", func(tt *testing.T) {
		v := o.Classify(response(400, "application/did-resolution", notFoundURI))
		assert.Equal(tt, VerdictError, v.Kind)
		require.Len(tt, v.Violations, 1)
		assert.Equal(tt, result.CategoryBinding, v.Violations[0].Category)
		assert.Equal(tt, "404", v.Violations[0].Expected)
		assert.Equal(tt, "400", v.Violations[0].Actual)
	})

	t.Run("every kind at its status", func(tt *testing.T) {
		for _, kind := range result.ErrorKinds() {
			body := `{"didResolutionMetadata":{"error":{"type":"` + kind.String() + `"}},"didDocument":null,"didDocumentMetadata":{}}`
			v := o.Classify(response(kind.HTTPStatus(), "application/did-resolution", body))
			assert.True(tt, v.OK(), "%s: %v", kind, v.Err())
			assert.Equal(tt, kind, v.ErrorKind)
		}
	})

	t.Run("unknown error type", func(tt *testing.T) {
		v := o.Classify(response(404, "", `{"didResolutionMetadata":{"error":{"type":"notFound"}},"didDocument":null,"didDocumentMetadata":{}}`))
		assert.Equal(tt, VerdictUnclassified, v.Kind)
		assert.Equal(tt, []result.Category{result.CategoryClassification}, categories(v.Outcome))
	})

	t.Run("error without type", func(tt *testing.T) {
		v := o.Classify(response(400, "", `{"didResolutionMetadata":{"error":{"title":"bad"}},"didDocument":null,"didDocumentMetadata":{}}`))
		assert.Equal(tt, VerdictUnclassified, v.Kind)
		assert.True(tt, v.Has(result.CategorySchema))
		assert.True(tt, v.Has(result.CategoryClassification))
	})

	t.Run("error with document is a schema violation", func(tt *testing.T) {
		v := o.Classify(response(404, "", `{"didResolutionMetadata":{"error":{"type":"NOT_FOUND"}},"didDocument":{},"didDocumentMetadata":{}}`))
		assert.Equal(tt, VerdictError, v.Kind)
		assert.Equal(tt, []result.Category{result.CategorySchema}, categories(v.Outcome))
	})

	t.Run("error status without error object", func(tt *testing.T) {
		v := o.Classify(response(500, "text/plain", "internal server error"))
		assert.Equal(tt, VerdictUnclassified, v.Kind)
		assert.True(tt, v.Has(result.CategorySchema))
		assert.True(tt, v.Has(result.CategoryClassification))

		v = o.Classify(response(404, "application/json", `{}`))
		assert.Equal(tt, []result.Category{result.CategoryClassification}, categories(v.Outcome))
	})

	t.Run("unexpected success status", func(tt *testing.T) {
		v := o.Classify(response(204, "", `{}`))
		assert.Equal(tt, []result.Category{result.CategoryBinding}, categories(v.Outcome))
	})

	t.Run("redirect", func(tt *testing.T) {
		resp := response(303, "", "")
		resp.Header.Set("Location", "https://example.com")
		v := o.Classify(resp)
		assert.Equal(tt, VerdictRedirect, v.Kind)
		assert.True(tt, v.OK())

		v = o.Classify(response(303, "", "see other"))
		assert.Equal(tt, VerdictRedirect, v.Kind)
		assert.Len(tt, v.Violations, 2)
	})

	t.Run("deactivated stands alone", func(tt *testing.T) {
		v := o.Classify(response(410, "", `{"anything":true}`))
		assert.Equal(tt, VerdictDeactivated, v.Kind)
		assert.True(tt, v.OK())
	})

	t.Run("dereferencing result", func(tt *testing.T) {
		v := o.Classify(response(200, "application/did+json", `{"dereferencingMetadata":{"contentType":"application/did+json"},"contentStream":{"id":"did:example:123#key-1"},"contentMetadata":{}}`))
		assert.True(tt, v.OK(), v.Err())
		assert.Equal(tt, VerdictSuccess, v.Kind)

		v = o.Classify(response(400, "", `{"dereferencingMetadata":{"error":{"type":"INVALID_DID_URL"}},"contentStream":null,"contentMetadata":{}}`))
		assert.True(tt, v.OK(), v.Err())
		assert.Equal(tt, result.InvalidDIDURL, v.ErrorKind)
	})
}

func TestClassifyStrictness(t *testing.T) {
	body := `{"didResolutionMetadata":{"error":{"type":"NOT_FOUND"}},"didDocument":null,"didDocumentMetadata":{"created":"2020"}}`

	strict := New(DefaultPolicy()).Classify(response(404, "", body))
	assert.Equal(t, []result.Category{result.CategorySchema}, categories(strict.Outcome))

	lenientPolicy := DefaultPolicy()
	lenientPolicy.Strictness = result.LenientMetadata
	lenient := New(lenientPolicy).Classify(response(404, "", body))
	assert.True(t, lenient.OK())
}

func TestClassifyWithDocumentSchema(t *testing.T) {
	validator, err := schema.NewValidator()
	require.NoError(t, err)
	policy := DefaultPolicy()
	policy.Documents = validator

	body := `{"didResolutionMetadata":{"contentType":"application/did-resolution"},"didDocument":{"@context":"https://www.w3.org/ns/did/v1","id":"did:example:123","service":[{"id":"#s"}]},"didDocumentMetadata":{}}`
	v := New(policy).Classify(response(200, "application/did-resolution", body))
	assert.Equal(t, VerdictSuccess, v.Kind)
	assert.True(t, v.Has(result.CategorySchema))
}

func TestExpect(t *testing.T) {
	o := New(DefaultPolicy())

	t.Run("expect error of another kind", func(tt *testing.T) {
		v := o.ExpectError(response(404, "", notFoundURI), result.InvalidDID)
		assert.Equal(tt, []result.Category{result.CategoryClassification}, categories(v.Outcome))
	})

	t.Run("expect error but got success", func(tt *testing.T) {
		v := o.ExpectError(response(200, "application/did-resolution", successBody), result.InvalidDID)
		assert.Equal(tt, []result.Category{result.CategoryClassification}, categories(v.Outcome))
	})

	t.Run("expect error but got an unclassified status", func(tt *testing.T) {
		v := o.ExpectError(response(500, "", "oops"), result.InvalidDID)
		assert.True(tt, v.Has(result.CategoryBinding))
	})

	t.Run("expect success", func(tt *testing.T) {
		v := o.ExpectSuccess(response(200, "application/did-resolution", successBody))
		assert.True(tt, v.OK())

		v = o.ExpectSuccess(response(404, "", notFoundURI))
		assert.Equal(tt, []result.Category{result.CategoryClassification}, categories(v.Outcome))
	})

	t.Run("expect resolution success", func(tt *testing.T) {
		v := o.ExpectResolutionSuccess(response(200, "application/did-resolution", successBody))
		assert.True(tt, v.OK(), v.Err())

		// a dereferencing envelope answering a resolution request, with a null document
		mixed := `{"dereferencingMetadata":{"contentType":"application/did-resolution"},"contentStream":"x","contentMetadata":{},` +
			`"didResolutionMetadata":{},"didDocument":null,"didDocumentMetadata":{}}`
		v = o.ExpectResolutionSuccess(response(200, "application/did-resolution", mixed))
		assert.False(tt, v.OK())
		assert.Contains(tt, categories(v.Outcome), result.CategoryClassification)

		v = o.ExpectResolutionSuccess(response(404, "", notFoundURI))
		assert.Equal(tt, []result.Category{result.CategoryClassification}, categories(v.Outcome))
	})

	t.Run("expect status", func(tt *testing.T) {
		assert.True(tt, ExpectStatus(response(400, "", ""), 400).OK())
		assert.False(tt, ExpectStatus(response(200, "", ""), 400).OK())
	})
}

func TestExpectRepresentationNotSupported(t *testing.T) {
	notSupported := `{"didResolutionMetadata":{"error":{"type":"REPRESENTATION_NOT_SUPPORTED"}},"didDocument":null,"didDocumentMetadata":{}}`

	o := New(DefaultPolicy())
	v := o.ExpectRepresentationNotSupported(response(200, "application/did+json", `{"id":"did:example:123"}`))
	assert.Equal(t, VerdictAcceptableAlternate, v.Kind)
	assert.True(t, v.OK())

	v = o.ExpectRepresentationNotSupported(response(406, "application/did-resolution", notSupported))
	assert.Equal(t, VerdictError, v.Kind)
	assert.True(t, v.OK(), v.Err())

	v = o.ExpectRepresentationNotSupported(response(400, "application/did-resolution", notSupported))
	assert.True(t, v.Has(result.CategoryBinding))

	policy := DefaultPolicy()
	policy.AllowRepresentationFallback = false
	v = New(policy).ExpectRepresentationNotSupported(response(200, "application/did+json", `{"id":"did:example:123"}`))
	assert.Equal(t, VerdictUnclassified, v.Kind)
	assert.True(t, v.Has(result.CategoryBinding))
}

func TestExpectRepresentation(t *testing.T) {
	o := New(DefaultPolicy())

	v := o.ExpectRepresentation(response(200, "application/did+json", `{"@context":"https://www.w3.org/ns/did/v1","id":"did:example:123"}`), binding.MediaTypeDIDJSON)
	assert.Equal(t, VerdictSuccess, v.Kind)

	v = o.ExpectRepresentation(response(200, "application/did-resolution", successBody), binding.MediaTypeDIDJSON)
	assert.Len(t, v.Violations, 3)

	v = o.ExpectRepresentation(response(406, "", ""), binding.MediaTypeDIDJSON)
	assert.Equal(t, []result.Category{result.CategoryBinding}, categories(v.Outcome))
}

func TestClassifyOverHTTP(t *testing.T) {
	defer gock.Off()
	gock.New("https://resolver.example").
		Get("/1.0/identifiers/did:example:123").
		MatchHeader("Accept", "application/did-resolution").
		Reply(200).
		SetHeader("Content-Type", "application/did-resolution").
		BodyString(successBody)

	client := binding.NewClient(0)
	resp, err := client.Get(context.Background(), binding.Request{
		URL:    "https://resolver.example/1.0/identifiers/did:example:123",
		Accept: binding.MediaTypeDIDResolution,
	})
	require.NoError(t, err)

	v := New(DefaultPolicy()).ExpectSuccess(resp)
	assert.True(t, v.OK(), v.Err())
	assert.True(t, gock.IsDone())
}

func TestExpectErrorOneOf(t *testing.T) {
	o := New(DefaultPolicy())
	invalidURL := `{"didResolutionMetadata":{"error":{"type":"INVALID_DID_URL"}},"didDocument":null,"didDocumentMetadata":{}}`

	v := o.ExpectErrorOneOf(response(400, "", invalidURL), result.InvalidOptions, result.InvalidDIDURL)
	assert.True(t, v.OK(), v.Err())

	v = o.ExpectErrorOneOf(response(404, "", notFoundURI), result.InvalidOptions, result.InvalidDIDURL)
	require.Len(t, v.Violations, 1)
	assert.Equal(t, "INVALID_OPTIONS or INVALID_DID_URL", v.Violations[0].Expected)

	v = o.ExpectErrorOneOf(response(200, "application/did-resolution", successBody))
	assert.True(t, v.OK())
}
