package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("success envelope", func(tt *testing.T) {
		env, out := Parse([]byte(successBody), StrictMetadata)
		require.True(tt, out.OK(), out.Err())
		success, ok := env.(*SuccessEnvelope)
		require.True(tt, ok)
		assert.Equal(tt, "did:example:123", success.DocumentID())
		assert.Equal(tt, "application/did-resolution", success.ResolutionMetadata.ContentType())
	})

	t.Run("error envelope", func(tt *testing.T) {
		env, out := Parse([]byte(`{"didResolutionMetadata":{"error":{"type":"https://www.w3.org/ns/did#METHOD_NOT_SUPPORTED","title":"unsupported"}},"didDocument":null,"didDocumentMetadata":{}}`), StrictMetadata)
		require.True(tt, out.OK(), out.Err())
		failure, ok := env.(*ErrorEnvelope)
		require.True(tt, ok)
		assert.Equal(tt, MethodNotSupported, failure.Error.Kind)
		assert.True(tt, failure.Error.Known())
		assert.Equal(tt, "unsupported", failure.Error.Title)
	})

	t.Run("unknown error type keeps the envelope", func(tt *testing.T) {
		env, out := Parse([]byte(`{"didResolutionMetadata":{"error":{"type":"notFound"}},"didDocument":null,"didDocumentMetadata":{}}`), StrictMetadata)
		assert.True(tt, out.OK())
		failure, ok := env.(*ErrorEnvelope)
		require.True(tt, ok)
		assert.False(tt, failure.Error.Known())
		assert.Equal(tt, "notFound", failure.Error.Type)
	})

	t.Run("dereferencing envelopes", func(tt *testing.T) {
		env, out := Parse([]byte(`{"dereferencingMetadata":{"contentType":"application/did+json"},"contentStream":{"id":"x"},"contentMetadata":{}}`), StrictMetadata)
		require.True(tt, out.OK(), out.Err())
		deref, ok := env.(*DereferencingEnvelope)
		require.True(tt, ok)
		assert.Equal(tt, "application/did+json", deref.DereferencingMetadata.ContentType())

		env, out = Parse([]byte(`{"dereferencingMetadata":{"error":{"type":"NOT_FOUND"}},"contentStream":null,"contentMetadata":{}}`), StrictMetadata)
		require.True(tt, out.OK(), out.Err())
		_, ok = env.(*DereferencingErrorEnvelope)
		assert.True(tt, ok)
	})

	t.Run("fails closed on garbage", func(tt *testing.T) {
		for _, body := range []string{"", "not json", "null", `"string"`, `{"didResolutionMetadata":{"error":"NOT_FOUND"}}`, `{"didDocument":{"id":1}}`} {
			env, out := Parse([]byte(body), StrictMetadata)
			assert.Nil(tt, env, body)
			assert.False(tt, out.OK(), body)
			assert.True(tt, out.Has(CategorySchema), body)
		}
	})
}

func TestMetadata(t *testing.T) {
	assert.True(t, Metadata{"deactivated": true}.Deactivated())
	assert.False(t, Metadata{"deactivated": "true"}.Deactivated())
	assert.Equal(t, "", Metadata{"contentType": 1}.ContentType())
}
