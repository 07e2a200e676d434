package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

func TestCheckRoundTrip(t *testing.T) {
	const did = "did:example:123"

	t.Run("matching document id passes", func(tt *testing.T) {
		sc := &T{}
		sc.checkRoundTrip(&result.SuccessEnvelope{Document: map[string]any{"id": did}}, did)
		assert.False(tt, sc.Failed())
	})

	t.Run("different document id is a schema violation", func(tt *testing.T) {
		sc := &T{}
		sc.checkRoundTrip(&result.SuccessEnvelope{Document: map[string]any{"id": did + "-other"}}, did)
		require.Len(tt, sc.outcome.Violations, 1)
		assert.Equal(tt, result.CategorySchema, sc.outcome.Violations[0].Category)
	})

	t.Run("dereferencing result is not silently accepted", func(tt *testing.T) {
		sc := &T{}
		env := &result.DereferencingEnvelope{ContentStream: "x"}
		sc.checkRoundTrip(env, did)
		require.Len(tt, sc.outcome.Violations, 1)
		assert.Equal(tt, result.CategoryClassification, sc.outcome.Violations[0].Category)
	})

	t.Run("missing envelope after an earlier failure adds nothing", func(tt *testing.T) {
		sc := &T{}
		sc.add(result.Violation{Category: result.CategoryTransport, Message: "connection refused"})
		sc.checkRoundTrip(nil, did)
		assert.Len(tt, sc.outcome.Violations, 1)
	})
}
