package integration

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/harness"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/report"
	"github.com/tbd54566975/did-resolution-conformance/pkg/schema"
)

var resolver *target

func TestMain(m *testing.M) {
	t, stop, err := startTarget()
	if err != nil {
		panic(err)
	}
	resolver = t
	code := m.Run()
	stop()
	os.Exit(code)
}

func setUp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	require.NoError(t, waitHealthy(resolver.Host))
}

func TestResolveOverTheWire(t *testing.T) {
	setUp(t)

	t.Run("resolves the example DID", func(tt *testing.T) {
		status, body, err := get(resolver.Endpoint()+"/did:example:123", binding.MediaTypeDIDResolution)
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusOK, status)

		id, err := getJSONElement(body, "$.didDocument.id")
		require.NoError(tt, err)
		assert.Equal(tt, "did:example:123", id)

		contentType, err := getJSONElement(body, "$.didResolutionMetadata.contentType")
		require.NoError(tt, err)
		assert.Equal(tt, binding.MediaTypeDIDResolution, contentType)
	})

	t.Run("resolves the generated did:key", func(tt *testing.T) {
		if resolver.KeyDID == "" {
			tt.Skip("did:key is only known for the in-process resolver")
		}
		status, body, err := get(resolver.Endpoint()+"/"+url.PathEscape(resolver.KeyDID), binding.MediaTypeDIDJSON)
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusOK, status)

		id, err := getJSONElement(body, "$.id")
		require.NoError(tt, err)
		assert.Equal(tt, resolver.KeyDID, id)
	})

	t.Run("deactivated is 410 with metadata", func(tt *testing.T) {
		status, body, err := get(resolver.Endpoint()+"/did:example:deactivated", "")
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusGone, status)

		deactivated, err := getJSONElement(body, "$.didDocumentMetadata.deactivated")
		require.NoError(tt, err)
		assert.Equal(tt, "true", deactivated)
	})

	t.Run("unknown DID is NOT_FOUND", func(tt *testing.T) {
		status, body, err := get(resolver.Endpoint()+"/did:example:nonexistent", "")
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusNotFound, status)

		errType, err := getJSONElement(body, "$.didResolutionMetadata.error.type")
		require.NoError(tt, err)
		assert.Equal(tt, "https://www.w3.org/ns/did#NOT_FOUND", errType)
	})

	t.Run("service selection redirects", func(tt *testing.T) {
		status, _, err := get(resolver.Endpoint()+"/"+url.PathEscape("did:example:123?service=linkedDomain"), binding.MediaTypeDIDURLDereferencing)
		require.NoError(tt, err)
		assert.Equal(tt, http.StatusSeeOther, status)
	})
}

func TestConformanceRunOverTheWire(t *testing.T) {
	setUp(t)

	impls, err := implementations(*resolver)
	require.NoError(t, err)

	validator, err := schema.NewValidator()
	require.NoError(t, err)
	policy := oracle.DefaultPolicy()
	policy.Documents = validator

	runner := harness.NewRunner(
		binding.NewClient(10*time.Second),
		oracle.New(policy),
		harness.WithParallelism(8),
		harness.WithReadinessTimeout(MaxElapsedTime),
	)
	rep := runner.Run(context.Background(), impls)
	require.NotNil(t, rep)

	for _, res := range rep.Results {
		if res.Status == report.StatusFail {
			t.Errorf("%s: %s: %v", res.Suite, res.Scenario, res.Violations)
		}
	}
	assert.False(t, rep.Failed())

	summaries := rep.Summaries()
	require.NotEmpty(t, summaries)
	for _, s := range summaries {
		assert.Equal(t, "reference", s.Implementation)
		assert.Positive(t, s.Passed)
	}
}
