package harness_test

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/harness"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/report"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
	"github.com/tbd54566975/did-resolution-conformance/pkg/schema"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// startResolver serves the reference resolver and returns its binding endpoint and generated did:key.
func startResolver(t *testing.T, opts ...server.Option) (string, string) {
	cfg := config.ServerConfig{APIHost: "127.0.0.1:0", BasePath: "/1.0/identifiers"}
	s, err := server.NewResolverServer(make(chan os.Signal, 1), cfg, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv.URL + cfg.BasePath, s.KeyDID
}

func referenceImplementation(endpoint, keyDID string) config.Implementation {
	return config.Implementation{
		Name:     "reference",
		Endpoint: endpoint,
		SupportedDIDs: config.SupportedDIDs{
			Valid:       []config.ResolutionRequest{{DID: server.ExampleDID}, {DID: keyDID}},
			Deactivated: []string{server.DeactivatedExampleDID},
			NotFound:    []string{"did:example:nonexistent"},
			DerefURLs: []config.DerefURL{
				{DIDURL: server.ExampleDID + "#" + server.ExampleKeyID},
				{DIDURL: server.ExampleDID, DereferencingOptions: map[string]any{"versionId": "1"}},
			},
			ServiceDerefURLs: []config.ServiceDerefURL{{DIDURL: server.ExampleDID + "?service=" + server.ExampleServiceID}},
		},
	}
}

func newRunner(t *testing.T, policy oracle.Policy, opts ...harness.Option) *harness.Runner {
	client := binding.NewClient(5 * time.Second)
	return harness.NewRunner(client, oracle.New(policy), opts...)
}

func failures(rep *report.Report) []string {
	var failed []string
	for _, res := range rep.Results {
		if res.Status != report.StatusFail {
			continue
		}
		var violations []string
		for _, v := range res.Violations {
			violations = append(violations, v.String())
		}
		failed = append(failed, res.Suite+": "+res.Scenario+"\n\t"+strings.Join(violations, "\n\t"))
	}
	return failed
}

func find(rep *report.Report, prefix string) []report.Result {
	var found []report.Result
	for _, res := range rep.Results {
		if strings.HasPrefix(res.Scenario, prefix) {
			found = append(found, res)
		}
	}
	return found
}

func TestRunnerAgainstReferenceResolver(t *testing.T) {
	endpoint, keyDID := startResolver(t)
	impl := referenceImplementation(endpoint, keyDID)

	t.Run("Conformant resolver passes every suite", func(tt *testing.T) {
		validator, err := schema.NewValidator()
		require.NoError(tt, err)
		policy := oracle.DefaultPolicy()
		policy.Documents = validator

		rep := newRunner(tt, policy, harness.WithParallelism(8)).Run(context.Background(), config.Registry{impl})
		require.NotEmpty(tt, rep.Results)
		assert.False(tt, rep.Failed(), strings.Join(failures(rep), "\n"))

		summaries := rep.Summaries()
		require.Len(tt, summaries, 3)
		for _, summary := range summaries {
			assert.Zero(tt, summary.Failed, summary.Suite)
		}

		// plain http endpoint
		tls := find(rep, "All HTTPS bindings MUST use TLS")
		require.Len(tt, tls, 1)
		assert.Equal(tt, report.StatusSkip, tls[0].Status)
	})

	t.Run("Scenario counts do not depend on parallelism", func(tt *testing.T) {
		single := newRunner(tt, oracle.DefaultPolicy(), harness.WithParallelism(1)).Run(context.Background(), config.Registry{impl})
		many := newRunner(tt, oracle.DefaultPolicy(), harness.WithParallelism(16)).Run(context.Background(), config.Registry{impl})
		require.Equal(tt, len(single.Results), len(many.Results))
		for i := range single.Results {
			assert.Equal(tt, single.Results[i].Scenario, many.Results[i].Scenario)
			assert.Equal(tt, single.Results[i].Status, many.Results[i].Status)
		}
	})
}

func TestRequireTLS(t *testing.T) {
	endpoint, keyDID := startResolver(t)
	impl := referenceImplementation(endpoint, keyDID)

	policy := oracle.DefaultPolicy()
	policy.RequireTLS = true
	rep := newRunner(t, policy, harness.WithSuites(harness.BindingSuite)).Run(context.Background(), config.Registry{impl})
	require.True(t, rep.Failed())

	tls := find(rep, "All HTTPS bindings MUST use TLS")
	require.Len(t, tls, 1)
	assert.Equal(t, report.StatusFail, tls[0].Status)
	require.NotEmpty(t, tls[0].Violations)
	assert.Equal(t, result.CategoryBinding, tls[0].Violations[0].Category)
}

func TestOptionalScenariosAreSkipped(t *testing.T) {
	endpoint, _ := startResolver(t)
	impl := config.Implementation{
		Name:          "minimal",
		Endpoint:      endpoint,
		SupportedDIDs: config.SupportedDIDs{Valid: []config.ResolutionRequest{{DID: server.ExampleDID}}},
	}

	rep := newRunner(t, oracle.DefaultPolicy(), harness.WithSuites(harness.BindingSuite)).Run(context.Background(), config.Registry{impl})
	assert.False(t, rep.Failed(), strings.Join(failures(rep), "\n"))

	for _, name := range []string{"NOT_FOUND error", "If deactivated", "DID URL dereferencing binding", "service endpoint redirect"} {
		found := find(rep, name)
		require.Len(t, found, 1, name)
		assert.Equal(t, report.StatusSkip, found[0].Status, name)
		assert.NotEmpty(t, found[0].SkipReason)
	}
}

func TestFaultsAreDetected(t *testing.T) {
	tests := []struct {
		name     string
		fault    server.Fault
		suite    harness.SuiteFunc
		scenario string
		category result.Category
	}{
		{
			name:     "wrong error status",
			fault:    server.Fault{WrongErrorStatus: true},
			suite:    harness.BindingSuite,
			scenario: "INVALID_DID error MUST map to HTTP status 400",
			category: result.CategoryBinding,
		},
		{
			name:     "document on error",
			fault:    server.Fault{DocumentOnError: true},
			suite:    harness.ResolutionSuite,
			scenario: "unconformant DID",
			category: result.CategorySchema,
		},
		{
			name:     "metadata on error",
			fault:    server.Fault{MetadataOnError: true},
			suite:    harness.ResolutionSuite,
			scenario: "unconformant DID",
			category: result.CategorySchema,
		},
		{
			name:     "unknown error type",
			fault:    server.Fault{UnknownErrorType: true},
			suite:    harness.ResolutionSuite,
			scenario: "unconformant DID",
			category: result.CategoryClassification,
		},
		{
			name:     "missing content type metadata",
			fault:    server.Fault{OmitContentType: true},
			suite:    harness.ResolutionSuite,
			scenario: "resolves did:example:123",
			category: result.CategoryBinding,
		},
		{
			name:     "body on redirect",
			fault:    server.Fault{RedirectBody: true},
			suite:    harness.BindingSuite,
			scenario: "If 303 response, HTTP response body MUST be empty",
			category: result.CategoryBinding,
		},
		{
			name:     "parameters not validated",
			fault:    server.Fault{IgnoreParameters: true},
			suite:    harness.ParametersSuite,
			scenario: "hl parameter MUST be an ASCII string",
			category: result.CategoryClassification,
		},
		{
			name:     "document id differs from the requested DID",
			fault:    server.Fault{WrongDocumentID: true},
			suite:    harness.ResolutionSuite,
			scenario: "resolves did:example:123",
			category: result.CategorySchema,
		},
		{
			name:     "document changes between requests",
			fault:    server.Fault{UnstableDocument: true},
			suite:    harness.ResolutionSuite,
			scenario: "resolving did:example:123 twice",
			category: result.CategoryClassification,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(tt *testing.T) {
			endpoint, keyDID := startResolver(tt, server.WithFault(test.fault))
			impl := referenceImplementation(endpoint, keyDID)

			rep := newRunner(tt, oracle.DefaultPolicy(), harness.WithSuites(test.suite)).Run(context.Background(), config.Registry{impl})
			require.True(tt, rep.Failed())

			found := find(rep, test.scenario)
			require.NotEmpty(tt, found, test.scenario)
			for _, res := range found {
				assert.Equal(tt, report.StatusFail, res.Status, res.Scenario)
				categories := make(map[result.Category]bool)
				for _, v := range res.Violations {
					categories[v.Category] = true
					assert.NotEmpty(tt, v.Link, "violations carry the scenario permalink")
				}
				assert.True(tt, categories[test.category], "%s: %v", res.Scenario, res.Violations)
			}
		})
	}
}

func TestTransportFailures(t *testing.T) {
	srv := httptest.NewServer(nil)
	endpoint := srv.URL + "/1.0/identifiers"
	srv.Close()

	impl := config.Implementation{
		Name:          "unreachable",
		Endpoint:      endpoint,
		SupportedDIDs: config.SupportedDIDs{Valid: []config.ResolutionRequest{{DID: server.ExampleDID}}},
	}
	rep := newRunner(t, oracle.DefaultPolicy(), harness.WithSuites(harness.ResolutionSuite)).Run(context.Background(), config.Registry{impl})
	require.True(t, rep.Failed())
	for _, res := range rep.Results {
		require.Equal(t, report.StatusFail, res.Status, res.Scenario)
		assert.Equal(t, result.CategoryTransport, res.Violations[0].Category)
	}
}

func TestPanickingScenario(t *testing.T) {
	panics := func(config.Implementation) []harness.Scenario {
		return []harness.Scenario{
			{Suite: "test", Name: "panics", Link: "https://example.com/panics", Run: func(*harness.T) { panic("boom") }},
			{Suite: "test", Name: "passes", Run: func(*harness.T) {}},
			{Suite: "test", Name: "skips", Run: func(t *harness.T) { t.Skip("not applicable") }},
		}
	}
	rep := newRunner(t, oracle.DefaultPolicy(), harness.WithSuites(panics)).Run(context.Background(), config.Registry{{Name: "any", Endpoint: "http://127.0.0.1:1"}})
	require.Len(t, rep.Results, 3)

	byName := make(map[string]report.Result)
	for _, res := range rep.Results {
		byName[res.Scenario] = res
	}
	panicked := byName["panics"]
	assert.Equal(t, report.StatusFail, panicked.Status)
	require.Len(t, panicked.Violations, 1)
	assert.Equal(t, result.CategoryHarness, panicked.Violations[0].Category)
	assert.Contains(t, panicked.Violations[0].Message, "boom")
	assert.Equal(t, "https://example.com/panics", panicked.Violations[0].Link)

	assert.Equal(t, report.StatusPass, byName["passes"].Status)
	assert.Equal(t, report.StatusSkip, byName["skips"].Status)
	assert.Equal(t, "not applicable", byName["skips"].SkipReason)
}

func TestCancelledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	never := func(config.Implementation) []harness.Scenario {
		return []harness.Scenario{{Suite: "test", Name: "never", Run: func(*harness.T) {}}}
	}
	rep := newRunner(t, oracle.DefaultPolicy(), harness.WithSuites(never), harness.WithParallelism(1)).Run(ctx, config.Registry{{Name: "any"}})
	assert.LessOrEqual(t, len(rep.Results), 1)
}
