package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/did-resolution-conformance/pkg/storage"
)

func TestConfig(t *testing.T) {
	config, err := LoadConfig(ConfigFileName)
	require.NoError(t, err)
	require.NotEmpty(t, config)

	assert.Equal(t, 30*time.Second, config.Harness.RequestTimeout)
	assert.Equal(t, 4, config.Harness.Parallelism)
	assert.True(t, config.Harness.StrictErrorMetadata)
	assert.True(t, config.Harness.AllowRepresentationFallback)
	assert.False(t, config.Server.ReadTimeout.String() == "")
	assert.False(t, config.Server.APIHost == "")
	assert.Equal(t, "/1.0/identifiers", config.Server.BasePath)

	require.Len(t, config.Implementations, 1)
	impl := config.Implementations[0]
	assert.Equal(t, "reference", impl.Name)
	assert.Equal(t, []ResolutionRequest{{DID: "did:example:123"}}, impl.SupportedDIDs.Valid)
	require.Len(t, impl.SupportedDIDs.DerefURLs, 2)
	assert.Equal(t, "1", impl.SupportedDIDs.DerefURLs[1].DereferencingOptions["versionId"])
	require.Len(t, impl.SupportedDIDs.ServiceDerefURLs, 1)

	assert.Equal(t, []storage.Option{{ID: storage.BoltDBFilePathOption, Option: "conformance.db"}}, config.Report.StorageOptions())
}

func TestDefaultConfig(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, config.Harness.RequestTimeout)
	assert.Equal(t, "text", config.Report.Format)
	assert.Empty(t, config.Report.Storage)
	assert.Nil(t, config.Report.StorageOptions())
	assert.Empty(t, config.Implementations)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("not toml", func(tt *testing.T) {
		_, err := LoadConfig("config.yaml")
		assert.ErrorContains(tt, err, "did not match the expected TOML format")
	})

	t.Run("missing file", func(tt *testing.T) {
		_, err := LoadConfig(filepath.Join(tt.TempDir(), "missing.toml"))
		assert.ErrorContains(tt, err, "could not load config")
	})

	t.Run("invalid implementation", func(tt *testing.T) {
		path := filepath.Join(tt.TempDir(), "bad.toml")
		require.NoError(tt, os.WriteFile(path, []byte(`
[[implementations]]
name = "broken"
endpoint = "not a url"
`), 0600))
		_, err := LoadConfig(path)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "implementation<broken>")
		assert.Contains(tt, err.Error(), "endpoint")
		assert.Contains(tt, err.Error(), "valid")
	})

	t.Run("bad report format", func(tt *testing.T) {
		path := filepath.Join(tt.TempDir(), "format.toml")
		require.NoError(tt, os.WriteFile(path, []byte("[report]\nformat = \"xml\"\n"), 0600))
		_, err := LoadConfig(path)
		assert.ErrorContains(tt, err, "unknown report format<xml>")
	})
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONFORMANCE_TEST_ONLY=from-dotenv\n"), 0600))
	t.Setenv(EnvPath.String(), path)
	t.Cleanup(func() { _ = os.Unsetenv("CONFORMANCE_TEST_ONLY") })

	require.NoError(t, loadEnv())
	assert.Equal(t, "from-dotenv", os.Getenv("CONFORMANCE_TEST_ONLY"))
}

func TestRegistry(t *testing.T) {
	registry := Registry{
		{Name: "a", Tags: []string{"did:key"}, Endpoint: "https://a.example/1.0/identifiers", SupportedDIDs: SupportedDIDs{Valid: []ResolutionRequest{{DID: "did:key:z6Mk"}}}},
		{Name: "b", Tags: []string{"did:web", "did:key"}, Endpoint: "https://b.example/1.0/identifiers", SupportedDIDs: SupportedDIDs{Valid: []ResolutionRequest{{DID: "did:web:b.example"}}}},
		{Name: "c", Endpoint: "https://c.example", SupportedDIDs: SupportedDIDs{Valid: []ResolutionRequest{{DID: "did:example:123"}}}},
	}
	require.NoError(t, registry.Validate())

	t.Run("match", func(tt *testing.T) {
		assert.Len(tt, registry.Match(nil), 3)
		names := func(r Registry) []string {
			var n []string
			for _, impl := range r {
				n = append(n, impl.Name)
			}
			return n
		}
		assert.Equal(tt, []string{"a", "b"}, names(registry.Match([]string{"did:key"})))
		assert.Equal(tt, []string{"b"}, names(registry.Match([]string{"did:web"})))
		assert.Empty(tt, registry.Match([]string{"did:ion"}))
	})

	t.Run("duplicate names", func(tt *testing.T) {
		dup := append(Registry{}, registry[0], registry[0])
		assert.ErrorContains(tt, dup.Validate(), "name must be unique")
	})

	t.Run("translated messages", func(tt *testing.T) {
		err := Registry{{Name: "x", Endpoint: "https://x.example", SupportedDIDs: SupportedDIDs{Valid: []ResolutionRequest{{}}}}}.Validate()
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "is a required field")
	})
}
