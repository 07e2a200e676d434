package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/did-resolution-conformance/config"
)

func TestConfigureLogger(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetReportCaller(false)
	})

	t.Run("writes to a file in the location", func(tt *testing.T) {
		dir := tt.TempDir()
		file := ConfigureLogger("test", "debug", dir)
		require.NotNil(tt, file)
		defer file.Close()

		assert.Equal(tt, logrus.DebugLevel, logrus.GetLevel())
		assert.Equal(tt, dir, filepath.Dir(file.Name()))
	})

	t.Run("bad level falls back to info", func(tt *testing.T) {
		assert.Nil(tt, ConfigureLogger("test", "loud", ""))
		assert.Equal(tt, logrus.InfoLevel, logrus.GetLevel())
	})

	t.Run("missing location is stdout only", func(tt *testing.T) {
		assert.Nil(tt, ConfigureLogger("test", "info", filepath.Join(tt.TempDir(), "missing")))
	})
}

func TestConfigPath(t *testing.T) {
	t.Run("default", func(tt *testing.T) {
		tt.Setenv(config.ConfigPath.String(), "")
		require.NoError(tt, os.Unsetenv(config.ConfigPath.String()))
		assert.Equal(tt, config.DefaultConfigPath, ConfigPath())
	})

	t.Run("from env", func(tt *testing.T) {
		tt.Setenv(config.ConfigPath.String(), "/tmp/other.toml")
		assert.Equal(tt, "/tmp/other.toml", ConfigPath())
	})
}

func TestNewTracerProvider(t *testing.T) {
	_, err := NewTracerProvider("", "test", "0")
	assert.Error(t, err)
}
