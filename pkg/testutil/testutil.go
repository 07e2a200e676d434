package testutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/stretchr/testify/require"

	"github.com/tbd54566975/did-resolution-conformance/pkg/storage"
)

// TestDatabases lists every storage provider reports can be persisted to.
var TestDatabases = []struct {
	Name           string
	ServiceStorage func(t *testing.T) storage.ServiceStorage
}{
	{
		Name:           "Test with Bolt DB",
		ServiceStorage: setupBoltTestDB,
	},
	{
		Name:           "Test with Redis DB",
		ServiceStorage: setupRedisTestDB,
	},
	{
		Name:           "Test with Memory DB",
		ServiceStorage: setupMemoryTestDB,
	},
	{
		Name:           "Test with Postgres DB",
		ServiceStorage: setupPostgresTestDB,
	},
}

func setupBoltTestDB(t *testing.T) storage.ServiceStorage {
	file, err := os.CreateTemp("", "bolt")
	require.NoError(t, err)
	name := file.Name()
	err = file.Close()
	require.NoError(t, err)
	s, err := storage.NewStorage(storage.Bolt, storage.Option{
		ID:     storage.BoltDBFilePathOption,
		Option: name,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
		_ = os.Remove(name)
	})
	return s
}

func setupRedisTestDB(t *testing.T) storage.ServiceStorage {
	server := miniredis.RunT(t)
	s, err := storage.NewStorage(storage.Redis, storage.Option{
		ID:     storage.RedisAddressOption,
		Option: server.Addr(),
	}, storage.Option{
		ID:     storage.FlushOption,
		Option: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func setupMemoryTestDB(t *testing.T) storage.ServiceStorage {
	s, err := storage.NewStorage(storage.Memory)
	require.NoError(t, err)
	return s
}

// setupPostgresTestDB downloads and starts a throwaway postgres, so it is skipped in short mode.
func setupPostgresTestDB(t *testing.T) storage.ServiceStorage {
	if testing.Short() {
		t.Skip("skipping embedded postgres in short mode")
	}
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	port := freePort(t)
	dir := t.TempDir()
	postgres := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(port).
		BinariesPath(filepath.Join(homeDir, ".embedded-postgres-go", "tmpBin")).
		DataPath(filepath.Join(dir, "data")).
		RuntimePath(filepath.Join(dir, "runtime")))
	require.NoError(t, postgres.Start())
	t.Cleanup(func() {
		_ = postgres.Stop()
	})

	s, err := storage.NewStorage(storage.Postgres, storage.Option{
		ID:     storage.SQLConnectionOption,
		Option: fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=postgres sslmode=disable", port),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func freePort(t *testing.T) uint32 {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return uint32(l.Addr().(*net.TCPAddr).Port)
}
