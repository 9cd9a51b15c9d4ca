package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAuthServerFallsBackToDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadAuthServer(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultAuthServer(), cfg)
}

func TestLoadAuthServerOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9999\nbind_address: 1.2.3.4\n"), 0o644))

	cfg, err := LoadAuthServer(path)
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Port)
	require.Equal(t, "1.2.3.4", cfg.BindAddress)
	require.Equal(t, DefaultAuthServer().WorkerPoolSize, cfg.WorkerPoolSize)
}

func TestLoadGameServerFallsBackToDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadGameServer(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultGameServer(), cfg)
}

func TestDefaultFleetHasFiveShips(t *testing.T) {
	require.Len(t, DefaultFleet(), 5)
}
