package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "invochain-local", cfg.NetworkName)
	require.FileExists(t, path)

	// A second load reads the persisted file back.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
	require.Equal(t, cfg.DataDir, again.DataDir)
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("RPCAddress = \":9090\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.RPCAddress)
	require.Equal(t, "./invochain-data", cfg.DataDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, float64(25), cfg.RateLimitPerSecond)
	require.Equal(t, 50, cfg.RateLimitBurst)
}

func TestEnvOverridesAuthToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("RPCAuthToken = \"from-file\"\n"), 0o644))
	t.Setenv("INVOCHAIN_RPC_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.RPCAuthToken)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{RPCAddress: ":8080", DataDir: "./d", RateLimitPerSecond: 0, RateLimitBurst: 10}
	require.Error(t, cfg.Validate())
	cfg.RateLimitPerSecond = 5
	cfg.RateLimitBurst = 0
	require.Error(t, cfg.Validate())
	cfg.RateLimitBurst = 10
	require.NoError(t, cfg.Validate())
}
