package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, int64(ChainIDAgung), cfg.Chain.ChainID)
	assert.Equal(t, uint64(900000), cfg.Chain.GasLimit)
	assert.Equal(t, DefaultDIDPrecompile, cfg.Precompiles.DID)
	assert.Equal(t, DefaultStoragePrecompile, cfg.Precompiles.Storage)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Relay.ReadOnly)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
chain:
  chain_id: 3338
  gas_limit: 500000
station:
  address: "0x1111111111111111111111111111111111111111"
clients:
  - id: acme
    api_key: sk-acme
    qps: 5
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, int64(ChainIDPeaq), cfg.Chain.ChainID)
	assert.Equal(t, uint64(500000), cfg.Chain.GasLimit)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Station.Address)
	require.Len(t, cfg.Clients, 1)
	assert.Equal(t, "sk-acme", cfg.Clients[0].APIKey)
	assert.Equal(t, 5.0, cfg.Clients[0].QPS)
}
