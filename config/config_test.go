package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiswap/pkg/types"
)

// isolate keeps a developer's ~/.multiswap.yaml and .env-derived variables out of the test
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, key := range []string{"HTTP_CORS_ORIGINS", "SOLANA_PRIVATE_KEY", "BASE_PRIVATE_KEY", "APTOS_PRIVATE_KEY", "KAFKA_BROKERS", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
}

func TestValidateRequiresAChain(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.EnabledChains())

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chain enabled")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("SOLANA_PRIVATE_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, "secret", cfg.Solana.PrivateKey)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Solana.RPCURL)
	assert.Equal(t, "https://quote-api.jup.ag", cfg.Solana.AggregatorURL)
	assert.True(t, cfg.Solana.AwaitFinality)
	assert.Equal(t, 50, cfg.Solana.SlippageBps)
	assert.Equal(t, "confirmed", cfg.Solana.Commitment)

	assert.False(t, cfg.Base.AwaitFinality)
	assert.Equal(t, int64(8453), cfg.Base.ChainID)
	assert.True(t, cfg.Aptos.AwaitFinality)
	assert.Equal(t, int64(1), cfg.Aptos.ChainID)

	assert.Equal(t, "file", cfg.Journal.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	assert.Empty(t, cfg.Kafka.Brokers)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []types.Chain{types.ChainSolana}, cfg.EnabledChains())
	assert.Equal(t, []types.Chain{types.ChainBase, types.ChainAptos}, cfg.DisabledChains())
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BASE_PRIVATE_KEY", "0xabc")
	t.Setenv("APTOS_PRIVATE_KEY", "0xdef")
	t.Setenv("BASE_AWAIT_FINALITY", "true")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("HTTP_CORS_ORIGINS", "https://app.example.org, https://admin.example.org")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("JOURNAL_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://app.example.org", "https://admin.example.org"}, cfg.HTTP.CORSOrigins)
	assert.True(t, cfg.Base.AwaitFinality)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.Equal(t, []types.Chain{types.ChainBase, types.ChainAptos}, cfg.EnabledChains())
	assert.Equal(t, "0xdef", cfg.Chain(types.ChainAptos).PrivateKey)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	yaml := "log:\n  level: debug\nsolana:\n  private_key: filekey\n  slippage_bps: 100\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".multiswap.yaml"), []byte(yaml), 0600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "filekey", cfg.Solana.PrivateKey)
	assert.Equal(t, 100, cfg.Solana.SlippageBps)
}
