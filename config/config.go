package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"multiswap/pkg/types"
)

// Config holds the application configuration
type Config struct {
	HTTP    HTTPConfig
	Log     LogConfig
	Solana  ChainConfig
	Base    ChainConfig
	Aptos   ChainConfig
	Redis   RedisConfig
	Journal JournalConfig
	Kafka   KafkaConfig
	Otel    OtelConfig
}

// HTTPConfig configures the listener and outbound client timeout
type HTTPConfig struct {
	Addr    string
	Timeout time.Duration
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any
	CORSOrigins []string
}

// LogConfig configures zerolog
type LogConfig struct {
	Level string
}

// ChainConfig configures one chain's RPC, aggregator and signing key.
// A chain without a private key is disabled.
type ChainConfig struct {
	RPCURL        string
	AggregatorURL string
	PrivateKey    string
	AwaitFinality bool
	SlippageBps   int

	// Solana
	Commitment    string
	SkipPreflight bool

	// Base and Aptos
	ChainID int64

	// Aptos
	Router string
}

// Enabled reports whether a signing key is configured
func (c ChainConfig) Enabled() bool {
	return c.PrivateKey != ""
}

// RedisConfig enables the distributed wallet lock when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// JournalConfig selects the intent journal backend
type JournalConfig struct {
	Driver string
	DSN    string
}

// KafkaConfig enables swap events when Brokers is non-empty
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// OtelConfig enables trace export when Endpoint is set
type OtelConfig struct {
	Endpoint    string
	ServiceName string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.aggregator_url", "https://quote-api.jup.ag")
	v.SetDefault("solana.await_finality", true)
	v.SetDefault("solana.slippage_bps", 50)
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.skip_preflight", false)

	v.SetDefault("base.rpc_url", "https://mainnet.base.org")
	v.SetDefault("base.aggregator_url", "https://api.uniswap.org/v1")
	v.SetDefault("base.await_finality", false)
	v.SetDefault("base.slippage_bps", 50)
	v.SetDefault("base.chain_id", 8453)

	v.SetDefault("aptos.rpc_url", "https://fullnode.mainnet.aptoslabs.com/v1")
	v.SetDefault("aptos.chain_id", 1)
	v.SetDefault("aptos.await_finality", true)
	v.SetDefault("aptos.router", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 2*time.Minute)

	v.SetDefault("journal.driver", "file")
	v.SetDefault("journal.dsn", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "multiswap-swaps")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "multiswap")
}

// Load reads configuration from environment variables and an optional
// .multiswap.yaml in $HOME or the working directory
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".multiswap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	setDefaults(v)

	// solana.private_key <-> SOLANA_PRIVATE_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:        v.GetString("http.addr"),
			Timeout:     v.GetDuration("http.timeout"),
			CORSOrigins: splitList(v.GetStringSlice("http.cors_origins")),
		},
		Log: LogConfig{Level: v.GetString("log.level")},
		Solana: ChainConfig{
			RPCURL:        v.GetString("solana.rpc_url"),
			AggregatorURL: v.GetString("solana.aggregator_url"),
			PrivateKey:    v.GetString("solana.private_key"),
			AwaitFinality: v.GetBool("solana.await_finality"),
			SlippageBps:   v.GetInt("solana.slippage_bps"),
			Commitment:    v.GetString("solana.commitment"),
			SkipPreflight: v.GetBool("solana.skip_preflight"),
		},
		Base: ChainConfig{
			RPCURL:        v.GetString("base.rpc_url"),
			AggregatorURL: v.GetString("base.aggregator_url"),
			PrivateKey:    v.GetString("base.private_key"),
			AwaitFinality: v.GetBool("base.await_finality"),
			SlippageBps:   v.GetInt("base.slippage_bps"),
			ChainID:       v.GetInt64("base.chain_id"),
		},
		Aptos: ChainConfig{
			RPCURL:        v.GetString("aptos.rpc_url"),
			PrivateKey:    v.GetString("aptos.private_key"),
			ChainID:       v.GetInt64("aptos.chain_id"),
			AwaitFinality: v.GetBool("aptos.await_finality"),
			Router:        v.GetString("aptos.router"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		},
		Journal: JournalConfig{
			Driver: v.GetString("journal.driver"),
			DSN:    v.GetString("journal.dsn"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetStringSlice("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Otel: OtelConfig{
			Endpoint:    v.GetString("otel.endpoint"),
			ServiceName: v.GetString("otel.service_name"),
		},
	}

	return cfg, nil
}

// Validate checks that the gateway has something to serve
func (c *Config) Validate() error {
	if len(c.EnabledChains()) == 0 {
		return fmt.Errorf("no chain enabled. Set at least one of SOLANA_PRIVATE_KEY, BASE_PRIVATE_KEY or APTOS_PRIVATE_KEY, or add them to a .multiswap.yaml config file")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must not be empty")
	}
	return nil
}

// Chain returns the settings for chain
func (c *Config) Chain(chain types.Chain) ChainConfig {
	switch chain {
	case types.ChainSolana:
		return c.Solana
	case types.ChainBase:
		return c.Base
	case types.ChainAptos:
		return c.Aptos
	}
	return ChainConfig{}
}

// EnabledChains lists chains with a signing key, in route order
func (c *Config) EnabledChains() []types.Chain {
	var chains []types.Chain
	for _, chain := range []types.Chain{types.ChainSolana, types.ChainBase, types.ChainAptos} {
		if c.Chain(chain).Enabled() {
			chains = append(chains, chain)
		}
	}
	return chains
}

// DisabledChains lists chains without a signing key
func (c *Config) DisabledChains() []types.Chain {
	var chains []types.Chain
	for _, chain := range []types.Chain{types.ChainSolana, types.ChainBase, types.ChainAptos} {
		if !c.Chain(chain).Enabled() {
			chains = append(chains, chain)
		}
	}
	return chains
}

// env values arrive as one comma separated string
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
