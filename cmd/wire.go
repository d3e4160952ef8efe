package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"multiswap/config"
	"multiswap/pkg/aggregator"
	"multiswap/pkg/connector"
	"multiswap/pkg/events"
	"multiswap/pkg/journal"
	"multiswap/pkg/swap"
	"multiswap/pkg/types"
)

// newService dials the connectors of the given chains (every enabled chain
// when none are given) and assembles the swap service. The returned cleanup
// releases everything newService opened.
func newService(ctx context.Context, cfg *config.Config, log zerolog.Logger, only ...types.Chain) (*swap.Service, func(), error) {
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	chains := only
	if len(chains) == 0 {
		chains = cfg.EnabledChains()
		for _, chain := range cfg.DisabledChains() {
			log.Warn().Str("chain", string(chain)).Msg("no private key configured, chain disabled")
		}
	}

	registry := connector.NewRegistry()
	for _, chain := range chains {
		chainCfg := cfg.Chain(chain)
		if !chainCfg.Enabled() {
			registry.Close()
			return nil, nil, fmt.Errorf("chain %s is not enabled: set %s_PRIVATE_KEY", chain, envPrefix(chain))
		}
		c, err := dialConnector(chain, chainCfg)
		if err != nil {
			registry.Close()
			return nil, nil, fmt.Errorf("failed to set up %s connector: %w", chain, err)
		}
		if err := registry.Add(c); err != nil {
			c.Close()
			registry.Close()
			return nil, nil, err
		}
		log.Info().Str("chain", string(chain)).Str("wallet", c.Address()).Msg("chain enabled")
	}

	var (
		opts    []swap.Option
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*swap.Service, func(), error) {
		cleanup()
		registry.Close()
		return nil, nil, err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		closers = append(closers, func() { _ = client.Close() })
		opts = append(opts, swap.WithLock(swap.NewRedisLock(client, cfg.Redis.LockTTL)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis wallet lock")
	}

	store, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return fail(fmt.Errorf("failed to open intent journal: %w", err))
	}
	opts = append(opts, swap.WithJournal(store))

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			_ = store.Close()
			return fail(err)
		}
		opts = append(opts, swap.WithPublisher(publisher))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("publishing swap events")
	}

	svc := swap.NewService(log, opts...)
	for _, chain := range registry.Chains() {
		c, _ := registry.Get(chain)
		profile, _ := swap.ProfileFor(chain)
		chainCfg := cfg.Chain(chain)
		err := svc.Register(swap.Runtime{
			Profile:       profile,
			Connector:     c,
			Aggregator:    newAggregator(chain, chainCfg, httpClient),
			AwaitFinality: chainCfg.AwaitFinality,
		})
		if err != nil {
			svc.Close()
			cleanup()
			return nil, nil, err
		}
	}

	// svc.Close releases the connectors, the journal and the publisher
	return svc, func() {
		svc.Close()
		cleanup()
	}, nil
}

func dialConnector(chain types.Chain, cfg config.ChainConfig) (connector.Connector, error) {
	switch chain {
	case types.ChainSolana:
		return connector.NewSolanaConnector(connector.SolanaConfig{
			RPCURL:        cfg.RPCURL,
			PrivateKey:    cfg.PrivateKey,
			Commitment:    cfg.Commitment,
			SkipPreflight: cfg.SkipPreflight,
		})
	case types.ChainBase:
		return connector.NewEVMConnector(connector.EVMConfig{
			RPCURL:     cfg.RPCURL,
			PrivateKey: cfg.PrivateKey,
			ChainID:    cfg.ChainID,
		})
	case types.ChainAptos:
		return connector.NewAptosConnector(connector.AptosConfig{
			NodeURL:    cfg.RPCURL,
			ChainID:    uint8(cfg.ChainID),
			PrivateKey: cfg.PrivateKey,
		})
	default:
		return nil, fmt.Errorf("unsupported chain: %s", chain)
	}
}

func newAggregator(chain types.Chain, cfg config.ChainConfig, httpClient *http.Client) aggregator.Aggregator {
	switch chain {
	case types.ChainBase:
		return aggregator.NewUniswapClient(cfg.AggregatorURL, cfg.SlippageBps, httpClient)
	case types.ChainAptos:
		return aggregator.NewLiquidswapClient(cfg.Router, "")
	default:
		return aggregator.NewJupiterClient(cfg.AggregatorURL, cfg.SlippageBps, httpClient)
	}
}

func envPrefix(chain types.Chain) string {
	switch chain {
	case types.ChainSolana:
		return "SOLANA"
	case types.ChainBase:
		return "BASE"
	default:
		return "APTOS"
	}
}
