package connector

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"multiswap/pkg/types"
)

// Balance is an on-chain amount in base units together with its scale
type Balance struct {
	Units    *big.Int
	Decimals int32
}

// Connector holds one RPC handle and one signing key for a chain
type Connector interface {
	Chain() types.Chain
	Address() string
	NativeBalance(ctx context.Context) (*big.Int, error)
	// TokenBalance returns ErrBalanceUnavailable when the wallet has no
	// account for the token; the returned Balance then still carries decimals
	// when they are known.
	TokenBalance(ctx context.Context, token string) (Balance, error)
	SignAndBroadcast(ctx context.Context, build *types.BuildRecord) (string, error)
	AwaitFinality(ctx context.Context, txid string, build *types.BuildRecord) error
	Explorer(txid string) string
	Ping(ctx context.Context) error
	Close()
}

const defaultPollInterval = 2 * time.Second

// Registry keeps the enabled connector of every chain
type Registry struct {
	connectors map[types.Chain]Connector
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[types.Chain]Connector)}
}

// Add registers c; a chain can only be registered once
func (r *Registry) Add(c Connector) error {
	if _, exists := r.connectors[c.Chain()]; exists {
		return fmt.Errorf("connector for chain %s already registered", c.Chain())
	}
	r.connectors[c.Chain()] = c
	return nil
}

// Get returns the connector for chain
func (r *Registry) Get(chain types.Chain) (Connector, bool) {
	c, ok := r.connectors[chain]
	return c, ok
}

// Chains returns the enabled chains in a stable order
func (r *Registry) Chains() []types.Chain {
	chains := make([]types.Chain, 0, len(r.connectors))
	for chain := range r.connectors {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

// Close releases every connector
func (r *Registry) Close() {
	for _, c := range r.connectors {
		c.Close()
	}
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
