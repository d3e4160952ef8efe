package swap

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"multiswap/pkg/connector"
	"multiswap/pkg/events"
	"multiswap/pkg/types"
)

type fakeConnector struct {
	mu           sync.Mutex
	chain        types.Chain
	address      string
	explorer     string
	native       *big.Int
	balances     map[string]connector.Balance
	txid         string
	broadcastErr error
	finalityErr  error
	calls        []string
}

func (f *fakeConnector) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeConnector) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeConnector) Chain() types.Chain { return f.chain }
func (f *fakeConnector) Address() string    { return f.address }
func (f *fakeConnector) Explorer(txid string) string {
	return f.explorer + txid
}

func (f *fakeConnector) NativeBalance(context.Context) (*big.Int, error) {
	f.record("native")
	return f.native, nil
}

func (f *fakeConnector) TokenBalance(_ context.Context, token string) (connector.Balance, error) {
	f.record("balance:" + token)
	bal, ok := f.balances[token]
	if !ok {
		return connector.Balance{Units: new(big.Int)}, fmt.Errorf("%w: no account", types.ErrBalanceUnavailable)
	}
	return bal, nil
}

func (f *fakeConnector) SignAndBroadcast(context.Context, *types.BuildRecord) (string, error) {
	f.record("broadcast")
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	return f.txid, nil
}

func (f *fakeConnector) AwaitFinality(context.Context, string, *types.BuildRecord) error {
	f.record("await")
	return f.finalityErr
}

func (f *fakeConnector) Ping(context.Context) error { return nil }
func (f *fakeConnector) Close()                     {}

type fakeAggregator struct {
	mu          sync.Mutex
	quotes      []string
	inAmount    string
	outAmount   string
	quoteErr    error
	emptyBuild  bool
	builds      int
	quoteTokens [2]string
}

func (f *fakeAggregator) Name() string { return "fake" }

func (f *fakeAggregator) Quote(_ context.Context, in, out, amount string) (*types.QuoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes = append(f.quotes, amount)
	f.quoteTokens = [2]string{in, out}
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	inAmount := f.inAmount
	if inAmount == "" {
		inAmount = amount
	}
	return &types.QuoteRecord{InputToken: in, OutputToken: out, InAmount: inAmount, OutAmount: f.outAmount, Raw: []byte(`{}`)}, nil
}

func (f *fakeAggregator) BuildSwap(context.Context, *types.QuoteRecord, string) (*types.BuildRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	if f.emptyBuild {
		return &types.BuildRecord{}, nil
	}
	return &types.BuildRecord{Payload: []byte{1}}, nil
}

type capturePublisher struct {
	events []events.SwapEvent
}

func (c *capturePublisher) Publish(_ context.Context, e events.SwapEvent) error {
	c.events = append(c.events, e)
	return nil
}

func (c *capturePublisher) Close() error { return nil }
