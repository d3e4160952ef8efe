package swap

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiswap/pkg/connector"
	"multiswap/pkg/journal"
	"multiswap/pkg/types"
)

func solanaFixture(native int64, usdt int64) (*fakeConnector, *fakeAggregator) {
	conn := &fakeConnector{
		chain:    types.ChainSolana,
		address:  "Wallet111",
		explorer: connector.SolanaExplorer,
		native:   big.NewInt(native),
		balances: map[string]connector.Balance{
			SolanaUSDTMint: {Units: big.NewInt(usdt), Decimals: 6},
			SolanaSOLMint:  {Units: big.NewInt(native), Decimals: 9},
		},
		txid: "5sig",
	}
	return conn, &fakeAggregator{outAmount: "6500000"}
}

func newTestService(t *testing.T, rt Runtime, opts ...Option) (*Service, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	svc := NewService(zerolog.New(&buf), opts...)
	require.NoError(t, svc.Register(rt))
	return svc, &buf
}

func TestSwapRejectsEmptyRequestWithoutNetworkCalls(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{})
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Empty(t, conn.Calls())
	assert.Empty(t, agg.quotes)
}

func TestSwapInsufficientFeesStopsBeforeQuote(t *testing.T) {
	conn, agg := solanaFixture(1_999_999, 5e6)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.ErrorIs(t, err, types.ErrInsufficientFees)
	assert.True(t, types.IsClientError(err))
	assert.Empty(t, agg.quotes)
	assert.Equal(t, []string{"native"}, conn.Calls())
}

func TestSwapInsufficientFundsStopsBeforeQuote(t *testing.T) {
	conn, agg := solanaFixture(1e9, 999_999)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	assert.Empty(t, agg.quotes)
}

func TestSwapMissingInputAccountIsZeroBalance(t *testing.T) {
	conn, agg := solanaFixture(1e9, 0)
	delete(conn.balances, SolanaUSDTMint)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.ErrorIs(t, err, types.ErrInsufficientFunds)
	assert.Empty(t, agg.quotes)
}

func TestSwapSolanaEndToEnd(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	svc, logs := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg, AwaitFinality: true})

	receipt, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.NoError(t, err)
	// the aggregator echoes the requested amount, so nothing is flagged
	assert.NotContains(t, logs.String(), `"level":"warn"`)
	assert.NotContains(t, logs.String(), `"quoted"`)

	assert.Equal(t, []string{"1000000"}, agg.quotes)
	assert.Equal(t, [2]string{SolanaUSDTMint, SolanaSOLMint}, agg.quoteTokens)
	assert.True(t, receipt.Success)
	assert.Equal(t, "5sig", receipt.TxID)
	assert.True(t, strings.HasPrefix(receipt.Explorer, "https://solscan.io/tx/"))
	assert.Equal(t, "1000000", receipt.AmountIn.String())
	assert.Equal(t, "6500000", receipt.AmountOut)
	assert.Empty(t, receipt.IntentID)
	assert.Equal(t, []string{"native", "balance:" + SolanaUSDTMint, "broadcast", "await"}, conn.Calls())
}

func TestSwapSkipsFinalityWhenDisabled(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Amount: "1000000"})
	require.NoError(t, err)
	assert.NotContains(t, conn.Calls(), "await")
}

func TestSwapEVMScalesWholeTokenAmounts(t *testing.T) {
	conn := &fakeConnector{
		chain:    types.ChainBase,
		address:  "0xabc",
		explorer: connector.BaseExplorer,
		native:   big.NewInt(1e16),
		balances: map[string]connector.Balance{
			connector.NativeETH: {Units: big.NewInt(1e16), Decimals: 18},
		},
		txid: "0xhash",
	}
	agg := &fakeAggregator{}
	svc, _ := newTestService(t, Runtime{Profile: BaseProfile(), Connector: conn, Aggregator: agg})

	receipt, err := svc.Swap(context.Background(), types.ChainBase, types.SwapRequest{Direction: types.DirectionEthToUSDT})
	require.NoError(t, err)

	assert.Equal(t, []string{"1000000000000000"}, agg.quotes)
	assert.True(t, strings.HasPrefix(receipt.Explorer, "https://basescan.org/tx/"))
	assert.Equal(t, "0.001", receipt.AmountIn.String())
	assert.Equal(t, "0", receipt.AmountOut)
}

func TestSwapAptosReportsDirection(t *testing.T) {
	conn := &fakeConnector{
		chain:    types.ChainAptos,
		address:  "0xapt",
		explorer: connector.AptosExplorer,
		native:   big.NewInt(5e8),
		balances: map[string]connector.Balance{
			AptosUSDT: {Units: big.NewInt(3e6), Decimals: 6},
		},
		txid: "0xtx",
	}
	agg := &fakeAggregator{outAmount: "1"}
	svc, _ := newTestService(t, Runtime{Profile: AptosProfile(), Connector: conn, Aggregator: agg, AwaitFinality: true})

	receipt, err := svc.Swap(context.Background(), types.ChainAptos, types.SwapRequest{Direction: types.DirectionUSDTToApt})
	require.NoError(t, err)
	assert.Equal(t, types.DirectionUSDTToApt, receipt.Direction)
	assert.Empty(t, receipt.AmountOut)
	assert.Equal(t, "https://aptoscan.com/txn/0xtx", receipt.Explorer)
}

func TestSwapQuoteMismatchWarnsAndProceeds(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	agg.inAmount = "999999"
	svc, logs := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	receipt, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"quoted":"999999"`)
}

func TestSwapAggregatorErrorsPropagate(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	agg.quoteErr = errors.Join(types.ErrAggregator, errors.New(`{"error":"no route"}`))
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.ErrorIs(t, err, types.ErrAggregator)
	assert.False(t, types.IsClientError(err))
	assert.NotContains(t, conn.Calls(), "broadcast")
}

func TestSwapEmptyBuildIsBuildUnavailable(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	agg.emptyBuild = true
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.ErrorIs(t, err, types.ErrBuildUnavailable)
	assert.NotContains(t, conn.Calls(), "broadcast")
}

func TestSwapJournalTracksIntent(t *testing.T) {
	store, err := journal.NewFileStore(filepath.Join(t.TempDir(), "intents.json"))
	require.NoError(t, err)

	conn, agg := solanaFixture(1e9, 5e6)
	publisher := &capturePublisher{}
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg, AwaitFinality: true},
		WithJournal(store), WithPublisher(publisher))

	receipt, err := svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.NoError(t, err)
	require.NotEmpty(t, receipt.IntentID)

	intent, err := svc.Intent(context.Background(), receipt.IntentID)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusConfirmed, intent.Status)
	assert.Equal(t, "5sig", intent.TxID)
	assert.Equal(t, "1000000", intent.Amount)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "5sig", publisher.events[0].TxID)
	assert.True(t, publisher.events[0].Confirmed)
}

func TestSwapBroadcastFailureMarksIntentFailed(t *testing.T) {
	store, err := journal.NewFileStore(filepath.Join(t.TempDir(), "intents.json"))
	require.NoError(t, err)

	conn, agg := solanaFixture(1e9, 5e6)
	conn.broadcastErr = errors.Join(types.ErrBroadcast, errors.New("blockhash not found"))
	publisher := &capturePublisher{}
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg},
		WithJournal(store), WithPublisher(publisher))

	_, err = svc.Swap(context.Background(), types.ChainSolana, types.SwapRequest{Direction: types.DirectionUSDTToSol})
	require.ErrorIs(t, err, types.ErrBroadcast)
	assert.Empty(t, publisher.events)

	require.Len(t, store.List(), 1)
	assert.Equal(t, journal.StatusFailed, store.List()[0].Status)
	assert.Contains(t, store.List()[0].Error, "blockhash not found")
}

func TestSwapUnknownChain(t *testing.T) {
	conn, agg := solanaFixture(1e9, 5e6)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	_, err := svc.Swap(context.Background(), types.ChainAptos, types.SwapRequest{Direction: types.DirectionUSDTToApt})
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestRegisterRejectsMismatchedConnector(t *testing.T) {
	conn, agg := solanaFixture(1, 1)
	svc := NewService(zerolog.Nop())
	require.Error(t, svc.Register(Runtime{Profile: BaseProfile(), Connector: conn, Aggregator: agg}))
	require.NoError(t, svc.Register(Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg}))
	require.Error(t, svc.Register(Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg}))
	assert.Equal(t, []types.Chain{types.ChainSolana}, svc.Chains())
}

func TestBalance(t *testing.T) {
	conn, agg := solanaFixture(1e9, 2_500_000)
	svc, _ := newTestService(t, Runtime{Profile: SolanaProfile(), Connector: conn, Aggregator: agg})

	bal, err := svc.Balance(context.Background(), types.ChainSolana, SolanaUSDTMint)
	require.NoError(t, err)
	assert.Equal(t, "2.5", bal.String())

	bal, err = svc.Balance(context.Background(), types.ChainSolana, "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}
