package aggregator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiswap/pkg/types"
)

func TestUniswapQuoteAndBuild(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			q := r.URL.Query()
			assert.Equal(t, "1000000000000000", q.Get("amount"))
			assert.Equal(t, "v3", q.Get("protocol"))
			assert.Equal(t, "true", q.Get("includeGas"))
			_, _ = io.WriteString(w, `{"amountIn":"1000000000000000","amountOut":"2500000"}`)
		case "/swap":
			var body map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, `"0.5"`, string(body["slippageTolerance"]))
			assert.JSONEq(t, `"0xabc"`, string(body["userAddress"]))
			_, _ = io.WriteString(w, `{"tx":{"to":"0x1111111111111111111111111111111111111111","data":"0x01","value":"0x0"}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewUniswapClient(server.URL, 50, server.Client())
	quote, err := client.Quote(context.Background(), "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", "0xfde4c96c8593536e31f229ea8f37b2ada2699bb2", "1000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "2500000", quote.OutAmount)

	build, err := client.BuildSwap(context.Background(), quote, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, types.ChainBase, build.Chain)
	assert.JSONEq(t, `{"to":"0x1111111111111111111111111111111111111111","data":"0x01","value":"0x0"}`, string(build.Payload))
}

func TestUniswapQuoteDefaultsInAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"quote":{"amount":"42"}}`)
	}))
	defer server.Close()

	client := NewUniswapClient(server.URL, 50, server.Client())
	quote, err := client.Quote(context.Background(), "a", "b", "7")
	require.NoError(t, err)
	assert.Equal(t, "7", quote.InAmount)
	assert.Equal(t, "42", quote.OutAmount)
}

func TestUniswapBuildWithoutTx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"requestId":"x"}`)
	}))
	defer server.Close()

	client := NewUniswapClient(server.URL, 50, server.Client())
	_, err := client.BuildSwap(context.Background(), &types.QuoteRecord{Raw: json.RawMessage(`{}`)}, "0xabc")
	require.ErrorIs(t, err, types.ErrBuildUnavailable)
}

func TestUniswapErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errorCode":"NO_ROUTE","detail":"No quotes available"}`)
	}))
	defer server.Close()

	client := NewUniswapClient(server.URL, 50, server.Client())
	_, err := client.Quote(context.Background(), "a", "b", "1")
	require.ErrorIs(t, err, types.ErrAggregator)
	assert.Contains(t, err.Error(), "NO_ROUTE")
}

func TestUniswapSlippageFromBps(t *testing.T) {
	assert.Equal(t, "0.5", NewUniswapClient("", 50, nil).SlippageTolerance)
	assert.Equal(t, "1", NewUniswapClient("", 100, nil).SlippageTolerance)
	assert.Equal(t, "0.05", NewUniswapClient("", 5, nil).SlippageTolerance)
}
