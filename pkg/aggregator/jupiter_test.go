package aggregator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiswap/pkg/types"
)

const (
	usdtMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	solMint  = "So11111111111111111111111111111111111111112"
)

func TestJupiterQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v6/quote", r.URL.Path)
		assert.Equal(t, usdtMint, r.URL.Query().Get("inputMint"))
		assert.Equal(t, solMint, r.URL.Query().Get("outputMint"))
		assert.Equal(t, "1000000", r.URL.Query().Get("amount"))
		assert.Equal(t, "50", r.URL.Query().Get("slippageBps"))
		_, _ = io.WriteString(w, `{"inputMint":"`+usdtMint+`","outputMint":"`+solMint+`","inAmount":"1000000","outAmount":"6500000","routePlan":[]}`)
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 0, server.Client())
	quote, err := client.Quote(context.Background(), usdtMint, solMint, "1000000")
	require.NoError(t, err)

	assert.Equal(t, "1000000", quote.InAmount)
	assert.Equal(t, "6500000", quote.OutAmount)
	assert.Contains(t, string(quote.Raw), "routePlan")
}

func TestJupiterQuoteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"Could not find any route"}`)
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 50, server.Client())
	_, err := client.Quote(context.Background(), usdtMint, solMint, "1")
	require.ErrorIs(t, err, types.ErrAggregator)
	assert.Contains(t, err.Error(), "Could not find any route")
}

func TestJupiterQuoteBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"amount must be positive"}`)
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 50, server.Client())
	_, err := client.Quote(context.Background(), usdtMint, solMint, "0")
	require.ErrorIs(t, err, types.ErrAggregator)
	assert.Contains(t, err.Error(), "amount must be positive")
}

func TestJupiterBuildSwap(t *testing.T) {
	txBytes := []byte{1, 2, 3, 4}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v6/swap", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `"WaLLet"`, string(body["userPublicKey"]))
		assert.JSONEq(t, `true`, string(body["wrapAndUnwrapSol"]))
		assert.JSONEq(t, `{"inAmount":"1","outAmount":"2"}`, string(body["quoteResponse"]))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"swapTransaction":      base64.StdEncoding.EncodeToString(txBytes),
			"lastValidBlockHeight": 1234,
		})
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 50, server.Client())
	build, err := client.BuildSwap(context.Background(), &types.QuoteRecord{Raw: json.RawMessage(`{"inAmount":"1","outAmount":"2"}`)}, "WaLLet")
	require.NoError(t, err)

	assert.Equal(t, types.ChainSolana, build.Chain)
	assert.Equal(t, txBytes, build.Payload)
	assert.Equal(t, uint64(1234), build.LastValidBlockHeight)
}

func TestJupiterBuildSwapWithoutTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"lastValidBlockHeight":1}`)
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 50, server.Client())
	_, err := client.BuildSwap(context.Background(), &types.QuoteRecord{Raw: json.RawMessage(`{}`)}, "WaLLet")
	require.ErrorIs(t, err, types.ErrBuildUnavailable)
}
