package aggregator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"multiswap/pkg/types"
)

const DefaultJupiterURL = "https://quote-api.jup.ag"

// JupiterClient talks to the Jupiter v6 swap API
type JupiterClient struct {
	Base        string
	SlippageBps int
	Http        *http.Client
}

type jupiterQuote struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

type jupiterSwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// NewJupiterClient creates a Jupiter client. Zero slippage falls back to 50 bps.
func NewJupiterClient(base string, slippageBps int, client *http.Client) *JupiterClient {
	if base == "" {
		base = DefaultJupiterURL
	}
	if slippageBps <= 0 {
		slippageBps = 50
	}
	return &JupiterClient{
		Base:        strings.TrimRight(base, "/"),
		SlippageBps: slippageBps,
		Http:        newHTTPClient(client),
	}
}

func (j *JupiterClient) Name() string { return "jupiter" }

// Quote calls GET /v6/quote
func (j *JupiterClient) Quote(ctx context.Context, inputToken, outputToken, amount string) (*types.QuoteRecord, error) {
	q := url.Values{}
	q.Set("inputMint", inputToken)
	q.Set("outputMint", outputToken)
	q.Set("amount", amount)
	q.Set("slippageBps", strconv.Itoa(j.SlippageBps))

	raw, err := doJSON(ctx, j.Http, http.MethodGet, j.Base+"/v6/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var quote jupiterQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("%w: invalid quote response: %v", types.ErrAggregator, err)
	}
	if quote.InAmount == "" || quote.OutAmount == "" {
		return nil, fmt.Errorf("%w: quote response missing amounts: %s", types.ErrAggregator, raw)
	}

	return &types.QuoteRecord{
		InputToken:  quote.InputMint,
		OutputToken: quote.OutputMint,
		InAmount:    quote.InAmount,
		OutAmount:   quote.OutAmount,
		Raw:         raw,
	}, nil
}

// BuildSwap calls POST /v6/swap and decodes the base64 versioned transaction
func (j *JupiterClient) BuildSwap(ctx context.Context, quote *types.QuoteRecord, wallet string) (*types.BuildRecord, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing quote", types.ErrAggregator)
	}

	payload := map[string]any{
		"quoteResponse":    json.RawMessage(quote.Raw),
		"userPublicKey":    wallet,
		"wrapAndUnwrapSol": true,
	}

	raw, err := doJSON(ctx, j.Http, http.MethodPost, j.Base+"/v6/swap", payload)
	if err != nil {
		return nil, err
	}

	var sr jupiterSwapResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("%w: invalid swap response: %v", types.ErrAggregator, err)
	}
	if sr.SwapTransaction == "" {
		return nil, types.ErrBuildUnavailable
	}

	tx, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode tx: %v", types.ErrBuildUnavailable, err)
	}

	return &types.BuildRecord{
		Chain:                types.ChainSolana,
		Payload:              tx,
		LastValidBlockHeight: sr.LastValidBlockHeight,
		Raw:                  raw,
	}, nil
}
