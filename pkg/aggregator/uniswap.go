package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"multiswap/pkg/types"
)

const DefaultUniswapURL = "https://api.uniswap.org/v1"

// UniswapClient talks to the Uniswap routing API
type UniswapClient struct {
	Base string
	// SlippageTolerance is a percentage string, "0.5" means 0.5%
	SlippageTolerance string
	Http              *http.Client
}

type uniswapQuote struct {
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	Quote     struct {
		Amount string `json:"amount"`
	} `json:"quote"`
}

// NewUniswapClient creates a Uniswap client; slippageBps is converted to percent
func NewUniswapClient(base string, slippageBps int, client *http.Client) *UniswapClient {
	if base == "" {
		base = DefaultUniswapURL
	}
	if slippageBps <= 0 {
		slippageBps = 50
	}
	return &UniswapClient{
		Base:              strings.TrimRight(base, "/"),
		SlippageTolerance: decimal.New(int64(slippageBps), -2).String(),
		Http:              newHTTPClient(client),
	}
}

func (u *UniswapClient) Name() string { return "uniswap" }

// Quote calls GET /quote on the v3 protocol with gas included
func (u *UniswapClient) Quote(ctx context.Context, inputToken, outputToken, amount string) (*types.QuoteRecord, error) {
	q := url.Values{}
	q.Set("tokenIn", inputToken)
	q.Set("tokenOut", outputToken)
	q.Set("amount", amount)
	q.Set("protocol", "v3")
	q.Set("includeGas", "true")

	raw, err := doJSON(ctx, u.Http, http.MethodGet, u.Base+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var quote uniswapQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("%w: invalid quote response: %v", types.ErrAggregator, err)
	}

	out := quote.AmountOut
	if out == "" {
		out = quote.Quote.Amount
	}
	in := quote.AmountIn
	if in == "" {
		in = amount
	}

	return &types.QuoteRecord{
		InputToken:  inputToken,
		OutputToken: outputToken,
		InAmount:    in,
		OutAmount:   out,
		Raw:         raw,
	}, nil
}

// BuildSwap calls POST /swap and keeps the returned tx request as payload
func (u *UniswapClient) BuildSwap(ctx context.Context, quote *types.QuoteRecord, wallet string) (*types.BuildRecord, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing quote", types.ErrAggregator)
	}

	payload := map[string]any{
		"quoteResponse":     json.RawMessage(quote.Raw),
		"userAddress":       wallet,
		"slippageTolerance": u.SlippageTolerance,
	}

	raw, err := doJSON(ctx, u.Http, http.MethodPost, u.Base+"/swap", payload)
	if err != nil {
		return nil, err
	}

	var sr struct {
		Tx json.RawMessage `json:"tx"`
	}
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("%w: invalid swap response: %v", types.ErrAggregator, err)
	}
	if len(sr.Tx) == 0 || string(sr.Tx) == "null" {
		return nil, types.ErrBuildUnavailable
	}

	return &types.BuildRecord{
		Chain:   types.ChainBase,
		Payload: sr.Tx,
		Raw:     raw,
	}, nil
}
