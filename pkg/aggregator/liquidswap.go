package aggregator

import (
	"context"
	"encoding/json"
	"fmt"

	"multiswap/pkg/types"
)

// DefaultLiquidswapRouter is the Liquidswap router module on Aptos mainnet
const DefaultLiquidswapRouter = "0x190d44266241744264b964a37b8f09863167a12d3e70cda39376cfb4e3561e12::router"

// LiquidswapClient builds Liquidswap router calls. Liquidswap has no quote
// service: the quote echoes the input amount and uses MinAmountOut as the floor.
type LiquidswapClient struct {
	Router       string
	MinAmountOut string
}

// EntryFunctionPayload is the JSON form of an Aptos entry function call
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// NewLiquidswapClient creates a client; empty values take the mainnet router and a floor of "1"
func NewLiquidswapClient(router, minAmountOut string) *LiquidswapClient {
	if router == "" {
		router = DefaultLiquidswapRouter
	}
	if minAmountOut == "" {
		minAmountOut = "1"
	}
	return &LiquidswapClient{Router: router, MinAmountOut: minAmountOut}
}

func (l *LiquidswapClient) Name() string { return "liquidswap" }

func (l *LiquidswapClient) Quote(_ context.Context, inputToken, outputToken, amount string) (*types.QuoteRecord, error) {
	if inputToken == "" || outputToken == "" || amount == "" {
		return nil, fmt.Errorf("%w: quote needs both coin types and an amount", types.ErrAggregator)
	}
	return &types.QuoteRecord{
		InputToken:  inputToken,
		OutputToken: outputToken,
		InAmount:    amount,
		OutAmount:   l.MinAmountOut,
	}, nil
}

// BuildSwap produces router::swap<From, To>(amountIn, minAmountOut)
func (l *LiquidswapClient) BuildSwap(_ context.Context, quote *types.QuoteRecord, _ string) (*types.BuildRecord, error) {
	if quote == nil {
		return nil, fmt.Errorf("%w: missing quote", types.ErrAggregator)
	}

	payload := EntryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      l.Router + "::swap",
		TypeArguments: []string{quote.InputToken, quote.OutputToken},
		Arguments:     []any{quote.InAmount, quote.OutAmount},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrBuildUnavailable, err)
	}

	return &types.BuildRecord{
		Chain:   types.ChainAptos,
		Payload: data,
	}, nil
}
