package types

import (
	"encoding/json"
	"strings"
)

// Chain identifies one of the networks the gateway can trade on
type Chain string

const (
	ChainSolana Chain = "solana"
	ChainBase   Chain = "base"
	ChainAptos  Chain = "aptos"
)

// ParseChain maps a user supplied chain name onto a Chain
func ParseChain(name string) (Chain, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "solana", "sol":
		return ChainSolana, true
	case "base", "evm":
		return ChainBase, true
	case "aptos", "apt":
		return ChainAptos, true
	default:
		return "", false
	}
}

// Direction names one of the fixed trading pairs of a chain
type Direction string

const (
	DirectionUSDTToSol Direction = "usdtToSol"
	DirectionSolToUSDT Direction = "solToUsdt"
	DirectionUSDTToEth Direction = "usdtToEth"
	DirectionEthToUSDT Direction = "ethToUsdt"
	DirectionUSDTToApt Direction = "usdtToApt"
	DirectionAptToUSDT Direction = "aptToUsdt"
)

// SwapRequest is the body accepted by POST /{chain}/.
// Amount accepts either a JSON number or a numeric string.
type SwapRequest struct {
	InputToken  string      `json:"inputMint,omitempty"`
	OutputToken string      `json:"outputMint,omitempty"`
	Amount      json.Number `json:"amount,omitempty"`
	Direction   Direction   `json:"direction,omitempty"`
}

// QuoteRecord is the aggregator's answer to a quote request.
// Raw keeps the upstream payload verbatim so it can be echoed back on build.
type QuoteRecord struct {
	InputToken  string          `json:"inputToken"`
	OutputToken string          `json:"outputToken"`
	InAmount    string          `json:"inAmount"`
	OutAmount   string          `json:"outAmount"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// BuildRecord holds an unsigned transaction produced by an aggregator.
// Payload is chain specific: serialized transaction bytes on Solana, a JSON
// transaction request on EVM, a JSON entry function payload on Aptos.
type BuildRecord struct {
	Chain                Chain           `json:"chain"`
	Payload              []byte          `json:"payload"`
	LastValidBlockHeight uint64          `json:"lastValidBlockHeight,omitempty"`
	Raw                  json.RawMessage `json:"raw,omitempty"`
}

// SwapReceipt is returned to the caller after a successful broadcast
type SwapReceipt struct {
	Success   bool        `json:"success"`
	TxID      string      `json:"txid"`
	Explorer  string      `json:"explorer"`
	AmountIn  json.Number `json:"amountIn"`
	AmountOut string      `json:"amountOut,omitempty"`
	Direction Direction   `json:"direction,omitempty"`
	IntentID  string      `json:"intentId,omitempty"`
}

// Wallet exposes the public side of a chain signing key
type Wallet struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`
}
