package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+(?:TO|FOR|->)\s+([A-Z0-9]+)$`)

// SwapCommand is a parsed "<amount> <token> to <token>" phrase. Amount is in
// whole tokens.
type SwapCommand struct {
	Amount string
	From   string
	To     string
}

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 USDT to SOL"
//   - "0.01 sol to usdt"
//   - "5 USDT for APT"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: '<amount> <token> to <token>' (e.g., '1 USDT to SOL')")
	}

	cmd := &SwapCommand{
		Amount: matches[1],
		From:   NormalizeTokenSymbol(matches[2]),
		To:     NormalizeTokenSymbol(matches[3]),
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Validate checks that a command names two different tokens and an amount
func (c *SwapCommand) Validate() error {
	if c.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if c.From == "" {
		return fmt.Errorf("source token is required")
	}
	if c.To == "" {
		return fmt.Errorf("destination token is required")
	}
	if c.From == c.To {
		return fmt.Errorf("cannot swap %s to itself", c.From)
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"WSOL":   "SOL",
		"WETH":   "ETH",
		"USDT0":  "USDT",
		"TETHER": "USDT",
		"APTOS":  "APT",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
