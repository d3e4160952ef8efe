package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	cases := []struct {
		input string
		want  SwapCommand
	}{
		{"swap 1 USDT to SOL", SwapCommand{Amount: "1", From: "USDT", To: "SOL"}},
		{"0.01 sol to usdt", SwapCommand{Amount: "0.01", From: "SOL", To: "USDT"}},
		{"  5   usdt   for   apt ", SwapCommand{Amount: "5", From: "USDT", To: "APT"}},
		{"0.001 weth -> usdt", SwapCommand{Amount: "0.001", From: "ETH", To: "USDT"}},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseSwapCommand(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestParseSwapCommandRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"swap USDT to SOL",
		"1 USDT",
		"-1 USDT to SOL",
		"1 USDT to USDT",
		"1 WSOL to SOL",
	} {
		_, err := ParseSwapCommand(input)
		assert.Error(t, err, input)
	}
}

func TestNormalizeTokenSymbol(t *testing.T) {
	assert.Equal(t, "SOL", NormalizeTokenSymbol(" wsol "))
	assert.Equal(t, "USDT", NormalizeTokenSymbol("usdt0"))
	assert.Equal(t, "APT", NormalizeTokenSymbol("apt"))
	assert.Equal(t, "BONK", NormalizeTokenSymbol("bonk"))
}
