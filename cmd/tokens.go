package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multiswap/pkg/swap"
	"multiswap/pkg/types"
)

var filterChain string

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List the directions and tokens of every chain",
	Long: `List the fixed trading pairs each chain supports, with their token
addresses and the size used when a request carries no amount.

Examples:
  multiswap tokens
  multiswap tokens --chain aptos
  multiswap tokens --json`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain")
}

type directionInfo struct {
	Chain         types.Chain     `json:"chain"`
	Direction     types.Direction `json:"direction"`
	Input         swap.Token      `json:"input"`
	Output        swap.Token      `json:"output"`
	DefaultAmount string          `json:"defaultAmount"`
	AmountUnits   string          `json:"amountUnits"`
}

func listDirections(chainFilter string) ([]directionInfo, error) {
	chains := []types.Chain{types.ChainSolana, types.ChainBase, types.ChainAptos}
	if chainFilter != "" {
		chain, ok := types.ParseChain(chainFilter)
		if !ok {
			return nil, fmt.Errorf("unknown chain %q (expected solana, base or aptos)", chainFilter)
		}
		chains = []types.Chain{chain}
	}

	var out []directionInfo
	for _, chain := range chains {
		profile, _ := swap.ProfileFor(chain)
		units := "base units"
		if profile.HumanAmounts {
			units = "whole tokens"
		}
		for _, d := range profile.Directions() {
			pair := profile.Pairs[d]
			out = append(out, directionInfo{
				Chain:         chain,
				Direction:     d,
				Input:         pair.Input,
				Output:        pair.Output,
				DefaultAmount: pair.DefaultAmount,
				AmountUnits:   units,
			})
		}
	}
	return out, nil
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	directions, err := listDirections(filterChain)
	if err != nil {
		printError(err)
		return
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(directions, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayDirections(directions)
}

func displayDirections(directions []directionInfo) {
	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED DIRECTIONS")
	fmt.Println(strings.Repeat("=", 90))

	var current types.Chain
	for _, d := range directions {
		if d.Chain != current {
			current = d.Chain
			color.Cyan("\n%s", strings.ToUpper(string(current)))
			fmt.Println(strings.Repeat("-", 90))
		}

		address := d.Input.Address
		if len(address) > 40 {
			address = address[:37] + "..."
		}

		fmt.Printf("  %-10s  %s -> %s  default %s %s  %s\n",
			d.Direction,
			color.YellowString(d.Input.Symbol),
			color.YellowString(d.Output.Symbol),
			d.DefaultAmount,
			d.AmountUnits,
			color.HiBlackString(address))
	}

	fmt.Println("\n" + strings.Repeat("=", 90) + "\n")
}
