package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multiswap/config"
	"multiswap/pkg/swap"
	"multiswap/pkg/types"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <chain> <token>",
	Short: "Show the wallet balance of a token",
	Long: `Show how much of a token the configured wallet holds, in whole tokens.
The token is a symbol the chain knows (see 'multiswap tokens') or a
mint address, contract address or coin type.

Examples:
  multiswap balance solana USDT
  multiswap balance base 0xfde4c96c8593536e31f229ea8f37b2ada2699bb2
  multiswap balance aptos APT --json`,
	Args: cobra.ExactArgs(2),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	chain, ok := types.ParseChain(args[0])
	if !ok {
		printError(fmt.Errorf("unknown chain %q (expected solana, base or aptos)", args[0]))
		os.Exit(1)
	}
	profile, _ := swap.ProfileFor(chain)

	token, symbol := args[1], args[1]
	if known, ok := profile.TokenBySymbol(args[1]); ok {
		token, symbol = known.Address, known.Symbol
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()

	svc, cleanup, err := newService(ctx, cfg, cliLogger(cmd, cfg), chain)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer cleanup()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching balance..."
		s.Start()
	}

	balance, err := svc.Balance(ctx, chain, token)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		cleanup()
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]any{"balance": json.Number(balance.String())}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	wallet, _ := svc.Wallet(chain)
	printSuccess(fmt.Sprintf("%s %s  %s", color.GreenString(balance.String()), color.YellowString(symbol), color.HiBlackString("("+wallet.Address+" on "+string(chain)+")")))
}
