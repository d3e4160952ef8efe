package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multiswap/config"
	"multiswap/pkg/parser"
	"multiswap/pkg/swap"
	"multiswap/pkg/types"
)

var (
	swapDirection string
	swapAmount    string
	swapInput     string
	swapOutput    string
	noConfirm     bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <chain> [<amount> <token> to <token>]",
	Short: "Swap tokens on one chain",
	Long: `Quote, sign and broadcast a swap from the configured wallet, exactly as
the HTTP gateway would.

The natural language form takes whole-token amounts. --amount is passed
through unchanged, so it uses the chain's request units: base units on
Solana and Aptos, whole tokens on Base.

Examples:
  # 1 USDT to SOL on Solana
  multiswap swap solana 1 USDT to SOL

  # Default size for a direction
  multiswap swap aptos --direction aptToUsdt

  # Explicit request units and mints
  multiswap swap solana --amount 2500000 --input-mint <mint> --output-mint <mint>

  # Skip the confirmation prompt
  multiswap swap base 0.001 ETH to USDT --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapDirection, "direction", "", "Swap direction (see 'multiswap tokens')")
	swapCmd.Flags().StringVar(&swapAmount, "amount", "", "Amount in the chain's request units")
	swapCmd.Flags().StringVar(&swapInput, "input-mint", "", "Input token override (Solana and Base)")
	swapCmd.Flags().StringVar(&swapOutput, "output-mint", "", "Output token override (Solana and Base)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

// buildSwapRequest turns the command line into the request the HTTP route would receive
func buildSwapRequest(profile swap.Profile, args []string) (types.SwapRequest, error) {
	req := types.SwapRequest{
		Direction:   types.Direction(swapDirection),
		Amount:      json.Number(strings.TrimSpace(swapAmount)),
		InputToken:  swapInput,
		OutputToken: swapOutput,
	}

	if len(args) == 0 {
		if req.Direction == "" && req.Amount == "" {
			return req, fmt.Errorf("specify '<amount> <token> to <token>', --direction or --amount")
		}
		return req, nil
	}

	command, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return req, err
	}
	direction, ok := profile.DirectionFor(command.From, command.To)
	if !ok {
		return req, fmt.Errorf("%s does not trade %s to %s (supported: %v)", profile.Chain, command.From, command.To, profile.Directions())
	}
	amount, err := profile.RequestAmount(direction, command.Amount)
	if err != nil {
		return req, err
	}
	req.Direction = direction
	req.Amount = json.Number(amount)
	return req, nil
}

func runSwap(cmd *cobra.Command, args []string) {
	chain, ok := types.ParseChain(args[0])
	if !ok {
		printError(fmt.Errorf("unknown chain %q (expected solana, base or aptos)", args[0]))
		os.Exit(1)
	}
	profile, _ := swap.ProfileFor(chain)

	swapReq, err := buildSwapRequest(profile, args[1:])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	log := cliLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := newService(ctx, cfg, log, chain)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer cleanup()

	wallet, err := svc.Wallet(chain)
	if err != nil {
		printError(err)
		cleanup()
		os.Exit(1)
	}

	if verbose {
		reqJSON, _ := json.MarshalIndent(swapReq, "", "  ")
		fmt.Printf("\nDebug: request body:\n%s\n", reqJSON)
	}

	if !jsonOutput {
		displaySwapRequest(chain, wallet, swapReq)
	}

	// Ask for confirmation
	if !noConfirm && !jsonOutput {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Quoting, signing and broadcasting..."
		s.Start()
	}

	receipt, err := svc.Swap(ctx, chain, swapReq)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		if jsonOutput {
			jsonData, _ := json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
			fmt.Println(string(jsonData))
		} else {
			printError(err)
		}
		cleanup()
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(receipt, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayReceipt(receipt)
}

func displaySwapRequest(chain types.Chain, wallet types.Wallet, req types.SwapRequest) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP REQUEST")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Chain:             %s\n", color.YellowString(string(chain)))
	fmt.Printf("  Wallet:            %s\n", color.CyanString(wallet.Address))
	if req.Direction != "" {
		fmt.Printf("  Direction:         %s\n", req.Direction)
	}
	if req.Amount != "" {
		fmt.Printf("  Amount:            %s\n", req.Amount)
	} else {
		fmt.Printf("  Amount:            %s\n", color.HiBlackString("direction default"))
	}
	if req.InputToken != "" {
		fmt.Printf("  Input:             %s\n", req.InputToken)
	}
	if req.OutputToken != "" {
		fmt.Printf("  Output:            %s\n", req.OutputToken)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func displayReceipt(receipt *types.SwapReceipt) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP SUBMITTED")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Transaction:       %s\n", color.CyanString(receipt.TxID))
	fmt.Printf("  Amount In:         %s\n", receipt.AmountIn)
	if receipt.AmountOut != "" {
		fmt.Printf("  Amount Out:        ~%s\n", receipt.AmountOut)
	}
	if receipt.Direction != "" {
		fmt.Printf("  Direction:         %s\n", receipt.Direction)
	}
	fmt.Printf("  Explorer:          %s\n", color.HiBlackString(receipt.Explorer))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")

	if receipt.IntentID != "" {
		fmt.Println("You can look the swap up later using:")
		color.Cyan("  multiswap status %s\n", receipt.IntentID)
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
