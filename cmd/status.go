package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multiswap/config"
	"multiswap/pkg/journal"
)

var (
	watchStatus   bool
	watchInterval int
	statusLimit   int
)

var statusCmd = &cobra.Command{
	Use:   "status [intent-id]",
	Short: "Check the journaled state of a swap",
	Long: `Look up a swap in the intent journal. Every swap is journaled before it is
signed, so an intent that stays "pending" was never broadcast and one that
stays "broadcast" was sent but not confirmed.

Without an id the most recent intents are listed.

Examples:
  multiswap status
  multiswap status 0b7c0a3e-...
  multiswap status 0b7c0a3e-... --watch --interval 2`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch until the intent is confirmed or failed")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Number of intents to list")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	store, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer store.Close()

	if _, disabled := store.(journal.Nop); disabled {
		printError(errors.New("the intent journal is disabled (journal.driver=none)"))
		store.Close()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) == 0 {
		listIntents(ctx, store, jsonOutput)
		return
	}

	if watchStatus {
		watchIntent(ctx, store, args[0], jsonOutput)
		return
	}

	intent, err := store.Get(ctx, args[0])
	if err != nil {
		printError(err)
		store.Close()
		os.Exit(1)
	}
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(intent, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayIntent(intent)
}

func listIntents(ctx context.Context, store journal.Store, jsonOutput bool) {
	intents, err := store.Recent(ctx, statusLimit)
	if err != nil {
		printError(err)
		return
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(intents, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(intents) == 0 {
		fmt.Println("\nNo swaps journaled yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nID\tCHAIN\tDIRECTION\tAMOUNT\tSTATUS\tCREATED")
	for _, intent := range intents {
		direction := intent.Direction
		if direction == "" {
			direction = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			intent.ID, intent.Chain, direction, intent.Amount,
			getColoredStatus(intent.Status), intent.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	fmt.Println()
}

func watchIntent(ctx context.Context, store journal.Store, id string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching intent %s\n", color.CyanString(id))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	var last journal.Status
	for {
		intent, err := store.Get(ctx, id)
		if err != nil {
			color.Red("Error: %v", err)
		} else if intent.Status != last {
			last = intent.Status
			displayIntent(intent)
			if intent.Status == journal.StatusConfirmed || intent.Status == journal.StatusFailed {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func displayIntent(intent *journal.Intent) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Intent:          %s\n", color.CyanString(intent.ID))
	fmt.Printf("  Status:          %s\n", getColoredStatus(intent.Status))
	fmt.Printf("  Chain:           %s\n", intent.Chain)
	fmt.Printf("  Wallet:          %s\n", intent.Wallet)
	if intent.Direction != "" {
		fmt.Printf("  Direction:       %s\n", intent.Direction)
	}
	fmt.Printf("  Amount:          %s\n", intent.Amount)
	fmt.Printf("  Input:           %s\n", color.HiBlackString(intent.InputToken))
	fmt.Printf("  Output:          %s\n", color.HiBlackString(intent.OutputToken))
	if intent.TxID != "" {
		fmt.Printf("  Transaction:     %s\n", color.CyanString(intent.TxID))
	}
	if intent.Error != "" {
		fmt.Printf("  Error:           %s\n", color.RedString(intent.Error))
	}
	fmt.Printf("  Last Updated:    %s\n", intent.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status journal.Status) string {
	label := strings.ToUpper(string(status))

	switch status {
	case journal.StatusConfirmed:
		return color.GreenString(label)
	case journal.StatusPending, journal.StatusBroadcast:
		return color.YellowString(label)
	case journal.StatusFailed:
		return color.RedString(label)
	default:
		return label
	}
}
