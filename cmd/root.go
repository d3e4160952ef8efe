package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"multiswap/config"
	"multiswap/pkg/telemetry"
)

// Set at build time with -ldflags "-X multiswap/cmd.version=..."
var (
	version   = "0.1.0"
	commit    = "none"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "multiswap",
	Short: "A swap gateway for Solana, Base and Aptos",
	Long: `multiswap signs and broadcasts token swaps on Solana (Jupiter), Base
(Uniswap) and Aptos (Liquidswap) with locally held keys. Run it as an HTTP
gateway or swap straight from the command line.

Examples:
  multiswap serve
  multiswap swap solana 1 USDT to SOL
  multiswap swap aptos --direction aptToUsdt --amount 10000000
  multiswap balance base USDT
  multiswap tokens
  multiswap status <intent-id>`,
	Version: version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// cliLogger writes human readable logs to stderr; --verbose lowers the level to debug
func cliLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	level := cfg.Log.Level
	switch {
	case verbose:
		level = "debug"
	case jsonOutput:
		level = "warn"
	}
	return telemetry.NewConsoleLogger(level)
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
