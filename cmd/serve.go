package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"multiswap/config"
	"multiswap/pkg/api"
	"multiswap/pkg/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP swap gateway",
	Long: `Start the HTTP gateway. Every chain with a configured private key gets
its own route group:

  POST /{chain}/                      swap
  GET  /{chain}/balance/:mintAddress  wallet balance

plus /healthz, /readyz, /version and /metrics. CORS origins come from
http.cors_origins (default *).

The server shuts down gracefully on Ctrl+C or SIGTERM.

Examples:
  multiswap serve
  multiswap serve --addr :9000
  SOLANA_PRIVATE_KEY=... KAFKA_BROKERS=localhost:9092 multiswap serve`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.addr)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	log := telemetry.NewLogger(level, os.Stdout)

	if err := serve(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

func serve(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Otel.ServiceName, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	svc, cleanup, err := newService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start swap service: %w", err)
	}
	defer cleanup()

	server, err := api.NewServer(svc, log,
		api.BuildInfo{Version: version, Commit: commit, BuildTime: buildTime},
		api.WithAllowedOrigins(cfg.HTTP.CORSOrigins...),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	addr := cfg.HTTP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return server.ListenAndServe(ctx, addr)
}
