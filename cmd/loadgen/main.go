// Package main implements loadgen, a traffic generator that drives every demo endpoint
// through an instrumented HTTP client so client and server spans share one trace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"demoapi/internal/config"
	"demoapi/internal/logging"
	"demoapi/internal/otel"
)

var (
	// serverURL is the base URL of the demo API
	serverURL   string
	rounds      int
	interval    time.Duration
	concurrency int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Generate traffic against the demo API",
	Long: `loadgen calls every endpoint of the demo API in rounds.

Requests go through an OpenTelemetry-instrumented HTTP client, so the W3C trace
context is propagated and client spans join the server traces.

Examples:
  # Ten rounds against the local server
  loadgen run --rounds 10

  # Run until interrupted, four workers, one round per second
  loadgen run --rounds 0 --concurrency 4 --interval 1s`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run traffic rounds",
	RunE:  runLoad,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "demo API base URL")
	runCmd.Flags().IntVar(&rounds, "rounds", 5, "number of rounds per worker (0 runs until interrupted)")
	runCmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "pause between rounds")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of concurrent workers")
	rootCmd.AddCommand(runCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	if concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}

	cfg := config.Load()
	cfg.Telemetry.ServiceName += "-loadgen"

	log, err := logging.New(logging.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Env:         cfg.Telemetry.Environment,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logging.Sync(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry := otel.New(cfg.Telemetry, log)
	if err := telemetry.Start(ctx); err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(sctx); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	client := newClient(telemetry.Enabled(otel.HTTPClient), otelhttp.WithTracerProvider(telemetry.TracerProvider()))
	gen := &generator{client: client, base: serverURL, log: log}

	summary := gen.Run(ctx, concurrency, rounds, interval)

	// Export client spans before reporting, so the summary only appears once the traces left the process
	fctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := telemetry.ForceFlush(fctx); err != nil {
		log.Warn("telemetry flush failed", zap.Error(err))
	}
	log.Info("load finished",
		zap.Int("requests", summary.Requests),
		zap.Int("errors", summary.Errors),
		zap.Any("statuses", summary.Statuses),
	)
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}
