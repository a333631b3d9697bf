package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"mintfeed/pkg/config"
	"mintfeed/pkg/gateway"
	"mintfeed/pkg/logger"
	"mintfeed/pkg/shutdown"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline",
	Long:  "Runs the feed subscriber, the drain consumer and the status server until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.run")

		coordinator := shutdown.New(cmd.Context(), appLogger)
		stop := coordinator.NotifySignals(os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := gateway.NewService(cfg, appLogger)
		if err != nil {
			log.Error("Failed to initialize pipeline", "error", err)
			return err
		}

		log.Info("Pipeline started",
			"stream", cfg.Stream.URL,
			"queue_capacity", svc.Queue().Cap(),
			"output_dir", cfg.Output.Dir,
			"status_addr", fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		)

		if err := svc.Run(coordinator.Context()); err != nil {
			log.Error("Pipeline failed", "error", err)
			return err
		}

		log.Info("Pipeline shut down", "reason", coordinator.Reason())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
