package cmd

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"

	"mintfeed/pkg/config"
	"mintfeed/pkg/fetch"
	"mintfeed/pkg/logger"

	"github.com/spf13/cobra"
)

var resolveOut string

var resolveCmd = &cobra.Command{
	Use:   "resolve <metadata-uri>",
	Short: "Fetch one metadata uri and report the artifact",
	Long:  "Runs a single metadata and image fetch exactly as the pipeline would, and optionally saves the normalized image.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		return runResolve(cmd.Context(), cfg.Fetch, appLogger, args[0], resolveOut, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(&resolveOut, "out", "o", "", "write the normalized image as PNG to this path")
}

func runResolve(ctx context.Context, cfg config.FetchConfig, log *slog.Logger, uri string, outPath string, out io.Writer) error {
	fetcher := fetch.New(cfg, log)

	artifact, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "metadata: %s\n", artifact.MetadataURI)
	fmt.Fprintf(out, "image:    %s\n", artifact.ImageURI)
	if artifact.Name != "" || artifact.Symbol != "" {
		fmt.Fprintf(out, "token:    %s (%s)\n", artifact.Name, artifact.Symbol)
	}
	bounds := artifact.Image.Bounds()
	fmt.Fprintf(out, "size:     %dx%d\n", bounds.Dx(), bounds.Dy())

	if outPath == "" {
		return nil
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := png.Encode(file, artifact.Image); err != nil {
		_ = file.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", outPath, err)
	}

	fmt.Fprintf(out, "saved:    %s\n", outPath)
	return nil
}
