package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"mintfeed/pkg/config"
	"mintfeed/pkg/ui/status"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	watchAddr     string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live status of a running pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		base := watchAddr
		if base == "" {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			base = net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
		}

		err := status.Run(cmd.Context(), statusBaseURL(base), watchInterval)
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "status server address (default from config)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "poll interval")
}

// statusBaseURL accepts host:port or a full http(s) URL.
func statusBaseURL(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}

	return "http://" + addr
}
