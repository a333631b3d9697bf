package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mintfeed/pkg/gateway"
)

// Run shows the status view until the user quits or ctx ends.
func Run(ctx context.Context, baseURL string, interval time.Duration) error {
	model := newModel(ctx, HTTPFetcher(baseURL, &http.Client{Timeout: 3 * time.Second}), interval, baseURL)
	program := tea.NewProgram(model, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// HTTPFetcher polls baseURL + "/status".
func HTTPFetcher(baseURL string, client *http.Client) FetchFunc {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context) (gateway.Status, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", nil)
		if err != nil {
			return gateway.Status{}, fmt.Errorf("build status request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return gateway.Status{}, fmt.Errorf("get status: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return gateway.Status{}, fmt.Errorf("get status: unexpected status %d", resp.StatusCode)
		}

		var status gateway.Status
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return gateway.Status{}, fmt.Errorf("decode status: %w", err)
		}

		return status, nil
	}
}
