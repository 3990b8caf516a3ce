package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/zoocart/zoocart/internal/core/quota"
)

var aiQuotaServerURL string

var aiQuotaCmd = &cobra.Command{
	Use:   "ai-quota",
	Short: "Inspect or reset the AI request quota on a running server",
	Long: `Inspect or reset the shared AI request quota.

The quota windows live inside the running server process, so these commands
talk to its admin endpoints rather than local state.`,
}

var aiQuotaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remaining minute and day budgets",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := fetchQuotaStatus(cmd.Context(), http.MethodGet, "/api/v1/admin/ai-quota")
		if err != nil {
			return err
		}
		printQuotaStatus(status)
		return nil
	},
}

var aiQuotaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero both quota windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := fetchQuotaStatus(cmd.Context(), http.MethodPost, "/api/v1/admin/ai-quota/reset")
		if err != nil {
			return err
		}
		fmt.Println("Quota windows reset.")
		printQuotaStatus(status)
		return nil
	},
}

func fetchQuotaStatus(ctx context.Context, method, path string) (*quota.Status, error) {
	url := strings.TrimRight(strings.TrimSpace(aiQuotaServerURL), "/") + path

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("is the server running at %s? %w", aiQuotaServerURL, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status quota.Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

func printQuotaStatus(status *quota.Status) {
	lines := []string{
		"AI Quota",
		"",
		fmt.Sprintf("minute remaining: %d (resets in %s)", status.MinuteRemaining,
			(time.Duration(status.MinuteResetInMs) * time.Millisecond).Round(time.Second)),
		fmt.Sprintf("day remaining:    %d (resets in %s)", status.DayRemaining,
			(time.Duration(status.DayResetInMs) * time.Millisecond).Round(time.Second)),
	}
	fmt.Print(ascii.DrawBox(strings.Join(lines, "\n"), 0))
}

func init() {
	rootCmd.AddCommand(aiQuotaCmd)
	aiQuotaCmd.AddCommand(aiQuotaStatusCmd)
	aiQuotaCmd.AddCommand(aiQuotaResetCmd)

	aiQuotaCmd.PersistentFlags().StringVar(&aiQuotaServerURL, "server", "http://localhost:8080", "base URL of the running server")
}
