package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	dryRun  bool
	verbose bool
)

func init() {
	refreshCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the snapshot without publishing it")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Ask the server for debug logging while serving the request")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(dangerCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.OutOrStdout(), http.MethodGet, "/health", false)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Trigger a snapshot refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/ripple/refresh"
		if dryRun {
			endpoint += "?dry_run=true"
		}
		return performRequest(cmd.OutOrStdout(), http.MethodPost, endpoint, true)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the published stable leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.OutOrStdout(), http.MethodGet, "/api/ripple/public/leaderboard", true)
	},
}

var dangerCmd = &cobra.Command{
	Use:   "danger",
	Short: "Show players about to lose eligibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.OutOrStdout(), http.MethodGet, "/api/ripple/public/leaderboard/danger", true)
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Show the published generation metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.OutOrStdout(), http.MethodGet, "/api/ripple/public/metadata", true)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd.OutOrStdout(), http.MethodGet, "/metrics", false)
	},
}

func performRequest(out io.Writer, method, endpoint string, prettyJSON bool) error {
	url := host + endpoint
	if verbose {
		url = withQuery(url, "verbose=true")
	}
	fmt.Fprintf(out, "Making %s request to %s\n", method, url)

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Fprintf(out, "Status Code: %d\n", resp.StatusCode)
	fmt.Fprintln(out, "Response Body:")
	if prettyJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			body = buf.Bytes()
		}
	}
	fmt.Fprintln(out, string(body))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

func withQuery(url, param string) string {
	if strings.Contains(url, "?") {
		return url + "&" + param
	}
	return url + "?" + param
}
