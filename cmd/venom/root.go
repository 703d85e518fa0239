package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "venom",
	Short: "Task Orchestration & Routing Engine",
	Long: `Venom runs LLM-backed tasks through governed routing: every call is
classified for sensitivity and complexity, routed to a local or remote
backend, and walked down an ordered fallback chain when providers are
unavailable, rate limited, or over budget.

Core capabilities:
- Queue-based task orchestration with pausable workers
- Direct, council, review-loop, healing, and campaign workflows
- Cost-aware routing with a local-only eco mode
- Per-provider budgets, rate windows, and circuit breakers
- Sensitive payloads pinned to local backends`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(healCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
