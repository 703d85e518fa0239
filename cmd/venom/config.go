package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpieniak01/venom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Venom configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/venom/config.yaml
Project-specific overrides can be placed in .venom.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

func configValues(cfg *config.Config) map[string]string {
	return map[string]string{
		"routing.paid_enabled":         strconv.FormatBool(cfg.Routing.PaidEnabled),
		"routing.complexity_threshold": fmt.Sprintf("%.1f", cfg.Routing.ComplexityThreshold),
		"council.size":                 strconv.Itoa(cfg.Council.Size),
		"council.max_concurrency":      strconv.Itoa(cfg.Council.MaxConcurrency),
		"council.quorum":               strconv.Itoa(cfg.Council.Quorum),
		"workflow.max_repair_attempts": strconv.Itoa(cfg.Workflow.MaxRepairAttempts),
		"workflow.wall_clock_budget":   cfg.Workflow.WallClockBudget.String(),
		"workflow.call_timeout":        cfg.Workflow.CallTimeout.String(),
		"ledger.daily_budget_usd":      fmt.Sprintf("%.2f", cfg.Ledger.DailyBudgetUSD),
		"ledger.rate_window":           cfg.Ledger.RateWindow.String(),
		"ledger.rate_limit":            strconv.Itoa(cfg.Ledger.RateLimit),
		"ledger.breaker_threshold":     strconv.Itoa(cfg.Ledger.BreakerThreshold),
		"ledger.breaker_cooldown":      cfg.Ledger.BreakerCooldown.String(),
		"policy.max_call_cost_usd":     fmt.Sprintf("%.2f", cfg.Policy.MaxCallCostUSD),
		"providers.catalog_path":       cfg.Providers.CatalogPath,
		"queue.workers":                strconv.Itoa(cfg.Queue.Workers),
		"queue.capacity":               strconv.Itoa(cfg.Queue.Capacity),
	}
}

var configKeyOrder = []string{
	"routing.paid_enabled",
	"routing.complexity_threshold",
	"council.size",
	"council.max_concurrency",
	"council.quorum",
	"workflow.max_repair_attempts",
	"workflow.wall_clock_budget",
	"workflow.call_timeout",
	"ledger.daily_budget_usd",
	"ledger.rate_window",
	"ledger.rate_limit",
	"ledger.breaker_threshold",
	"ledger.breaker_cooldown",
	"policy.max_call_cost_usd",
	"providers.catalog_path",
	"queue.workers",
	"queue.capacity",
}

func displayAllConfig(cfg *config.Config) {
	values := configValues(cfg)
	fmt.Printf("Configuration (%s):\n\n", config.GetUserConfigPath())
	for _, key := range configKeyOrder {
		fmt.Printf("  %-30s %s\n", key, values[key])
	}
}

func displayConfigKey(cfg *config.Config, key string) {
	values := configValues(cfg)
	value, ok := values[key]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	fmt.Println(value)
}

func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "routing.paid_enabled":
		cfg.Routing.PaidEnabled, err = strconv.ParseBool(value)
	case "routing.complexity_threshold":
		cfg.Routing.ComplexityThreshold, err = strconv.ParseFloat(value, 64)
	case "council.size":
		cfg.Council.Size, err = strconv.Atoi(value)
	case "council.max_concurrency":
		cfg.Council.MaxConcurrency, err = strconv.Atoi(value)
	case "council.quorum":
		cfg.Council.Quorum, err = strconv.Atoi(value)
	case "workflow.max_repair_attempts":
		cfg.Workflow.MaxRepairAttempts, err = strconv.Atoi(value)
	case "workflow.wall_clock_budget":
		cfg.Workflow.WallClockBudget, err = time.ParseDuration(value)
	case "workflow.call_timeout":
		cfg.Workflow.CallTimeout, err = time.ParseDuration(value)
	case "ledger.daily_budget_usd":
		cfg.Ledger.DailyBudgetUSD, err = strconv.ParseFloat(value, 64)
	case "ledger.rate_window":
		cfg.Ledger.RateWindow, err = time.ParseDuration(value)
	case "ledger.rate_limit":
		cfg.Ledger.RateLimit, err = strconv.Atoi(value)
	case "ledger.breaker_threshold":
		cfg.Ledger.BreakerThreshold, err = strconv.Atoi(value)
	case "ledger.breaker_cooldown":
		cfg.Ledger.BreakerCooldown, err = time.ParseDuration(value)
	case "policy.max_call_cost_usd":
		cfg.Policy.MaxCallCostUSD, err = strconv.ParseFloat(value, 64)
	case "providers.catalog_path":
		cfg.Providers.CatalogPath = value
	case "queue.workers":
		cfg.Queue.Workers, err = strconv.Atoi(value)
	case "queue.capacity":
		cfg.Queue.Capacity, err = strconv.Atoi(value)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}
