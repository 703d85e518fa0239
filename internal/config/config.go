// Package config handles configuration loading and management for Venom.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Venom.
type Config struct {
	Routing   RoutingConfig   `mapstructure:"routing"`
	Council   CouncilConfig   `mapstructure:"council"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Queue     QueueConfig     `mapstructure:"queue"`
}

// RoutingConfig holds routing engine settings.
type RoutingConfig struct {
	// PaidEnabled opts the operator into paid remote routing. When false
	// (eco mode) every task routes to the ordered local backend list.
	PaidEnabled bool `mapstructure:"paid_enabled"`
	// ComplexityThreshold is the score at which paid routing prefers remote.
	ComplexityThreshold float64 `mapstructure:"complexity_threshold"`
	// BaseScores overrides the per-task-type base complexity scores.
	BaseScores map[string]float64 `mapstructure:"base_scores"`
	// SensitivePatterns are regular expressions matched against payloads.
	// A match forces local-only routing before any other rule.
	SensitivePatterns []string `mapstructure:"sensitive_patterns"`
}

// CouncilConfig holds council workflow settings.
type CouncilConfig struct {
	// Size is the number of distinct backends consulted.
	Size int `mapstructure:"size"`
	// MaxConcurrency caps parallel council calls.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// Quorum is the minimum number of agreeing successes. Zero means
	// majority of Size.
	Quorum int `mapstructure:"quorum"`
}

// WorkflowConfig holds workflow loop limits.
type WorkflowConfig struct {
	// MaxRepairAttempts bounds review and healing iterations.
	MaxRepairAttempts int `mapstructure:"max_repair_attempts"`
	// WallClockBudget bounds total workflow duration.
	WallClockBudget time.Duration `mapstructure:"wall_clock_budget"`
	// CallTimeout is the per-backend-call timeout.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// LedgerConfig holds governance ledger windows and thresholds.
type LedgerConfig struct {
	// DailyBudgetUSD is the per-provider daily spend ceiling.
	DailyBudgetUSD float64 `mapstructure:"daily_budget_usd"`
	// RateWindow is the sliding rate-limit window.
	RateWindow time.Duration `mapstructure:"rate_window"`
	// RateLimit is the maximum calls per provider per rate window.
	RateLimit int `mapstructure:"rate_limit"`
	// BreakerThreshold is the consecutive-failure count that opens the circuit.
	BreakerThreshold int `mapstructure:"breaker_threshold"`
	// BreakerCooldown is how long an open circuit stays open without a success.
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// PolicyConfig holds policy gate rules.
type PolicyConfig struct {
	// MaxCallCostUSD is the per-call cost ceiling.
	MaxCallCostUSD float64 `mapstructure:"max_call_cost_usd"`
	// BlockedContent lists organization-level content restrictions.
	// A payload containing any entry is blocked outright.
	BlockedContent []string `mapstructure:"blocked_content"`
}

// ProvidersConfig holds provider catalog settings.
type ProvidersConfig struct {
	// CatalogPath points to the providers.yaml catalog file. Empty means
	// the built-in default catalog.
	CatalogPath string `mapstructure:"catalog_path"`
	// AnthropicAPIKey authenticates the anthropic adapter.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	// OpenAIAPIKey authenticates the openai adapter.
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	// UseAWSBedrock routes anthropic calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS shared config profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// QueueConfig holds orchestrator queue settings.
type QueueConfig struct {
	// Workers is the number of concurrent queue workers.
	Workers int `mapstructure:"workers"`
	// Capacity is the pending queue size.
	Capacity int `mapstructure:"capacity"`
	// SignalsDir is the directory watched for pause/resume/kill control files.
	SignalsDir string `mapstructure:"signals_dir"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, VENOM_*)
// 2. Project config (.venom.yaml in current directory or parent)
// 3. User config (~/.config/venom/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("VENOM")

	v.BindEnv("providers.anthropic_api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("providers.openai_api_key", "OPENAI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Providers.AnthropicAPIKey = os.ExpandEnv(cfg.Providers.AnthropicAPIKey)
	cfg.Providers.OpenAIAPIKey = os.ExpandEnv(cfg.Providers.OpenAIAPIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Providers.AnthropicAPIKey = os.ExpandEnv(cfg.Providers.AnthropicAPIKey)
	cfg.Providers.OpenAIAPIKey = os.ExpandEnv(cfg.Providers.OpenAIAPIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("routing.paid_enabled", cfg.Routing.PaidEnabled)
	v.Set("routing.complexity_threshold", cfg.Routing.ComplexityThreshold)
	v.Set("routing.sensitive_patterns", cfg.Routing.SensitivePatterns)
	v.Set("council.size", cfg.Council.Size)
	v.Set("council.max_concurrency", cfg.Council.MaxConcurrency)
	v.Set("council.quorum", cfg.Council.Quorum)
	v.Set("workflow.max_repair_attempts", cfg.Workflow.MaxRepairAttempts)
	v.Set("workflow.wall_clock_budget", cfg.Workflow.WallClockBudget.String())
	v.Set("workflow.call_timeout", cfg.Workflow.CallTimeout.String())
	v.Set("ledger.daily_budget_usd", cfg.Ledger.DailyBudgetUSD)
	v.Set("ledger.rate_window", cfg.Ledger.RateWindow.String())
	v.Set("ledger.rate_limit", cfg.Ledger.RateLimit)
	v.Set("ledger.breaker_threshold", cfg.Ledger.BreakerThreshold)
	v.Set("ledger.breaker_cooldown", cfg.Ledger.BreakerCooldown.String())
	v.Set("policy.max_call_cost_usd", cfg.Policy.MaxCallCostUSD)
	v.Set("policy.blocked_content", cfg.Policy.BlockedContent)
	v.Set("providers.catalog_path", cfg.Providers.CatalogPath)
	v.Set("queue.workers", cfg.Queue.Workers)
	v.Set("queue.capacity", cfg.Queue.Capacity)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("routing.paid_enabled", false)
	v.SetDefault("routing.complexity_threshold", 6.0)
	v.SetDefault("routing.sensitive_patterns", DefaultSensitivePatterns)

	v.SetDefault("council.size", 3)
	v.SetDefault("council.max_concurrency", 3)
	v.SetDefault("council.quorum", 0)

	v.SetDefault("workflow.max_repair_attempts", 3)
	v.SetDefault("workflow.wall_clock_budget", "10m")
	v.SetDefault("workflow.call_timeout", "2m")

	v.SetDefault("ledger.daily_budget_usd", 25.0)
	v.SetDefault("ledger.rate_window", "60s")
	v.SetDefault("ledger.rate_limit", 60)
	v.SetDefault("ledger.breaker_threshold", 3)
	v.SetDefault("ledger.breaker_cooldown", "5m")

	v.SetDefault("policy.max_call_cost_usd", 1.0)
	v.SetDefault("policy.blocked_content", []string{})

	v.SetDefault("providers.catalog_path", "")
	v.SetDefault("providers.use_aws_bedrock", false)

	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.capacity", 64)
	v.SetDefault("queue.signals_dir", ".venom/signals")
}

// getUserConfigDir returns the XDG config directory for Venom.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "venom")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "venom")
	}
	return filepath.Join(home, ".config", "venom")
}

// findProjectConfig searches for .venom.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".venom.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// DefaultSensitivePatterns are the built-in secret and PII markers scanned
// before every routing decision. Operators can extend but not disable the scan.
var DefaultSensitivePatterns = []string{
	`(?i)api[_-]?key\s*[:=]`,
	`(?i)secret[_-]?key`,
	`(?i)-----BEGIN [A-Z ]*PRIVATE KEY-----`,
	`(?i)password\s*[:=]`,
	`(?i)bearer\s+[A-Za-z0-9\-_\.]{20,}`,
	`sk-[A-Za-z0-9]{20,}`,
	`AKIA[0-9A-Z]{16}`,
	`\b\d{3}-\d{2}-\d{4}\b`,
	`(?i)\bssn\b`,
	`(?i)credit\s*card`,
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Routing: RoutingConfig{
			PaidEnabled:         false,
			ComplexityThreshold: 6.0,
			SensitivePatterns:   append([]string{}, DefaultSensitivePatterns...),
		},
		Council: CouncilConfig{
			Size:           3,
			MaxConcurrency: 3,
		},
		Workflow: WorkflowConfig{
			MaxRepairAttempts: 3,
			WallClockBudget:   10 * time.Minute,
			CallTimeout:       2 * time.Minute,
		},
		Ledger: LedgerConfig{
			DailyBudgetUSD:   25.0,
			RateWindow:       60 * time.Second,
			RateLimit:        60,
			BreakerThreshold: 3,
			BreakerCooldown:  5 * time.Minute,
		},
		Policy: PolicyConfig{
			MaxCallCostUSD: 1.0,
		},
		Queue: QueueConfig{
			Workers:    2,
			Capacity:   64,
			SignalsDir: ".venom/signals",
		},
	}
}
