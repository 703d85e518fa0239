package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mpieniak01/venom/internal/config"
	"github.com/mpieniak01/venom/internal/flow"
	"github.com/mpieniak01/venom/internal/governance"
	"github.com/mpieniak01/venom/internal/ledger"
	"github.com/mpieniak01/venom/internal/orchestrator"
	"github.com/mpieniak01/venom/internal/policy"
	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/internal/router"
	"github.com/mpieniak01/venom/internal/session"
	"github.com/mpieniak01/venom/internal/state"
	"github.com/mpieniak01/venom/pkg/models"
)

// engine bundles the wired subsystems behind the CLI commands.
type engine struct {
	cfg         *config.Config
	registry    *provider.Registry
	governor    *governance.Governor
	router      *router.Router
	coordinator *flow.Coordinator
	store       *state.DB
	orch        *orchestrator.Orchestrator
}

// buildEngine loads configuration and wires the full stack. withStore
// controls whether the project database is opened; dry-run commands skip it.
func buildEngine(withStore bool) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	specs := provider.DefaultCatalog()
	if cfg.Providers.CatalogPath != "" {
		specs, err = provider.LoadCatalog(cfg.Providers.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load provider catalog: %w", err)
		}
	}
	registry := provider.NewRegistry(specs)
	registerAdapters(registry, specs, cfg)

	led := ledger.New(ledger.Options{
		DailyBudgetUSD:   cfg.Ledger.DailyBudgetUSD,
		RateWindow:       cfg.Ledger.RateWindow,
		RateLimit:        cfg.Ledger.RateLimit,
		BreakerThreshold: cfg.Ledger.BreakerThreshold,
		BreakerCooldown:  cfg.Ledger.BreakerCooldown,
	})
	gate := policy.NewGate(cfg.Policy.MaxCallCostUSD, cfg.Policy.BlockedContent)
	governor := governance.New(registry, led, gate)
	rt := router.New(cfg.Routing, governor)

	e := &engine{
		cfg:      cfg,
		registry: registry,
		governor: governor,
		router:   rt,
	}

	var checkpoints flow.CheckpointStore
	opts := []orchestrator.Option{
		orchestrator.WithWorkers(cfg.Queue.Workers),
		orchestrator.WithQueueCapacity(cfg.Queue.Capacity),
	}

	if withStore {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		db, err := state.OpenProject(cwd)
		if err != nil {
			return nil, fmt.Errorf("open state database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate state database: %w", err)
		}
		e.store = db
		checkpoints = db
		opts = append(opts,
			orchestrator.WithStore(db),
			orchestrator.WithSessions(session.NewHandler(db, 0)),
		)
	}

	e.coordinator = flow.New(rt, governor, registry, cfg.Council, cfg.Workflow, checkpoints)
	e.orch = orchestrator.New(e.coordinator, opts...)
	return e, nil
}

// registerAdapters attaches a concrete adapter to every catalog entry it
// can serve. Entries without credentials stay unregistered and surface as
// offline during the governed fallback walk.
func registerAdapters(registry *provider.Registry, specs []provider.Spec, cfg *config.Config) {
	for _, spec := range specs {
		switch {
		case spec.Class == models.ClassLocal:
			registry.Register(spec.Name, provider.NewLocalAdapter(spec.Name, spec.BaseURL))
		case spec.Name == "anthropic":
			if cfg.Providers.AnthropicAPIKey == "" && !cfg.Providers.UseAWSBedrock {
				continue
			}
			adapter, err := provider.NewAnthropicAdapter(provider.AnthropicConfig{
				APIKey:        cfg.Providers.AnthropicAPIKey,
				UseAWSBedrock: cfg.Providers.UseAWSBedrock,
				AWSRegion:     cfg.Providers.AWSRegion,
				AWSProfile:    cfg.Providers.AWSProfile,
			})
			if err != nil {
				log.Printf("[venom] anthropic adapter unavailable: %v", err)
				continue
			}
			registry.Register(spec.Name, adapter)
		case spec.Name == "openai":
			if cfg.Providers.OpenAIAPIKey == "" {
				continue
			}
			adapter, err := provider.NewOpenAIAdapter(cfg.Providers.OpenAIAPIKey)
			if err != nil {
				log.Printf("[venom] openai adapter unavailable: %v", err)
				continue
			}
			registry.Register(spec.Name, adapter)
		default:
			log.Printf("[venom] no adapter for provider %q, it will be treated as offline", spec.Name)
		}
	}
}

// Close releases engine resources.
func (e *engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}
