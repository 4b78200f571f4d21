// Package app wires configuration, providers, tools and agents together for
// the command line entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agentsmith/internal/agent"
	"agentsmith/internal/catalog"
	"agentsmith/internal/config"
	"agentsmith/internal/db"
	"agentsmith/internal/definitions"
	"agentsmith/internal/llm"
	"agentsmith/internal/logger"
	"agentsmith/internal/metrics"
	"agentsmith/internal/tools"
	"agentsmith/internal/trace"

	"github.com/spf13/cobra"
)

type Options struct {
	// ConfigPath overrides the default config location.
	ConfigPath string
	// LLM selects a configured LLM instead of default_llm.
	LLM string
}

type App struct {
	Config   *config.Config
	Provider llm.Provider
	Registry *agent.Registry
	Factory  *agent.RunnerFactory
	Metrics  *metrics.Metrics

	database      *db.DB
	shutdownTrace func(context.Context) error
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return FromConfig(ctx, cfg, opts.LLM)
}

// FromCommand reads the persistent --config and --llm flags of cmd.
func FromCommand(cmd *cobra.Command) (*App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	llmName, _ := cmd.Flags().GetString("llm")
	return New(cmd.Context(), Options{ConfigPath: configPath, LLM: llmName})
}

// FromConfig builds the application from an already loaded config.
func FromConfig(ctx context.Context, cfg *config.Config, llmName string) (*App, error) {
	logger.Init(cfg.Log.Level)

	shutdown, err := trace.Init(ctx, trace.Config{
		Enabled:  cfg.Trace.Enabled,
		Endpoint: cfg.Trace.Endpoint,
		URLPath:  cfg.Trace.URLPath,
		APIKey:   cfg.Trace.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	a := &App{Config: cfg, shutdownTrace: shutdown}

	if cfg.Metrics.Enabled {
		if a.Metrics, err = metrics.New(); err != nil {
			return nil, errors.Join(err, a.Close(ctx))
		}
	}

	llmCfg, err := cfg.LLM(llmName)
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	if a.Provider, err = llm.New(ctx, llmCfg); err != nil {
		return nil, errors.Join(fmt.Errorf("creating LLM provider: %w", err), a.Close(ctx))
	}
	slog.Info("app: llm provider ready", "type", llmCfg.Type, "model", llmCfg.Model)

	toolOpts := tools.Options{}
	if key := cfg.Services.Brave.APIKey; key != "" {
		searcher, err := tools.NewBraveSearcher(key)
		if err != nil {
			return nil, errors.Join(err, a.Close(ctx))
		}
		toolOpts.Searcher = searcher
		slog.Info("app: web search enabled")
	}
	if a.Registry, err = tools.NewRegistry(toolOpts); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}

	a.Factory, err = catalog.NewFactory(cfg, a.Provider, a.Registry,
		agent.WithToolConcurrency(cfg.ToolConcurrency),
		agent.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	return a, nil
}

// Definitions opens the database on first use and returns the definition store.
func (a *App) Definitions(ctx context.Context) (*definitions.Store, error) {
	if a.database == nil {
		database, err := db.Open(a.Config.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		a.database = database
	}
	return definitions.NewStore(a.database, a.HasTool), nil
}

func (a *App) HasTool(name string) bool {
	_, ok := a.Registry.Get(name)
	return ok
}

// CustomRunner builds a runner for a saved or inline definition.
func (a *App) CustomRunner(def *definitions.Definition) (*agent.Loop, error) {
	profile, err := def.ToProfile(a.Config.CustomMaxSteps)
	if err != nil {
		return nil, err
	}
	return a.Factory.BuildFor(profile)
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.database != nil {
		errs = append(errs, a.database.Close())
	}
	if a.shutdownTrace != nil {
		errs = append(errs, a.shutdownTrace(ctx))
	}
	return errors.Join(errs...)
}
