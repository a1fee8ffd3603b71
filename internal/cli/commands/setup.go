// Package commands implements the mvrefresh subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mvrefresh/internal/cli/config"
	"github.com/leapstack-labs/mvrefresh/internal/cli/output"
	"github.com/leapstack-labs/mvrefresh/internal/engine"
	"github.com/leapstack-labs/mvrefresh/internal/state"
	"github.com/leapstack-labs/mvrefresh/pkg/adapter"
	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode, _ := output.ParseMode(cfg.OutputFormat) // validated at load time
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenAdapter creates and connects the adapter for the configured target.
// Tests replace it to run commands against a fake catalog.
var OpenAdapter = func(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (core.Adapter, error) {
	adp, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}
	return adp, nil
}

// Connect opens the target database.
// Returns the adapter and a cleanup function that must be called (typically via defer).
func (cc *CommandContext) Connect(ctx context.Context) (core.Adapter, func(), error) {
	adp, err := OpenAdapter(ctx, cc.Cfg.Target.AdapterConfig(), cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	return adp, func() { _ = adp.Close() }, nil
}

// OpenState opens the run history store. It returns a nil store when
// history is disabled.
func (cc *CommandContext) OpenState() (*state.SQLiteStore, func(), error) {
	if cc.Cfg.StatePath == "" {
		return nil, func() {}, nil
	}

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// NewEngine builds an engine over the adapter with the configured filter.
func (cc *CommandContext) NewEngine(adp core.Adapter, store *state.SQLiteStore, dryRun bool) (*engine.Engine, error) {
	engCfg := engine.Config{
		Catalog:   adp,
		Refresher: adp,
		Filter:    cc.Cfg.FilterOptions(),
		DryRun:    dryRun,
		Out:       cc.Renderer.Out(),
		Logger:    cc.Logger,
	}
	// a nil *SQLiteStore must not become a non-nil Recorder
	if store != nil {
		engCfg.Recorder = store
	}
	return engine.New(engCfg)
}

// getConfig returns the current configuration, or the defaults when no
// configuration has been loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		LogFormat:    config.DefaultLogFormat,
		OutputFormat: config.DefaultOutput,
		Target:       &config.TargetConfig{Type: config.DefaultTargetType},
		History:      config.HistoryConfig{Limit: config.DefaultHistoryLimit},
	}
}
