// Package engine orchestrates a refresh run: it loads the catalog, orders
// the views by dependency, selects targets and refreshes them one by one.
package engine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/mvrefresh/internal/filter"
	"github.com/leapstack-labs/mvrefresh/internal/refresh"
	"github.com/leapstack-labs/mvrefresh/internal/state"
	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Recorder persists run history. *state.SQLiteStore implements it.
type Recorder interface {
	CreateRun(dryRun bool) (*state.Run, error)
	RecordResult(runID string, position int, res refresh.Result) error
	CompleteRun(id string, status state.RunStatus, errMsg string) error
}

// Config holds engine configuration.
type Config struct {
	// Catalog supplies views and dependencies (required)
	Catalog core.Catalog
	// Refresher executes refreshes (required unless DryRun)
	Refresher core.Refresher
	// Filter selects refresh targets
	Filter filter.Options
	// DryRun emits statements without executing them
	DryRun bool
	// Out receives statement lines as they are issued
	Out io.Writer
	// Recorder stores run history (optional)
	Recorder Recorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine runs refreshes. It is not safe for concurrent use.
type Engine struct {
	catalog  core.Catalog
	policy   *filter.Policy
	executor *refresh.Executor
	recorder Recorder
	dryRun   bool
	logger   *slog.Logger
}

// New creates an engine. Filter patterns are compiled here so that a bad
// pattern is reported before the catalog is read.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Refresher == nil && !cfg.DryRun {
		return nil, fmt.Errorf("refresher is required unless running dry")
	}

	policy, err := filter.New(cfg.Filter)
	if err != nil {
		return nil, err
	}

	logger.Debug("initializing engine",
		"schema", cfg.Filter.Schema,
		"include", cfg.Filter.Include,
		"exclude", cfg.Filter.Exclude,
		"dry_run", cfg.DryRun)

	return &Engine{
		catalog: cfg.Catalog,
		policy:  policy,
		executor: refresh.NewExecutor(cfg.Refresher, refresh.Options{
			DryRun: cfg.DryRun,
			Out:    cfg.Out,
			Logger: logger,
		}),
		recorder: cfg.Recorder,
		dryRun:   cfg.DryRun,
		logger:   logger,
	}, nil
}
