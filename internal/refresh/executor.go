// Package refresh executes materialized view refreshes one at a time, falling
// back to a blocking refresh when the concurrent form is not available.
package refresh

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Options configures an Executor.
type Options struct {
	// DryRun only emits statements.
	DryRun bool
	// Out receives one line per statement as it is issued. Nil discards.
	Out io.Writer
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Executor issues refreshes for views in the order it is given them.
type Executor struct {
	refresher core.Refresher
	dryRun    bool
	out       io.Writer
	logger    *slog.Logger
}

type flusher interface {
	Flush() error
}

// NewExecutor creates an executor. refresher may be nil in dry-run mode.
func NewExecutor(refresher core.Refresher, opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Executor{
		refresher: refresher,
		dryRun:    opts.DryRun,
		out:       out,
		logger:    logger,
	}
}

// DryRun reports whether the executor only emits statements.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Execute refreshes views in order and stops at the first fatal failure.
// Results cover every view processed so far, including the failed one;
// views after it are left untouched.
func (e *Executor) Execute(ctx context.Context, views []core.ViewID) ([]Result, error) {
	results := make([]Result, 0, len(views))
	for _, view := range views {
		res, err := e.Refresh(ctx, view)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Refresh refreshes a single view.
//
// The concurrent form is tried first. If it fails because the view does not
// support it, the blocking form is tried exactly once. Every other failure,
// including a failed fallback, is returned as a *FatalRefreshError.
func (e *Executor) Refresh(ctx context.Context, view core.ViewID) (Result, error) {
	res := Result{View: view}
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return e.fail(&res, start, core.RefreshConcurrently, err)
	}

	if err := e.emit(&res, core.Statement{View: view, Mode: core.RefreshConcurrently}); err != nil {
		return e.fail(&res, start, core.RefreshConcurrently, err)
	}

	if e.dryRun {
		res.Outcome = OutcomePlanned
		res.Duration = time.Since(start)
		return res, nil
	}

	err := e.refresher.Refresh(ctx, view, core.RefreshConcurrently)
	if err == nil {
		res.Outcome = OutcomeConcurrent
		res.Duration = time.Since(start)
		e.logger.Debug("view refreshed", "view", view.String(), "mode", core.RefreshConcurrently.String())
		return res, nil
	}
	if !IsConcurrentUnsupported(err) {
		return e.fail(&res, start, core.RefreshConcurrently, err)
	}

	res.Fallback = &RecoverableRefreshError{View: view, Err: err}
	e.logger.Warn("attempting non-concurrent refresh", "view", view.String(), "reason", err.Error())

	if err := e.emit(&res, core.Statement{View: view, Mode: core.RefreshBlocking}); err != nil {
		return e.fail(&res, start, core.RefreshBlocking, err)
	}
	if err := e.refresher.Refresh(ctx, view, core.RefreshBlocking); err != nil {
		return e.fail(&res, start, core.RefreshBlocking, err)
	}

	res.Outcome = OutcomeNonConcurrent
	res.Duration = time.Since(start)
	e.logger.Debug("view refreshed", "view", view.String(), "mode", core.RefreshBlocking.String())
	return res, nil
}

func (e *Executor) emit(res *Result, stmt core.Statement) error {
	res.Statements = append(res.Statements, stmt)
	if _, err := fmt.Fprintln(e.out, stmt.String()); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}
	if f, ok := e.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush statement: %w", err)
		}
	}
	return nil
}

func (e *Executor) fail(res *Result, start time.Time, mode core.RefreshMode, err error) (Result, error) {
	fatal := &FatalRefreshError{View: res.View, Mode: mode, Err: err}
	res.Outcome = OutcomeFailed
	res.Duration = time.Since(start)
	res.Err = fatal
	e.logger.Error("refresh failed", "view", res.View.String(), "mode", mode.String(), "error", err.Error())
	return *res, fatal
}
