package engine

// run.go - refresh execution with run history

import (
	"context"
	"time"

	"github.com/leapstack-labs/mvrefresh/internal/refresh"
	"github.com/leapstack-labs/mvrefresh/internal/state"
)

// Report summarises a run.
type Report struct {
	RunID   string
	DryRun  bool
	Started time.Time
	// Duration is the wall time of the whole run.
	Duration time.Duration
	// Results has one entry per processed view, in refresh order. Views
	// after a fatal failure are not included.
	Results []refresh.Result
}

// Counts returns the number of results per outcome.
func (r *Report) Counts() map[refresh.Outcome]int {
	counts := make(map[refresh.Outcome]int)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

// Refreshed returns the number of views that were actually refreshed.
func (r *Report) Refreshed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Refreshed() {
			n++
		}
	}
	return n
}

// Run refreshes every target in dependency order.
//
// Structural problems (unknown views in dependencies, cycles) are reported
// before anything is refreshed. The first fatal refresh error stops the
// run; views refreshed before it stay refreshed.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{DryRun: e.dryRun, Started: time.Now()}
	defer func() { report.Duration = time.Since(report.Started) }()

	e.logger.Info("starting run", "dry_run", e.dryRun)

	if e.recorder != nil {
		run, err := e.recorder.CreateRun(e.dryRun)
		if err != nil {
			return report, err
		}
		report.RunID = run.ID
		e.logger.Debug("created run", "run_id", run.ID)
	}

	plan, err := e.Plan(ctx)
	if err != nil {
		e.completeRun(report, err)
		return report, err
	}

	for i, view := range plan.Order {
		if !plan.IsTarget(view) {
			e.logger.Debug("skipping view", "view", view.String())
			e.record(report, i, refresh.Result{View: view, Outcome: refresh.OutcomeSkipped})
			continue
		}

		res, err := e.executor.Refresh(ctx, view)
		e.record(report, i, res)
		if err != nil {
			e.completeRun(report, err)
			return report, err
		}
	}

	e.completeRun(report, nil)
	return report, nil
}

func (e *Engine) record(report *Report, position int, res refresh.Result) {
	report.Results = append(report.Results, res)
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordResult(report.RunID, position, res); err != nil {
		e.logger.Warn("failed to record result", "view", res.View.String(), "error", err.Error())
	}
}

func (e *Engine) completeRun(report *Report, runErr error) {
	if runErr != nil {
		e.logger.Info("run failed", "run_id", report.RunID, "error", runErr.Error())
	} else {
		e.logger.Info("run completed", "run_id", report.RunID, "refreshed", report.Refreshed())
	}

	if e.recorder == nil {
		return
	}
	status, msg := state.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = state.RunStatusFailed, runErr.Error()
	}
	if err := e.recorder.CompleteRun(report.RunID, status, msg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", report.RunID, "error", err.Error())
	}
}
