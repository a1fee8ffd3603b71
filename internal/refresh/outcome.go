package refresh

import (
	"time"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Outcome is the per-view result of a run.
type Outcome string

// Outcomes.
const (
	OutcomeConcurrent    Outcome = "refreshed-concurrently"
	OutcomeNonConcurrent Outcome = "refreshed-non-concurrently"
	OutcomeSkipped       Outcome = "skipped-by-filter"
	OutcomeFailed        Outcome = "failed"
	// OutcomePlanned marks a dry-run target: the statement was emitted but
	// nothing was executed.
	OutcomePlanned Outcome = "planned"
)

// Refreshed reports whether the view was actually refreshed.
func (o Outcome) Refreshed() bool {
	return o == OutcomeConcurrent || o == OutcomeNonConcurrent
}

// Result describes what happened to one view. It is not modified after the
// executor returns it.
type Result struct {
	View    core.ViewID
	Outcome Outcome
	// Statements lists every statement emitted for the view, in order.
	Statements []core.Statement
	Duration   time.Duration
	// Fallback is set when the concurrent attempt failed and the view was
	// refreshed with the blocking form instead.
	Fallback *RecoverableRefreshError
	// Err is set for OutcomeFailed.
	Err error
}
