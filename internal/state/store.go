// Package state records refresh run history in a local SQLite database.
package state

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the refresh command.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Status      RunStatus  `json:"status" yaml:"status"`
	DryRun      bool       `json:"dry_run" yaml:"dry_run"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`

	// Per-outcome counts, filled by ListRuns and GetRun.
	Refreshed int `json:"refreshed" yaml:"refreshed"`
	Fallbacks int `json:"fallbacks" yaml:"fallbacks"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Failed    int `json:"failed" yaml:"failed"`
	Planned   int `json:"planned" yaml:"planned"`
}

// ViewResult is the recorded outcome of one view within a run.
type ViewResult struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	Position   int    `json:"position" yaml:"position"`
	Schema     string `json:"schema" yaml:"schema"`
	Name       string `json:"name" yaml:"name"`
	Outcome    string `json:"outcome" yaml:"outcome"`
	Statements int    `json:"statements" yaml:"statements"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}
