package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mvrefresh/internal/cli/output"
	"github.com/leapstack-labs/mvrefresh/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded refresh runs",
		Long: `List recent refresh runs recorded in the state database, or the per-view
outcomes of one run when a run id is given.

Run history is recorded only when state_path (or --state) is set.`,
		Example: `  # Last 20 runs
  mvrefresh history --state .mvrefresh/state.db

  # Details of one run
  mvrefresh history 3f1c... --state .mvrefresh/state.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args)
		},
	}

	cmd.Flags().Int("limit", 0, "Maximum number of runs to list (default from history.limit)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)

	if cc.Cfg.StatePath == "" {
		return fmt.Errorf("run history is disabled\nHint: set state_path in mvrefresh.yaml or pass --state")
	}

	store, closeStore, err := cc.OpenState()
	if err != nil {
		return err
	}
	defer closeStore()

	if len(args) == 1 {
		return showRun(cc.Renderer, store, args[0])
	}

	runs, err := store.ListRuns(cc.Cfg.History.Limit)
	if err != nil {
		return err
	}
	return renderRuns(cc.Renderer, runs)
}

func renderRuns(r *output.Renderer, runs []*state.Run) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(runs)
	case output.ModeYAML:
		return r.YAML(runs)
	}

	r.Println(r.Header("Refresh runs"))
	r.Println()

	if len(runs) == 0 {
		r.Println(r.Muted("No runs recorded."))
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		mode := "refresh"
		if run.DryRun {
			mode = "dry run"
		}
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatRunDuration(run),
			statusLabel(r, run.Status),
			mode,
			strconv.Itoa(run.Refreshed),
			strconv.Itoa(run.Fallbacks),
			strconv.Itoa(run.Skipped),
			strconv.Itoa(run.Failed),
		})
	}
	r.Table([]string{"Run", "Started", "Duration", "Status", "Mode", "Refreshed", "Fallbacks", "Skipped", "Failed"}, rows)
	return nil
}

func showRun(r *output.Renderer, store *state.SQLiteStore, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	results, err := store.ListResults(id)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(struct {
			*state.Run
			Views []*state.ViewResult `json:"views"`
		}{run, results})
	case output.ModeYAML:
		return r.YAML(struct {
			Run   *state.Run          `yaml:"run"`
			Views []*state.ViewResult `yaml:"views"`
		}{run, results})
	}

	r.Println(r.Header("Run " + run.ID))
	r.Printf("Status: %s  Started: %s  Duration: %s\n",
		statusLabel(r, run.Status),
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		formatRunDuration(run))
	if run.Error != "" {
		r.Printf("Error: %s\n", r.Error(run.Error))
	}
	r.Println()

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			strconv.Itoa(res.Position + 1),
			res.Schema + "." + res.Name,
			res.Outcome,
			(time.Duration(res.DurationMS) * time.Millisecond).String(),
			res.Error,
		})
	}
	r.Table([]string{"#", "View", "Outcome", "Duration", "Error"}, rows)
	return nil
}

func statusLabel(r *output.Renderer, status state.RunStatus) string {
	switch status {
	case state.RunStatusCompleted:
		return r.Success(string(status))
	case state.RunStatusFailed:
		return r.Error(string(status))
	default:
		return r.Warning(string(status))
	}
}

func formatRunDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
