package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mvrefresh/internal/cli/output"
	"github.com/leapstack-labs/mvrefresh/internal/engine"
)

// PlanEntry is one row of the rendered plan.
type PlanEntry struct {
	Position  int      `json:"position" yaml:"position"`
	Schema    string   `json:"schema" yaml:"schema"`
	View      string   `json:"view" yaml:"view"`
	DependsOn []string `json:"depends_on" yaml:"depends_on"`
	Refresh   bool     `json:"refresh" yaml:"refresh"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the refresh order without refreshing",
		Long: `List every materialized view in the order refresh would process it, with
its dependencies and whether the current filters select it.`,
		Example: `  # Plan for one schema
  mvrefresh plan --schema reporting

  # Machine-readable plan
  mvrefresh plan -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd)
		},
	}
}

func runPlan(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cc := NewCommandContext(cmd)

	adp, closeAdapter, err := cc.Connect(ctx)
	if err != nil {
		return err
	}
	defer closeAdapter()

	eng, err := cc.NewEngine(adp, nil, true)
	if err != nil {
		return err
	}

	plan, err := eng.Plan(ctx)
	if err != nil {
		return err
	}

	return renderPlan(cc.Renderer, planEntries(plan), len(plan.Targets))
}

func planEntries(plan *engine.Plan) []PlanEntry {
	entries := make([]PlanEntry, 0, len(plan.Order))
	for i, view := range plan.Order {
		deps := plan.Graph.Dependencies(view)
		names := make([]string, len(deps))
		for j, d := range deps {
			names[j] = d.String()
		}
		entries = append(entries, PlanEntry{
			Position:  i + 1,
			Schema:    view.Schema,
			View:      view.Name,
			DependsOn: names,
			Refresh:   plan.IsTarget(view),
		})
	}
	return entries
}

func renderPlan(r *output.Renderer, entries []PlanEntry, targets int) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(entries)
	case output.ModeYAML:
		return r.YAML(entries)
	}

	r.Println(r.Header("Refresh plan"))
	r.Println()

	if len(entries) == 0 {
		r.Println(r.Muted("No materialized views found."))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		mark := r.Muted("skip")
		if e.Refresh {
			mark = r.Success("yes")
		}
		deps := strings.Join(e.DependsOn, ", ")
		if deps == "" {
			deps = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Position),
			e.Schema + "." + e.View,
			deps,
			mark,
		})
	}
	r.Table([]string{"#", "View", "Depends on", "Refresh"}, rows)

	r.Println()
	r.Printf("%d of %d materialized views selected\n", targets, len(entries))
	return nil
}
