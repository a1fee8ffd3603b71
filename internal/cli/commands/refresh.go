package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mvrefresh/internal/engine"
	"github.com/leapstack-labs/mvrefresh/internal/refresh"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh materialized views in dependency order",
		Long: `Refresh every selected materialized view after the views it reads from.

Each view is first refreshed with REFRESH MATERIALIZED VIEW CONCURRENTLY. When
PostgreSQL rejects the concurrent form for a view, the plain blocking refresh is
attempted once. Any other failure stops the run; views refreshed before it stay
refreshed.

Every statement is printed to stdout before it is executed.`,
		Example: `  # Refresh everything
  mvrefresh refresh

  # Refresh views in one schema, skipping scratch views
  mvrefresh refresh --schema reporting --exclude 'tmp_'

  # Show what would run without touching the database
  mvrefresh refresh --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefresh(cmd)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Print statements without executing them")

	return cmd
}

func runRefresh(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cc := NewCommandContext(cmd)

	adp, closeAdapter, err := cc.Connect(ctx)
	if err != nil {
		return err
	}
	defer closeAdapter()

	store, closeStore, err := cc.OpenState()
	if err != nil {
		return err
	}
	defer closeStore()

	eng, err := cc.NewEngine(adp, store, cc.Cfg.DryRun)
	if err != nil {
		return err
	}

	report, err := eng.Run(ctx)
	logSummary(cc.Logger, report)
	return err
}

func logSummary(logger *slog.Logger, report *engine.Report) {
	if report == nil {
		return
	}
	counts := report.Counts()
	logger.Info("refresh summary",
		slog.String("run_id", report.RunID),
		slog.Bool("dry_run", report.DryRun),
		slog.Int("refreshed", report.Refreshed()),
		slog.Int("fallbacks", counts[refresh.OutcomeNonConcurrent]),
		slog.Int("skipped", counts[refresh.OutcomeSkipped]),
		slog.Int("planned", counts[refresh.OutcomePlanned]),
		slog.Int("failed", counts[refresh.OutcomeFailed]),
		slog.Duration("duration", report.Duration))
}
