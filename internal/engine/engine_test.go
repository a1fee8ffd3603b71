package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mvrefresh/internal/dag"
	"github.com/leapstack-labs/mvrefresh/internal/filter"
	"github.com/leapstack-labs/mvrefresh/internal/refresh"
	"github.com/leapstack-labs/mvrefresh/internal/state"
	"github.com/leapstack-labs/mvrefresh/internal/testutil"
	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

func mv(name string) core.ViewID {
	return core.ViewID{Schema: "pub", Name: name}
}

func dependsOn(dependent, source string) core.Edge {
	return core.Edge{Dependent: mv(dependent), Source: mv(source)}
}

func lines(buf *bytes.Buffer) []string {
	s := strings.TrimRight(buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func setupEngine(t *testing.T, fake *testutil.FakeAdapter, cfg Config) (*Engine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg.Catalog = fake
	cfg.Refresher = fake
	cfg.Out = &out
	cfg.Logger = testutil.NewTestLogger(t)
	eng, err := New(cfg)
	require.NoError(t, err)
	return eng, &out
}

func setupStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_Validation(t *testing.T) {
	fake := testutil.NewFakeAdapter(nil, nil)

	_, err := New(Config{Refresher: fake})
	assert.Error(t, err, "catalog is required")

	_, err = New(Config{Catalog: fake})
	assert.Error(t, err, "refresher is required outside dry run")

	_, err = New(Config{Catalog: fake, DryRun: true})
	assert.NoError(t, err)

	_, err = New(Config{Catalog: fake, Refresher: fake, Filter: filter.Options{Include: "("}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid include pattern")
}

func TestRun_ExcludeSkipsView(t *testing.T) {
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("a"), mv("b"), mv("c")},
		[]core.Edge{dependsOn("b", "a")},
	)
	eng, out := setupEngine(t, fake, Config{Filter: filter.Options{Exclude: "c"}})

	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"REFRESH MATERIALIZED VIEW CONCURRENTLY pub.a",
		"REFRESH MATERIALIZED VIEW CONCURRENTLY pub.b",
	}, lines(out))
	assert.Equal(t, []core.ViewID{mv("a"), mv("b")}, fake.RefreshedViews())

	counts := report.Counts()
	assert.Equal(t, 2, counts[refresh.OutcomeConcurrent])
	assert.Equal(t, 1, counts[refresh.OutcomeSkipped])
	assert.Equal(t, 2, report.Refreshed())
}

func TestRun_DependencyOrder(t *testing.T) {
	// declared in reverse so the catalog order cannot be mistaken for the result
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("daily"), mv("weekly"), mv("base")},
		[]core.Edge{dependsOn("daily", "base"), dependsOn("weekly", "daily")},
	)
	eng, _ := setupEngine(t, fake, Config{})

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ViewID{mv("base"), mv("daily"), mv("weekly")}, fake.RefreshedViews())
}

func TestRun_OutOfScopeSourceIsNotRefreshed(t *testing.T) {
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("src"), core.ViewID{Schema: "rpt", Name: "summary"}},
		[]core.Edge{{Dependent: core.ViewID{Schema: "rpt", Name: "summary"}, Source: mv("src")}},
	)
	eng, _ := setupEngine(t, fake, Config{Filter: filter.Options{Schema: "rpt"}})

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.ViewID{{Schema: "rpt", Name: "summary"}}, fake.RefreshedViews())
}

func TestRun_StructuralErrorsRefreshNothing(t *testing.T) {
	tests := []struct {
		name  string
		views []core.ViewID
		edges []core.Edge
		check func(t *testing.T, err error)
	}{
		{
			name:  "cycle",
			views: []core.ViewID{mv("a"), mv("b"), mv("ok")},
			edges: []core.Edge{dependsOn("a", "b"), dependsOn("b", "a")},
			check: func(t *testing.T, err error) {
				var cycleErr *dag.CycleDetectedError
				require.ErrorAs(t, err, &cycleErr)
				assert.Equal(t, []core.ViewID{mv("a"), mv("b")}, cycleErr.Unresolved)
			},
		},
		{
			name:  "unknown node",
			views: []core.ViewID{mv("a")},
			edges: []core.Edge{dependsOn("a", "ghost")},
			check: func(t *testing.T, err error) {
				var unknownErr *dag.UnknownNodeError
				require.ErrorAs(t, err, &unknownErr)
				assert.Equal(t, mv("ghost"), unknownErr.Node)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeAdapter(tt.views, tt.edges)
			eng, out := setupEngine(t, fake, Config{})

			report, err := eng.Run(context.Background())
			require.Error(t, err)
			tt.check(t, err)

			assert.Empty(t, fake.Calls)
			assert.Empty(t, out.String())
			assert.Empty(t, report.Results)
		})
	}
}

func TestRun_CatalogErrors(t *testing.T) {
	fake := testutil.NewFakeAdapter(nil, nil)
	fake.ViewsErr = testutil.ErrBoom
	eng, _ := setupEngine(t, fake, Config{})

	_, err := eng.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrBoom)
	assert.Contains(t, err.Error(), "failed to list materialized views")

	fake.ViewsErr = nil
	fake.DependenciesErr = testutil.ErrBoom
	_, err = eng.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependencies")
}

func TestRun_FallbackContinues(t *testing.T) {
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("a"), mv("b")},
		[]core.Edge{dependsOn("b", "a")},
	)
	fake.FailConcurrent(mv("a"))
	eng, out := setupEngine(t, fake, Config{})

	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"REFRESH MATERIALIZED VIEW CONCURRENTLY pub.a",
		"REFRESH MATERIALIZED VIEW pub.a",
		"REFRESH MATERIALIZED VIEW CONCURRENTLY pub.b",
	}, lines(out))
	require.Len(t, report.Results, 2)
	assert.Equal(t, refresh.OutcomeNonConcurrent, report.Results[0].Outcome)
	assert.NotNil(t, report.Results[0].Fallback)
	assert.Equal(t, refresh.OutcomeConcurrent, report.Results[1].Outcome)
}

func TestRun_FatalStopsRun(t *testing.T) {
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("a"), mv("b"), mv("c")},
		[]core.Edge{dependsOn("b", "a"), dependsOn("c", "b")},
	)
	fake.Fail(core.Statement{View: mv("b"), Mode: core.RefreshConcurrently}, testutil.ErrBoom)
	eng, _ := setupEngine(t, fake, Config{})

	report, err := eng.Run(context.Background())
	require.Error(t, err)

	var fatal *refresh.FatalRefreshError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, mv("b"), fatal.View)

	assert.Equal(t, []core.ViewID{mv("a")}, fake.RefreshedViews())
	require.Len(t, report.Results, 2)
	assert.Equal(t, refresh.OutcomeFailed, report.Results[1].Outcome)
}

func TestRun_DryRun(t *testing.T) {
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("a"), mv("b")},
		[]core.Edge{dependsOn("b", "a")},
	)
	var out bytes.Buffer
	eng, err := New(Config{Catalog: fake, DryRun: true, Out: &out})
	require.NoError(t, err)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Counts()[refresh.OutcomePlanned])
	assert.Equal(t, 0, report.Refreshed())
	assert.Len(t, lines(&out), 2)
	assert.Empty(t, fake.Calls)
}

func TestPlan(t *testing.T) {
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("orders_daily"), mv("orders"), mv("tmp_x")},
		[]core.Edge{dependsOn("orders_daily", "orders")},
	)
	eng, out := setupEngine(t, fake, Config{Filter: filter.Options{Include: "orders"}})

	plan, err := eng.Plan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []core.ViewID{mv("orders"), mv("tmp_x"), mv("orders_daily")}, plan.Order)
	assert.Equal(t, []core.ViewID{mv("orders"), mv("orders_daily")}, plan.Targets)
	assert.True(t, plan.IsTarget(mv("orders")))
	assert.False(t, plan.IsTarget(mv("tmp_x")))
	assert.Equal(t, 3, plan.Graph.NodeCount())

	assert.Empty(t, fake.Calls)
	assert.Empty(t, out.String())
}

func TestRun_RecordsHistory(t *testing.T) {
	store := setupStore(t)
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("a"), mv("b"), mv("c")},
		[]core.Edge{dependsOn("b", "a")},
	)
	fake.FailConcurrent(mv("b"))
	eng, _ := setupEngine(t, fake, Config{Filter: filter.Options{Exclude: "c"}, Recorder: store})

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)

	run, err := store.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Refreshed)
	assert.Equal(t, 1, run.Fallbacks)
	assert.Equal(t, 1, run.Skipped)

	results, err := store.ListResults(report.RunID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "c", results[1].Name)
	assert.Equal(t, "b", results[2].Name)
}

func TestRun_RecordsFailure(t *testing.T) {
	store := setupStore(t)
	fake := testutil.NewFakeAdapter(
		[]core.ViewID{mv("a"), mv("b")},
		[]core.Edge{dependsOn("a", "b"), dependsOn("b", "a")},
	)
	eng, _ := setupEngine(t, fake, Config{Recorder: store})

	report, err := eng.Run(context.Background())
	require.Error(t, err)

	run, err := store.GetRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "cycle")
}

type failingRecorder struct{ *state.SQLiteStore }

func (failingRecorder) CreateRun(bool) (*state.Run, error) {
	return nil, errors.New("disk full")
}

func TestRun_RecorderCreateFailure(t *testing.T) {
	fake := testutil.NewFakeAdapter([]core.ViewID{mv("a")}, nil)
	eng, _ := setupEngine(t, fake, Config{Recorder: failingRecorder{}})

	_, err := eng.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, fake.Calls)
}
