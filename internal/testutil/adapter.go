package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// RefreshCall records one Refresh invocation on a FakeAdapter.
type RefreshCall struct {
	View core.ViewID
	Mode core.RefreshMode
}

// FakeAdapter is an in-memory core.Adapter. Views and edges are served as
// configured; Refresh consults Failures before succeeding.
type FakeAdapter struct {
	mu sync.Mutex

	ViewList []core.ViewID
	EdgeList []core.Edge

	// Failures maps a statement to the error its Refresh call returns.
	Failures map[core.Statement]error

	ViewsErr        error
	DependenciesErr error
	ConnectErr      error

	Calls     []RefreshCall
	Connected bool
	Closed    bool
}

// NewFakeAdapter creates a fake catalog with the given views and edges.
func NewFakeAdapter(views []core.ViewID, edges []core.Edge) *FakeAdapter {
	return &FakeAdapter{
		ViewList: views,
		EdgeList: edges,
		Failures: make(map[core.Statement]error),
	}
}

// FailConcurrent makes the concurrent refresh of view fail as unsupported.
func (f *FakeAdapter) FailConcurrent(view core.ViewID) {
	f.Fail(core.Statement{View: view, Mode: core.RefreshConcurrently},
		fmt.Errorf("cannot refresh %s concurrently: %w", view, core.ErrConcurrentUnsupported))
}

// Fail makes stmt fail with err.
func (f *FakeAdapter) Fail(stmt core.Statement, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failures[stmt] = err
}

// Connect implements core.Adapter.
func (f *FakeAdapter) Connect(_ context.Context, _ core.AdapterConfig) error {
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	return nil
}

// Close implements core.Adapter.
func (f *FakeAdapter) Close() error {
	f.Closed = true
	return nil
}

// Views implements core.Catalog.
func (f *FakeAdapter) Views(_ context.Context) ([]core.ViewID, error) {
	if f.ViewsErr != nil {
		return nil, f.ViewsErr
	}
	return append([]core.ViewID(nil), f.ViewList...), nil
}

// Dependencies implements core.Catalog.
func (f *FakeAdapter) Dependencies(_ context.Context) ([]core.Edge, error) {
	if f.DependenciesErr != nil {
		return nil, f.DependenciesErr
	}
	return append([]core.Edge(nil), f.EdgeList...), nil
}

// Refresh implements core.Refresher.
func (f *FakeAdapter) Refresh(ctx context.Context, view core.ViewID, mode core.RefreshMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Calls = append(f.Calls, RefreshCall{View: view, Mode: mode})
	if err, ok := f.Failures[core.Statement{View: view, Mode: mode}]; ok {
		return err
	}
	return nil
}

// RefreshedViews returns the views whose Refresh calls succeeded, in order.
func (f *FakeAdapter) RefreshedViews() []core.ViewID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ViewID
	for _, c := range f.Calls {
		if _, failed := f.Failures[core.Statement{View: c.View, Mode: c.Mode}]; !failed {
			out = append(out, c.View)
		}
	}
	return out
}

// ErrBoom is a generic non-recoverable failure for tests.
var ErrBoom = errors.New("boom")

var _ core.Adapter = (*FakeAdapter)(nil)
