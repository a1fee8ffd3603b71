package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/mvrefresh/internal/dag"
	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Plan is the refresh order for one run.
type Plan struct {
	// Graph is the full dependency graph.
	Graph *dag.Graph
	// Order holds every view in refresh order.
	Order []core.ViewID
	// Targets is the subsequence of Order that will be refreshed.
	Targets []core.ViewID

	targets map[core.ViewID]bool
}

// IsTarget reports whether view is refreshed by this plan.
func (p *Plan) IsTarget(view core.ViewID) bool {
	return p.targets[view]
}

// Plan reads the catalog, orders all views and selects the targets.
// It has no side effects on the database.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	views, err := e.catalog.Views(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list materialized views: %w", err)
	}
	edges, err := e.catalog.Dependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list materialized view dependencies: %w", err)
	}

	e.logger.Debug("catalog loaded", "views", len(views), "dependencies", len(edges))

	graph, err := dag.Build(views, edges)
	if err != nil {
		return nil, err
	}
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	targets := e.policy.Apply(order)
	set := make(map[core.ViewID]bool, len(targets))
	for _, t := range targets {
		set[t] = true
	}

	e.logger.Debug("refresh order computed", "views", len(order), "targets", len(targets))

	return &Plan{
		Graph:   graph,
		Order:   order,
		Targets: targets,
		targets: set,
	}, nil
}
