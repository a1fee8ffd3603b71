package dag

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

func v(name string) core.ViewID {
	return core.ViewID{Schema: "pub", Name: name}
}

func dep(dependent, source string) core.Edge {
	return core.Edge{Dependent: v(dependent), Source: v(source)}
}

func positions(order []core.ViewID) map[core.ViewID]int {
	pos := make(map[core.ViewID]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	return pos
}

func TestBuild_NodesAndEdges(t *testing.T) {
	g, err := Build(
		[]core.ViewID{v("a"), v("b"), v("c")},
		[]core.Edge{dep("b", "a"), dep("c", "b")},
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
	if got := g.Dependencies(v("b")); !reflect.DeepEqual(got, []core.ViewID{v("a")}) {
		t.Errorf("expected b to depend on a, got %v", got)
	}
	if got := g.Dependents(v("b")); !reflect.DeepEqual(got, []core.ViewID{v("c")}) {
		t.Errorf("expected c to depend on b, got %v", got)
	}
}

func TestBuild_IsolatedNodeIsKept(t *testing.T) {
	g, err := Build([]core.ViewID{v("lonely")}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !g.Contains(v("lonely")) {
		t.Error("expected isolated node to be present")
	}
	if deps := g.Dependencies(v("lonely")); len(deps) != 0 {
		t.Errorf("expected empty dependency set, got %v", deps)
	}
}

func TestBuild_DuplicateEdgesCollapse(t *testing.T) {
	g, err := Build(
		[]core.ViewID{v("a"), v("b")},
		[]core.Edge{dep("b", "a"), dep("b", "a"), dep("b", "a")},
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected duplicate edges to collapse to 1, got %d", g.EdgeCount())
	}
}

func TestBuild_DuplicateNodesCollapse(t *testing.T) {
	g, err := Build([]core.ViewID{v("a"), v("b"), v("a")}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := g.Nodes(); !reflect.DeepEqual(got, []core.ViewID{v("a"), v("b")}) {
		t.Errorf("expected [a b] in discovery order, got %v", got)
	}
}

func TestBuild_UnknownNode(t *testing.T) {
	tests := []struct {
		name    string
		edge    core.Edge
		unknown core.ViewID
	}{
		{name: "unknown dependent", edge: dep("ghost", "a"), unknown: v("ghost")},
		{name: "unknown source", edge: dep("a", "ghost"), unknown: v("ghost")},
		{name: "same name other schema", edge: core.Edge{
			Dependent: v("a"),
			Source:    core.ViewID{Schema: "other", Name: "a"},
		}, unknown: core.ViewID{Schema: "other", Name: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build([]core.ViewID{v("a")}, []core.Edge{tt.edge})
			if g != nil {
				t.Error("expected no graph on error")
			}

			var unknownErr *UnknownNodeError
			if !errors.As(err, &unknownErr) {
				t.Fatalf("expected UnknownNodeError, got %v", err)
			}
			if unknownErr.Node != tt.unknown {
				t.Errorf("expected unknown node %v, got %v", tt.unknown, unknownErr.Node)
			}
			if unknownErr.Edge != tt.edge {
				t.Errorf("expected edge %v, got %v", tt.edge, unknownErr.Edge)
			}
		})
	}
}

func TestTopologicalSort_Simple(t *testing.T) {
	g, _ := Build(
		[]core.ViewID{v("c"), v("b"), v("a")},
		[]core.Edge{dep("b", "a"), dep("c", "b")},
	)

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	want := []core.ViewID{v("a"), v("b"), v("c")}
	if !reflect.DeepEqual(sorted, want) {
		t.Errorf("expected %v, got %v", want, sorted)
	}
}

func TestTopologicalSort_TiesFollowDiscoveryOrder(t *testing.T) {
	g, _ := Build(
		[]core.ViewID{v("z"), v("y"), v("x"), v("w")},
		[]core.Edge{dep("w", "z"), dep("x", "z")},
	)

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	// ready: z, y; z releases x and w in discovery order (x before w)
	want := []core.ViewID{v("z"), v("y"), v("x"), v("w")}
	if !reflect.DeepEqual(sorted, want) {
		t.Errorf("expected %v, got %v", want, sorted)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	g, _ := Build(
		[]core.ViewID{v("a"), v("b"), v("c"), v("d")},
		[]core.Edge{dep("b", "a"), dep("c", "a"), dep("d", "b"), dep("d", "c")},
	)

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	pos := positions(sorted)
	if pos[v("a")] >= pos[v("b")] || pos[v("a")] >= pos[v("c")] {
		t.Error("a should come before b and c")
	}
	if pos[v("b")] >= pos[v("d")] || pos[v("c")] >= pos[v("d")] {
		t.Error("b and c should come before d")
	}
}

func TestTopologicalSort_EndToEndExample(t *testing.T) {
	g, _ := Build(
		[]core.ViewID{v("a"), v("b"), v("c")},
		[]core.Edge{dep("b", "a")},
	)

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	if len(sorted) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(sorted))
	}
	pos := positions(sorted)
	if pos[v("a")] >= pos[v("b")] {
		t.Error("a should come before b")
	}
}

func TestTopologicalSort_DoesNotMutateGraph(t *testing.T) {
	g, _ := Build(
		[]core.ViewID{v("a"), v("b"), v("c")},
		[]core.Edge{dep("b", "a"), dep("c", "b"), dep("c", "a")},
	)
	edgesBefore := g.EdgeCount()
	depsBefore := g.Dependencies(v("c"))

	first, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	second, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to re-sort: %v", err)
	}

	if g.EdgeCount() != edgesBefore {
		t.Errorf("edge count changed from %d to %d", edgesBefore, g.EdgeCount())
	}
	if got := g.Dependencies(v("c")); !reflect.DeepEqual(got, depsBefore) {
		t.Errorf("dependencies of c changed from %v to %v", depsBefore, got)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("sort is not deterministic: %v vs %v", first, second)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g, _ := Build(
		[]core.ViewID{v("a"), v("b")},
		[]core.Edge{dep("a", "b"), dep("b", "a")},
	)

	sorted, err := g.TopologicalSort()
	if sorted != nil {
		t.Errorf("expected no partial order, got %v", sorted)
	}

	var cycleErr *CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleDetectedError, got %v", err)
	}
	want := []core.ViewID{v("a"), v("b")}
	if !reflect.DeepEqual(cycleErr.Unresolved, want) {
		t.Errorf("expected unresolved %v, got %v", want, cycleErr.Unresolved)
	}
}

func TestTopologicalSort_CycleReportsOnlyUnresolved(t *testing.T) {
	// root is fine, x <-> y is a cycle, z hangs off the cycle
	g, _ := Build(
		[]core.ViewID{v("root"), v("x"), v("y"), v("z")},
		[]core.Edge{dep("x", "root"), dep("x", "y"), dep("y", "x"), dep("z", "y")},
	)

	_, err := g.TopologicalSort()

	var cycleErr *CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleDetectedError, got %v", err)
	}
	want := []core.ViewID{v("x"), v("y"), v("z")}
	if !reflect.DeepEqual(cycleErr.Unresolved, want) {
		t.Errorf("expected unresolved %v, got %v", want, cycleErr.Unresolved)
	}
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	g, err := Build([]core.ViewID{v("a")}, []core.Edge{dep("a", "a")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err = g.TopologicalSort()

	var cycleErr *CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleDetectedError for self-loop, got %v", err)
	}
	if len(cycleErr.Unresolved) != 1 || cycleErr.Unresolved[0] != v("a") {
		t.Errorf("expected unresolved [a], got %v", cycleErr.Unresolved)
	}
}

func TestTopologicalSort_Empty(t *testing.T) {
	sorted, err := NewGraph().TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort empty graph: %v", err)
	}
	if len(sorted) != 0 {
		t.Errorf("expected empty order, got %v", sorted)
	}
}

// TestTopologicalSort_RandomDAGs checks the ordering contract on generated
// DAGs: every node exactly once, every source before its dependents.
func TestTopologicalSort_RandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		nodes := make([]core.ViewID, n)
		for i := range nodes {
			nodes[i] = v(fmt.Sprintf("mv_%02d", i))
		}

		// edges only point from higher to lower index in a hidden ranking,
		// then nodes are shuffled so discovery order is unrelated
		var edges []core.Edge
		for i := 1; i < n; i++ {
			for j := 0; j < i; j++ {
				if rng.Float64() < 0.15 {
					edges = append(edges, core.Edge{Dependent: nodes[i], Source: nodes[j]})
				}
			}
		}
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

		g, err := Build(nodes, edges)
		if err != nil {
			t.Fatalf("round %d: Build failed: %v", round, err)
		}
		sorted, err := g.TopologicalSort()
		if err != nil {
			t.Fatalf("round %d: sort failed: %v", round, err)
		}

		if len(sorted) != n {
			t.Fatalf("round %d: expected %d nodes, got %d", round, n, len(sorted))
		}
		pos := positions(sorted)
		if len(pos) != n {
			t.Fatalf("round %d: duplicate nodes in %v", round, sorted)
		}
		for _, e := range edges {
			if pos[e.Source] >= pos[e.Dependent] {
				t.Errorf("round %d: %s must come before %s", round, e.Source, e.Dependent)
			}
		}

		again, _ := g.TopologicalSort()
		if !reflect.DeepEqual(sorted, again) {
			t.Errorf("round %d: sort is not deterministic", round)
		}
	}
}
