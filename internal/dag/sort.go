package dag

import "github.com/leapstack-labs/mvrefresh/pkg/core"

// TopologicalSort returns every node so that each view comes after all the
// views it depends on (Kahn's algorithm).
//
// Ties are broken by discovery order, so identical input always yields the
// same order. The graph itself is not modified: remaining-dependency counts
// live in a private slice. If some nodes can never become ready the graph
// has a cycle and a *CycleDetectedError listing them is returned.
func (g *Graph) TopologicalSort() ([]core.ViewID, error) {
	remaining := make([]int, len(g.nodes))
	queue := make([]int, 0, len(g.nodes))
	for i, deps := range g.parents {
		remaining[i] = len(deps)
		if remaining[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]core.ViewID, 0, len(g.nodes))
	for head := 0; head < len(queue); head++ {
		n := queue[head]
		order = append(order, g.nodes[n])

		for _, child := range g.children[n] {
			remaining[child]--
			if remaining[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}

	var unresolved []core.ViewID
	for i, r := range remaining {
		if r > 0 {
			unresolved = append(unresolved, g.nodes[i])
		}
	}
	return nil, &CycleDetectedError{Unresolved: unresolved}
}
