package dag

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// UnknownNodeError is returned when an edge references a view that is not
// in the declared node set. It indicates inconsistent catalog data.
type UnknownNodeError struct {
	Node core.ViewID
	Edge core.Edge
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("dependency %s references unknown materialized view %s", e.Edge, e.Node)
}

// CycleDetectedError is returned when no topological order exists.
// Unresolved holds every view that could not be ordered, in discovery order;
// it contains the cycle(s) and everything downstream of them.
type CycleDetectedError struct {
	Unresolved []core.ViewID
}

func (e *CycleDetectedError) Error() string {
	names := make([]string, len(e.Unresolved))
	for i, v := range e.Unresolved {
		names[i] = v.String()
	}
	return fmt.Sprintf("dependency cycle detected among %d materialized views: %s",
		len(names), strings.Join(names, ", "))
}
