// Package dag provides the dependency graph between materialized views.
// It supports graph construction from catalog data and topological ordering
// with cycle detection.
package dag

import (
	"sort"

	"github.com/leapstack-labs/mvrefresh/pkg/core"
)

// Graph maps every view to the set of views it directly depends on.
//
// Nodes are stored by index in discovery order so that every traversal is
// reproducible for identical input.
type Graph struct {
	nodes    []core.ViewID
	index    map[core.ViewID]int
	parents  [][]int // node -> dependencies (sources), ascending
	children [][]int // node -> dependents, ascending
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[core.ViewID]int),
	}
}

// Build creates a graph from a declared node list and an edge list.
// Every declared node becomes a key, even without edges. An edge that
// references an undeclared node yields an *UnknownNodeError.
func Build(nodes []core.ViewID, edges []core.Edge) (*Graph, error) {
	g := NewGraph()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		if err := g.AddEdge(e.Dependent, e.Source); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddNode adds a node to the graph. Adding an existing node is a no-op and
// keeps its original position.
func (g *Graph) AddNode(id core.ViewID) {
	if _, exists := g.index[id]; exists {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.parents = append(g.parents, nil)
	g.children = append(g.children, nil)
}

// AddEdge records that dependent reads from source. Duplicate edges collapse.
// A self-edge is accepted and surfaces later as a cycle.
func (g *Graph) AddEdge(dependent, source core.ViewID) error {
	edge := core.Edge{Dependent: dependent, Source: source}

	d, ok := g.index[dependent]
	if !ok {
		return &UnknownNodeError{Node: dependent, Edge: edge}
	}
	s, ok := g.index[source]
	if !ok {
		return &UnknownNodeError{Node: source, Edge: edge}
	}

	g.parents[d] = insertSorted(g.parents[d], s)
	g.children[s] = insertSorted(g.children[s], d)
	return nil
}

// Contains reports whether id is a node of the graph.
func (g *Graph) Contains(id core.ViewID) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns all nodes in discovery order.
func (g *Graph) Nodes() []core.ViewID {
	out := make([]core.ViewID, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependencies returns the views id directly depends on, in discovery order.
func (g *Graph) Dependencies(id core.ViewID) []core.ViewID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.resolve(g.parents[i])
}

// Dependents returns the views that directly depend on id, in discovery order.
func (g *Graph) Dependents(id core.ViewID) []core.ViewID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.resolve(g.children[i])
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct dependencies in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, p := range g.parents {
		count += len(p)
	}
	return count
}

func (g *Graph) resolve(idx []int) []core.ViewID {
	out := make([]core.ViewID, len(idx))
	for i, n := range idx {
		out[i] = g.nodes[n]
	}
	return out
}

// insertSorted adds v to an ascending slice unless already present.
func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
