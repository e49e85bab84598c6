// Package domain contains the core domain models for the dependency-aware command runner.
package domain

import (
	"container/heap"
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the validated, acyclic dependency graph derived from a State.
// Edges run from a file to each command that reads it and from a command to
// each file it writes.
type Graph struct {
	nodes []Node
	succ  map[Node][]Node
	order []Node
}

// BuildGraph derives the dependency graph from st and validates it.
// A cyclic declaration set yields ErrCycleDetected and no graph.
func BuildGraph(st *State) (*Graph, error) {
	g := &Graph{succ: make(map[Node][]Node)}

	addNode := func(n Node) {
		if _, ok := g.succ[n]; !ok {
			g.succ[n] = nil
			g.nodes = append(g.nodes, n)
		}
	}

	for _, cmd := range st.Commands() {
		cn := CommandNode(cmd.Name)
		addNode(cn)
		for _, p := range cmd.Reads {
			fn := FileNode(p)
			addNode(fn)
			g.succ[fn] = append(g.succ[fn], cn)
		}
		for _, p := range cmd.Writes {
			fn := FileNode(p)
			addNode(fn)
			g.succ[cn] = append(g.succ[cn], fn)
		}
	}

	slices.SortFunc(g.nodes, Node.Compare)
	for n, out := range g.succ {
		slices.SortFunc(out, Node.Compare)
		g.succ[n] = slices.CompactFunc(out, func(a, b Node) bool { return a == b })
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate computes the topological order with Kahn's algorithm. Ready nodes
// are drawn from a min-heap so that ties resolve in Node.Compare order.
func (g *Graph) validate() error {
	indegree := make(map[Node]int, len(g.nodes))
	for _, out := range g.succ {
		for _, m := range out {
			indegree[m]++
		}
	}

	ready := &nodeHeap{}
	for _, n := range g.nodes {
		if indegree[n] == 0 {
			*ready = append(*ready, n)
		}
	}
	heap.Init(ready)

	order := make([]Node, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(Node) //nolint:forcetypeassert // heap only holds Node values
		order = append(order, n)
		for _, m := range g.succ[n] {
			indegree[m]--
			if indegree[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return g.buildCycleError(indegree)
	}
	g.order = order
	return nil
}

// buildCycleError walks the nodes Kahn's algorithm could not release and
// reports the first cycle found, starting from the smallest such node.
func (g *Graph) buildCycleError(indegree map[Node]int) error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[Node]int)
	var path []Node
	var cycle []Node

	var visit func(n Node) bool
	visit = func(n Node) bool {
		color[n] = grey
		path = append(path, n)
		for _, m := range g.succ[n] {
			if indegree[m] == 0 {
				continue
			}
			switch color[m] {
			case grey:
				start := slices.Index(path, m)
				cycle = append(slices.Clone(path[start:]), m)
				return true
			case white:
				if visit(m) {
					return true
				}
			}
		}
		color[n] = black
		path = path[:len(path)-1]
		return false
	}

	for _, n := range g.nodes {
		if indegree[n] > 0 && color[n] == white && visit(n) {
			break
		}
	}

	parts := make([]string, len(cycle))
	for i, n := range cycle {
		parts[i] = n.String()
	}
	return zerr.With(
		zerr.Wrap(ErrCycleDetected, "dependency graph is not acyclic"),
		"cycle", strings.Join(parts, " -> "),
	)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Has reports whether n is part of the graph.
func (g *Graph) Has(n Node) bool {
	_, ok := g.succ[n]
	return ok
}

// Nodes yields every node in Node.Compare order.
func (g *Graph) Nodes() iter.Seq[Node] {
	return slices.Values(g.nodes)
}

// Successors returns the direct successors of n in Node.Compare order.
func (g *Graph) Successors(n Node) []Node {
	return slices.Clone(g.succ[n])
}

// Order returns a topological order of all nodes: every edge points forward.
// The order is a pure function of the declarations.
func (g *Graph) Order() []Node {
	return slices.Clone(g.order)
}

// ReachableFrom returns every node reachable from roots through one or more
// edges, together with the roots themselves. All paths are followed, not
// just the shortest. Roots that are not in the graph are ignored.
func (g *Graph) ReachableFrom(roots ...Node) NodeSet {
	seen := make(NodeSet)
	queue := make([]Node, 0, len(roots))
	for _, r := range roots {
		if !g.Has(r) || seen.Has(r) {
			continue
		}
		seen[r] = struct{}{}
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range g.succ[n] {
			if seen.Has(m) {
				continue
			}
			seen[m] = struct{}{}
			queue = append(queue, m)
		}
	}
	return seen
}

// NodeSet is an unordered set of nodes.
type NodeSet map[Node]struct{}

// Has reports whether n is in the set.
func (s NodeSet) Has(n Node) bool {
	_, ok := s[n]
	return ok
}

type nodeHeap []Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].Compare(h[j]) < 0 }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(Node)) //nolint:forcetypeassert // heap only holds Node values
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
