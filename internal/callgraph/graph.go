// Package callgraph provides the per-pass call graph and its cycle detector.
package callgraph

import (
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// Policy selects which cycles are reported.
type Policy int

const (
	// Reachable reports any cycle on a path that starts at a root:
	// revisiting a node already on the active path is a cycle.
	Reachable Policy = iota
	// RootClosing reports only cycles that lead back to the root they started from.
	RootClosing
)

func (p Policy) String() string {
	switch p {
	case Reachable:
		return "reachable"
	case RootClosing:
		return "root"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses a policy name as produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "reachable":
		return Reachable, nil
	case "root":
		return RootClosing, nil
	}
	return 0, fmt.Errorf("unknown cycle policy %q", s)
}

// Graph is a directed graph of method nodes and call edges.
// Node identifiers are arbitrary strings; they are interned to dense integers.
type Graph struct {
	ids   map[string]int
	names []string
	succ  []*intsets.Sparse // never copied by value

	roots     intsets.Sparse
	rootOrder []int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{ids: make(map[string]int)}
}

// AddNode registers a node if unseen and returns its index.
func (g *Graph) AddNode(id string) int {
	if n, ok := g.ids[id]; ok {
		return n
	}
	n := len(g.names)
	g.ids[id] = n
	g.names = append(g.names, id)
	g.succ = append(g.succ, new(intsets.Sparse))
	return n
}

// AddRoot registers id as a handler entry node.
func (g *Graph) AddRoot(id string) {
	n := g.AddNode(id)
	if g.roots.Insert(n) {
		g.rootOrder = append(g.rootOrder, n)
	}
}

// AddEdge adds a call edge, registering both endpoints if unseen.
func (g *Graph) AddEdge(from, to string) {
	f := g.AddNode(from)
	t := g.AddNode(to)
	g.succ[f].Insert(t)
}

// IsRoot reports whether id is a handler entry node.
func (g *Graph) IsRoot(id string) bool {
	n, ok := g.ids[id]
	return ok && g.roots.Has(n)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.names)
}

// HasCycle reports whether any cycle is reachable from a root.
func (g *Graph) HasCycle() bool {
	return g.FindCycle(Reachable) != nil
}

// FindCycle returns the first cycle found under the given policy as a node
// path whose first and last elements are the same node, or nil if none.
// Roots are searched in registration order and successors in node order,
// so the result is deterministic.
func (g *Graph) FindCycle(p Policy) []string {
	if p == RootClosing {
		return g.findRootClosingCycle()
	}
	return g.findReachableCycle()
}

type frame struct {
	node int
	next []int
}

func (g *Graph) successors(n int) []int {
	return g.succ[n].AppendTo(nil)
}

func (g *Graph) findReachableCycle() []string {
	// done holds nodes whose whole reachable subgraph is known to be acyclic.
	var done, onPath intsets.Sparse

	for _, root := range g.rootOrder {
		if done.Has(root) {
			continue
		}

		stack := []frame{{node: root, next: g.successors(root)}}
		onPath.Insert(root)

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if len(top.next) == 0 {
				onPath.Remove(top.node)
				done.Insert(top.node)
				stack = stack[:len(stack)-1]
				continue
			}

			n := top.next[0]
			top.next = top.next[1:]

			if onPath.Has(n) {
				return g.cyclePath(stack, n)
			}
			if done.Has(n) {
				continue
			}

			onPath.Insert(n)
			stack = append(stack, frame{node: n, next: g.successors(n)})
		}
	}

	return nil
}

func (g *Graph) findRootClosingCycle() []string {
	for _, root := range g.rootOrder {
		var visited intsets.Sparse
		visited.Insert(root)
		stack := []frame{{node: root, next: g.successors(root)}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if len(top.next) == 0 {
				stack = stack[:len(stack)-1]
				continue
			}

			n := top.next[0]
			top.next = top.next[1:]

			if n == root {
				return g.cyclePath(stack, n)
			}
			if !visited.Insert(n) {
				continue
			}
			stack = append(stack, frame{node: n, next: g.successors(n)})
		}
	}

	return nil
}

// cyclePath renders the part of the active path starting at closing, followed by closing again.
func (g *Graph) cyclePath(stack []frame, closing int) []string {
	start := 0
	for i, f := range stack {
		if f.node == closing {
			start = i
			break
		}
	}

	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, g.names[f.node])
	}
	return append(path, g.names[closing])
}
