// SPDX-License-Identifier: MPL-2.0

// Package depgraph models the static module dependency graph and answers the
// ordering and safety queries the installer needs: prerequisites of a module,
// dependents of a module (direct and transitive), whether uninstalling a
// module would strand an installed dependent, and a derived install order.
package depgraph

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes involved in the cycle (enough of them to
		// identify the problem, not necessarily a minimal cycle).
		Cycle []string
	}

	// Graph is a directed dependency graph over module names.
	// An edge exists from each module to every prerequisite it requires.
	Graph struct {
		// requires maps each module to its prerequisites in declaration order.
		requires map[string][]string
		// nodes tracks all modules in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		requires: make(map[string][]string),
		nodeSet:  make(map[string]bool),
	}
}

// AddModule adds a module and its prerequisites. Prerequisites are implicitly
// added as nodes if not declared yet. Re-adding an existing module appends to
// its prerequisite list.
func (g *Graph) AddModule(name string, requires ...string) {
	g.addNode(name)
	for _, req := range requires {
		g.addNode(req)
	}
	g.requires[name] = append(g.requires[name], requires...)
}

func (g *Graph) addNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// Contains reports whether the graph knows the given module.
func (g *Graph) Contains(name string) bool {
	return g.nodeSet[name]
}

// Nodes returns all modules in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// DependenciesOf returns the direct prerequisites of a module in declaration
// order. Unknown modules yield an empty result rather than an error.
func (g *Graph) DependenciesOf(name string) []string {
	reqs := g.requires[name]
	out := make([]string, len(reqs))
	copy(out, reqs)
	return out
}

// DependentsOf returns every module that lists name as a direct prerequisite.
// The reverse lookup is a full scan of the adjacency list; the graph holds on
// the order of twenty nodes, so no reverse index is kept.
func (g *Graph) DependentsOf(name string) []string {
	var out []string
	for _, node := range g.nodes {
		for _, req := range g.requires[node] {
			if req == name {
				out = append(out, node)
				break
			}
		}
	}
	return out
}

// TransitiveDependentsOf returns the full closure of modules that depend on
// name, directly or through intermediaries, in breadth-first discovery order.
// Uninstalling a module can strand a dependent two hops away, so safety
// checks must consider the whole closure, not just direct dependents.
func (g *Graph) TransitiveDependentsOf(name string) []string {
	seen := map[string]bool{name: true}
	queue := g.DependentsOf(name)
	var out []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if seen[node] {
			continue
		}
		seen[node] = true
		out = append(out, node)
		queue = append(queue, g.DependentsOf(node)...)
	}
	return out
}

// UninstallSafety reports whether removing name would leave an installed
// dependent without its prerequisite. installed tells the graph which modules
// currently have an installation record. affected lists the installed
// transitive dependents in discovery order; it is empty when safe.
func (g *Graph) UninstallSafety(name string, installed func(string) bool) (safe bool, affected []string) {
	for _, dep := range g.TransitiveDependentsOf(name) {
		if installed(dep) {
			affected = append(affected, dep)
		}
	}
	return len(affected) == 0, affected
}

// InstallOrder returns an order in which every module appears after all of
// its prerequisites, computed with Kahn's algorithm. Returns CycleError if
// the graph contains a cycle. The order is deterministic: modules at the same
// topological level appear in the order they were declared.
func (g *Graph) InstallOrder() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// In-degree of a module is the number of prerequisites it declares.
	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = len(g.requires[node])
	}

	// Seed the queue with modules that require nothing, in declaration order.
	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range g.DependentsOf(node) {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining modules with unsatisfied prerequisites form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
