// Package graph contains helpers shared by the workspace and package
// dependency graphs. Both graphs use the same directed-graph abstraction
// with identity vertices and "depends on" edges.
package graph

import (
	"sort"
	"strings"

	"github.com/pyr-sh/dag"
)

// Cycles returns a human readable line per cycle in the graph. Cycles are
// tolerated by the closure traversal; this exists for trace diagnostics only.
func Cycles(graph *dag.AcyclicGraph) []string {
	cycles := graph.Cycles()
	if len(cycles) == 0 {
		return nil
	}
	cycleLines := make([]string, len(cycles))
	for i, cycle := range cycles {
		vertices := make([]string, len(cycle))
		for j, vertex := range cycle {
			vertices[j] = vertex.(string)
		}
		sort.Strings(vertices)
		cycleLines[i] = strings.Join(vertices, ",")
	}
	sort.Strings(cycleLines)
	return cycleLines
}

// Reachable returns the set of vertices reachable from root by following
// "depends on" edges. The root itself is included. A visited set inside the
// underlying walk guarantees termination on cyclic graphs.
func Reachable(graph *dag.AcyclicGraph, root string) (dag.Set, error) {
	reached, err := graph.Ancestors(root)
	if err != nil {
		return nil, err
	}
	reached.Add(root)
	return reached, nil
}

// Strings converts a vertex set to a sorted string slice.
func Strings(set dag.Set) []string {
	out := make([]string, 0, set.Len())
	for _, vertex := range set.List() {
		out = append(out, vertex.(string))
	}
	sort.Strings(out)
	return out
}
