package graph

import (
	"testing"

	"github.com/pyr-sh/dag"
	"gotest.tools/v3/assert"
)

func TestReachable(t *testing.T) {
	var g dag.AcyclicGraph
	for _, v := range []string{"a", "b", "c", "d"} {
		g.Add(v)
	}
	g.Connect(dag.BasicEdge("a", "b"))
	g.Connect(dag.BasicEdge("b", "c"))

	reached, err := Reachable(&g, "a")
	assert.NilError(t, err)
	assert.DeepEqual(t, Strings(reached), []string{"a", "b", "c"})

	// a leaf vertex reaches only itself
	reached, err = Reachable(&g, "d")
	assert.NilError(t, err)
	assert.DeepEqual(t, Strings(reached), []string{"d"})
}

func TestReachableTerminatesOnCycle(t *testing.T) {
	var g dag.AcyclicGraph
	for _, v := range []string{"a", "b", "c"} {
		g.Add(v)
	}
	g.Connect(dag.BasicEdge("a", "b"))
	g.Connect(dag.BasicEdge("b", "c"))
	g.Connect(dag.BasicEdge("c", "a"))

	reached, err := Reachable(&g, "b")
	assert.NilError(t, err)
	assert.DeepEqual(t, Strings(reached), []string{"a", "b", "c"})
}

func TestCycles(t *testing.T) {
	var g dag.AcyclicGraph
	for _, v := range []string{"a", "b", "c"} {
		g.Add(v)
	}
	g.Connect(dag.BasicEdge("a", "b"))
	g.Connect(dag.BasicEdge("b", "a"))

	lines := Cycles(&g)
	assert.Equal(t, len(lines), 1)
	assert.Equal(t, lines[0], "a,b")

	var acyclic dag.AcyclicGraph
	acyclic.Add("a")
	assert.Assert(t, Cycles(&acyclic) == nil)
}
