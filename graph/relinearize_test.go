package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func chainGraph() (*Graph, *Node, *Node) {
	a := &Node{ID: "a", Op: OpParameter}
	b := &Node{ID: "b", Op: OpParameter}
	mul := &Node{ID: "mul", Op: OpMultiply, Inputs: []*Node{a, b}}
	a.Consumers = []*Node{mul}
	b.Consumers = []*Node{mul}
	add := &Node{ID: "add", Op: OpAdd, Inputs: []*Node{mul, a}}
	mul.Consumers = []*Node{add}

	g := NewGraph([]*Node{a, b, mul, add}, []*Node{add})
	return g, mul, add
}

func TestInsertRelinearizeSplicesAfterMultiply(t *testing.T) {
	g, mul, add := chainGraph()

	inserted := InsertRelinearize(g)
	require.Equal(t, 1, inserted)

	require.Len(t, mul.Consumers, 1)
	relin := mul.Consumers[0]
	require.Equal(t, OpRelinearize, relin.Op)
	require.Equal(t, []*Node{mul}, relin.Inputs)

	require.Contains(t, add.Inputs, relin)
	require.NotContains(t, add.Inputs, mul)
}

func TestInsertRelinearizeUpdatesGraphOutputs(t *testing.T) {
	a := &Node{ID: "a", Op: OpParameter}
	b := &Node{ID: "b", Op: OpParameter}
	dot := &Node{ID: "dot", Op: OpDot, Inputs: []*Node{a, b}, ReductionAxesCount: 1}
	a.Consumers = []*Node{dot}
	b.Consumers = []*Node{dot}

	g := NewGraph([]*Node{a, b, dot}, []*Node{dot})

	InsertRelinearize(g)

	require.Len(t, g.Outputs, 1)
	require.Equal(t, OpRelinearize, g.Outputs[0].Op)
}

func TestInsertRelinearizeIsIdempotent(t *testing.T) {
	g, _, _ := chainGraph()

	first := InsertRelinearize(g)
	require.Equal(t, 1, first)
	nodeCountAfterFirst := len(g.Nodes)

	second := InsertRelinearize(g)
	require.Equal(t, 0, second)
	require.Equal(t, nodeCountAfterFirst, len(g.Nodes))
}

func TestInsertRelinearizeIgnoresNonMultiplyDot(t *testing.T) {
	a := &Node{ID: "a", Op: OpParameter}
	neg := &Node{ID: "neg", Op: OpNegate, Inputs: []*Node{a}}
	a.Consumers = []*Node{neg}

	g := NewGraph([]*Node{a, neg}, []*Node{neg})

	inserted := InsertRelinearize(g)
	require.Equal(t, 0, inserted)
	require.Len(t, g.Nodes, 2)
}
