// Package graph defines the minimal Graph/Node surface the executable
// runner (§4.6) walks and the insert-relinearize pass (§4.7) rewrites.
// Per spec.md §1, the higher graph compiler — shape inference, layout
// planning, the full operator set — is an external collaborator; this
// package only defines the structural contract that collaborator's
// output is consumed through, plus a concrete in-memory implementation
// good enough for this repo's own executable and tests to build graphs
// against without a real compiler in front of them.
package graph

import "github.com/nnhe/nnhe/hetensor"

// OpKind names a node's operator. The kernel library (§4.3) has one
// dispatch entry per OpKind that isn't Parameter/Result.
type OpKind string

const (
	OpParameter   OpKind = "Parameter"
	OpResult      OpKind = "Result"
	OpAdd         OpKind = "Add"
	OpMultiply    OpKind = "Multiply"
	OpNegate      OpKind = "Negate"
	OpDot         OpKind = "Dot"
	OpBroadcast   OpKind = "Broadcast"
	OpRescale     OpKind = "Rescale"
	OpRelinearize OpKind = "Relinearize"
)

// Node is one operation in the dataflow graph. Inputs/Consumers form a
// doubly-linked structure so InsertRelinearize can splice a node in
// between a producer and its consumers without a separate rebuild pass.
type Node struct {
	ID   string
	Op   OpKind
	Dtype hetensor.DataType

	// OutputShape is the node's logical output shape, already resolved
	// by the (external) shape-inference step this package doesn't
	// implement.
	OutputShape hetensor.Shape

	// ReductionAxesCount is meaningful only for OpDot (§4.3.4).
	ReductionAxesCount int
	// BroadcastAxes is meaningful only for OpBroadcast (§4.3.6).
	BroadcastAxes []int

	Inputs    []*Node
	Consumers []*Node
}

func (n *Node) addConsumer(c *Node) {
	n.Consumers = append(n.Consumers, c)
}

func (n *Node) replaceInput(old, new *Node) {
	for i, in := range n.Inputs {
		if in == old {
			n.Inputs[i] = new
		}
	}
}

// Graph is a topologically ordered node list (Nodes[i]'s inputs all
// appear earlier in the slice) plus the subset of nodes whose values
// the executable must return.
type Graph struct {
	Nodes   []*Node
	Outputs []*Node
}

// NewGraph wraps an already topologically sorted node list. Building a
// real topological sort from an arbitrary edge set is exactly the
// "graph walking" spec.md §1 keeps as an external collaborator's job;
// callers (or tests) are expected to hand nodes in dependency order.
func NewGraph(nodes []*Node, outputs []*Node) *Graph {
	return &Graph{Nodes: nodes, Outputs: outputs}
}

// AddNode appends n to the end of the node list, so n must not feed
// any node already in it.
func (g *Graph) AddNode(n *Node) {
	g.Nodes = append(g.Nodes, n)
}

// replaceOutput swaps old for new wherever old appears in g.Outputs —
// used when a pass splices a node in right after one of the graph's
// declared outputs.
func (g *Graph) replaceOutput(old, new *Node) {
	for i, o := range g.Outputs {
		if o == old {
			g.Outputs[i] = new
		}
	}
}
