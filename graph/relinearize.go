package graph

// InsertRelinearize walks g's node list and, for every Multiply or Dot
// node, splices an OpRelinearize node between it and its consumers:
// the relinearize node takes the multiply's place in every consumer's
// Inputs and in g.Outputs, and the multiply's own Consumers becomes
// just the new node.
//
// Ported from InsertRelinearize::run_on_call_graph, which copies the
// multiply/dot node, wraps the copy in op::Relinearize, and calls
// replace_node to splice it in. copy_with_new_args doesn't apply here
// since this Node already carries its own identity; the splice itself
// is the part worth keeping.
//
// Idempotent: a Multiply/Dot whose only consumer is already an
// OpRelinearize node is left alone, so running the pass twice over the
// same graph inserts nothing the second time.
func InsertRelinearize(g *Graph) int {
	inserted := 0

	// Snapshot before iterating: the loop inserts new nodes into
	// g.Nodes and must not also visit those.
	candidates := make([]*Node, len(g.Nodes))
	copy(candidates, g.Nodes)

	for _, n := range candidates {
		if n.Op != OpMultiply && n.Op != OpDot {
			continue
		}
		if alreadyRelinearized(n) {
			continue
		}

		relin := &Node{
			ID:          n.ID + "/relin",
			Op:          OpRelinearize,
			Dtype:       n.Dtype,
			OutputShape: n.OutputShape,
			Inputs:      []*Node{n},
		}

		for _, c := range n.Consumers {
			c.replaceInput(n, relin)
			relin.addConsumer(c)
		}
		n.Consumers = []*Node{relin}

		g.replaceOutput(n, relin)
		// Insert right after n so g.Nodes stays topologically ordered:
		// n's former consumers come later in the slice and now read relin.
		for i, m := range g.Nodes {
			if m == n {
				g.Nodes = append(g.Nodes[:i+1], append([]*Node{relin}, g.Nodes[i+1:]...)...)
				break
			}
		}
		inserted++
	}

	return inserted
}

func alreadyRelinearized(n *Node) bool {
	if len(n.Consumers) != 1 {
		return false
	}
	return n.Consumers[0].Op == OpRelinearize
}
