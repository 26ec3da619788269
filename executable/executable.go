// Package executable walks a compiled graph.Graph and runs each node
// through the kernel library (§4.6), the component spec.md places right
// after the kernel library in the leaves-first dependency order.
package executable

import (
	"fmt"
	"sync"
	"time"

	"github.com/nnhe/nnhe/graph"
	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
	"github.com/nnhe/nnhe/kernel"
)

// PerformanceCounter accumulates per-node timing, read back through
// GetPerformanceData.
type PerformanceCounter struct {
	Calls int
	Total time.Duration
}

// Executable runs one graph.Graph against a scheme. It is built once
// per compiled graph and may be Run repeatedly against different
// inputs; the perf map accumulates across runs.
type Executable struct {
	scheme hescheme.Scheme
	graph  *graph.Graph

	mu   sync.Mutex
	perf map[string]*PerformanceCounter
}

// New builds an Executable for g. g is expected to already have had
// graph.InsertRelinearize applied; Run does not apply it itself, since
// running passes is the compiler's job, not the runner's.
func New(scheme hescheme.Scheme, g *graph.Graph) *Executable {
	return &Executable{
		scheme: scheme,
		graph:  g,
		perf:   make(map[string]*PerformanceCounter),
	}
}

// Run performs the topological walk: for each node in g.Nodes (already
// in dependency order, §1) it looks up the node's kernel by Op, runs
// it over the already-computed inputs, and materializes a result
// tensor of the node's declared shape/dtype. Output tensors become
// ciphertext tensors whenever any contributing input is a ciphertext,
// plaintext otherwise. Returns one *hetensor.HeTensor per graph output.
func (e *Executable) Run(inputs map[string]*hetensor.HeTensor) (map[string]*hetensor.HeTensor, error) {
	results := make(map[string]*hetensor.HeTensor, len(e.graph.Nodes))

	for _, n := range e.graph.Nodes {
		tensor, err := e.runNode(n, inputs, results)
		if err != nil {
			return nil, fmt.Errorf("executable: node %q (%s): %w", n.ID, n.Op, err)
		}
		results[n.ID] = tensor
	}

	out := make(map[string]*hetensor.HeTensor, len(e.graph.Outputs))
	for _, o := range e.graph.Outputs {
		t, ok := results[o.ID]
		if !ok {
			return nil, fmt.Errorf("executable: output node %q produced no result", o.ID)
		}
		out[o.ID] = t
	}
	return out, nil
}

func (e *Executable) runNode(n *graph.Node, inputs map[string]*hetensor.HeTensor, results map[string]*hetensor.HeTensor) (*hetensor.HeTensor, error) {
	switch n.Op {
	case graph.OpParameter:
		t, ok := inputs[n.ID]
		if !ok {
			return nil, fmt.Errorf("missing input tensor for parameter")
		}
		return t, nil

	case graph.OpResult:
		return inputFor(n, 0, results)
	}

	start := time.Now()
	values, err := e.dispatch(n, results)
	e.record(n.ID, time.Since(start))
	if err != nil {
		return nil, err
	}

	encrypted := false
	for _, v := range values {
		if v.IsCipher() {
			encrypted = true
			break
		}
	}

	out, err := hetensor.New(e.scheme, n.Dtype, n.OutputShape, false, encrypted)
	if err != nil {
		return nil, err
	}
	if err := out.SetElements(values); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Executable) dispatch(n *graph.Node, results map[string]*hetensor.HeTensor) ([]hevalue.HeValue, error) {
	switch n.Op {
	case graph.OpAdd:
		a, b, err := binaryElements(n, results)
		if err != nil {
			return nil, err
		}
		return kernel.TensorAdd(e.scheme, a, b)

	case graph.OpMultiply:
		a, b, err := binaryElements(n, results)
		if err != nil {
			return nil, err
		}
		return kernel.TensorMultiply(e.scheme, a, b)

	case graph.OpNegate:
		a, err := inputElements(n, 0, results)
		if err != nil {
			return nil, err
		}
		return kernel.TensorNegate(e.scheme, a)

	case graph.OpDot:
		left, err := inputFor(n, 0, results)
		if err != nil {
			return nil, err
		}
		right, err := inputFor(n, 1, results)
		if err != nil {
			return nil, err
		}
		out, _, err := kernel.Dot(e.scheme, left.GetElements(), right.GetElements(), left.Shape(), right.Shape(), n.ReductionAxesCount)
		return out, err

	case graph.OpBroadcast:
		in, err := inputFor(n, 0, results)
		if err != nil {
			return nil, err
		}
		return kernel.Broadcast(in.GetElements(), in.Shape(), n.OutputShape, n.BroadcastAxes)

	case graph.OpRescale:
		a, err := inputElements(n, 0, results)
		if err != nil {
			return nil, err
		}
		if _, err := kernel.Rescale(e.scheme, a); err != nil {
			return nil, err
		}
		return a, nil

	case graph.OpRelinearize:
		a, err := inputElements(n, 0, results)
		if err != nil {
			return nil, err
		}
		return kernel.Relinearize(e.scheme, a)

	default:
		return nil, fmt.Errorf("unknown operator %q", n.Op)
	}
}

func inputFor(n *graph.Node, i int, results map[string]*hetensor.HeTensor) (*hetensor.HeTensor, error) {
	if i >= len(n.Inputs) {
		return nil, fmt.Errorf("missing input %d", i)
	}
	in := n.Inputs[i]
	t, ok := results[in.ID]
	if !ok {
		return nil, fmt.Errorf("input %q not yet computed", in.ID)
	}
	return t, nil
}

func inputElements(n *graph.Node, i int, results map[string]*hetensor.HeTensor) ([]hevalue.HeValue, error) {
	t, err := inputFor(n, i, results)
	if err != nil {
		return nil, err
	}
	return t.GetElements(), nil
}

func binaryElements(n *graph.Node, results map[string]*hetensor.HeTensor) ([]hevalue.HeValue, []hevalue.HeValue, error) {
	a, err := inputElements(n, 0, results)
	if err != nil {
		return nil, nil, err
	}
	b, err := inputElements(n, 1, results)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (e *Executable) record(nodeID string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.perf[nodeID]
	if !ok {
		c = &PerformanceCounter{}
		e.perf[nodeID] = c
	}
	c.Calls++
	c.Total += d
}

// GetPerformanceData returns a snapshot of the per-node timing
// accumulated across every Run call so far, keyed by node ID. Guarded
// by the same lock Run's recorder uses, per §5's "guard with a lock if
// read concurrently".
func (e *Executable) GetPerformanceData() map[string]PerformanceCounter {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]PerformanceCounter, len(e.perf))
	for k, v := range e.perf {
		out[k] = *v
	}
	return out
}
