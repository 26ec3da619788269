package executable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/graph"
	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
)

func testScheme(t *testing.T) hescheme.Scheme {
	t.Helper()
	s, err := hescheme.DefaultRegistry().New(hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()})
	require.NoError(t, err)
	return s
}

func plainTensor(t *testing.T, scheme hescheme.Scheme, vs ...float64) *hetensor.HeTensor {
	t.Helper()
	shape := hetensor.Shape{len(vs)}
	tensor, err := hetensor.New(scheme, hetensor.F64, shape, false, false)
	require.NoError(t, err)

	values := make([]hevalue.HeValue, len(vs))
	for i, v := range vs {
		values[i] = hevalue.FromPlain(hevalue.Plaintext{Values: []float64{v}})
	}
	require.NoError(t, tensor.SetElements(values))
	return tensor
}

func TestRunAddGraph(t *testing.T) {
	scheme := testScheme(t)

	a := &graph.Node{ID: "a", Op: graph.OpParameter, OutputShape: hetensor.Shape{3}}
	b := &graph.Node{ID: "b", Op: graph.OpParameter, OutputShape: hetensor.Shape{3}}
	add := &graph.Node{ID: "add", Op: graph.OpAdd, Inputs: []*graph.Node{a, b}, OutputShape: hetensor.Shape{3}, Dtype: hetensor.F64}
	a.Consumers = []*graph.Node{add}
	b.Consumers = []*graph.Node{add}

	g := graph.NewGraph([]*graph.Node{a, b, add}, []*graph.Node{add})
	exe := New(scheme, g)

	inputs := map[string]*hetensor.HeTensor{
		"a": plainTensor(t, scheme, 1, 2, 3),
		"b": plainTensor(t, scheme, 10, 20, 30),
	}

	out, err := exe.Run(inputs)
	require.NoError(t, err)

	result := out["add"]
	require.NotNil(t, result)
	require.False(t, result.IsEncrypted())

	elems := result.GetElements()
	require.Equal(t, 11.0, elems[0].MustPlain().Values[0])
	require.Equal(t, 22.0, elems[1].MustPlain().Values[0])
	require.Equal(t, 33.0, elems[2].MustPlain().Values[0])

	perf := exe.GetPerformanceData()
	require.Contains(t, perf, "add")
	require.Equal(t, 1, perf["add"].Calls)
}

func TestRunDotGraph(t *testing.T) {
	scheme := testScheme(t)

	a := &graph.Node{ID: "a", Op: graph.OpParameter, OutputShape: hetensor.Shape{4}}
	b := &graph.Node{ID: "b", Op: graph.OpParameter, OutputShape: hetensor.Shape{4}}
	dot := &graph.Node{
		ID:                 "dot",
		Op:                 graph.OpDot,
		Inputs:             []*graph.Node{a, b},
		OutputShape:        hetensor.Shape{},
		ReductionAxesCount: 1,
	}
	a.Consumers = []*graph.Node{dot}
	b.Consumers = []*graph.Node{dot}

	g := graph.NewGraph([]*graph.Node{a, b, dot}, []*graph.Node{dot})
	exe := New(scheme, g)

	inputs := map[string]*hetensor.HeTensor{
		"a": plainTensor(t, scheme, 1, 2, 3, 4),
		"b": plainTensor(t, scheme, 5, 6, 7, 8),
	}

	out, err := exe.Run(inputs)
	require.NoError(t, err)
	require.Equal(t, float64(1*5+2*6+3*7+4*8), out["dot"].GetElements()[0].MustPlain().Values[0])
}

func TestRunRejectsUnknownOperator(t *testing.T) {
	scheme := testScheme(t)

	a := &graph.Node{ID: "a", Op: graph.OpParameter, OutputShape: hetensor.Shape{1}}
	bogus := &graph.Node{ID: "bogus", Op: graph.OpKind("NotAnOp"), Inputs: []*graph.Node{a}, OutputShape: hetensor.Shape{1}}
	a.Consumers = []*graph.Node{bogus}

	g := graph.NewGraph([]*graph.Node{a, bogus}, []*graph.Node{bogus})
	exe := New(scheme, g)

	_, err := exe.Run(map[string]*hetensor.HeTensor{"a": plainTensor(t, scheme, 1)})
	require.Error(t, err)
}
