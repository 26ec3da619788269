package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
)

func plainVals(vs ...float64) hevalue.HeValue {
	return hevalue.FromPlain(hevalue.Plaintext{Values: []float64{vs[0]}})
}

func TestDotVectorDotProduct(t *testing.T) {
	scheme := testScheme(t)

	a := []hevalue.HeValue{plainVals(1), plainVals(2), plainVals(3), plainVals(4)}
	b := []hevalue.HeValue{plainVals(5), plainVals(6), plainVals(7), plainVals(8)}

	out, shape, err := Dot(scheme, a, b, hetensor.Shape{4}, hetensor.Shape{4}, 1)
	require.NoError(t, err)
	require.Equal(t, hetensor.Shape{}, shape)
	require.Len(t, out, 1)
	require.Equal(t, []float64{1*5 + 2*6 + 3*7 + 4*8}, out[0].MustPlain().Values)
}

func TestDotMatrixMatrix(t *testing.T) {
	scheme := testScheme(t)

	// A is 2x2: [[1,2],[3,4]], B is 2x2: [[5,6],[7,8]]
	a := []hevalue.HeValue{plainVals(1), plainVals(2), plainVals(3), plainVals(4)}
	b := []hevalue.HeValue{plainVals(5), plainVals(6), plainVals(7), plainVals(8)}

	out, shape, err := Dot(scheme, a, b, hetensor.Shape{2, 2}, hetensor.Shape{2, 2}, 1)
	require.NoError(t, err)
	require.Equal(t, hetensor.Shape{2, 2}, shape)

	want := []float64{
		1*5 + 2*7, 1*6 + 2*8,
		3*5 + 4*7, 3*6 + 4*8,
	}
	for i, w := range want {
		require.Equal(t, w, out[i].MustPlain().Values[0])
	}
}

func TestDotRejectsMismatchedReductionExtents(t *testing.T) {
	scheme := testScheme(t)
	a := []hevalue.HeValue{plainVals(1), plainVals(2)}
	b := []hevalue.HeValue{plainVals(1), plainVals(2), plainVals(3)}

	_, _, err := Dot(scheme, a, b, hetensor.Shape{2}, hetensor.Shape{3}, 1)
	require.Error(t, err)
	require.IsType(t, &hetensor.ShapeMismatch{}, err)
}

func TestDotRejectsZeroReductionAxes(t *testing.T) {
	scheme := testScheme(t)
	a := []hevalue.HeValue{plainVals(1)}
	b := []hevalue.HeValue{plainVals(1)}

	_, _, err := Dot(scheme, a, b, hetensor.Shape{1}, hetensor.Shape{1}, 0)
	require.Error(t, err)
}
