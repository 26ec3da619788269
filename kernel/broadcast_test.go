package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
)

func TestBroadcastRowVectorAcrossMatrix(t *testing.T) {
	// in shape [2] broadcast along a new leading axis of extent 3 ->
	// out shape [3, 2].
	in := []hevalue.HeValue{plainVals(10), plainVals(20)}

	out, err := Broadcast(in, hetensor.Shape{2}, hetensor.Shape{3, 2}, []int{0})
	require.NoError(t, err)
	require.Len(t, out, 6)

	for row := 0; row < 3; row++ {
		require.Equal(t, 10.0, out[row*2+0].MustPlain().Values[0])
		require.Equal(t, 20.0, out[row*2+1].MustPlain().Values[0])
	}
}

func TestBroadcastRejectsUnknownAxis(t *testing.T) {
	in := []hevalue.HeValue{plainVals(1)}
	_, err := Broadcast(in, hetensor.Shape{}, hetensor.Shape{2}, []int{5})
	require.Error(t, err)
	require.IsType(t, &hetensor.UnsupportedAxis{}, err)
}

func TestBroadcastRejectsRankMismatch(t *testing.T) {
	in := []hevalue.HeValue{plainVals(1), plainVals(2)}
	_, err := Broadcast(in, hetensor.Shape{2}, hetensor.Shape{3, 2}, nil)
	require.Error(t, err)
	require.IsType(t, &hetensor.ShapeMismatch{}, err)
}
