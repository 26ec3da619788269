package hetensor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/hescheme"
)

func bfvScheme(t *testing.T) hescheme.Scheme {
	t.Helper()
	s, err := hescheme.DefaultRegistry().New(hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()})
	require.NoError(t, err)
	return s
}

func TestNewPlaintextTensorShape(t *testing.T) {
	scheme := bfvScheme(t)

	tests := []struct {
		name       string
		shape      Shape
		packed     bool
		wantBatch  int
		wantCount  int
	}{
		{"Unpacked", Shape{6}, false, 1, 6},
		{"PackedAxis0", Shape{4, 3}, true, 4, 3},
		{"PackedNonDivisible", Shape{4, 5}, true, 4, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := New(scheme, F64, tt.shape, tt.packed, false)
			require.NoError(t, err)
			require.Equal(t, tt.wantBatch, tensor.BatchSize())
			require.Equal(t, tt.wantCount, tensor.ElementCount())
		})
	}
}

func TestNewRejectsUnsupportedElementType(t *testing.T) {
	_, err := New(bfvScheme(t), DataType(99), Shape{2}, false, false)
	require.Error(t, err)
	require.IsType(t, &UnsupportedElementType{}, err)
}

func TestWriteReadPlaintextRoundTrip(t *testing.T) {
	scheme := bfvScheme(t)
	tensor, err := New(scheme, F64, Shape{4}, false, false)
	require.NoError(t, err)

	src := make([]byte, 4*8)
	want := []float64{1, 2, 3, 4}
	for i, v := range want {
		encodeElement(F64, v, src[i*8:(i+1)*8])
	}

	require.NoError(t, tensor.Write(src, 0, len(src)))

	dst := make([]byte, len(src))
	require.NoError(t, tensor.Read(dst, 0, len(dst)))

	for i, v := range want {
		require.Equal(t, v, decodeElement(F64, dst[i*8:(i+1)*8]))
	}
}

func TestWriteRejectsMisalignedByteCount(t *testing.T) {
	tensor, err := New(bfvScheme(t), F64, Shape{4}, false, false)
	require.NoError(t, err)

	err = tensor.Write(make([]byte, 3), 0, 3)
	require.Error(t, err)
	require.IsType(t, &ShapeMismatch{}, err)
}

func TestWriteRejectsOutOfRange(t *testing.T) {
	tensor, err := New(bfvScheme(t), F64, Shape{2}, false, false)
	require.NoError(t, err)

	src := make([]byte, 4*8)
	err = tensor.Write(src, 0, len(src))
	require.Error(t, err)
	require.IsType(t, &IoOutOfRange{}, err)
}

func TestGetElementOutOfRange(t *testing.T) {
	tensor, err := New(bfvScheme(t), F64, Shape{2}, false, false)
	require.NoError(t, err)

	_, err = tensor.GetElement(5)
	require.Error(t, err)
	require.IsType(t, &IoOutOfRange{}, err)
}

func TestSetElementsRejectsWrongLength(t *testing.T) {
	tensor, err := New(bfvScheme(t), F64, Shape{2}, false, false)
	require.NoError(t, err)

	err = tensor.SetElements(tensor.GetElements()[:1])
	require.Error(t, err)
	require.IsType(t, &ShapeMismatch{}, err)
}

func TestPackUnpackPreservesElementCount(t *testing.T) {
	scheme := bfvScheme(t)
	tensor, err := New(scheme, F64, Shape{3, 2}, false, false)
	require.NoError(t, err)

	src := make([]byte, 6*8)
	for i := 0; i < 6; i++ {
		encodeElement(F64, float64(i+1), src[i*8:(i+1)*8])
	}
	require.NoError(t, tensor.Write(src, 0, len(src)))

	require.NoError(t, tensor.Pack())
	require.True(t, tensor.Packed())
	require.Equal(t, 3, tensor.BatchSize())

	require.NoError(t, tensor.Unpack())
	require.False(t, tensor.Packed())
	require.Equal(t, 1, tensor.BatchSize())
	require.Equal(t, 6, tensor.ElementCount())
}
