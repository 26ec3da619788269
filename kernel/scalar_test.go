package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hevalue"
)

func testScheme(t *testing.T) hescheme.Scheme {
	t.Helper()
	s, err := hescheme.DefaultRegistry().New(hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()})
	require.NoError(t, err)
	return s
}

func TestScalarAddPlainPlain(t *testing.T) {
	scheme := testScheme(t)
	a := hevalue.FromPlain(hevalue.Plaintext{Values: []float64{1, 2, 3}})
	b := hevalue.FromPlain(hevalue.Plaintext{Values: []float64{10, 20, 30}})

	out, err := ScalarAdd(scheme, a, b)
	require.NoError(t, err)
	require.True(t, out.IsPlain())
	require.Equal(t, []float64{11, 22, 33}, out.MustPlain().Values)
}

func TestScalarAddPlainLengthMismatch(t *testing.T) {
	scheme := testScheme(t)
	a := hevalue.FromPlain(hevalue.Plaintext{Values: []float64{1, 2}})
	b := hevalue.FromPlain(hevalue.Plaintext{Values: []float64{1}})

	_, err := ScalarAdd(scheme, a, b)
	require.Error(t, err)
}

func TestScalarMultiplyPlainConstantFolding(t *testing.T) {
	scheme := testScheme(t)

	tests := []struct {
		name string
		a    hevalue.Plaintext
		b    hevalue.Plaintext
		want []float64
	}{
		{"ByZero", hevalue.Plaintext{Values: []float64{0, 0}}, hevalue.Plaintext{Values: []float64{5, 7}}, []float64{0, 0}},
		{"ByOne", hevalue.Plaintext{Values: []float64{1, 1}}, hevalue.Plaintext{Values: []float64{5, 7}}, []float64{5, 7}},
		{"ByNegOne", hevalue.Plaintext{Values: []float64{-1, -1}}, hevalue.Plaintext{Values: []float64{5, 7}}, []float64{-5, -7}},
		{"NoFold", hevalue.Plaintext{Values: []float64{2, 2}}, hevalue.Plaintext{Values: []float64{5, 7}}, []float64{10, 14}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ScalarMultiply(scheme, hevalue.FromPlain(tt.a), hevalue.FromPlain(tt.b))
			require.NoError(t, err)
			require.True(t, out.IsPlain())
			require.Equal(t, tt.want, out.MustPlain().Values)
		})
	}
}

func TestScalarNegatePlain(t *testing.T) {
	scheme := testScheme(t)
	a := hevalue.FromPlain(hevalue.Plaintext{Values: []float64{1, -2, 3}})

	out, err := ScalarNegate(scheme, a)
	require.NoError(t, err)
	require.Equal(t, []float64{-1, 2, -3}, out.MustPlain().Values)
}

func TestScalarAddCipherZeroAliasesInput(t *testing.T) {
	scheme := testScheme(t)
	batch := scheme.BatchSize()

	pt, err := scheme.Encode(make([]float64, batch), scheme.DefaultScale())
	require.NoError(t, err)
	ct, err := scheme.Encrypt(pt)
	require.NoError(t, err)

	a := hevalue.FromCipher(hevalue.Ciphertext{Inner: ct, ChainIndex: scheme.ChainIndex(ct), BatchSize: batch})
	zero := hevalue.FromPlain(hevalue.Plaintext{Values: make([]float64, batch)})

	out, err := ScalarAdd(scheme, a, zero)
	require.NoError(t, err)
	require.True(t, out.IsCipher())
	require.Same(t, a.MustCipher().Inner, out.MustCipher().Inner)
}

func TestChainMismatchError(t *testing.T) {
	err := &ChainMismatch{A: 2, B: 1}
	require.Contains(t, err.Error(), "2")
	require.Contains(t, err.Error(), "1")
}
