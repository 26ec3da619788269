package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/hevalue"
)

func TestRelinearizePassesThroughPlain(t *testing.T) {
	scheme := testScheme(t)
	slots := []hevalue.HeValue{plainVals(1), plainVals(2)}

	out, err := Relinearize(scheme, slots)
	require.NoError(t, err)
	require.Equal(t, slots, out)
}

func TestRelinearizeBfvCipherIsNoOp(t *testing.T) {
	scheme := testScheme(t)
	batch := scheme.BatchSize()

	pt, err := scheme.Encode(make([]float64, batch), scheme.DefaultScale())
	require.NoError(t, err)
	ct, err := scheme.Encrypt(pt)
	require.NoError(t, err)

	slots := []hevalue.HeValue{hevalue.FromCipher(hevalue.Ciphertext{Inner: ct, ChainIndex: scheme.ChainIndex(ct), BatchSize: batch})}

	out, err := Relinearize(scheme, slots)
	require.NoError(t, err)
	require.True(t, out[0].IsCipher())
}
