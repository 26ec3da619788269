package hevalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromPlainCipher(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		v := FromPlain(Plaintext{Values: []float64{1, 2, 3}})
		require.True(t, v.IsPlain())
		require.False(t, v.IsCipher())

		p, ok := v.Plain()
		require.True(t, ok)
		require.Equal(t, []float64{1, 2, 3}, p.Values)

		_, ok = v.Cipher()
		require.False(t, ok)
	})

	t.Run("Cipher", func(t *testing.T) {
		v := FromCipher(Ciphertext{ChainIndex: 2, Scale: 1 << 20, BatchSize: 4})
		require.True(t, v.IsCipher())
		require.False(t, v.IsPlain())

		c, ok := v.Cipher()
		require.True(t, ok)
		require.Equal(t, 2, c.ChainIndex)

		_, ok = v.Plain()
		require.False(t, ok)
	})
}

func TestMustAccessorsPanicOnMismatch(t *testing.T) {
	t.Run("MustPlainOnCipher", func(t *testing.T) {
		v := FromCipher(Ciphertext{})
		require.Panics(t, func() { v.MustPlain() })
	})

	t.Run("MustCipherOnPlain", func(t *testing.T) {
		v := FromPlain(Plaintext{})
		require.Panics(t, func() { v.MustCipher() })
	})

	t.Run("MustPlainOnPlain", func(t *testing.T) {
		v := FromPlain(Plaintext{Values: []float64{5}})
		require.NotPanics(t, func() {
			require.Equal(t, []float64{5}, v.MustPlain().Values)
		})
	})
}

func TestSetPlainReleasesCipher(t *testing.T) {
	v := FromCipher(Ciphertext{ChainIndex: 3, BatchSize: 8})
	require.True(t, v.IsCipher())

	v.SetPlain(Plaintext{Values: []float64{9, 9}})

	require.True(t, v.IsPlain())
	_, ok := v.Cipher()
	require.False(t, ok, "setting a value to plain must release any previously held ciphertext")

	p, ok := v.Plain()
	require.True(t, ok)
	require.Equal(t, []float64{9, 9}, p.Values)
}

func TestSetCipherReleasesPlain(t *testing.T) {
	v := FromPlain(Plaintext{Values: []float64{1, 2}})
	require.True(t, v.IsPlain())

	v.SetCipher(Ciphertext{ChainIndex: 1, BatchSize: 2})

	require.True(t, v.IsCipher())
	_, ok := v.Plain()
	require.False(t, ok, "setting a value to cipher must release any previously held plaintext")
}

func TestCiphertextIsKnown(t *testing.T) {
	zero := 0.0

	tests := []struct {
		name string
		c    Ciphertext
		v    float64
		want bool
	}{
		{"NilKnownValue", Ciphertext{}, 0, false},
		{"MatchingZero", Ciphertext{KnownValue: &zero}, 0, true},
		{"NonMatching", Ciphertext{KnownValue: &zero}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.c.IsKnown(tt.v))
		})
	}
}

func TestSaveLoadPlaintextRoundTrip(t *testing.T) {
	v := FromPlain(Plaintext{Values: []float64{1, 2, 3, 4}, ComplexPacking: true})

	proto, err := Save(v)
	require.NoError(t, err)
	require.True(t, proto.IsPlaintext)
	require.True(t, proto.ComplexPacking)
	require.Equal(t, 4, proto.BatchSize)
	require.Equal(t, []float64{1, 2, 3, 4}, proto.Plain)

	loaded, err := Load(proto)
	require.NoError(t, err)
	require.True(t, loaded.IsPlain())

	p, ok := loaded.Plain()
	require.True(t, ok)
	require.Equal(t, v.MustPlain().Values, p.Values)
}
