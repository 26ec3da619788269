// Package kernel implements the scalar and tensor kernel library of
// §4.3: add/multiply/negate/dot/rescale/broadcast, polymorphic over the
// four {plain,cipher}×{plain,cipher} variants, plus the constant-folding
// shortcuts and CKKS chain/scale bookkeeping those kernels are required
// to apply.
//
// Grounded throughout on the original_source/src/kernel/*.cpp dispatch
// tables: this transformation collapses each original kernel's four
// dynamic_cast-dispatched overloads into one Go function switching on
// hevalue.HeValue's own tag, since that's exactly the redesign spec.md
// §9 calls for.
package kernel

import (
	"fmt"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
	"github.com/Pro7ech/lattigo/rlwe"
)

// checkChainAndScale enforces §3 invariant 3 for a binary kernel over
// two ciphertexts: both must share chain_index, and on CKKS the same
// scale too (BFV's scale is a fixed constant, so the check is a no-op
// there in practice).
func checkChainAndScale(scheme hescheme.Scheme, a, b hevalue.Ciphertext) error {
	if a.ChainIndex != b.ChainIndex {
		return &ChainMismatch{A: a.ChainIndex, B: b.ChainIndex}
	}
	if scheme.Kind() == hescheme.CKKS && a.Scale != b.Scale {
		return &ScaleMismatch{A: a.Scale, B: b.Scale}
	}
	return nil
}

func plainLenMismatch(a, b []float64) error {
	if len(a) != len(b) {
		return &hetensor.ShapeMismatch{Reason: fmt.Sprintf("plaintext batch size mismatch: %d vs %d", len(a), len(b))}
	}
	return nil
}

// ScalarAdd is §4.3.1. If b is the cached 0 plaintext and a is a
// ciphertext, the result aliases a without touching the scheme library.
func ScalarAdd(scheme hescheme.Scheme, a, b hevalue.HeValue) (hevalue.HeValue, error) {
	switch {
	case a.IsPlain() && b.IsPlain():
		pa, pb := a.MustPlain(), b.MustPlain()
		if err := plainLenMismatch(pa.Values, pb.Values); err != nil {
			return hevalue.HeValue{}, err
		}
		out := make([]float64, len(pa.Values))
		for i := range out {
			out[i] = pa.Values[i] + pb.Values[i]
		}
		return hevalue.FromPlain(hevalue.Plaintext{Values: out, ComplexPacking: pa.ComplexPacking}), nil

	case a.IsCipher() && b.IsPlain():
		ca, pb := a.MustCipher(), b.MustPlain()
		if scheme.Cache().IsZero(pb.Values) {
			return a, nil
		}
		pt, err := scheme.Encode(pb.Values, ca.Scale)
		if err != nil {
			return hevalue.HeValue{}, fmt.Errorf("kernel.ScalarAdd: encoding plain operand: %w", err)
		}
		ct, err := scheme.AddPlain(ca.Inner, pt)
		if err != nil {
			return hevalue.HeValue{}, err
		}
		return hevalue.FromCipher(hevalue.Ciphertext{
			Inner: ct, ChainIndex: scheme.ChainIndex(ct), Scale: ca.Scale,
			ComplexPacking: ca.ComplexPacking, BatchSize: ca.BatchSize,
		}), nil

	case a.IsPlain() && b.IsCipher():
		// Commute and dispatch, per §4.3.1's table.
		return ScalarAdd(scheme, b, a)

	default: // both cipher
		ca, cb := a.MustCipher(), b.MustCipher()
		if ca.KnownValue != nil && cb.KnownValue == nil {
			return addKnownToTrueCipher(scheme, cb, *ca.KnownValue)
		}
		if cb.KnownValue != nil && ca.KnownValue == nil {
			return addKnownToTrueCipher(scheme, ca, *cb.KnownValue)
		}
		if err := checkChainAndScale(scheme, ca, cb); err != nil {
			return hevalue.HeValue{}, err
		}
		ct, err := scheme.Add(ca.Inner, cb.Inner)
		if err != nil {
			return hevalue.HeValue{}, err
		}
		return hevalue.FromCipher(hevalue.Ciphertext{
			Inner: ct, ChainIndex: scheme.ChainIndex(ct), Scale: ca.Scale,
			ComplexPacking: ca.ComplexPacking, BatchSize: ca.BatchSize,
		}), nil
	}
}

// addKnownToTrueCipher implements §4.3.1's "if one input has known_value
// z and the other is a true ciphertext c, result is add_plain(c,
// encode(z))" rule.
func addKnownToTrueCipher(scheme hescheme.Scheme, c hevalue.Ciphertext, z float64) (hevalue.HeValue, error) {
	values := make([]float64, c.BatchSize)
	for i := range values {
		values[i] = z
	}
	pt, err := scheme.Encode(values, c.Scale)
	if err != nil {
		return hevalue.HeValue{}, fmt.Errorf("kernel.addKnownToTrueCipher: encoding known value: %w", err)
	}
	ct, err := scheme.AddPlain(c.Inner, pt)
	if err != nil {
		return hevalue.HeValue{}, err
	}
	return hevalue.FromCipher(hevalue.Ciphertext{
		Inner: ct, ChainIndex: scheme.ChainIndex(ct), Scale: c.Scale,
		ComplexPacking: c.ComplexPacking, BatchSize: c.BatchSize,
	}), nil
}

// ScalarMultiply is §4.3.2. The 0/1/-1 constant-folding shortcuts are
// required, not optional, and are checked before any real scheme
// library call — grounded on
// original_source/src/kernel/seal/multiply_seal.cpp's fl_1/fl_n1/fl_0
// branches (the teacher equivalent of this library's plaintext_cache
// comparisons).
func ScalarMultiply(scheme hescheme.Scheme, a, b hevalue.HeValue) (hevalue.HeValue, error) {
	if a.IsPlain() {
		if folded, out, err := foldConstant(scheme, a.MustPlain(), b); folded {
			return out, err
		}
	}
	if b.IsPlain() {
		if folded, out, err := foldConstant(scheme, b.MustPlain(), a); folded {
			return out, err
		}
	}

	switch {
	case a.IsPlain() && b.IsPlain():
		pa, pb := a.MustPlain(), b.MustPlain()
		if err := plainLenMismatch(pa.Values, pb.Values); err != nil {
			return hevalue.HeValue{}, err
		}
		out := make([]float64, len(pa.Values))
		for i := range out {
			out[i] = pa.Values[i] * pb.Values[i]
		}
		return hevalue.FromPlain(hevalue.Plaintext{Values: out, ComplexPacking: pa.ComplexPacking}), nil

	case a.IsCipher() && b.IsPlain():
		ca, pb := a.MustCipher(), b.MustPlain()
		pt, err := scheme.Encode(pb.Values, ca.Scale)
		if err != nil {
			return hevalue.HeValue{}, fmt.Errorf("kernel.ScalarMultiply: encoding plain operand: %w", err)
		}
		ct, err := scheme.MulPlain(ca.Inner, pt)
		if err != nil {
			return hevalue.HeValue{}, err
		}
		return hevalue.FromCipher(mulResultMeta(scheme, ct, ca)), nil

	case a.IsPlain() && b.IsCipher():
		return ScalarMultiply(scheme, b, a)

	default: // both cipher
		ca, cb := a.MustCipher(), b.MustCipher()
		if err := checkChainAndScale(scheme, ca, cb); err != nil {
			return hevalue.HeValue{}, err
		}

		var ct *rlwe.Ciphertext
		var err error
		if ca.Inner == cb.Inner {
			ct, err = scheme.Square(ca.Inner)
		} else {
			ct, err = scheme.Mul(ca.Inner, cb.Inner)
		}
		if err != nil {
			return hevalue.HeValue{}, err
		}
		return hevalue.FromCipher(mulResultMeta(scheme, ct, ca)), nil
	}
}

// mulResultMeta refreshes a multiply/square output's chain-index
// bookkeeping from the scheme; a CKKS cipher×cipher product is degree 3
// (pre-relinearization) per §3 invariant 2 — the graph's insert-
// relinearize pass (§4.7) is responsible for bringing it back to 2, not
// this kernel (the BFV adapter relinearizes inside Mul/Square).
func mulResultMeta(scheme hescheme.Scheme, ct *rlwe.Ciphertext, src hevalue.Ciphertext) hevalue.Ciphertext {
	return hevalue.Ciphertext{
		Inner:          ct,
		ChainIndex:     scheme.ChainIndex(ct),
		Scale:          scheme.DefaultScale(),
		ComplexPacking: src.ComplexPacking,
		BatchSize:      src.BatchSize,
	}
}

// foldConstant implements §4.3.2's required 0/1/-1 shortcuts for one
// plain operand (constv) against the other operand (other, which may be
// plain or cipher). folded is false when constv does not match any of
// the cached constants, in which case callers fall through to the real
// multiply path.
func foldConstant(scheme hescheme.Scheme, constv hevalue.Plaintext, other hevalue.HeValue) (folded bool, out hevalue.HeValue, err error) {
	cache := scheme.Cache()
	switch {
	case cache.IsZero(constv.Values):
		out, err = zeroLike(scheme, other)
		return true, out, err
	case cache.IsOne(constv.Values):
		return true, other, nil
	case cache.IsNegOne(constv.Values):
		out, err = ScalarNegate(scheme, other)
		return true, out, err
	default:
		return false, hevalue.HeValue{}, nil
	}
}

// zeroLike produces a zero result matching other's variant and batch
// size: a zero ciphertext if other is a ciphertext (encrypted fresh,
// since a stray zero ciphertext from a different context would carry
// the wrong chain index/scale), else a zero plaintext.
func zeroLike(scheme hescheme.Scheme, other hevalue.HeValue) (hevalue.HeValue, error) {
	if other.IsPlain() {
		p := other.MustPlain()
		zeros := make([]float64, len(p.Values))
		return hevalue.FromPlain(hevalue.Plaintext{Values: zeros, ComplexPacking: p.ComplexPacking}), nil
	}
	c := other.MustCipher()
	zc, err := hevalue.EncryptKnownConstant(scheme, 0)
	if err != nil {
		return hevalue.HeValue{}, err
	}
	zc.BatchSize = c.BatchSize
	zc.ComplexPacking = c.ComplexPacking
	return hevalue.FromCipher(zc), nil
}

// ScalarNegate is §4.3.3.
func ScalarNegate(scheme hescheme.Scheme, a hevalue.HeValue) (hevalue.HeValue, error) {
	if a.IsPlain() {
		p := a.MustPlain()
		out := make([]float64, len(p.Values))
		for i, v := range p.Values {
			out[i] = -v
		}
		return hevalue.FromPlain(hevalue.Plaintext{Values: out, ComplexPacking: p.ComplexPacking}), nil
	}

	c := a.MustCipher()
	ct, err := scheme.Negate(c.Inner)
	if err != nil {
		return hevalue.HeValue{}, err
	}
	var known *float64
	if c.KnownValue != nil {
		v := -*c.KnownValue
		known = &v
	}
	return hevalue.FromCipher(hevalue.Ciphertext{
		Inner: ct, ChainIndex: scheme.ChainIndex(ct), Scale: c.Scale,
		ComplexPacking: c.ComplexPacking, BatchSize: c.BatchSize, KnownValue: known,
	}), nil
}
