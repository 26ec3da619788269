// Package hevalue implements the HE type layer (§4.1): a single
// batched value that is either a Plaintext or a Ciphertext at any
// given moment, never both.
//
// The original ngraph-he implementation (original_source/src/he_type.cpp)
// represents this with a class holding both an optional HEPlaintext and
// an optional shared_ptr<SealCiphertextWrapper>, dispatching on an
// is_plain bool and relying on the caller never touching the wrong
// member. Go has no union type and no implicit null-pointer-as-variant
// trick that isn't itself a foot-gun, so HeValue is a small tagged
// struct: exactly one of its two payload fields is meaningful, selected
// by the isPlain flag, and the accessors panic on misuse rather than
// silently returning a zero value (spec §9: explicit redesign from
// dynamic-cast polymorphism to a tagged union).
package hevalue

import (
	"fmt"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/Pro7ech/lattigo/rlwe"
)

// Plaintext is a batched vector of real values, not yet encrypted.
type Plaintext struct {
	Values         []float64
	ComplexPacking bool
}

// Ciphertext wraps the scheme library's opaque ciphertext with the
// bookkeeping spec §3 requires kernels to track: the modulus-chain
// position, the CKKS scale, packing metadata, and an optional
// known-value shortcut.
//
// KnownValue is non-nil only when this ciphertext is known (by
// construction, not by decryption) to encrypt every slot with the same
// constant — e.g. the zero/one/negative-one ciphertexts kernels
// synthesize for constant folding. Grounded on
// original_source/src/seal/kernel/negate_seal.cpp, whose
// arg.known_value()/out->known_value() pair is the same shortcut
// re-expressed as an explicit pointer field instead of a sentinel
// wrapper object.
type Ciphertext struct {
	Inner          *rlwe.Ciphertext
	ChainIndex     int
	Scale          float64
	ComplexPacking bool
	BatchSize      int
	KnownValue     *float64
}

// IsKnown reports whether c is known to encrypt a constant equal to v.
func (c Ciphertext) IsKnown(v float64) bool {
	return c.KnownValue != nil && *c.KnownValue == v
}

// HeValue is the tagged union of §3/§4.1: exactly one of a Plaintext or
// a Ciphertext is held at a time.
type HeValue struct {
	isPlain bool
	plain   Plaintext
	cipher  Ciphertext
}

// FromPlain builds a plaintext-tagged HeValue.
func FromPlain(p Plaintext) HeValue {
	return HeValue{isPlain: true, plain: p}
}

// FromCipher builds a ciphertext-tagged HeValue.
func FromCipher(c Ciphertext) HeValue {
	return HeValue{isPlain: false, cipher: c}
}

func (v HeValue) IsPlain() bool  { return v.isPlain }
func (v HeValue) IsCipher() bool { return !v.isPlain }

// Plain returns the held Plaintext. ok is false if v currently holds a
// Ciphertext instead.
func (v HeValue) Plain() (Plaintext, bool) {
	if !v.isPlain {
		return Plaintext{}, false
	}
	return v.plain, true
}

// Cipher returns the held Ciphertext. ok is false if v currently holds
// a Plaintext instead.
func (v HeValue) Cipher() (Ciphertext, bool) {
	if v.isPlain {
		return Ciphertext{}, false
	}
	return v.cipher, true
}

// MustPlain is Plain without the ok return, for call sites that have
// already checked IsPlain (kernel dispatch tables, mainly). It panics
// on misuse rather than returning a zero Plaintext, matching the
// original's contract that calling get_plaintext() on a ciphertext-
// tagged HEType is a programming error, not a recoverable one.
func (v HeValue) MustPlain() Plaintext {
	if !v.isPlain {
		panic("hevalue: MustPlain called on a ciphertext-tagged HeValue")
	}
	return v.plain
}

// MustCipher is the Ciphertext analogue of MustPlain.
func (v HeValue) MustCipher() Ciphertext {
	if v.isPlain {
		panic("hevalue: MustCipher called on a plaintext-tagged HeValue")
	}
	return v.cipher
}

// SetPlain overwrites v with a plaintext-tagged value, releasing any
// ciphertext v previously held. Grounded on he_type.cpp's
// set_plaintext, which drops the wrapped seal::Ciphertext's backing
// storage (m_cipher->ciphertext().release()) the moment the value
// becomes a plaintext again — HE ciphertexts are large, multi-kilobyte
// polynomials, and letting a stale one linger on a value that no
// longer needs it is the kind of leak that original code calls out
// explicitly.
func (v *HeValue) SetPlain(p Plaintext) {
	v.plain = p
	v.isPlain = true
	v.cipher = Ciphertext{}
}

// SetCipher is the mirror of SetPlain: it overwrites v with a
// ciphertext-tagged value and drops any previously held Plaintext.
func (v *HeValue) SetCipher(c Ciphertext) {
	v.cipher = c
	v.isPlain = false
	v.plain = Plaintext{}
}

// ProtoHeValue is the wire representation of an HeValue (§6's message
// schema embeds one per tensor slot). IsPlaintext selects which of
// Plain/CipherBytes is meaningful, mirroring pb::HEType's
// is_plaintext()/plain()/ciphertext-bytes split in the original proto
// schema (save() in he_type.cpp).
type ProtoHeValue struct {
	IsPlaintext    bool
	ComplexPacking bool
	BatchSize      int
	Plain          []float64
	CipherBytes    []byte
	ChainIndex     int
	Scale          float64
	KnownValue     *float64
}

// Save serializes v for wire transmission. A ciphertext's Inner is
// marshaled through rlwe's own binary codec (the same MarshalBinary
// every rlwe operand implements); a plaintext's Values round-trip
// directly since they're already a flat float64 slice.
func Save(v HeValue) (ProtoHeValue, error) {
	if v.isPlain {
		return ProtoHeValue{
			IsPlaintext:    true,
			ComplexPacking: v.plain.ComplexPacking,
			BatchSize:      len(v.plain.Values),
			Plain:          v.plain.Values,
		}, nil
	}

	c := v.cipher
	data, err := c.Inner.MarshalBinary()
	if err != nil {
		return ProtoHeValue{}, fmt.Errorf("hevalue: marshaling ciphertext: %w", err)
	}
	return ProtoHeValue{
		IsPlaintext:    false,
		ComplexPacking: c.ComplexPacking,
		BatchSize:      c.BatchSize,
		CipherBytes:    data,
		ChainIndex:     c.ChainIndex,
		Scale:          c.Scale,
		KnownValue:     c.KnownValue,
	}, nil
}

// Load deserializes a ProtoHeValue back into an HeValue. For
// ciphertexts it allocates a fresh *rlwe.Ciphertext and unmarshals the
// wire bytes into it, matching SealCiphertextWrapper::load in the
// original (allocate an empty ciphertext, then load into it in place).
func Load(p ProtoHeValue) (HeValue, error) {
	if p.IsPlaintext {
		return FromPlain(Plaintext{
			Values:         p.Plain,
			ComplexPacking: p.ComplexPacking,
		}), nil
	}

	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(p.CipherBytes); err != nil {
		return HeValue{}, fmt.Errorf("hevalue: unmarshaling ciphertext: %w", err)
	}
	return FromCipher(Ciphertext{
		Inner:          ct,
		ChainIndex:     p.ChainIndex,
		Scale:          p.Scale,
		ComplexPacking: p.ComplexPacking,
		BatchSize:      p.BatchSize,
		KnownValue:     p.KnownValue,
	}), nil
}

// EncryptKnownConstant encrypts a length-batchSize vector filled with
// constant through scheme, tagging the result's KnownValue so kernels
// can constant-fold against it without a round-trip decrypt (spec §3
// invariant 4, §4.1's plaintext_cache). Used to materialize a
// constant in ciphertext form when a kernel needs one (e.g. the zero
// ciphertext kernel.ScalarMultiply returns for a multiply by the
// cached 0).
func EncryptKnownConstant(scheme hescheme.Scheme, constant float64) (Ciphertext, error) {
	batch := scheme.BatchSize()
	values := make([]float64, batch)
	for i := range values {
		values[i] = constant
	}
	pt, err := scheme.Encode(values, scheme.DefaultScale())
	if err != nil {
		return Ciphertext{}, fmt.Errorf("hevalue: encoding known constant %v: %w", constant, err)
	}
	ct, err := scheme.Encrypt(pt)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("hevalue: encrypting known constant %v: %w", constant, err)
	}
	c := constant
	return Ciphertext{
		Inner:          ct,
		ChainIndex:     scheme.ChainIndex(ct),
		Scale:          scheme.DefaultScale(),
		ComplexPacking: scheme.ComplexPacking(),
		BatchSize:      batch,
		KnownValue:     &c,
	}, nil
}
