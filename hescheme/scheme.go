// Package hescheme adapts the two concrete HE backends (integer and
// CKKS) kept from the teacher library behind a single scheme-agnostic
// interface, so that the rest of the engine never imports rlwe/he/heint
// or rlwe/he/hefloat directly.
package hescheme

import (
	"fmt"

	"github.com/Pro7ech/lattigo/rlwe"
)

// Kind identifies which concrete HE scheme a Scheme value implements.
type Kind int

const (
	// BFV is the integer-arithmetic scheme. It is backed by the
	// teacher's he/heint package (an RNS-accelerated unification of
	// BFV and BGV); see DESIGN.md for why heint, not a bespoke BFV
	// implementation, grounds this scheme.
	BFV Kind = iota
	// CKKS is the fixed-point approximate scheme, backed by he/hefloat.
	CKKS
)

func (k Kind) String() string {
	switch k {
	case BFV:
		return "BFV"
	case CKKS:
		return "CKKS"
	default:
		return "unknown"
	}
}

// Scheme is the capability interface every kernel and every protocol
// handler programs against. It never leaks rlwe/heint/hefloat types to
// its callers except for the opaque *rlwe.Ciphertext/*rlwe.Plaintext
// carriers, which are treated as "an opaque byte-blob owned by the
// scheme library" per spec §3.
type Scheme interface {
	Kind() Kind

	// Encode batches values (length must divide evenly into the
	// scheme's batch size) into a fresh plaintext at the given scale.
	// scale is ignored by BFV (its scale is fixed by the plaintext
	// modulus).
	Encode(values []float64, scale float64) (*rlwe.Plaintext, error)
	Decode(pt *rlwe.Plaintext) ([]float64, error)

	// Encrypt/Decrypt require the scheme to have been constructed with
	// key material able to perform them (client-side: both; server
	// side: neither is required for execution, since the server only
	// ever receives already-encrypted ciphertexts).
	Encrypt(pt *rlwe.Plaintext) (*rlwe.Ciphertext, error)
	Decrypt(ct *rlwe.Ciphertext) (*rlwe.Plaintext, error)
	CanEncrypt() bool
	CanDecrypt() bool

	Add(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	AddPlain(a *rlwe.Ciphertext, b *rlwe.Plaintext) (*rlwe.Ciphertext, error)

	// On CKKS, Mul/Square produce a degree-3 ciphertext (pre-
	// relinearization); callers are responsible for scheduling a
	// Relinearize and a Rescale per spec §4.3.2/§4.7. The BFV adapter's
	// Mul/Square relinearize inline.
	Mul(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)
	MulPlain(a *rlwe.Ciphertext, b *rlwe.Plaintext) (*rlwe.Ciphertext, error)
	Square(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)

	Negate(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)

	// Relinearize is a no-op on BFV and shrinks a degree-3 ciphertext
	// back to degree 2 on CKKS (and on BFV/heint where applicable).
	Relinearize(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error)

	// Rescale is a no-op on BFV. On CKKS it divides by the next
	// modulus in the chain, returning rescaled=false when the
	// ciphertext is already at chain index 0 (spec §4.3.5).
	Rescale(a *rlwe.Ciphertext) (out *rlwe.Ciphertext, rescaled bool, err error)

	ChainIndex(ct *rlwe.Ciphertext) int
	MaxChainIndex() int
	DefaultScale() float64
	BatchSize() int
	ComplexPacking() bool

	Cache() *PlaintextCache

	// LoadPublicKey/LoadEvalKey install peer key material received
	// over the wire (server side, per the AWAIT_PK FSM state, §4.5).
	LoadPublicKey(data []byte) error
	LoadEvalKey(data []byte) error

	// SavePublicKey/SaveEvalKey/SaveParams serialize this scheme's own
	// key material / parameters to be sent over the wire (client side
	// for the keys, server side for the parameters).
	SavePublicKey() ([]byte, error)
	SaveEvalKey() ([]byte, error)
	SaveParams() ([]byte, error)
}

// PlaintextCache memoizes the encodings of the constants 0, 1 and -1
// so kernels never re-encode them on every constant-folding check
// (spec §4.1 invariants, §9 Open Question 1: both schemes populate it
// consistently, unlike the original's CKKS encoder).
type PlaintextCache struct {
	Zero, One, NegOne []float64
}

// Is reports whether values is exactly the constant c repeated, which
// is how kernels recognize a HeValue as matching one of the cached
// constants without needing pointer identity.
func (c *PlaintextCache) Is(values []float64, constant float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v != constant {
			return false
		}
	}
	return true
}

func (c *PlaintextCache) IsZero(values []float64) bool   { return c.Is(values, 0) }
func (c *PlaintextCache) IsOne(values []float64) bool    { return c.Is(values, 1) }
func (c *PlaintextCache) IsNegOne(values []float64) bool { return c.Is(values, -1) }

func newPlaintextCache() *PlaintextCache {
	return &PlaintextCache{
		Zero:   []float64{0},
		One:    []float64{1},
		NegOne: []float64{-1},
	}
}

// ErrNoSecretKey is returned by Decrypt when the Scheme was built
// without a secret key (the server side of a connection never holds
// one, per spec §3's SchemeContext lifecycle).
var ErrNoSecretKey = fmt.Errorf("hescheme: scheme has no secret key loaded")

// ErrNoEncryptionKey is returned by Encrypt when neither a public key
// nor a secret key is available to encrypt with.
var ErrNoEncryptionKey = fmt.Errorf("hescheme: scheme has no encryption key loaded")
