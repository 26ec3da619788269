// Package protocol implements the length-prefixed wire protocol (§4.5)
// connecting one heclient to one heserver: frame codec, message
// schema, and both sides' finite state machines.
package protocol

import "encoding/gob"

// MessageType tags which payload a Message carries. Named directly
// after the spec's own message schema rather than the original's
// protobuf oneof, since no .proto definition made it into the
// retrieval pack (see DESIGN.md).
type MessageType int

const (
	TypeEncryptionParameters MessageType = iota
	TypePublicKeyRequest
	TypePublicKey
	TypePublicKeyAck
	TypeEvalKey
	TypeParameterShapeRequest
	TypeParameterShape
	TypeParameterSize
	TypeExecute
	TypeResult
	TypeRelu
	TypeMax
	TypeSoftmax
	TypeNone
)

func (t MessageType) String() string {
	switch t {
	case TypeEncryptionParameters:
		return "EncryptionParameters"
	case TypePublicKeyRequest:
		return "PublicKeyRequest"
	case TypePublicKey:
		return "PublicKey"
	case TypePublicKeyAck:
		return "PublicKeyAck"
	case TypeEvalKey:
		return "EvalKey"
	case TypeParameterShapeRequest:
		return "ParameterShapeRequest"
	case TypeParameterShape:
		return "ParameterShape"
	case TypeParameterSize:
		return "ParameterSize"
	case TypeExecute:
		return "Execute"
	case TypeResult:
		return "Result"
	case TypeRelu:
		return "Relu"
	case TypeMax:
		return "Max"
	case TypeSoftmax:
		return "Softmax"
	case TypeNone:
		return "None"
	default:
		return "unknown"
	}
}

// EncryptionParameters carries the scheme-library native parameter
// blob (§4.5). This port serializes it as the encoding/json encoding of
// an hescheme.Config (see DESIGN.md) — the client decodes it back into
// a Config and builds its own client-side Scheme from it.
type EncryptionParameters struct{ Params []byte }

type PublicKeyRequest struct{}

type PublicKey struct{ Key []byte }

type PublicKeyAck struct{}

type EvalKey struct{ Key []byte }

type ParameterShapeRequest struct{}

type ParameterShape struct{ Shape []uint64 }

type ParameterSize struct{ N uint64 }

type Execute struct{ Ciphers [][]byte }

type Result struct{ Ciphers [][]byte }

// Relu, Max and Softmax are the "optional nonlinear-offload round
// trips" the schema reserves (§4.5); no FSM state reaches them (§9
// Open Question 3) — they exist so a future round trip has a typed
// payload to slot into, not as a TODO.
type Relu struct{ Cipher []byte }
type Max struct{ A, B []byte }
type Softmax struct{ Ciphers [][]byte }

type None struct{}

// Message is the tagged envelope every frame carries: exactly one of
// the payload types above, selected by Type.
type Message struct {
	Type    MessageType
	Payload interface{}
}

func init() {
	gob.Register(EncryptionParameters{})
	gob.Register(PublicKeyRequest{})
	gob.Register(PublicKey{})
	gob.Register(PublicKeyAck{})
	gob.Register(EvalKey{})
	gob.Register(ParameterShapeRequest{})
	gob.Register(ParameterShape{})
	gob.Register(ParameterSize{})
	gob.Register(Execute{})
	gob.Register(Result{})
	gob.Register(Relu{})
	gob.Register(Max{})
	gob.Register(Softmax{})
	gob.Register(None{})
}
