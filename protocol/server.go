package protocol

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/nnhe/nnhe/executable"
	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
	"github.com/Pro7ech/lattigo/rlwe"
)

// ServerState is the server-side FSM of §4.5.
type ServerState string

const (
	ServerInit         ServerState = "INIT"
	ServerAwaitPK      ServerState = "AWAIT_PK"
	ServerAwaitExecute ServerState = "AWAIT_EXECUTE"
	ServerDone         ServerState = "DONE"
)

// ServerSession drives one accepted connection through the server FSM.
// One ServerSession per connection; the server itself is single-
// threaded at the connection level (§4.5's concurrency note) — nothing
// here prevents a caller from accepting many connections, but only one
// is ever in flight through a given Session at a time.
type ServerSession struct {
	conn          net.Conn
	cfg           hescheme.Config
	scheme        hescheme.Scheme
	exe           *executable.Executable
	inputNodeID   string
	outputNodeID  string
	inputShape    hetensor.Shape
	maxFrameBytes uint64

	state ServerState
}

// NewServerSession wraps an accepted connection. scheme must already
// be a server-side scheme (hescheme.Registry.NewServerSide) with no
// secret key; exe must have been built from that same scheme. cfg is
// re-sent to the client as the connection's EncryptionParameters.
func NewServerSession(conn net.Conn, cfg hescheme.Config, scheme hescheme.Scheme, exe *executable.Executable, inputNodeID, outputNodeID string, inputShape hetensor.Shape, maxFrameBytes uint64) *ServerSession {
	if maxFrameBytes == 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	return &ServerSession{
		conn:          conn,
		cfg:           cfg,
		scheme:        scheme,
		exe:           exe,
		inputNodeID:   inputNodeID,
		outputNodeID:  outputNodeID,
		inputShape:    inputShape,
		maxFrameBytes: maxFrameBytes,
		state:         ServerInit,
	}
}

// Run drives the session to completion: INIT -> AWAIT_PK ->
// AWAIT_EXECUTE -> DONE, or an early close on error. It always closes
// the connection before returning.
func (s *ServerSession) Run() error {
	defer s.conn.Close()

	if err := s.sendParams(); err != nil {
		return err
	}
	s.state = ServerAwaitPK

	if err := s.awaitKeys(); err != nil {
		return s.abort(err)
	}
	if err := s.sendParameterSize(); err != nil {
		return s.abort(err)
	}
	s.state = ServerAwaitExecute

	if err := s.awaitExecute(); err != nil {
		return s.abort(err)
	}
	s.state = ServerDone
	return nil
}

// abort sends a None message (best effort) before propagating err, per
// §7's "aborts the current Execute and closes the connection with a
// None message (indicating failure without leaking details)". A
// transport-level *Io error skips the None send: the write would fail
// the same way.
func (s *ServerSession) abort(err error) error {
	if _, isIo := err.(*Io); !isIo {
		_ = WriteFrame(s.conn, Message{Type: TypeNone, Payload: None{}})
	}
	return err
}

func (s *ServerSession) sendParams() error {
	params, err := json.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("protocol: marshaling scheme config: %w", err)
	}
	return WriteFrame(s.conn, Message{Type: TypeEncryptionParameters, Payload: EncryptionParameters{Params: params}})
}

func (s *ServerSession) awaitKeys() error {
	msg, err := ReadFrame(s.conn, s.maxFrameBytes)
	if err != nil {
		return err
	}
	pk, ok := msg.Payload.(PublicKey)
	if !ok {
		return &ProtocolError{State: string(s.state), Got: msg.Type}
	}
	if err := s.scheme.LoadPublicKey(pk.Key); err != nil {
		return err
	}
	if err := WriteFrame(s.conn, Message{Type: TypePublicKeyAck, Payload: PublicKeyAck{}}); err != nil {
		return err
	}

	msg, err = ReadFrame(s.conn, s.maxFrameBytes)
	if err != nil {
		return err
	}
	evk, ok := msg.Payload.(EvalKey)
	if !ok {
		return &ProtocolError{State: string(s.state), Got: msg.Type}
	}
	return s.scheme.LoadEvalKey(evk.Key)
}

// sendParameterSize tells the client how many packed ciphertexts it
// must upload for inputShape. Reconciles the two FSM descriptions in
// §4.5: the client's AWAIT_PARAM_SIZE state receives this message, but
// the server-side FSM text never shows where it's sent from — the
// natural point is the AWAIT_PK -> AWAIT_EXECUTE transition, right
// after both keys are loaded (see DESIGN.md resolution).
func (s *ServerSession) sendParameterSize() error {
	// inputShape[0] is the packed (batch) axis (§4.2's packing policy:
	// axis 0 only) — the client's own batch_size, which need not equal
	// the scheme's full slot count. n is the remaining axes' product,
	// the ciphertext count the client must upload.
	n := s.inputShape.Product() / s.inputShape[0]
	return WriteFrame(s.conn, Message{Type: TypeParameterSize, Payload: ParameterSize{N: uint64(n)}})
}

func (s *ServerSession) awaitExecute() error {
	for {
		msg, err := ReadFrame(s.conn, s.maxFrameBytes)
		if err != nil {
			return err
		}

		switch payload := msg.Payload.(type) {
		case ParameterShapeRequest:
			shape := make([]uint64, len(s.inputShape))
			for i, d := range s.inputShape {
				shape[i] = uint64(d)
			}
			if err := WriteFrame(s.conn, Message{Type: TypeParameterShape, Payload: ParameterShape{Shape: shape}}); err != nil {
				return err
			}
			// stays in AWAIT_EXECUTE

		case Execute:
			return s.runExecute(payload)

		default:
			return &ProtocolError{State: string(s.state), Got: msg.Type}
		}
	}
}

func (s *ServerSession) runExecute(exec Execute) error {
	batchSize := s.scheme.BatchSize()
	values := make([]hevalue.HeValue, len(exec.Ciphers))
	for i, raw := range exec.Ciphers {
		ct := &rlwe.Ciphertext{}
		if err := ct.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("protocol: decoding input ciphertext %d: %w", i, err)
		}
		values[i] = hevalue.FromCipher(hevalue.Ciphertext{
			Inner:      ct,
			ChainIndex: s.scheme.ChainIndex(ct),
			Scale:      ct.Scale.Float64(),
			BatchSize:  batchSize,
		})
	}

	in, err := hetensor.New(s.scheme, hetensor.F64, s.inputShape, true, true)
	if err != nil {
		return err
	}
	if err := in.SetElements(values); err != nil {
		return err
	}

	outputs, err := s.exe.Run(map[string]*hetensor.HeTensor{s.inputNodeID: in})
	if err != nil {
		return err
	}
	out, ok := outputs[s.outputNodeID]
	if !ok {
		return fmt.Errorf("protocol: executable produced no tensor for output node %q", s.outputNodeID)
	}

	ciphers, err := cipherBytes(s.scheme, out.GetElements())
	if err != nil {
		return err
	}
	return WriteFrame(s.conn, Message{Type: TypeResult, Payload: Result{Ciphers: ciphers}})
}

// cipherBytes serializes each element of values as a ciphertext,
// encrypting any plaintext slot found among them first, so the Result
// message always carries ciphertexts even when the served graph's
// output holds plaintext slots.
func cipherBytes(scheme hescheme.Scheme, values []hevalue.HeValue) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		c, ok := v.Cipher()
		if !ok {
			p := v.MustPlain()
			pt, err := scheme.Encode(p.Values, scheme.DefaultScale())
			if err != nil {
				return nil, err
			}
			ct, err := scheme.Encrypt(pt)
			if err != nil {
				return nil, err
			}
			c = hevalue.Ciphertext{Inner: ct}
		}
		data, err := c.Inner.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("protocol: encoding result ciphertext %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}
