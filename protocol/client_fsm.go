package protocol

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/Pro7ech/lattigo/rlwe"
)

// ClientState is the client-side FSM of §4.5.
type ClientState string

const (
	ClientConnecting     ClientState = "CONNECTING"
	ClientAwaitParams    ClientState = "AWAIT_PARAMS"
	ClientAwaitParamSize ClientState = "AWAIT_PARAM_SIZE"
	ClientAwaitResult    ClientState = "AWAIT_RESULT"
	ClientDone           ClientState = "DONE"
)

// ClientSession drives one outgoing connection through the client FSM.
// It is the protocol-level engine behind client.Client (§6); that
// package owns the public connect/is_done/get_results/close surface,
// this one owns the wire exchange.
type ClientSession struct {
	conn          net.Conn
	registry      *hescheme.Registry
	batchSize     int
	inputs        []float64
	maxFrameBytes uint64

	state   ClientState
	scheme  hescheme.Scheme
	results []float64
}

// NewClientSession wraps a dialed connection. registry selects the
// Scheme implementation to build once EncryptionParameters names a
// kind; batchSize/inputs are the caller's plaintext inputs, packed
// batchSize lanes per ciphertext once the server announces how many
// ciphertexts it expects (§4.5 AWAIT_PARAM_SIZE).
func NewClientSession(conn net.Conn, registry *hescheme.Registry, batchSize int, inputs []float64, maxFrameBytes uint64) *ClientSession {
	if maxFrameBytes == 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	return &ClientSession{
		conn:          conn,
		registry:      registry,
		batchSize:     batchSize,
		inputs:        inputs,
		maxFrameBytes: maxFrameBytes,
		state:         ClientConnecting,
	}
}

// Run drives the session to completion and leaves Results() populated
// on success. Always closes the connection before returning.
func (c *ClientSession) Run() error {
	defer c.conn.Close()

	c.state = ClientAwaitParams
	if err := c.awaitParams(); err != nil {
		return err
	}

	c.state = ClientAwaitParamSize
	if err := c.awaitParamSize(); err != nil {
		return err
	}

	c.state = ClientAwaitResult
	if err := c.awaitResult(); err != nil {
		return err
	}

	c.state = ClientDone
	return nil
}

// Results returns the batch-lane-flattened float results, valid after
// a successful Run.
func (c *ClientSession) Results() []float64 { return c.results }

func (c *ClientSession) awaitParams() error {
	msg, err := ReadFrame(c.conn, c.maxFrameBytes)
	if err != nil {
		return err
	}
	params, ok := msg.Payload.(EncryptionParameters)
	if !ok {
		return &ProtocolError{State: string(c.state), Got: msg.Type}
	}

	var cfg hescheme.Config
	if err := json.Unmarshal(params.Params, &cfg); err != nil {
		return fmt.Errorf("protocol: decoding EncryptionParameters: %w", err)
	}
	scheme, err := c.registry.New(cfg)
	if err != nil {
		return err
	}
	c.scheme = scheme

	pkData, err := scheme.SavePublicKey()
	if err != nil {
		return err
	}
	if err := WriteFrame(c.conn, Message{Type: TypePublicKey, Payload: PublicKey{Key: pkData}}); err != nil {
		return err
	}

	// The server replies PublicKeyAck before it will read EvalKey;
	// consume it here so the next frame read lines up with
	// ParameterSize rather than this ack.
	ackMsg, err := ReadFrame(c.conn, c.maxFrameBytes)
	if err != nil {
		return err
	}
	if _, ok := ackMsg.Payload.(PublicKeyAck); !ok {
		return &ProtocolError{State: string(c.state), Got: ackMsg.Type}
	}

	evkData, err := scheme.SaveEvalKey()
	if err != nil {
		return err
	}
	return WriteFrame(c.conn, Message{Type: TypeEvalKey, Payload: EvalKey{Key: evkData}})
}

func (c *ClientSession) awaitParamSize() error {
	msg, err := ReadFrame(c.conn, c.maxFrameBytes)
	if err != nil {
		return err
	}
	size, ok := msg.Payload.(ParameterSize)
	if !ok {
		return &ProtocolError{State: string(c.state), Got: msg.Type}
	}

	n := int(size.N)
	if len(c.inputs) != n*c.batchSize {
		return fmt.Errorf("protocol: input_values.len() = %d, want n*batch_size = %d*%d", len(c.inputs), n, c.batchSize)
	}

	ciphers := make([][]byte, n)
	for i := 0; i < n; i++ {
		lanes := c.inputs[i*c.batchSize : (i+1)*c.batchSize]
		pt, err := c.scheme.Encode(lanes, c.scheme.DefaultScale())
		if err != nil {
			return err
		}
		ct, err := c.scheme.Encrypt(pt)
		if err != nil {
			return err
		}
		data, err := ct.MarshalBinary()
		if err != nil {
			return fmt.Errorf("protocol: encoding input ciphertext %d: %w", i, err)
		}
		ciphers[i] = data
	}

	return WriteFrame(c.conn, Message{Type: TypeExecute, Payload: Execute{Ciphers: ciphers}})
}

func (c *ClientSession) awaitResult() error {
	msg, err := ReadFrame(c.conn, c.maxFrameBytes)
	if err != nil {
		return err
	}
	result, ok := msg.Payload.(Result)
	if !ok {
		return &ProtocolError{State: string(c.state), Got: msg.Type}
	}

	results := make([]float64, 0, len(result.Ciphers)*c.batchSize)
	for i, raw := range result.Ciphers {
		ct := &rlwe.Ciphertext{}
		if err := ct.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("protocol: decoding result ciphertext %d: %w", i, err)
		}
		pt, err := c.scheme.Decrypt(ct)
		if err != nil {
			return err
		}
		values, err := c.scheme.Decode(pt)
		if err != nil {
			return err
		}
		if len(values) < c.batchSize {
			return fmt.Errorf("protocol: decoded %d lanes, want at least batch_size %d", len(values), c.batchSize)
		}
		results = append(results, values[:c.batchSize]...)
	}
	c.results = results
	return nil
}
