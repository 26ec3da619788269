package protocol

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/executable"
	"github.com/nnhe/nnhe/graph"
	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
)

func TestClientServerSessionNegateRoundTrip(t *testing.T) {
	cfg := hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()}

	probe, err := hescheme.DefaultRegistry().New(cfg)
	require.NoError(t, err)
	batchSize := probe.BatchSize()

	const n = 2
	inputs := make([]float64, n*batchSize)
	for i := range inputs {
		inputs[i] = float64(i % 3)
	}

	serverScheme, err := hescheme.DefaultRegistry().NewServerSide(cfg)
	require.NoError(t, err)

	a := &graph.Node{ID: "a", Op: graph.OpParameter, OutputShape: hetensor.Shape{n}}
	neg := &graph.Node{ID: "neg", Op: graph.OpNegate, Inputs: []*graph.Node{a}, OutputShape: hetensor.Shape{n}, Dtype: hetensor.F64}
	a.Consumers = []*graph.Node{neg}
	g := graph.NewGraph([]*graph.Node{a, neg}, []*graph.Node{neg})

	exe := executable.New(serverScheme, g)

	clientConn, serverConn := net.Pipe()

	server := NewServerSession(serverConn, cfg, serverScheme, exe, "a", "neg", hetensor.Shape{batchSize, n}, 0)
	client := NewClientSession(clientConn, hescheme.DefaultRegistry(), batchSize, inputs, 0)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Run() }()

	clientErr := make(chan error, 1)
	go func() { clientErr <- client.Run() }()

	require.NoError(t, <-serverErr)
	require.NoError(t, <-clientErr)

	results := client.Results()
	require.Len(t, results, n*batchSize)
	for i, v := range results {
		require.InDelta(t, -inputs[i], v, 1e-6)
	}
}

func TestServerSessionRejectsUnexpectedMessage(t *testing.T) {
	cfg := hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()}
	serverScheme, err := hescheme.DefaultRegistry().NewServerSide(cfg)
	require.NoError(t, err)

	a := &graph.Node{ID: "a", Op: graph.OpParameter, OutputShape: hetensor.Shape{1}}
	g := graph.NewGraph([]*graph.Node{a}, []*graph.Node{a})
	exe := executable.New(serverScheme, g)

	clientConn, serverConn := net.Pipe()
	server := NewServerSession(serverConn, cfg, serverScheme, exe, "a", "a", hetensor.Shape{1}, 0)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Run() }()

	// drain EncryptionParameters
	_, err = ReadFrame(clientConn, DefaultMaxFrameBytes)
	require.NoError(t, err)

	// send something the AWAIT_PK state doesn't expect
	require.NoError(t, WriteFrame(clientConn, Message{Type: TypeExecute, Payload: Execute{}}))

	// the server answers with a None frame before closing; net.Pipe is
	// unbuffered, so it must be read for the server to return
	msg, err := ReadFrame(clientConn, DefaultMaxFrameBytes)
	require.NoError(t, err)
	require.Equal(t, TypeNone, msg.Type)

	err = <-serverErr
	require.Error(t, err)
	require.IsType(t, &ProtocolError{}, err)

	clientConn.Close()
}
