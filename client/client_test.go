package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nnhe/nnhe/executable"
	"github.com/nnhe/nnhe/graph"
	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/protocol"
)

func TestConnectRunsNegateGraphEndToEnd(t *testing.T) {
	cfg := hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()}

	probe, err := hescheme.DefaultRegistry().New(cfg)
	require.NoError(t, err)
	batchSize := probe.BatchSize()

	const n = 2
	inputs := make([]float64, n*batchSize)
	for i := range inputs {
		inputs[i] = float64(i % 4)
	}

	serverScheme, err := hescheme.DefaultRegistry().NewServerSide(cfg)
	require.NoError(t, err)

	a := &graph.Node{ID: "a", Op: graph.OpParameter, OutputShape: hetensor.Shape{n}}
	neg := &graph.Node{ID: "neg", Op: graph.OpNegate, Inputs: []*graph.Node{a}, OutputShape: hetensor.Shape{n}, Dtype: hetensor.F64}
	a.Consumers = []*graph.Node{neg}
	g := graph.NewGraph([]*graph.Node{a, neg}, []*graph.Node{neg})
	exe := executable.New(serverScheme, g)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		session := protocol.NewServerSession(conn, cfg, serverScheme, exe, "a", "neg", hetensor.Shape{batchSize, n}, 0)
		serverErr <- session.Run()
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port := 0
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}

	c, err := Connect(host, port, batchSize, inputs, hescheme.DefaultRegistry(), 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, c.Err())
	require.True(t, c.IsDone())

	results := c.GetResults()
	require.Len(t, results, n*batchSize)
	for i, v := range results {
		require.InDelta(t, -inputs[i], v, 1e-6)
	}

	require.NoError(t, <-serverErr)
}

func TestGetResultsEmptyAfterFailedConnect(t *testing.T) {
	c, err := Connect("127.0.0.1", 1, 1, []float64{1}, hescheme.DefaultRegistry(), 200*time.Millisecond)
	require.NoError(t, err)
	require.Error(t, c.Err())
	require.Nil(t, c.GetResults())
}
