// Package client is the in-process API of §6: Connect dials a server,
// drives the client FSM to completion synchronously, and hands back a
// Client whose results are already available.
//
// Grounded on original_source/src/seal/he_seal_client.cpp's
// HESealClient: its constructor dials, runs an io_context event loop
// dispatching handle_message until the connection closes, and exposes
// is_done/get_results/close as plain accessors over state the loop
// already settled. This port collapses that into one blocking dial +
// run, since protocol.ClientSession.Run already is that event loop.
package client

import (
	"net"
	"strconv"
	"time"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/protocol"
)

// Client is a completed (or failed) connection to one heserver. Unlike
// HESealClient, which runs its event loop on a background thread and
// lets is_done() poll for completion, Connect blocks until the FSM
// reaches DONE or errors — running the FSM synchronously makes the
// polling loop unnecessary, and is_done/get_results/close remain as
// simple accessors over that already-settled result (§6's exact
// surface).
type Client struct {
	session *protocol.ClientSession
	err     error
	done    bool
}

// Connect dials host:port, runs the client FSM (§4.5) to completion
// using registry to build the scheme once the server announces its
// EncryptionParameters, and returns once the session is DONE or has
// failed. A dial failure is reported through Err like any other session
// failure. batchSize and inputs are the caller's plaintext inputs,
// packed batch_size lanes per ciphertext per the server's
// ParameterSize (§4.5 AWAIT_PARAM_SIZE).
func Connect(host string, port int, batchSize int, inputs []float64, registry *hescheme.Registry, dialTimeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return &Client{err: &protocol.Io{Err: err}, done: true}, nil
	}

	session := protocol.NewClientSession(conn, registry, batchSize, inputs, protocol.DefaultMaxFrameBytes)
	c := &Client{session: session}
	c.err = session.Run()
	c.done = true
	return c, nil
}

// IsDone reports whether the session has finished, successfully or
// not — per §6, both a clean completion and an aborted one leave
// is_done() true.
func (c *Client) IsDone() bool { return c.done }

// GetResults returns the batch-lane-flattened float results. Per §6's
// "client-side: get_results() called after an abort returns an empty
// vector", a failed session's results are nil.
func (c *Client) GetResults() []float64 {
	if c.err != nil {
		return nil
	}
	return c.session.Results()
}

// Err returns the error the session failed with, if any. HESealClient
// has no equivalent (errors there only reach stdout), but callers
// embedding this as a library need a way to distinguish a clean empty
// result from a failed connection.
func (c *Client) Err() error { return c.err }

// Close is a no-op once Connect has returned: the session already
// closed its own connection when the FSM reached DONE or aborted.
// Kept as a method so callers ported from the original's explicit
// close_connection() call site don't need an if-check.
func (c *Client) Close() {}
