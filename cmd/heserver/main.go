// Command heserver is the server daemon of §6: it loads scheme
// parameters (from HE_CONFIG, falling back to the hard-coded default
// only when the env var names no file), builds a demo graph, and
// serves one connection at a time over the protocol FSM (§4.5).
//
// The graph compiler itself is out of scope (§1); this binary's own
// graph is the identity-on-a-parameter shape the spec's own protocol
// happy-path scenario (S4) exercises, sized by -shape.
package main

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nnhe/nnhe/executable"
	"github.com/nnhe/nnhe/graph"
	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/protocol"
)

func main() {
	listen := flag.String("listen", ":50051", "address to accept connections on")
	shapeFlag := flag.String("shape", "1,5", "comma-separated packed input shape: batch_size,n1,n2,...")
	maxFrameBytes := flag.Uint64("max-frame-bytes", protocol.DefaultMaxFrameBytes, "reject frames whose declared body length exceeds this many bytes")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	shape, err := parseShape(*shapeFlag)
	if err != nil {
		log.Fatal().Err(err).Str("shape", *shapeFlag).Msg("invalid -shape")
	}

	cfg, err := loadConfigOrDefault()
	if err != nil {
		// Scheme-init errors on the server are fatal (§7): the process
		// exits rather than accepting connections it can't serve.
		log.Fatal().Err(err).Msg("loading scheme configuration")
	}
	log.Info().Str("scheme", cfg.Kind.String()).Msg("scheme configuration loaded")

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatal().Err(err).Str("listen", *listen).Msg("binding listener")
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("heserver listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error().Err(err).Msg("accept")
			continue
		}
		serve(conn, cfg, shape, *maxFrameBytes)
	}
}

// serve handles exactly one connection start-to-finish before
// returning to Accept, per §4.5's single-threaded-at-the-connection-
// level concurrency note.
func serve(conn net.Conn, cfg hescheme.Config, shape hetensor.Shape, maxFrameBytes uint64) {
	peer := conn.RemoteAddr().String()
	logger := log.With().Str("peer", peer).Logger()

	scheme, err := hescheme.DefaultRegistry().NewServerSide(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("building server-side scheme")
		conn.Close()
		return
	}

	param := &graph.Node{ID: "input", Op: graph.OpParameter, OutputShape: hetensor.Shape{shape.Product() / shape[0]}}
	g := graph.NewGraph([]*graph.Node{param}, []*graph.Node{param})
	exe := executable.New(scheme, g)

	session := protocol.NewServerSession(conn, cfg, scheme, exe, "input", "input", shape, maxFrameBytes)
	if err := session.Run(); err != nil {
		logger.Error().Err(err).Msg("session ended with error")
		return
	}
	logger.Info().Msg("session completed")
}

func loadConfigOrDefault() (hescheme.Config, error) {
	if os.Getenv(hescheme.ConfigEnvVar) == "" {
		return hescheme.Config{Kind: hescheme.BFV, BFV: hescheme.DefaultBFVLiteral()}, nil
	}
	return hescheme.LoadConfig()
}

func parseShape(s string) (hetensor.Shape, error) {
	parts := strings.Split(s, ",")
	shape := make(hetensor.Shape, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		shape[i] = n
	}
	return shape, nil
}
