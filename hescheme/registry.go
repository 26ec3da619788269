package hescheme

import "fmt"

// Constructor builds a fresh client-side Scheme (with its own secret
// key) from a Config. Used by Registry.New and by the package-level
// default registry.
type Constructor func(cfg Config) (Scheme, error)

// Registry maps a Kind to the constructor responsible for it. Callers
// that want to add or override a scheme implementation (e.g. in a
// test) build their own Registry instead of reaching for the package
// default — client.Connect and protocol.NewClientSession take a
// Registry explicitly rather than hard-wiring BFV/CKKS (§9 REDESIGN:
// explicit registry, default provided as convenience). executable.New
// takes an already-built Scheme, not a Registry.
type Registry struct {
	constructors map[Kind]Constructor
}

// NewRegistry returns an empty Registry. Use Register to populate it,
// or call DefaultRegistry for the BFV+CKKS registry every binary in
// this repository actually runs with.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[Kind]Constructor)}
}

func (r *Registry) Register(kind Kind, ctor Constructor) {
	r.constructors[kind] = ctor
}

// New builds a client-side Scheme for cfg.Kind.
func (r *Registry) New(cfg Config) (Scheme, error) {
	ctor, ok := r.constructors[cfg.Kind]
	if !ok {
		return nil, &SchemeParamError{Reason: fmt.Sprintf("no scheme registered for kind %s", cfg.Kind)}
	}
	return ctor(cfg)
}

// NewServerSide builds a server-side Scheme for cfg.Kind: one that has
// the scheme's parameters but no secret key, ready to receive the
// client's PublicKey/EvalKey over the wire (§4.5 AWAIT_PK).
func (r *Registry) NewServerSide(cfg Config) (Scheme, error) {
	switch cfg.Kind {
	case BFV:
		return newBFVServerSide(cfg.BFV)
	case CKKS:
		return newCKKSServerSide(cfg.CKKS)
	default:
		return nil, &SchemeParamError{Reason: fmt.Sprintf("no scheme registered for kind %s", cfg.Kind)}
	}
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(BFV, func(cfg Config) (Scheme, error) { return newBFVClientSide(cfg.BFV) })
	r.Register(CKKS, func(cfg Config) (Scheme, error) { return newCKKSClientSide(cfg.CKKS) })
	return r
}()

// DefaultRegistry returns the package-level BFV+CKKS registry used by
// cmd/heserver and cmd/heclient unless a caller wires its own.
func DefaultRegistry() *Registry { return defaultRegistry }
