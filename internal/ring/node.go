// Package ring implements the Chord ring-membership and routing
// engine: identifier arithmetic on a modular ring, the finger table,
// the successor list, the periodic stabilization / finger-fixing /
// predecessor-liveness protocols, and the recursive find_successor
// lookup. See spec.md §§3-5 and SPEC_FULL.md.
package ring

import (
	"context"
	"sync"

	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/ringid"
)

// peer is an (id, address) pair. The zero value (address == "")
// represents "no peer" — spec.md's None for predecessor and for
// not-yet-computed finger entries.
type peer struct {
	id      int
	address string
}

func (p peer) empty() bool { return p.address == "" }

// Tracer is the optional hook find_successor uses to emit one span
// per routing hop. See internal/telemetry for the OpenTelemetry-backed
// implementation; Noop() below is always safe to call.
type Tracer interface {
	Hop(ctx context.Context, keyID, nodeID int, decision string) (context.Context, func())
}

type noopTracer struct{}

func (noopTracer) Hop(ctx context.Context, _, _ int, _ string) (context.Context, func()) {
	return ctx, func() {}
}

// Noop returns a Tracer that never records anything.
func Noop() Tracer { return noopTracer{} }

// Node is one member of the Chord ring. All composite-state
// reads/writes go through mu, so no caller ever observes a torn
// update — e.g. a successor list whose length disagrees with its
// contents (spec.md §5). Outbound RPCs are always issued with mu
// released.
type Node struct {
	mu sync.RWMutex

	self peer
	m    int
	r    int

	successor     peer
	successorList []peer
	predecessor   peer
	fingers       []peer // len == m; fingers[i] is finger (i+1)
	nextFinger    int    // index into fingers, 0-based, advances cyclically

	simCrashed bool

	storage   *Storage
	transport Transport
	log       logger.Logger
	tracer    Tracer

	baseCtx           context.Context
	cancelMaintenance context.CancelFunc
	maintWG           sync.WaitGroup
}

// New constructs a node bound to address, hashed into an m-bit
// identifier space, with a successor list of length r. It starts as a
// standalone ring — spec.md §4.8 create() — the caller decides
// separately whether to call Join before or instead of starting
// maintenance.
func New(address string, m, r int, transport Transport, lgr logger.Logger, tracer Tracer) *Node {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	if tracer == nil {
		tracer = Noop()
	}
	n := &Node{
		self:      peer{id: ringid.Hash(address, m), address: address},
		m:         m,
		r:         r,
		fingers:   make([]peer, m),
		storage:   NewStorage(),
		transport: transport,
		log:       lgr.Named("ring").With(logger.F("self_addr", address)),
		tracer:    tracer,
	}
	n.create()
	n.log.Info("node created", logger.F("self_id", n.self.id), logger.F("m", m), logger.F("r", r))
	return n
}

// ID returns this node's identifier.
func (n *Node) ID() int { return n.self.id }

// Address returns this node's "ip:port".
func (n *Node) Address() string { return n.self.address }

// M returns the identifier bit width.
func (n *Node) M() int { return n.m }
