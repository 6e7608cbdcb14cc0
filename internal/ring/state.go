package ring

import (
	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/ringid"
)

// Successor returns the address of the next node clockwise.
func (n *Node) Successor() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successor.address
}

// SuccessorID returns the identifier of the successor.
func (n *Node) SuccessorID() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successor.id
}

// SetSuccessor unconditionally sets the successor pointer. Used both
// by the stabilizer and by the PUT /successor RPC handler (spec.md
// §6), which is itself an unconditional set.
func (n *Node) SetSuccessor(address string) {
	n.mu.Lock()
	n.successor = n.resolve(address)
	n.mu.Unlock()
	n.log.Debug("successor set", logger.F("successor", address))
}

// Predecessor returns the address of this node's predecessor, or ""
// if none is known.
func (n *Node) Predecessor() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.predecessor.address
}

// SetPredecessor unconditionally sets the predecessor pointer; an
// empty address clears it. Used by the PUT /predecessor RPC handler
// (unconditional set, spec.md §6) and by lifecycle operations —
// Notify (spec.md §4.5) has its own conditional-accept logic and does
// not call this directly from the HTTP layer.
func (n *Node) SetPredecessor(address string) {
	n.mu.Lock()
	if address == "" {
		n.predecessor = peer{}
	} else {
		n.predecessor = n.resolve(address)
	}
	n.mu.Unlock()
	n.log.Debug("predecessor set", logger.F("predecessor", address))
}

// SuccessorList returns a copy of the successor list, closest first.
func (n *Node) SuccessorList() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, len(n.successorList))
	for i, p := range n.successorList {
		out[i] = p.address
	}
	return out
}

// FingerTable returns a copy of the finger table addresses; an empty
// string marks an entry that has not yet been computed.
func (n *Node) FingerTable() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, len(n.fingers))
	for i, p := range n.fingers {
		out[i] = p.address
	}
	return out
}

// IsCrashed reports whether sim_crash has been invoked (and
// sim_recover has not since).
func (n *Node) IsCrashed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.simCrashed
}

// resolve hashes address into a peer. Callers must hold n.mu (or not
// care about races on n.m, which is immutable after New).
func (n *Node) resolve(address string) peer {
	if address == n.self.address {
		return n.self
	}
	return peer{id: ringid.Hash(address, n.m), address: address}
}

// Notify is invoked by a peer claiming to be this node's predecessor
// (spec.md §4.5). Accepted iff predecessor is None or the candidate
// lies strictly between the current predecessor and this node.
func (n *Node) Notify(candidate string) {
	if candidate == "" || candidate == n.self.address {
		return
	}
	cand := n.resolve(candidate)

	n.mu.Lock()
	accept := n.predecessor.empty() || ringid.InOpenOpen(cand.id, n.predecessor.id, n.self.id)
	if accept {
		n.predecessor = cand
	}
	n.mu.Unlock()

	if accept {
		n.log.Debug("notify accepted", logger.F("candidate", candidate))
	} else {
		n.log.Debug("notify rejected", logger.F("candidate", candidate))
	}
}
