package ring

import (
	"context"

	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/ringid"
)

// FindSuccessor resolves keyID to the address of the node that owns
// it, per spec.md §4.3. Under churn or partial failure it may return
// a close-but-non-owning node; callers treat the result as
// best-effort. A non-nil error means the one delegation attempted
// failed: to the finger-table candidate when there is one, otherwise
// to the successor. A failed finger delegation is not retried through
// the successor.
func (n *Node) FindSuccessor(ctx context.Context, keyID int) (string, error) {
	ctx, end := n.tracer.Hop(ctx, keyID, n.self.id, "")
	defer end()

	// keyID always belongs to the node whose own id it equals: it's the
	// closed end of that node's (predecessor, id] arc. Without this, a
	// node asked to resolve its own id falls through to delegating to
	// its successor, which on a solo ring is itself, recursing forever.
	if keyID == n.self.id {
		return n.self.address, nil
	}

	self, succ := n.selfAndSuccessor()

	// Step 1: is our own successor the owner?
	if ringid.InOpenClosed(keyID, self.id, succ.id) {
		if err := n.transport.Status(succ.address); err == nil {
			return succ.address, nil
		}
		// successor unreachable: fall through to finger-based routing
		// rather than returning a dead address.
	}

	// Step 2: closest preceding node from the finger table.
	candidate, ok := n.closestPrecedingNode(keyID)
	if ok {
		// Step 3: delegate to the candidate.
		result, err := n.transport.FindSuccessor(ctx, candidate.address, keyID)
		if err != nil {
			n.log.Debug("find_successor delegate failed", logger.F("candidate", candidate.address), logger.F("err", err))
			return "", err
		}
		return result, nil
	}

	// Step 4: delegate to our successor.
	if succ.empty() {
		return "", errNoSuccessor
	}
	result, err := n.transport.FindSuccessor(ctx, succ.address, keyID)
	if err != nil {
		n.log.Debug("find_successor successor-fallback failed", logger.F("successor", succ.address), logger.F("err", err))
		return "", err
	}
	return result, nil
}

// closestPrecedingNode scans the finger table from index m down to 1,
// returning the first live finger strictly between self and keyID.
// Dead fingers encountered along the way are cleared (spec.md §4.3
// step 2). Both endpoints are excluded (in_open_open) so the chosen
// hop always lies strictly clockwise of self — the invariant that
// bounds find_successor's recursion depth.
func (n *Node) closestPrecedingNode(keyID int) (peer, bool) {
	n.mu.RLock()
	self := n.self
	fingers := append([]peer(nil), n.fingers...)
	n.mu.RUnlock()

	for i := len(fingers) - 1; i >= 0; i-- {
		f := fingers[i]
		if f.empty() {
			continue
		}
		if !ringid.InOpenOpen(f.id, self.id, keyID) {
			continue
		}
		if err := n.transport.Status(f.address); err != nil {
			n.mu.Lock()
			if i < len(n.fingers) && n.fingers[i].address == f.address {
				n.fingers[i] = peer{}
			}
			n.mu.Unlock()
			continue
		}
		return f, true
	}
	return peer{}, false
}

func (n *Node) selfAndSuccessor() (peer, peer) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.self, n.successor
}

// LocalGet returns the value stored locally for key, bypassing any
// ownership check — it backs GET /value/{key} (spec.md §6), a
// node-local operation. Routed client-facing lookups (GET
// /storage/{key}) resolve the owner via FindSuccessor first and then
// call LocalGet on that owner.
func (n *Node) LocalGet(key string) (string, bool) {
	return n.storage.Get(key)
}

// LocalSet stores key/value locally, bypassing any ownership check —
// it backs PUT /value/{key}.
func (n *Node) LocalSet(key, value string) {
	n.storage.Put(key, value)
}
