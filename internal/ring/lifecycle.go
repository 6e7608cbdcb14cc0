package ring

import (
	"context"
	"fmt"

	"github.com/retorded/chordring/internal/logger"
)

// create initializes the node as a ring of one: its own successor,
// a successor list of r copies of itself, no predecessor, and a
// finger table whose only filled entry is fingers[0] = self
// (spec.md §4.8 create()).
func (n *Node) create() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successor = n.self
	n.successorList = make([]peer, n.r)
	for i := range n.successorList {
		n.successorList[i] = n.self
	}
	n.predecessor = peer{}
	n.fingers = make([]peer, n.m)
	// fingers[0] is finger_table[1]'s initial value (self); every other
	// slot starts empty. fix_fingers refreshes it on its normal cycle
	// same as the rest of the table, it gets no special treatment.
	n.fingers[0] = n.self
	n.nextFinger = 0
}

// Join attaches this node to the ring reachable through bootstrapAddr
// (spec.md §4.8 join()): predecessor is cleared, and find_successor is
// asked of bootstrap directly. On success the returned address becomes
// the successor; on failure, bootstrap itself is used as a best-effort
// successor and the next stabilize tick repairs it.
func (n *Node) Join(bootstrapAddr string) error {
	if bootstrapAddr == "" || bootstrapAddr == n.self.address {
		return fmt.Errorf("ring: join: invalid bootstrap address %q", bootstrapAddr)
	}

	successorAddr := bootstrapAddr
	if resolved, err := n.transport.FindSuccessor(context.Background(), bootstrapAddr, n.self.id); err == nil {
		successorAddr = resolved
	} else {
		n.log.Warn("join: find_successor failed, using bootstrap as provisional successor", logger.F("bootstrap", bootstrapAddr), logger.F("err", err))
	}

	n.mu.Lock()
	n.predecessor = peer{}
	n.successor = n.resolve(successorAddr)
	n.successorList = []peer{n.successor}
	n.mu.Unlock()

	n.log.Info("joined ring", logger.F("via", bootstrapAddr), logger.F("successor", successorAddr))
	return nil
}

// Leave splices predecessor and successor together, hands this node's
// storage off to its successor, and resets to a solo ring (spec.md
// §4.8 leave()). Every step is best-effort: errors are logged, never
// returned, since the node is about to stop serving regardless.
func (n *Node) Leave() error {
	n.mu.RLock()
	successor := n.successor
	predecessor := n.predecessor
	self := n.self
	n.mu.RUnlock()

	hasBothNeighbors := !successor.empty() && !predecessor.empty() &&
		successor.address != self.address && predecessor.address != self.address

	if hasBothNeighbors {
		if err := n.transport.SetSuccessor(predecessor.address, successor.address); err != nil {
			n.log.Warn("leave: failed to relink predecessor's successor", logger.F("err", err))
		}
		if err := n.transport.SetPredecessor(successor.address, predecessor.address); err != nil {
			n.log.Warn("leave: failed to relink successor's predecessor", logger.F("err", err))
		}
	}

	if !successor.empty() && successor.address != self.address {
		for key, value := range n.storage.Snapshot() {
			if err := n.transport.SetValue(successor.address, key, value); err != nil {
				n.log.Warn("leave: failed handing off key", logger.F("key", key), logger.F("err", err))
			}
		}
	}

	n.create()
	n.log.Info("left ring", logger.F("successor", successor.address), logger.F("predecessor", predecessor.address))
	return nil
}

// SimCrash stops the three maintenance tasks and sets sim_crashed
// (spec.md §4.8): after this call, the transport layer drops every
// request except sim_recover. Stopping happens within one timeout
// interval, per the cancellation contract in spec.md §5.
func (n *Node) SimCrash() {
	n.mu.Lock()
	n.simCrashed = true
	cancel := n.cancelMaintenance
	n.cancelMaintenance = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
		n.maintWG.Wait()
	}
	n.log.Warn("sim_crash invoked")
}

// SimRecover clears sim_crashed and restarts the maintenance tasks
// against the context RunMaintenance was originally given.
func (n *Node) SimRecover() {
	n.mu.Lock()
	n.simCrashed = false
	base := n.baseCtx
	alreadyRunning := n.cancelMaintenance != nil
	n.mu.Unlock()

	if base != nil && !alreadyRunning {
		n.startMaintenance(base)
	}
	n.log.Info("sim_recover invoked")
}

// RunMaintenance starts the stabilizer, finger-fixer and
// predecessor-monitor loops. It returns a stop function that cancels
// all three and blocks until they have returned — at most one
// timeout interval later (spec.md §5). sim_crash/sim_recover restart
// the same loops against the context given here.
func (n *Node) RunMaintenance(parent context.Context) (stop func()) {
	n.mu.Lock()
	n.baseCtx = parent
	n.mu.Unlock()

	n.startMaintenance(parent)

	return func() {
		n.mu.Lock()
		cancel := n.cancelMaintenance
		n.cancelMaintenance = nil
		n.mu.Unlock()
		if cancel != nil {
			cancel()
			n.maintWG.Wait()
		}
	}
}

func (n *Node) startMaintenance(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	n.mu.Lock()
	n.cancelMaintenance = cancel
	n.mu.Unlock()

	n.maintWG.Add(3)
	go n.runStabilizeLoop(ctx)
	go n.runFixFingersLoop(ctx)
	go n.runCheckPredecessorLoop(ctx)
}
