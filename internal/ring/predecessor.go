package ring

import (
	"context"
	"time"

	"github.com/retorded/chordring/internal/logger"
)

const (
	checkPredecessorMinInterval = 1 * time.Second
	checkPredecessorMaxInterval = 2 * time.Second
)

// runCheckPredecessorLoop periodically pings the predecessor and
// clears it on failure, every uniform-random interval in [1s, 2s)
// (spec.md §4.7, §5 cancellation).
func (n *Node) runCheckPredecessorLoop(ctx context.Context) {
	defer n.maintWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(randomInterval(checkPredecessorMinInterval, checkPredecessorMaxInterval)):
			n.CheckPredecessor()
		}
	}
}

// CheckPredecessor pings the current predecessor; an unreachable
// predecessor is cleared so that a later Notify can replace it
// (spec.md §4.7).
func (n *Node) CheckPredecessor() {
	if n.IsCrashed() {
		return
	}

	n.mu.RLock()
	pred := n.predecessor
	n.mu.RUnlock()
	if pred.empty() {
		return
	}

	if err := n.transport.Status(pred.address); err != nil {
		n.mu.Lock()
		if n.predecessor.address == pred.address {
			n.predecessor = peer{}
		}
		n.mu.Unlock()
		n.log.Debug("check_predecessor: predecessor unreachable, clearing", logger.F("predecessor", pred.address), logger.F("err", err))
	}
}
