package ring

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/retry"
	"github.com/retorded/chordring/internal/ringid"
)

const (
	stabilizeMinInterval = 1 * time.Second
	stabilizeMaxInterval = 2 * time.Second

	getPredecessorAttempts = 2
	getPredecessorBaseWait = 20 * time.Millisecond
	notifyAttempts         = 2
	notifyBaseWait         = 20 * time.Millisecond
)

func randomInterval(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// runStabilizeLoop runs Stabilize every uniform-random interval in
// [1s, 2s) until ctx is cancelled (spec.md §4.4, §5 cancellation).
func (n *Node) runStabilizeLoop(ctx context.Context) {
	defer n.maintWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(randomInterval(stabilizeMinInterval, stabilizeMaxInterval)):
			n.Stabilize()
		}
	}
}

// Stabilize runs one iteration of the stabilization protocol
// (spec.md §4.4). It never returns an error: every failure path is
// swallowed and logged, and correctness derives from the next tick's
// retry rather than this call's outcome (spec.md §7).
func (n *Node) Stabilize() {
	if n.IsCrashed() {
		return
	}

	// Step 1: successor liveness.
	succ := n.currentSuccessor()
	if err := n.transport.Status(succ.address); err != nil {
		succ = n.dropDeadSuccessor()
		if succ.empty() {
			// successorList emptied out: we are alone again.
			n.log.Warn("stabilize: successor list exhausted, reverting to solo ring")
			return
		}
	}

	// Step 2: reconcile with successor's predecessor.
	var predAddr string
	err := retry.Do(func() error {
		var rerr error
		predAddr, rerr = n.transport.GetPredecessor(succ.address)
		return rerr
	}, getPredecessorAttempts, getPredecessorBaseWait)

	switch {
	case err != nil && !errors.Is(err, ErrNotFound):
		n.log.Debug("stabilize: get_predecessor failed, aborting tick", logger.F("successor", succ.address), logger.F("err", err))
		return
	case errors.Is(err, ErrNotFound):
		// successor has no predecessor; continue to notify.
	case predAddr == n.self.address:
		// already linked.
	default:
		candidate := n.resolve(predAddr)
		self, curSucc := n.selfAndSuccessor()
		if ringid.InOpenOpen(candidate.id, self.id, curSucc.id) {
			n.SetSuccessor(predAddr)
			succ = n.currentSuccessor()
		}
	}

	// Step 3: refresh the successor list from the (possibly updated)
	// successor.
	if list, lerr := n.transport.GetSuccessorList(succ.address); lerr == nil {
		n.refreshSuccessorList(succ, list)
	}

	// Step 4: notify, fire-and-forget.
	if succ.address == n.self.address {
		return
	}
	if nerr := retry.Do(func() error {
		return n.transport.Notify(succ.address, n.self.address)
	}, notifyAttempts, notifyBaseWait); nerr != nil {
		n.log.Debug("stabilize: notify failed", logger.F("successor", succ.address), logger.F("err", nerr))
	}
}

func (n *Node) currentSuccessor() peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successor
}

// dropDeadSuccessor drops the head of the successor list and promotes
// the next entry to successor (spec.md §4.4 step 1). It returns the
// new successor, which is the zero peer when the list is now empty.
func (n *Node) dropDeadSuccessor() peer {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.successorList) > 0 {
		n.successorList = n.successorList[1:]
	}
	if len(n.successorList) == 0 {
		n.successor = n.self
		n.successorList = []peer{n.self}
		return peer{}
	}
	n.successor = n.successorList[0]
	return n.successor
}

// refreshSuccessorList sets the successor list to
// ([successor] ++ fetched)[0:r] (spec.md §4.4 step 3). self is not
// filtered out of fetched: when N <= r the list legitimately wraps
// around to include this node, and dropping it would undershoot P4's
// |successor_list(n)| == min(r, N).
func (n *Node) refreshSuccessorList(successor peer, fetched []string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	list := make([]peer, 0, n.r)
	list = append(list, successor)
	for _, addr := range fetched {
		if len(list) >= n.r {
			break
		}
		if addr == "" {
			continue
		}
		list = append(list, n.resolve(addr))
	}
	if len(list) > n.r {
		list = list[:n.r]
	}
	n.successorList = list
}
