package ring

import (
	"context"
	"math/big"
	"time"

	"github.com/retorded/chordring/internal/logger"
)

const (
	fixFingersMinInterval = 3 * time.Second
	fixFingersMaxInterval = 5 * time.Second
)

// runFixFingersLoop refreshes one finger-table entry per tick, every
// uniform-random interval in [3s, 5s), cycling through all m entries
// (spec.md §4.6, §5 cancellation).
func (n *Node) runFixFingersLoop(ctx context.Context) {
	defer n.maintWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(randomInterval(fixFingersMinInterval, fixFingersMaxInterval)):
			n.FixFinger()
		}
	}
}

// FixFinger advances to the next finger index and recomputes it
// (spec.md §4.6). It cycles through every entry, index 0 (finger_table[1])
// included, wrapping from m-1 back to 0 rather than skipping the first
// slot.
func (n *Node) FixFinger() {
	if n.IsCrashed() {
		return
	}

	n.mu.Lock()
	if len(n.fingers) == 0 {
		n.mu.Unlock()
		return
	}
	n.nextFinger++
	if n.nextFinger >= len(n.fingers) {
		n.nextFinger = 0
	}
	index := n.nextFinger
	target := fingerStart(n.self.id, index+1, n.m)
	n.mu.Unlock()

	successor, err := n.FindSuccessor(context.Background(), target)
	if err != nil {
		n.log.Debug("fix_fingers: lookup failed", logger.F("index", index), logger.F("err", err))
		return
	}

	n.mu.Lock()
	n.fingers[index] = n.resolve(successor)
	n.mu.Unlock()
}

// fingerStart computes (id + 2^(index-1)) mod 2^m, the start of the
// index-th finger interval (spec.md §4.1).
func fingerStart(id, index, m int) int {
	offset := new(big.Int).Lsh(big.NewInt(1), uint(index-1))
	modulus := new(big.Int).Lsh(big.NewInt(1), uint(m))
	sum := new(big.Int).Add(big.NewInt(int64(id)), offset)
	sum.Mod(sum, modulus)
	return int(sum.Int64())
}
