// Package retry provides the bounded quadratic-backoff retry used for
// the handful of RPCs the stabilizer treats as worth a second attempt
// before giving up on a peer for this tick.
//
// This is the teacher's own `retry` helper from dht/node.go, left
// unwired there behind a "TODO: wrap FindSuccessor, GetPredecessor,
// Notify in this function" comment. It is wired in here instead of
// deleted: internal/ring's stabilizer wraps its GetPredecessor and
// Notify calls with it (see DESIGN.md).
package retry

import "time"

// Do runs operation up to maxAttempts times, sleeping
// attempt^2 * baseDelay between attempts. It returns the last error if
// every attempt fails.
func Do(operation func() error, maxAttempts int, baseDelay time.Duration) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if attempt+1 < maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * baseDelay)
		}
	}
	return err
}
