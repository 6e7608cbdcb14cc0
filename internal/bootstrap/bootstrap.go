// Package bootstrap resolves the set of peers a starting node may
// join through. Chord itself needs only one reachable member to join
// a ring; this package's job is producing candidates for that one
// address, either from a static list or from DNS.
package bootstrap

import "context"

// Discoverer returns a list of candidate peer addresses to join
// through. An empty, nil-error result means "no peers known" — the
// caller should start a solo ring.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}
