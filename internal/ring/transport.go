package ring

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Transport.GetPredecessor when the remote
// node reports it has none (HTTP 404), and by Transport.GetValue when
// the remote node does not hold the requested key. Both are the
// "logical absence" case from spec.md §7 — distinct from failure.
var ErrNotFound = errors.New("ring: not found")

// Transport is the RPC client contract the ring engine depends on.
// Every method returns a non-nil error for anything spec.md §4.2
// calls Unreachable or a non-2xx reply — this package never
// distinguishes those further, except where ErrNotFound applies.
type Transport interface {
	// Status pings addr. A nil error means Ok.
	Status(addr string) error

	// GetPredecessor returns addr's predecessor address. It returns
	// ("", ErrNotFound) when addr reports it has none.
	GetPredecessor(addr string) (string, error)

	// GetSuccessorList returns addr's successor list, closest first.
	GetSuccessorList(addr string) ([]string, error)

	// FindSuccessor asks addr to resolve keyID, recursively if needed.
	// ctx carries the routing trace across the hop.
	FindSuccessor(ctx context.Context, addr string, keyID int) (string, error)

	// Notify tells addr that self might be its new predecessor.
	// Fire-and-forget from the caller's perspective: failures are
	// logged, never propagated as a tick failure.
	Notify(addr, self string) error

	// GetValue returns the value addr stores for key, or
	// ("", ErrNotFound) if addr does not hold it.
	GetValue(addr, key string) (string, error)

	// SetValue stores key/value at addr.
	SetValue(addr, key, value string) error

	// SetSuccessor unconditionally sets addr's successor pointer.
	SetSuccessor(addr, successor string) error

	// SetPredecessor unconditionally sets addr's predecessor pointer.
	SetPredecessor(addr, predecessor string) error
}
