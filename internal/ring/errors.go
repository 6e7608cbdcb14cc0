package ring

import "errors"

// errNoSuccessor means find_successor had nothing left to delegate to
// — the node has no successor at all, which should only happen
// momentarily during construction, never in steady state.
var errNoSuccessor = errors.New("ring: no successor")
