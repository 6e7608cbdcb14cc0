package bootstrap

import "context"

// Static returns a fixed, pre-configured list of peers — useful for
// docker-compose setups and tests where membership is known upfront.
type Static struct {
	peers []string
}

// NewStatic returns a Discoverer backed by peers.
func NewStatic(peers []string) *Static {
	return &Static{peers: peers}
}

func (s *Static) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}
