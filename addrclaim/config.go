package addrclaim

import (
	"time"

	"github.com/openecu/canup/j1939"
)

type Config struct {
	Name             j1939.Name    // priority key announced with every claim
	PreferredAddress j1939.Address // first address to attempt
	ArbitraryCapable bool          // may move to another address on contention
	ClaimTimeout     time.Duration // contention window after each announcement

	// MaxQueuedClaims is the maximum number of rival announcements to queue up
	// before OnClaim blocks.
	MaxQueuedClaims int
}

func DefaultConfig(name j1939.Name, preferred j1939.Address) Config {
	return Config{
		Name:             name,
		PreferredAddress: preferred,
		ArbitraryCapable: name.ArbitraryCapable(),
		ClaimTimeout:     250 * time.Millisecond,
		MaxQueuedClaims:  16,
	}
}
