package transfer

import (
	"github.com/openecu/canup/flash"
)

// Config is the session configuration.
type Config struct {
	// Region is the staging slot images land in.
	Region flash.RegionID
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Region: flash.UpgradeSlot,
	}
}
