package devstate

import (
	"github.com/openecu/canup/utils/cachescale"
)

// StoreConfig is a config for store db.
type StoreConfig struct {
	Cache StoreCacheConfig
}

// StoreCacheConfig is a cache config for store db.
type StoreCacheConfig struct {
	// Cache size for journal records.
	UpdatesNum int
}

// DefaultStoreConfig for production devices.
func DefaultStoreConfig(scale cachescale.Func) StoreConfig {
	return StoreConfig{
		StoreCacheConfig{
			UpdatesNum: scale.I(500),
		},
	}
}

// LiteStoreConfig is for tests or inmemory.
func LiteStoreConfig() StoreConfig {
	return StoreConfig{
		StoreCacheConfig{
			UpdatesNum: 50,
		},
	}
}
