// Package devstate persists the device's update history and its last claimed
// bus address across restarts.
package devstate

import (
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/openecu/canup/statedb"
	"github.com/openecu/canup/statedb/memorydb"
	"github.com/openecu/canup/statedb/table"
)

// Store is the device-state persistent storage working over a parent
// key-value database.
type Store struct {
	cfg  StoreConfig
	crit func(error)

	mainDB statedb.Store
	table  struct {
		Journal   statedb.Store `table:"j"`
		Addresses statedb.Store `table:"a"`
		Meta      statedb.Store `table:"m"`
	}

	cache struct {
		Updates *lru.Cache `cache:"-"` // seq -> *UpdateRecord
	}
}

// NewStore creates store over key-value db.
func NewStore(mainDB statedb.Store, crit func(error), cfg StoreConfig) *Store {
	s := &Store{
		cfg:    cfg,
		crit:   crit,
		mainDB: mainDB,
	}

	table.MigrateTables(&s.table, s.mainDB)

	s.initCache()

	return s
}

func (s *Store) initCache() {
	s.cache.Updates = s.makeCache(s.cfg.Cache.UpdatesNum)
}

// NewMemStore creates store over memory map.
// Store is always blank.
func NewMemStore() *Store {
	cfg := LiteStoreConfig()
	crit := func(err error) {
		panic(err)
	}
	return NewStore(memorydb.New(), crit, cfg)
}

// Close leaves underlying database.
func (s *Store) Close() error {
	setnil := func() interface{} {
		return nil
	}

	table.MigrateTables(&s.table, nil)
	table.MigrateCaches(&s.cache, setnil)

	return s.mainDB.Close()
}

/*
 * Utils:
 */

// set RLP value
func (s *Store) set(table statedb.Store, key []byte, val interface{}) {
	buf, err := rlp.EncodeToBytes(val)
	if err != nil {
		s.crit(err)
	}

	if err := table.Put(key, buf); err != nil {
		s.crit(err)
	}
}

// get RLP value
func (s *Store) get(table statedb.Store, key []byte, to interface{}) interface{} {
	buf, err := table.Get(key)
	if err != nil {
		s.crit(err)
	}
	if buf == nil {
		return nil
	}

	err = rlp.DecodeBytes(buf, to)
	if err != nil {
		s.crit(err)
	}
	return to
}

func (s *Store) makeCache(size int) *lru.Cache {
	cache, err := lru.New(size)
	if err != nil {
		s.crit(err)
	}
	return cache
}
