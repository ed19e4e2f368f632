package memorydb

import (
	"github.com/openecu/canup/statedb"
)

// Mod is a database wrapper applied to every opened database.
type Mod func(statedb.DropableStore) statedb.DropableStore

type producer struct {
	fs   *fakeFS
	mods []Mod
}

// NewProducer of memory dbs. Producers sharing a non-empty namespace share
// the databases.
func NewProducer(namespace string, mods ...Mod) statedb.IterableDBProducer {
	return &producer{
		fs:   newFakeFS(namespace),
		mods: mods,
	}
}

// Names of existing databases.
func (p *producer) Names() []string {
	return p.fs.ListFakeDBs()
}

// OpenDB opens or creates the db with the given name.
func (p *producer) OpenDB(name string) (statedb.DropableStore, error) {
	db := p.fs.OpenFakeDB(name)

	for _, mod := range p.mods {
		db = mod(db)
	}

	return db, nil
}
