// Package memorydb implements the key-value database layer based on memory
// maps.
package memorydb

import (
	"github.com/openecu/canup/statedb"
	"github.com/openecu/canup/statedb/devnulldb"
	"github.com/openecu/canup/statedb/flushable"
)

// Database is an ephemeral key-value store. Apart from basic data storage
// functionality it also supports batch writes and iterating over the
// keyspace in binary-alphabetical order.
type Database struct {
	statedb.Store
}

// New returns a wrapped map with all the required database interface methods
// implemented.
func New() *Database {
	return &Database{
		Store: flushable.Wrap(devnulldb.New()),
	}
}

// NewWithDrop is the same as New, but defines the onDrop callback.
func NewWithDrop(drop func()) *Database {
	return &Database{
		Store: flushable.WrapWithDrop(devnulldb.New(), drop),
	}
}

// Drop deletes the database content.
func (db *Database) Drop() {
	db.Store.(*flushable.Flushable).Drop()
}
