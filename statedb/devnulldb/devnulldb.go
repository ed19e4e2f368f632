// Package devnulldb implements a key-value store over an always-empty
// keyspace. Writes are accepted and discarded.
package devnulldb

import (
	"github.com/openecu/canup/statedb"
)

// Database discards every write and serves every read from emptiness.
type Database struct{}

var _ statedb.DropableStore = (*Database)(nil)

// New returns the /dev/null database instance.
func New() *Database {
	return &Database{}
}

// Has returns false for any key.
func (db *Database) Has(key []byte) (bool, error) {
	return false, nil
}

// Get returns nil for any key.
func (db *Database) Get(key []byte) ([]byte, error) {
	return nil, nil
}

// Put discards the pair.
func (db *Database) Put(key []byte, value []byte) error {
	return nil
}

// Delete discards the key.
func (db *Database) Delete(key []byte) error {
	return nil
}

// NewBatch creates a batch which discards everything on Write.
func (db *Database) NewBatch() statedb.Batch {
	return &batch{}
}

// NewIterator creates an iterator over the empty keyspace.
func (db *Database) NewIterator(prefix []byte, start []byte) statedb.Iterator {
	return &iterator{}
}

// Stat has nothing to report.
func (db *Database) Stat(property string) (string, error) {
	return "", nil
}

// Compact has nothing to do.
func (db *Database) Compact(start []byte, limit []byte) error {
	return nil
}

// Close is a no-op.
func (db *Database) Close() error {
	return nil
}

// Drop is a no-op.
func (db *Database) Drop() {}

type batch struct {
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.size++
	return nil
}

func (b *batch) ValueSize() int {
	return b.size
}

func (b *batch) Write() error {
	return nil
}

func (b *batch) Reset() {
	b.size = 0
}

func (b *batch) Replay(w statedb.Writer) error {
	return nil
}

type iterator struct{}

func (it *iterator) Next() bool {
	return false
}

func (it *iterator) Error() error {
	return nil
}

func (it *iterator) Key() []byte {
	return nil
}

func (it *iterator) Value() []byte {
	return nil
}

func (it *iterator) Release() {}
