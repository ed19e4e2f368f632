// Package fallible provides a Store wrapper with an exhaustible write
// budget, for failure injection in tests.
package fallible

import (
	"errors"
	"sync/atomic"

	"github.com/openecu/canup/statedb"
)

var errWriteLimit = errors.New("write limit is exhausted")

// Fallible is a Store wrapper which panics on the first write over the
// budget set with SetWriteCount. Reads and deletions are unlimited.
type Fallible struct {
	Underlying statedb.Store

	writes int32
}

var _ statedb.DropableStore = (*Fallible)(nil)

// Wrap the underlying store. The initial write budget is zero.
func Wrap(db statedb.Store) *Fallible {
	return &Fallible{
		Underlying: db,
	}
}

// SetWriteCount sets the number of writes allowed before panic.
func (f *Fallible) SetWriteCount(n int) {
	atomic.StoreInt32(&f.writes, int32(n))
}

// GetWriteCount returns the remaining write budget. It goes negative when
// the budget has been exceeded.
func (f *Fallible) GetWriteCount() int {
	return int(atomic.LoadInt32(&f.writes))
}

// Put inserts the given value into the key-value store, spending one unit of
// the write budget.
func (f *Fallible) Put(key []byte, value []byte) error {
	count := atomic.AddInt32(&f.writes, -1)
	if count < 0 {
		panic(errWriteLimit)
	}
	return f.Underlying.Put(key, value)
}

// Has retrieves if a key is present in the key-value store.
func (f *Fallible) Has(key []byte) (bool, error) {
	return f.Underlying.Has(key)
}

// Get retrieves the given key if it's present in the key-value store.
func (f *Fallible) Get(key []byte) ([]byte, error) {
	return f.Underlying.Get(key)
}

// Delete removes the key from the key-value store.
func (f *Fallible) Delete(key []byte) error {
	return f.Underlying.Delete(key)
}

// NewBatch creates a batch over the underlying store. Batched writes bypass
// the budget.
func (f *Fallible) NewBatch() statedb.Batch {
	return f.Underlying.NewBatch()
}

// NewIterator delegates to the underlying store.
func (f *Fallible) NewIterator(prefix []byte, start []byte) statedb.Iterator {
	return f.Underlying.NewIterator(prefix, start)
}

// Stat delegates to the underlying store.
func (f *Fallible) Stat(property string) (string, error) {
	return f.Underlying.Stat(property)
}

// Compact delegates to the underlying store.
func (f *Fallible) Compact(start []byte, limit []byte) error {
	return f.Underlying.Compact(start, limit)
}

// Close is not implemented.
func (f *Fallible) Close() error {
	panic("is not implemented")
}

// Drop is not implemented.
func (f *Fallible) Drop() {
	panic("is not implemented")
}
