// Package statedb defines the key-value store abstractions the device state
// layer is built on. Concrete backends live in the sub-packages.
package statedb

import (
	"io"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
)

// IdealBatchSize is the batch size over which a batch should be flushed to
// the backing store.
const IdealBatchSize = 100 * 1024

// ErrUnsupportedOp is returned by wrappers which cannot serve an operation
// of the Store interface.
var ErrUnsupportedOp = errors.New("statedb: operation is unsupported")

// Batch is a write-only store that commits changes to its host database when
// Write is called. A batch cannot be used concurrently.
type Batch interface {
	Writer

	// ValueSize retrieves the amount of data queued up for writing.
	ValueSize() int

	// Write flushes any accumulated data to the host database.
	Write() error

	// Reset resets the batch for reuse.
	Reset()

	// Replay replays the batch contents onto w.
	Replay(w Writer) error
}

// Iterator iterates over a store's key-value pairs in ascending key order.
type Iterator interface {
	ethdb.Iterator
}

// Writer wraps the Put and Delete methods of a backing store.
type Writer interface {
	ethdb.KeyValueWriter
}

// Reader wraps the Has and Get methods of a backing store.
type Reader interface {
	ethdb.KeyValueReader
}

// Batcher wraps the NewBatch method of a backing store.
type Batcher interface {
	// NewBatch creates a write-only store that buffers changes to its host
	// database until a final write is called.
	NewBatch() Batch
}

// Iteratee wraps the NewIterator method of a backing store.
type Iteratee interface {
	// NewIterator creates a binary-alphabetical iterator over a subset of
	// the keyspace with the given prefix, starting at a particular initial
	// key (or after, if it does not exist).
	NewIterator(prefix []byte, start []byte) Iterator
}

// IteratedReader is a readable and iterable subset of a store.
type IteratedReader interface {
	Reader
	Iteratee
}

// Store contains all the methods required of a key-value database backend.
type Store interface {
	IteratedReader
	Writer
	Batcher
	ethdb.Stater
	ethdb.Compacter
	io.Closer
}

// Dropper is able to delete the database content from the disk.
type Dropper interface {
	Drop()
}

// DropableStore is a Store which can erase itself after Close.
type DropableStore interface {
	Store
	Dropper
}

// FlushableKVStore buffers writes in memory and writes them to the parent
// store only on Flush.
type FlushableKVStore interface {
	DropableStore

	NotFlushedPairs() int
	NotFlushedSizeEst() int
	Flush() error
	DropNotFlushed()
}

// DBProducer opens named databases within a common location.
type DBProducer interface {
	// OpenDB opens or creates the database with the given name.
	OpenDB(name string) (DropableStore, error)
}

// IterableDBProducer is able to open a database by name and to list the
// existing ones.
type IterableDBProducer interface {
	DBProducer
	// Names of existing databases.
	Names() []string
}
