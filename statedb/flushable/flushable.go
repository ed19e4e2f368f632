// Package flushable implements a write cache in front of any Store. Writes
// land in a sorted in-memory buffer and reach the parent store only on Flush.
package flushable

import (
	"bytes"
	"errors"
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/ethereum/go-ethereum/common"

	"github.com/openecu/canup/statedb"
	"github.com/openecu/canup/statedb/devnulldb"
)

var errClosed = errors.New("database closed")

// Flushable is a statedb.Store wrapper around any database. Reads check the
// in-memory buffer first and fall through to the parent. Writes touch only
// the buffer until Flush is called.
type Flushable struct {
	underlying statedb.Store
	onDrop     func()

	modified       *rbt.Tree // not-flushed pairs; a nil value marks a deletion
	sizeEstimation int

	lock sync.RWMutex
}

var _ statedb.FlushableKVStore = (*Flushable)(nil)

// Wrap a parent store. The parent's own Drop is used as the drop callback.
func Wrap(parent statedb.DropableStore) *Flushable {
	if parent == nil {
		panic("nil parent")
	}
	return WrapWithDrop(parent, parent.Drop)
}

// WrapWithDrop is the same as Wrap, but with an explicit drop callback.
func WrapWithDrop(parent statedb.Store, drop func()) *Flushable {
	if parent == nil {
		panic("nil parent")
	}
	return &Flushable{
		underlying: parent,
		onDrop:     drop,
		modified:   rbt.NewWithStringComparator(),
	}
}

// Put buffers the pair until Flush.
func (w *Flushable) Put(key []byte, value []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if key == nil || value == nil {
		return errors.New("flushable: key or value is nil")
	}
	if w.modified == nil {
		return errClosed
	}

	w.put(key, value)
	return nil
}

func (w *Flushable) put(key []byte, value []byte) {
	w.modified.Put(string(key), common.CopyBytes(value))
	w.sizeEstimation += len(key) + len(value) + 128
}

// Delete buffers the removal until Flush.
func (w *Flushable) Delete(key []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.modified == nil {
		return errClosed
	}

	w.delete(key)
	return nil
}

func (w *Flushable) delete(key []byte) {
	w.modified.Put(string(key), nil)
	w.sizeEstimation += len(key) + 128
}

// Has checks the buffer first, then the parent store.
func (w *Flushable) Has(key []byte) (bool, error) {
	w.lock.RLock()
	defer w.lock.RUnlock()
	if w.modified == nil {
		return false, errClosed
	}

	if val, ok := w.modified.Get(string(key)); ok {
		return val != nil, nil
	}
	return w.underlying.Has(key)
}

// Get checks the buffer first, then the parent store.
func (w *Flushable) Get(key []byte) ([]byte, error) {
	w.lock.RLock()
	defer w.lock.RUnlock()
	if w.modified == nil {
		return nil, errClosed
	}

	if entry, ok := w.modified.Get(string(key)); ok {
		if entry == nil {
			return nil, nil
		}
		return common.CopyBytes(entry.([]byte)), nil
	}
	return w.underlying.Get(key)
}

// NotFlushedPairs returns the number of buffered pairs, deletions included.
func (w *Flushable) NotFlushedPairs() int {
	w.lock.RLock()
	defer w.lock.RUnlock()
	if w.modified == nil {
		return 0
	}
	return w.modified.Size()
}

// NotFlushedSizeEst returns a size estimation of the buffered data,
// deletions included.
func (w *Flushable) NotFlushedSizeEst() int {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.sizeEstimation
}

// DropNotFlushed discards the buffered pairs. After the call, the visible
// state is identical to the parent's state.
func (w *Flushable) DropNotFlushed() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.dropNotFlushed()
}

func (w *Flushable) dropNotFlushed() {
	w.modified.Clear()
	w.sizeEstimation = 0
}

// Flush moves the buffered pairs into the parent store.
func (w *Flushable) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.flush()
}

func (w *Flushable) flush() error {
	if w.modified == nil {
		return errClosed
	}

	batch := w.underlying.NewBatch()
	defer batch.Reset()
	for it := w.modified.Iterator(); it.Next(); {
		var err error
		if it.Value() == nil {
			err = batch.Delete([]byte(it.Key().(string)))
		} else {
			err = batch.Put([]byte(it.Key().(string)), it.Value().([]byte))
		}
		if err != nil {
			return err
		}

		if batch.ValueSize() > statedb.IdealBatchSize {
			if err := batch.Write(); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	w.modified.Clear()
	w.sizeEstimation = 0

	return batch.Write()
}

// Close discards the buffer and closes the parent store.
func (w *Flushable) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.modified == nil {
		return errClosed
	}
	w.dropNotFlushed()
	w.modified = nil

	return w.underlying.Close()
}

// Drop deletes the whole database. The store must be closed first.
func (w *Flushable) Drop() {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.modified != nil {
		panic("close db first")
	}
	if w.onDrop != nil {
		w.onDrop()
	}
}

// Stat delegates to the parent store.
func (w *Flushable) Stat(property string) (string, error) {
	return w.underlying.Stat(property)
}

// Compact delegates to the parent store.
func (w *Flushable) Compact(start []byte, limit []byte) error {
	return w.underlying.Compact(start, limit)
}

/*
 * Iterator
 */

type flushableIterator struct {
	lock *sync.RWMutex

	tree *rbt.Tree

	key, val []byte
	prevKey  []byte

	parentIt statedb.Iterator
	parentOk bool

	treeNode *rbt.Node
	treeOk   bool

	start, prefix []byte
}

// nextNode returns the smallest node which is strictly greater than the
// given one.
func nextNode(tree *rbt.Tree, node *rbt.Node) (next *rbt.Node, ok bool) {
	origin := node
	if node.Right != nil {
		node = node.Right
		for node.Left != nil {
			node = node.Left
		}
		return node, node != nil
	}
	if node.Parent != nil {
		for node.Parent != nil {
			node = node.Parent
			if tree.Comparator(origin.Key, node.Key) <= 0 {
				return node, node != nil
			}
		}
	}

	return nil, false
}

func castToPair(node *rbt.Node) (key, val []byte) {
	if node == nil {
		return nil, nil
	}
	key = []byte(node.Key.(string))
	if node.Value == nil {
		val = nil // deleted key
	} else {
		val = node.Value.([]byte)
	}
	return key, val
}

// init must be called once, under the read lock.
func (it *flushableIterator) init() {
	it.parentOk = it.parentIt.Next()
	if len(it.start) != 0 {
		it.treeNode, it.treeOk = it.tree.Ceiling(string(it.start)) // not strict >=
	} else {
		it.treeNode = it.tree.Left() // lowest key
		it.treeOk = it.treeNode != nil
	}
}

// Next advances to the next key in lexicographic order, merging the buffer
// with the parent iterator. Buffered pairs win over parent pairs, and
// buffered deletions hide parent keys.
func (it *flushableIterator) Next() bool {
	it.lock.RLock()
	defer it.lock.RUnlock()

	if it.Error() != nil {
		return false
	}

	isSuitable := func(key, prevKey []byte) (ok, continue_ bool) {
		if it.prefix != nil && !bytes.HasPrefix(key, it.prefix) {
			return false, false
		}
		return prevKey == nil || bytes.Compare(key, prevKey) > 0, true
	}

	for it.treeOk || it.parentOk {
		// the tree has priority, so check it first
		if it.treeOk {
			treeKey, treeVal := castToPair(it.treeNode)
			for it.treeOk && (!it.parentOk || bytes.Compare(treeKey, it.parentIt.Key()) <= 0) {
				// treeKey is always greater than prevKey here
				// treeVal may be nil (deleted); then only advance prevKey
				var ok bool
				if treeVal != nil {
					ok, it.treeOk = isSuitable(treeKey, it.prevKey)
				} else {
					it.prevKey = treeKey // the next key must be greater than the deleted one, even if it comes from the parent
				}

				if ok {
					it.key, it.val = treeKey, treeVal
					it.prevKey = it.key
				}
				if it.treeOk {
					it.treeNode, it.treeOk = nextNode(it.tree, it.treeNode) // strict >
					treeKey, treeVal = castToPair(it.treeNode)
				}
				if ok {
					return true
				}
			}
		}

		if it.parentOk {
			var ok bool
			ok, it.parentOk = isSuitable(it.parentIt.Key(), it.prevKey)

			if ok {
				it.key = common.CopyBytes(it.parentIt.Key()) // the parent iterator may reuse its buffers
				it.val = common.CopyBytes(it.parentIt.Value())
				it.prevKey = it.key
			}
			if it.parentOk {
				it.parentOk = it.parentIt.Next()
			}
			if ok {
				return true
			}
		}
	}

	return false
}

// Error returns the parent iterator error, if any. The in-memory part cannot
// fail.
func (it *flushableIterator) Error() error {
	return it.parentIt.Error()
}

// Key returns the key of the current pair, or nil if done. The caller must
// not modify the returned slice; its content may change on the next call to
// Next.
func (it *flushableIterator) Key() []byte {
	return it.key
}

// Value returns the value of the current pair, or nil if done. The caller
// must not modify the returned slice; its content may change on the next
// call to Next.
func (it *flushableIterator) Value() []byte {
	return it.val
}

// Release releases associated resources. It is fine to call it multiple
// times.
func (it *flushableIterator) Release() {
	if it.parentIt != nil {
		it.parentIt.Release()
		*it = flushableIterator{}
	}
}

type errIterator struct {
	statedb.Iterator
	err error
}

func (it *errIterator) Error() error {
	return it.err
}

// NewIterator creates a binary-alphabetical iterator over a subset of the
// merged keyspace with the given prefix, starting at a particular initial
// key (or after, if it does not exist).
func (w *Flushable) NewIterator(prefix []byte, start []byte) statedb.Iterator {
	w.lock.RLock()
	defer w.lock.RUnlock()

	if w.modified == nil {
		return &errIterator{
			Iterator: devnulldb.New().NewIterator(nil, nil),
			err:      errClosed,
		}
	}

	it := &flushableIterator{
		lock:     &w.lock,
		tree:     w.modified,
		start:    append(common.CopyBytes(prefix), start...),
		prefix:   prefix,
		parentIt: w.underlying.NewIterator(prefix, start),
	}
	it.init()
	return it
}

/*
 * Batch
 */

// NewBatch creates a batch over the buffer.
func (w *Flushable) NewBatch() statedb.Batch {
	return &cacheBatch{db: w}
}

type kv struct {
	k, v []byte
}

type cacheBatch struct {
	db     *Flushable
	writes []kv
	size   int
}

// Put queues a pair insertion.
func (b *cacheBatch) Put(key, value []byte) error {
	b.writes = append(b.writes, kv{common.CopyBytes(key), common.CopyBytes(value)})
	b.size += len(key) + len(value)
	return nil
}

// Delete queues a key removal.
func (b *cacheBatch) Delete(key []byte) error {
	b.writes = append(b.writes, kv{common.CopyBytes(key), nil})
	b.size += len(key)
	return nil
}

// Write applies the queued operations to the buffer. Not atomic.
func (b *cacheBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	if b.db.modified == nil {
		return errClosed
	}
	for _, kv := range b.writes {
		if kv.v == nil {
			b.db.delete(kv.k)
		} else {
			b.db.put(kv.k, kv.v)
		}
	}
	return nil
}

// ValueSize returns the sum of the queued key and value sizes.
func (b *cacheBatch) ValueSize() int {
	return b.size
}

// Reset cleans the whole batch.
func (b *cacheBatch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

// Replay replays the batch contents onto w.
func (b *cacheBatch) Replay(w statedb.Writer) error {
	for _, kv := range b.writes {
		if kv.v == nil {
			if err := w.Delete(kv.k); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(kv.k, kv.v); err != nil {
			return err
		}
	}
	return nil
}
