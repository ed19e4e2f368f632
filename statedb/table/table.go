// Package table provides prefixed views over a Store, so several logical
// tables can share one physical database.
package table

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openecu/canup/statedb"
)

// Table is a Store wrapper which prepends a fixed prefix to every key it
// touches in the underlying store.
type Table struct {
	prefix     []byte
	underlying statedb.Store
}

var _ statedb.DropableStore = (*Table)(nil)

// NOTE: key collisions are possible if one prefix is a prefix of another
var separator = []byte{}

// prefixed key (prefix + separator + key)
func prefixed(key, prefix []byte) []byte {
	prefixedKey := make([]byte, 0, len(prefix)+len(separator)+len(key))
	prefixedKey = append(prefixedKey, prefix...)
	prefixedKey = append(prefixedKey, separator...)
	prefixedKey = append(prefixedKey, key...)
	return prefixedKey
}

func noPrefix(key, prefix []byte) []byte {
	if len(key) < len(prefix)+len(separator) {
		return key
	}
	return key[len(prefix)+len(separator):]
}

// New table over the db, keyed under the given prefix.
func New(db statedb.Store, prefix []byte) *Table {
	return &Table{
		prefix:     prefix,
		underlying: db,
	}
}

// NewTable returns a sub-table, nested under this table's prefix.
func (t *Table) NewTable(prefix []byte) *Table {
	return New(t, prefix)
}

// Close is unsupported: a table is a view, closing belongs to the owner of
// the underlying store.
func (t *Table) Close() error {
	return statedb.ErrUnsupportedOp
}

// Drop is a no-op for the same reason Close is unsupported.
func (t *Table) Drop() {}

func (t *Table) Has(key []byte) (bool, error) {
	return t.underlying.Has(prefixed(key, t.prefix))
}

func (t *Table) Get(key []byte) ([]byte, error) {
	return t.underlying.Get(prefixed(key, t.prefix))
}

func (t *Table) Put(key []byte, value []byte) error {
	return t.underlying.Put(prefixed(key, t.prefix), value)
}

func (t *Table) Delete(key []byte) error {
	return t.underlying.Delete(prefixed(key, t.prefix))
}

func (t *Table) NewBatch() statedb.Batch {
	return &batch{t.underlying.NewBatch(), t.prefix}
}

func (t *Table) NewIterator(itPrefix []byte, start []byte) statedb.Iterator {
	return &iterator{t.underlying.NewIterator(prefixed(itPrefix, t.prefix), start), t.prefix}
}

func (t *Table) Stat(property string) (string, error) {
	return t.underlying.Stat(property)
}

// incPrefix treats the prefix as a big-endian number and returns the next
// one, or nil on overflow.
func incPrefix(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	endBn := new(big.Int).SetBytes(prefix)
	endBn.Add(endBn, common.Big1)
	if len(endBn.Bytes()) > len(prefix) {
		// overflow
		return nil
	}
	res := make([]byte, len(prefix)-len(endBn.Bytes()), len(prefix))
	return append(res, endBn.Bytes()...)
}

func (t *Table) Compact(start []byte, limit []byte) error {
	end := prefixed(limit, t.prefix)
	if limit == nil {
		end = incPrefix(t.prefix)
	}
	return t.underlying.Compact(prefixed(start, t.prefix), end)
}

/*
 * Iterator
 */

type iterator struct {
	it     statedb.Iterator
	prefix []byte
}

func (it *iterator) Next() bool {
	return it.it.Next()
}

func (it *iterator) Error() error {
	return it.it.Error()
}

// Key strips the table prefix off the underlying key.
func (it *iterator) Key() []byte {
	return noPrefix(it.it.Key(), it.prefix)
}

func (it *iterator) Value() []byte {
	return it.it.Value()
}

func (it *iterator) Release() {
	it.it.Release()
	*it = iterator{}
}

/*
 * Batch
 */

type batch struct {
	batch  statedb.Batch
	prefix []byte
}

func (b *batch) Put(key, value []byte) error {
	return b.batch.Put(prefixed(key, b.prefix), value)
}

func (b *batch) Delete(key []byte) error {
	return b.batch.Delete(prefixed(key, b.prefix))
}

func (b *batch) ValueSize() int {
	return b.batch.ValueSize()
}

func (b *batch) Write() error {
	return b.batch.Write()
}

func (b *batch) Reset() {
	b.batch.Reset()
}

func (b *batch) Replay(w statedb.Writer) error {
	return b.batch.Replay(&replayer{w, b.prefix})
}

/*
 * Replayer
 */

type replayer struct {
	writer statedb.Writer
	prefix []byte
}

func (r *replayer) Put(key, value []byte) error {
	return r.writer.Put(noPrefix(key, r.prefix), value)
}

func (r *replayer) Delete(key []byte) error {
	return r.writer.Delete(noPrefix(key, r.prefix))
}
