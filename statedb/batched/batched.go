// Package batched turns single writes into batch writes.
package batched

import (
	"github.com/openecu/canup/statedb"
)

// Store is a wrapper which translates every Put/Delete op into a batch op,
// flushing the batch whenever it grows over the ideal size.
type Store struct {
	statedb.Store
	batch statedb.Batch
}

// Wrap the underlying store.
func Wrap(s statedb.Store) *Store {
	return &Store{
		Store: s,
		batch: s.NewBatch(),
	}
}

// Write flushes the accumulated batch to the underlying store.
func (s *Store) Write() error {
	return s.batch.Write()
}

// Reset discards the accumulated batch.
func (s *Store) Reset() {
	s.batch.Reset()
}

// Replay replays the accumulated batch contents onto w.
func (s *Store) Replay(w statedb.Writer) error {
	return s.batch.Replay(w)
}

// Flush writes and resets the accumulated batch.
func (s *Store) Flush() error {
	err := s.batch.Write()
	if err != nil {
		return err
	}
	s.batch.Reset()
	return nil
}

// MayFlush flushes the batch if it has grown over the ideal size.
func (s *Store) MayFlush() (bool, error) {
	if s.batch.ValueSize() <= statedb.IdealBatchSize {
		return false, nil
	}
	return true, s.Flush()
}

// Put inserts the given value into the batch and may flush the batch.
func (s *Store) Put(key []byte, value []byte) error {
	if _, err := s.MayFlush(); err != nil {
		return err
	}
	return s.batch.Put(key, value)
}

// Delete places removal of the given value into the batch and may flush the
// batch.
func (s *Store) Delete(key []byte) error {
	if _, err := s.MayFlush(); err != nil {
		return err
	}
	return s.batch.Delete(key)
}

// Close flushes the batch and closes the underlying store.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.Store.Close()
}
