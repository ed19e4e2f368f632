package devstate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/openecu/canup/common/bigendian"
	"github.com/openecu/canup/transfer"
)

const seqKey = "s"

// UpdateRecord is one settled update session in the journal.
type UpdateRecord struct {
	Seq     uint64
	Size    uint32
	Offset  uint32
	Packets uint8
	Outcome transfer.Outcome
	Time    uint64 // unix seconds
}

func journalKey(seq uint64) []byte {
	return bigendian.Uint64ToBytes(seq)
}

// AppendUpdate stores the record under the next journal sequence number and
// returns that number. Keys are big-endian, so iteration order is append order.
// Not safe for concurrent use; the dispatcher is the single writer.
func (s *Store) AppendUpdate(rec UpdateRecord) uint64 {
	seq := s.lastSeq() + 1
	rec.Seq = seq

	s.set(s.table.Journal, journalKey(seq), &rec)
	s.set(s.table.Meta, []byte(seqKey), &seq)

	// Add to cache.
	s.cache.Updates.Add(seq, &rec)

	return seq
}

// LastUpdate returns the most recent journal record.
func (s *Store) LastUpdate() (UpdateRecord, bool) {
	last := s.lastSeq()
	if last == 0 {
		return UpdateRecord{}, false
	}

	r := s.getUpdate(last)
	if r == nil {
		s.crit(fmt.Errorf("journal: missing record seq=%d", last))
		return UpdateRecord{}, false
	}
	return *r, true
}

// Updates returns up to n most recent journal records, oldest first.
func (s *Store) Updates(n int) []UpdateRecord {
	last := s.lastSeq()
	if n <= 0 || last == 0 {
		return nil
	}

	first := uint64(1)
	if uint64(n) < last {
		first = last - uint64(n) + 1
	}

	rr := make([]UpdateRecord, 0, last-first+1)

	it := s.table.Journal.NewIterator(nil, journalKey(first))
	defer it.Release()
	for it.Next() {
		r := UpdateRecord{}
		if err := rlp.DecodeBytes(it.Value(), &r); err != nil {
			s.crit(err)
			continue
		}
		rr = append(rr, r)
	}
	if it.Error() != nil {
		s.crit(it.Error())
	}

	return rr
}

// getUpdate reads one journal record through the LRU cache.
func (s *Store) getUpdate(seq uint64) *UpdateRecord {
	// Get data from LRU cache first.
	if r, ok := s.cache.Updates.Get(seq); ok {
		return r.(*UpdateRecord)
	}

	r, exists := s.get(s.table.Journal, journalKey(seq), &UpdateRecord{}).(*UpdateRecord)
	if !exists {
		return nil
	}

	// Add to cache.
	s.cache.Updates.Add(seq, r)

	return r
}

func (s *Store) lastSeq() uint64 {
	seq, exists := s.get(s.table.Meta, []byte(seqKey), new(uint64)).(*uint64)
	if !exists {
		return 0
	}
	return *seq
}
