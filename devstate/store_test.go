package devstate

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openecu/canup/j1939"
	"github.com/openecu/canup/statedb/fallible"
	"github.com/openecu/canup/statedb/leveldb"
	"github.com/openecu/canup/statedb/memorydb"
	"github.com/openecu/canup/transfer"
)

func record(size uint32, o transfer.Outcome) UpdateRecord {
	return UpdateRecord{
		Size:    size,
		Offset:  size,
		Packets: 3,
		Outcome: o,
		Time:    1700000000,
	}
}

func TestStoreJournal(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	_, ok := s.LastUpdate()
	require.False(t, ok)
	require.Nil(t, s.Updates(10))

	require.Equal(t, uint64(1), s.AppendUpdate(record(100, transfer.OutcomeSuccess)))
	require.Equal(t, uint64(2), s.AppendUpdate(record(200, transfer.OutcomeError)))
	require.Equal(t, uint64(3), s.AppendUpdate(record(300, transfer.OutcomeAborted)))

	last, ok := s.LastUpdate()
	require.True(t, ok)
	require.Equal(t, uint64(3), last.Seq)
	require.Equal(t, uint32(300), last.Size)
	require.Equal(t, transfer.OutcomeAborted, last.Outcome)

	rr := s.Updates(2)
	require.Len(t, rr, 2)
	require.Equal(t, uint64(2), rr[0].Seq)
	require.Equal(t, uint64(3), rr[1].Seq)

	rr = s.Updates(10)
	require.Len(t, rr, 3)
	require.Equal(t, uint32(100), rr[0].Size)
	require.Equal(t, uint32(200), rr[1].Size)
	require.Equal(t, uint32(300), rr[2].Size)
}

func TestStoreJournalCacheEviction(t *testing.T) {
	cfg := LiteStoreConfig()
	cfg.Cache.UpdatesNum = 2

	s := NewStore(memorydb.New(), func(err error) { t.Fatal(err) }, cfg)
	defer s.Close()

	for i := 1; i <= 5; i++ {
		s.AppendUpdate(record(uint32(i*100), transfer.OutcomeSuccess))
	}

	// The early records are evicted and must come back from the db.
	r := s.getUpdate(1)
	require.NotNil(t, r)
	require.Equal(t, uint32(100), r.Size)

	rr := s.Updates(5)
	require.Len(t, rr, 5)
	for i, r := range rr {
		require.Equal(t, uint64(i+1), r.Seq)
		require.Equal(t, uint32((i+1)*100), r.Size)
	}
}

func TestStoreClaimedAddress(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	_, ok := s.ClaimedAddress(j1939.Name(7))
	require.False(t, ok)

	s.SetClaimedAddress(j1939.Name(7), 0x80)
	addr, ok := s.ClaimedAddress(j1939.Name(7))
	require.True(t, ok)
	require.Equal(t, j1939.Address(0x80), addr)

	// Last write wins.
	s.SetClaimedAddress(j1939.Name(7), 0x92)
	addr, _ = s.ClaimedAddress(j1939.Name(7))
	require.Equal(t, j1939.Address(0x92), addr)
}

func TestStoreReopen(t *testing.T) {
	dir, err := ioutil.TempDir("", "devstate-test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})

	crit := func(err error) { t.Fatal(err) }
	open := func() *Store {
		db, err := leveldb.New(dir, 16, 0, nil, nil)
		require.NoError(t, err)
		return NewStore(db, crit, LiteStoreConfig())
	}

	s := open()
	seq := s.AppendUpdate(record(64, transfer.OutcomeSuccess))
	s.SetClaimedAddress(j1939.Name(0x1122), 0x81)
	require.NoError(t, s.Close())

	s = open()
	defer s.Close()

	last, ok := s.LastUpdate()
	require.True(t, ok)
	require.Equal(t, seq, last.Seq)
	require.Equal(t, uint32(64), last.Size)
	require.Equal(t, transfer.OutcomeSuccess, last.Outcome)

	addr, ok := s.ClaimedAddress(j1939.Name(0x1122))
	require.True(t, ok)
	require.Equal(t, j1939.Address(0x81), addr)

	_, ok = s.ClaimedAddress(j1939.Name(0x3344))
	require.False(t, ok)
}

func TestStoreWriteBudget(t *testing.T) {
	fdb := fallible.Wrap(memorydb.New())
	fdb.SetWriteCount(2)

	s := NewStore(fdb, func(err error) { panic(err) }, LiteStoreConfig())

	// One append costs exactly two writes: the record and the sequence counter.
	s.AppendUpdate(record(10, transfer.OutcomeSuccess))
	require.Panics(t, func() {
		s.AppendUpdate(record(20, transfer.OutcomeSuccess))
	})
}

func TestStoreCritOnDbError(t *testing.T) {
	db := memorydb.New()
	critted := 0

	s := NewStore(db, func(err error) { critted++ }, LiteStoreConfig())

	s.AppendUpdate(record(10, transfer.OutcomeSuccess))
	require.NoError(t, db.Close())

	// The sequence counter read fails on the closed db and must escalate.
	_, ok := s.LastUpdate()
	require.False(t, ok)
	require.NotZero(t, critted)
}
