package ecu

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openecu/canup/boot"
	"github.com/openecu/canup/can"
	"github.com/openecu/canup/devstate"
	"github.com/openecu/canup/flash"
	"github.com/openecu/canup/j1939"
	"github.com/openecu/canup/protocol"
	"github.com/openecu/canup/transfer"
	"github.com/openecu/canup/utils/cachescale"
)

func image(n int) []byte {
	img := make([]byte, n)
	for i := range img {
		img[i] = byte(i + 1)
	}
	return img
}

// collector records every frame delivered to a host-side endpoint.
type collector struct {
	mu       sync.Mutex
	received []can.Frame
}

func observe(e *can.Endpoint) *collector {
	c := &collector{}
	e.Subscribe(func(f can.Frame) {
		c.mu.Lock()
		c.received = append(c.received, f)
		c.mu.Unlock()
	})
	return c
}

func (c *collector) frames() []can.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]can.Frame(nil), c.received...)
}

func (c *collector) sawID(id uint32) bool {
	for _, f := range c.frames() {
		if f.ID == id {
			return true
		}
	}
	return false
}

func newTestNode(t *testing.T, hub *can.Hub, name j1939.Name, store *devstate.Store) (*Node, *flash.MemOpener, *boot.Recorder) {
	opener := flash.NewMemOpener(64)
	rec := boot.NewRecorder()

	cfg := DefaultConfig(cachescale.Identity)
	cfg.ClaimTimeout = 30 * time.Millisecond

	crit := func(err error) { t.Fatal(err) }
	return NewNode(nil, hub.Join(), opener, flash.UpgradeSlot, rec, store, name, cfg, crit), opener, rec
}

func send(t *testing.T, host *can.Endpoint, pgn uint32, src, dst j1939.Address, payload []byte) {
	t.Helper()
	f, err := can.NewFrame(j1939.BuildID(j1939.DefaultPriority, pgn, src, dst), payload)
	require.NoError(t, err)
	require.NoError(t, host.Send(f))
}

func sendLegacy(t *testing.T, host *can.Endpoint, payload []byte) {
	t.Helper()
	f, err := can.NewFrame(0x123, payload)
	require.NoError(t, err)
	require.NoError(t, host.Send(f))
}

func waitAddress(t *testing.T, node *Node, want j1939.Address) {
	t.Helper()
	require.Eventually(t, func() bool {
		addr, ok := node.Address()
		return ok && addr == want
	}, time.Second, 5*time.Millisecond)
}

func TestNodeClaimAndTransfer(t *testing.T) {
	hub := can.NewHub()
	host := hub.Join()

	store := devstate.NewMemStore()
	node, opener, rec := newTestNode(t, hub, j1939.Name(42), store)

	node.Start()
	require.Equal(t, 1, rec.Confirms())
	waitAddress(t, node, 0x80)

	img := image(20)
	send(t, host, j1939.PGNTpCm, 0x00, 0x80, protocol.EncodeRTS(protocol.RTS{
		Size:    20,
		Packets: 3,
		PGN:     j1939.PGNFirmwareUpdate,
	}))
	send(t, host, j1939.PGNTpDt, 0x00, 0x80, protocol.EncodeTPData(protocol.TPData{Seq: 1, Payload: img[:7]}))
	send(t, host, j1939.PGNTpDt, 0x00, 0x80, protocol.EncodeTPData(protocol.TPData{Seq: 2, Payload: img[7:14]}))
	last := append(append([]byte{}, img[14:]...), 0xFF)
	send(t, host, j1939.PGNTpDt, 0x00, 0x80, protocol.EncodeTPData(protocol.TPData{Seq: 3, Payload: last}))

	require.Eventually(t, func() bool {
		return node.Status() == transfer.Success
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, img, opener.Region().Bytes()[:20])
	require.Equal(t, 1, rec.Upgrades())

	entry, ok := store.LastUpdate()
	require.True(t, ok)
	require.Equal(t, uint64(1), entry.Seq)
	require.Equal(t, transfer.OutcomeSuccess, entry.Outcome)
	require.Equal(t, uint32(20), entry.Size)
	require.Equal(t, uint32(20), entry.Offset)
	require.Equal(t, uint8(3), entry.Packets)
	require.NotZero(t, entry.Time)

	node.Stop()
}

func TestNodeLegacyAbortJournals(t *testing.T) {
	hub := can.NewHub()
	host := hub.Join()

	store := devstate.NewMemStore()
	node, _, rec := newTestNode(t, hub, j1939.Name(42), store)

	node.Start()
	waitAddress(t, node, 0x80)

	sendLegacy(t, host, protocol.EncodeLegacyStart(20))
	sendLegacy(t, host, protocol.EncodeLegacyData(protocol.LegacyData{Seq: 0, Payload: image(5)}))
	require.Eventually(t, func() bool {
		return node.Status() == transfer.InProgress
	}, time.Second, 5*time.Millisecond)

	sendLegacy(t, host, protocol.EncodeLegacyAbort())
	require.Eventually(t, func() bool {
		return node.Status() == transfer.Idle
	}, time.Second, 5*time.Millisecond)

	entry, ok := store.LastUpdate()
	require.True(t, ok)
	require.Equal(t, transfer.OutcomeAborted, entry.Outcome)
	require.Equal(t, uint32(20), entry.Size)
	require.Equal(t, uint32(5), entry.Offset)
	require.Zero(t, rec.Upgrades())

	node.Stop()
}

func TestNodeReusesStoredAddress(t *testing.T) {
	hub := can.NewHub()
	host := hub.Join()
	seen := observe(host)

	name := j1939.Name(42)
	store := devstate.NewMemStore()
	store.SetClaimedAddress(name, 0x91)

	node, _, _ := newTestNode(t, hub, name, store)
	node.Start()
	waitAddress(t, node, 0x91)

	// The announcement went out for the remembered address, not the default.
	require.True(t, seen.sawID(0x18EEFF91))
	require.False(t, seen.sawID(0x18EEFF80))

	node.Stop()
}

func TestNodeTwoNodesArbitrate(t *testing.T) {
	hub := can.NewHub()

	// Both are arbitrary-capable; the lower NAME keeps the contested address.
	nameA := j1939.Name(1<<63 | 5)
	nameB := j1939.Name(1<<63 | 9)

	storeA := devstate.NewMemStore()
	storeB := devstate.NewMemStore()
	nodeA, _, _ := newTestNode(t, hub, nameA, storeA)
	nodeB, _, _ := newTestNode(t, hub, nameB, storeB)

	// The losing node yields only on hearing the winner's claim, so it must
	// be listening before the winner announces.
	nodeB.Start()
	nodeA.Start()

	require.Eventually(t, func() bool {
		a, aok := nodeA.Address()
		b, bok := nodeB.Address()
		return aok && bok && a == j1939.Address(0x80) && b == j1939.Address(0x81)
	}, time.Second, 5*time.Millisecond)

	// The loser remembers its new home for the next boot.
	addr, ok := storeB.ClaimedAddress(nameB)
	require.True(t, ok)
	require.Equal(t, j1939.Address(0x81), addr)

	addr, ok = storeA.ClaimedAddress(nameA)
	require.True(t, ok)
	require.Equal(t, j1939.Address(0x80), addr)

	nodeA.Stop()
	nodeB.Stop()
}

func TestNodeStopReleasesAddress(t *testing.T) {
	hub := can.NewHub()
	host := hub.Join()
	seen := observe(host)

	node, _, _ := newTestNode(t, hub, j1939.Name(42), devstate.NewMemStore())
	node.Start()
	waitAddress(t, node, 0x80)

	node.Stop()

	// The held address is released with a null-source announcement.
	require.True(t, seen.sawID(0x18EEFFFE))
}
