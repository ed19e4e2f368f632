// Package dispatch routes inbound CAN frames to the transfer session and the
// address-claim engine, and emits their acknowledgements back onto the bus.
// Frames are pushed onto a bounded queue consumed by a single goroutine, so
// every engine call is serialized off the receive path.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openecu/canup/addrclaim"
	"github.com/openecu/canup/can"
	"github.com/openecu/canup/j1939"
	"github.com/openecu/canup/protocol"
	"github.com/openecu/canup/transfer"
	"github.com/openecu/canup/utils/workers"
)

var errSendTimeout = errors.New("send timed out")

// Dispatcher is the single consumer of the inbound frame queue. claims may be
// nil when the node runs without address arbitration.
type Dispatcher struct {
	cfg     Config
	bus     can.Bus
	session *transfer.Session
	claims  *addrclaim.Engine
	log     *log.Entry

	wg    sync.WaitGroup
	quit  chan struct{}
	queue *workers.Workers

	dropped uint64
}

func New(lg *log.Logger, cfg Config, bus can.Bus, session *transfer.Session, claims *addrclaim.Engine) *Dispatcher {
	if lg == nil {
		lg = log.StandardLogger()
	}
	d := &Dispatcher{
		cfg:     cfg,
		bus:     bus,
		session: session,
		claims:  claims,
		log:     lg.WithField("module", "dispatch"),
		quit:    make(chan struct{}),
	}
	d.queue = workers.New(&d.wg, d.quit, cfg.QueueSize)
	return d
}

// Start subscribes to the bus and boots the consumer goroutine.
func (d *Dispatcher) Start() {
	d.queue.Start(1)
	d.bus.Subscribe(d.Push)
}

// Stop terminates the consumer and discards queued frames.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.queue.Drain()
	d.wg.Wait()
}

// Push hands an inbound frame to the dispatch queue. It never blocks: when
// the queue is full the frame is dropped and counted.
func (d *Dispatcher) Push(f can.Frame) {
	err := d.queue.TryEnqueue(func() {
		d.process(f)
	})
	if errors.Is(err, workers.ErrFull) {
		atomic.AddUint64(&d.dropped, 1)
		d.log.Debug("queue full, dropping frame")
	}
}

// Dropped returns the number of frames lost to queue overflow.
func (d *Dispatcher) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

// AnnounceClaim broadcasts an address-claimed frame. The claim engine is
// wired to it as its emitter.
func (d *Dispatcher) AnnounceClaim(source j1939.Address, name j1939.Name) {
	d.send(j1939.PGNAddressClaimed, source, j1939.Broadcast, protocol.EncodeClaim(name))
}

// process routes one frame by identifier class. It runs on the consumer
// goroutine only.
func (d *Dispatcher) process(f can.Frame) {
	if !f.Extended {
		if f.ID == d.cfg.LegacyID {
			d.processLegacy(f.Payload())
		}
		return
	}

	hdr := j1939.SplitID(f.ID)
	switch {
	case hdr.PGN == j1939.PGNAddressClaimed:
		d.processClaim(hdr.Source, f.Payload())
	case hdr.PGN == j1939.PGNTpCm && hdr.Destination == d.ownAddress():
		d.processTpCm(f.Payload())
	case hdr.PGN == j1939.PGNTpDt && hdr.Destination == d.ownAddress():
		d.processTpDt(f.Payload())
	}
}

func (d *Dispatcher) processLegacy(payload []byte) {
	msg, err := protocol.DecodeLegacy(payload)
	if err != nil {
		d.log.WithError(err).Debug("dropping malformed legacy frame")
		return
	}

	switch m := msg.(type) {
	case protocol.LegacyStart:
		if err := d.session.StartLegacy(m.Size); err != nil {
			d.logSessionErr(err, "start rejected")
		}
	case protocol.LegacyData:
		if err := d.session.IngestLegacy(m.Seq, m.Payload); err != nil {
			d.logSessionErr(err, "data packet rejected")
		}
	case protocol.LegacyEnd:
		if err := d.session.Finish(); err != nil {
			d.logSessionErr(err, "finish rejected")
		}
	case protocol.LegacyAbort:
		d.session.Abort()
	case protocol.LegacyUnknown:
		d.log.WithField("type", fmt.Sprintf("%#02x", m.Type)).Warn("unknown legacy message type")
	}
}

func (d *Dispatcher) processTpCm(payload []byte) {
	msg, err := protocol.DecodeTpCm(payload)
	if err != nil {
		d.log.WithError(err).Debug("dropping malformed control frame")
		return
	}

	switch m := msg.(type) {
	case protocol.RTS:
		if err := d.session.StartTP(uint32(m.Size), m.Packets); err != nil {
			d.logSessionErr(err, "transfer request rejected")
			return
		}
		d.log.WithFields(log.Fields{"size": m.Size, "packets": m.Packets}).Info("transfer request accepted")
		// Authorize the full window at once, starting from packet 1.
		d.emitCTS(255, 1)
	case protocol.TPAbort:
		d.session.Abort()
	case protocol.CTS, protocol.EOM:
		// Host-side acknowledgements; a responder never consumes them.
		d.log.Debug("ignoring host-side control message")
	case protocol.TPUnknown:
		d.log.WithField("control", fmt.Sprintf("%#02x", m.Control)).Debug("unhandled control byte")
	}
}

func (d *Dispatcher) processTpDt(payload []byte) {
	msg, err := protocol.DecodeTpDt(payload)
	if err != nil {
		d.log.WithError(err).Debug("dropping malformed data frame")
		return
	}

	done, err := d.session.IngestTP(msg.Seq, msg.Payload)
	if err != nil {
		d.logSessionErr(err, "data packet rejected")
		return
	}
	if done {
		d.emitEOM()
	}
}

func (d *Dispatcher) processClaim(source j1939.Address, payload []byte) {
	msg, err := protocol.DecodeClaim(source, payload)
	if err != nil {
		d.log.WithError(err).Debug("dropping malformed claim frame")
		return
	}
	if d.claims == nil {
		return
	}
	if err := d.claims.OnClaim(msg.Source, msg.Name); err != nil {
		d.log.WithError(err).Debug("claim engine unavailable")
	}
}

// ownAddress is the destination inbound transfers must carry: the claimed
// address once arbitration settles, the configured one before that.
func (d *Dispatcher) ownAddress() j1939.Address {
	if d.claims != nil {
		if addr, ok := d.claims.Address(); ok {
			return addr
		}
	}
	return d.cfg.OwnAddress
}

func (d *Dispatcher) emitCTS(packets, next uint8) {
	data := protocol.EncodeCTS(protocol.CTS{
		Packets: packets,
		Next:    next,
		PGN:     j1939.PGNFirmwareUpdate,
	})
	d.send(j1939.PGNTpCm, d.ownAddress(), d.cfg.HostAddress, data)
}

func (d *Dispatcher) emitEOM() {
	_, size := d.session.Progress()
	_, total := d.session.Packets()
	data := protocol.EncodeEOM(protocol.EOM{
		Bytes:   uint16(size),
		Packets: total,
		PGN:     j1939.PGNFirmwareUpdate,
	})
	d.send(j1939.PGNTpCm, d.ownAddress(), d.cfg.HostAddress, data)
}

// send submits one outbound frame with a bounded wait. Failures are logged
// and absorbed: acknowledgements are fire-and-forget and never alter session
// state.
func (d *Dispatcher) send(pgn uint32, src, dst j1939.Address, data []byte) {
	f, err := can.NewFrame(j1939.BuildID(d.cfg.Priority, pgn, src, dst), data)
	if err != nil {
		d.log.WithError(err).Error("failed to build outbound frame")
		return
	}

	errc := make(chan error, 1)
	go func() { errc <- d.bus.Send(f) }()
	select {
	case err = <-errc:
	case <-time.After(d.cfg.SendTimeout):
		err = errSendTimeout
	}
	if err != nil {
		d.log.WithError(err).WithField("pgn", fmt.Sprintf("%#x", pgn)).Warn("send failed")
	}
}

// logSessionErr sorts session errors by blast radius: session-local rejects
// at warn, storage and boot failures at error.
func (d *Dispatcher) logSessionErr(err error, msg string) {
	switch {
	case errors.Is(err, transfer.ErrBusy),
		errors.Is(err, transfer.ErrNotInProgress),
		errors.Is(err, transfer.ErrSequence),
		errors.Is(err, transfer.ErrSizeMismatch):
		d.log.WithError(err).Warn(msg)
	default:
		d.log.WithError(err).Error(msg)
	}
}
