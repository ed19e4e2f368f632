// Package transfer owns the firmware-transfer session: one byte stream
// reassembled in order from legacy or transport-protocol packets, written
// into an exclusively held flash region and handed to the boot manager
// exactly once on completion.
package transfer

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/openecu/canup/boot"
	"github.com/openecu/canup/flash"
)

var (
	ErrBusy          = errors.New("transfer: update already in progress")
	ErrNotInProgress = errors.New("transfer: no update in progress")
	ErrSequence      = errors.New("transfer: sequence mismatch")
	ErrSizeMismatch  = errors.New("transfer: image size mismatch")
)

// Status is the session lifecycle state.
type Status uint8

const (
	Idle Status = iota
	InProgress
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in-progress"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome closes a session in the finish notification.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result describes a finished session.
type Result struct {
	Size    uint32
	Offset  uint32
	Packets uint8
	Outcome Outcome
}

// Callbacks are the session's outbound hooks.
type Callbacks struct {
	// Finished fires on every transition out of InProgress, and on a
	// failed start. It runs outside the session lock.
	Finished func(Result)
}

// Session is the single in-progress firmware transfer. All methods are safe
// for concurrent use; in normal operation the dispatcher serializes them.
type Session struct {
	opener  flash.Opener
	bootMgr boot.Manager
	cfg     Config
	cb      Callbacks
	log     *log.Entry

	mu        sync.Mutex
	status    Status
	imageSize uint32
	offset    uint32
	// sequence is the last accepted number: the zero-based counter for the
	// legacy variant, the 1..255 packet number for the transport variant.
	sequence        uint16
	totalPackets    uint8
	packetsReceived uint8
	region          flash.Region
}

// New creates an idle session. lg may be nil.
func New(lg *log.Logger, opener flash.Opener, bootMgr boot.Manager, cfg Config, cb Callbacks) *Session {
	if lg == nil {
		lg = log.StandardLogger()
	}
	return &Session{
		opener:  opener,
		bootMgr: bootMgr,
		cfg:     cfg,
		cb:      cb,
		log:     lg.WithField("module", "transfer"),
	}
}

// StartLegacy opens a legacy-variant session of size bytes.
func (s *Session) StartLegacy(size uint32) error {
	return s.start(size, 0)
}

// StartTP opens a transport-protocol session of size bytes expected in
// totalPackets data packets.
func (s *Session) StartTP(size uint32, totalPackets uint8) error {
	return s.start(size, totalPackets)
}

func (s *Session) start(size uint32, totalPackets uint8) error {
	s.mu.Lock()
	res, err := s.startLocked(size, totalPackets)
	s.mu.Unlock()
	s.emit(res)
	return err
}

func (s *Session) startLocked(size uint32, totalPackets uint8) (*Result, error) {
	if s.status == InProgress {
		s.log.Warn("update already in progress")
		return nil, ErrBusy
	}

	s.imageSize = size
	s.offset = 0
	s.sequence = 0
	s.totalPackets = totalPackets
	s.packetsReceived = 0

	region, err := s.opener.Open(s.cfg.Region)
	if err != nil {
		s.log.WithError(err).Error("failed to open image region")
		s.status = Error
		return s.resultLocked(OutcomeError), errors.Wrap(err, "open image region")
	}
	if err := region.EraseAll(); err != nil {
		s.log.WithError(err).Error("failed to erase image region")
		_ = region.Close()
		s.status = Error
		return s.resultLocked(OutcomeError), errors.Wrap(err, "erase image region")
	}

	s.region = region
	s.status = InProgress
	s.log.WithField("size", size).Info("update started")
	return nil, nil
}

// IngestLegacy commits one legacy data packet. The sequence is the exact
// zero-based packet counter.
func (s *Session) IngestLegacy(seq uint16, payload []byte) error {
	s.mu.Lock()
	res, err := s.ingestLegacyLocked(seq, payload)
	s.mu.Unlock()
	s.emit(res)
	return err
}

func (s *Session) ingestLegacyLocked(seq uint16, payload []byte) (*Result, error) {
	if s.status != InProgress {
		return nil, ErrNotInProgress
	}
	if seq != s.sequence {
		s.log.WithFields(log.Fields{"expected": s.sequence, "got": seq}).Warn("sequence mismatch")
		return nil, ErrSequence
	}

	res, err := s.writeLocked(payload)
	if err != nil {
		return res, err
	}
	s.sequence++
	return nil, nil
}

// IngestTP commits one transport-protocol data packet. The expected sequence
// is the previous one plus one, wrapping 255 to 1. done reports that this
// packet completed the image and the boot handoff succeeded.
func (s *Session) IngestTP(seq uint8, payload []byte) (done bool, err error) {
	s.mu.Lock()
	res, done, err := s.ingestTPLocked(seq, payload)
	s.mu.Unlock()
	s.emit(res)
	return done, err
}

func (s *Session) ingestTPLocked(seq uint8, payload []byte) (*Result, bool, error) {
	if s.status != InProgress {
		return nil, false, ErrNotInProgress
	}
	expected := nextTPSeq(s.sequence)
	if seq != expected {
		s.log.WithFields(log.Fields{"expected": expected, "got": seq}).Warn("sequence mismatch")
		return nil, false, ErrSequence
	}

	res, err := s.writeLocked(payload)
	if err != nil {
		return res, false, err
	}
	s.sequence = uint16(seq)
	s.packetsReceived++

	if s.offset < s.imageSize {
		return nil, false, nil
	}
	res, err = s.completeLocked()
	return res, err == nil, err
}

// nextTPSeq returns the packet number following last. The transport sequence
// space is 1..255: 0 never occurs and 255 wraps to 1.
func nextTPSeq(last uint16) uint8 {
	if last == 0 || last == 255 {
		return 1
	}
	return uint8(last) + 1
}

// writeLocked clamps payload at the image size and commits it at the current
// offset.
func (s *Session) writeLocked(payload []byte) (*Result, error) {
	if rem := s.imageSize - s.offset; uint32(len(payload)) > rem {
		payload = payload[:rem]
	}
	if err := s.region.WriteAt(s.offset, payload); err != nil {
		s.log.WithError(err).WithField("offset", s.offset).Error("failed to write image region")
		s.closeRegionLocked()
		s.status = Error
		return s.resultLocked(OutcomeError), errors.Wrap(err, "write image region")
	}
	s.offset += uint32(len(payload))
	if s.offset%1024 == 0 {
		s.log.WithFields(log.Fields{"offset": s.offset, "size": s.imageSize}).Info("progress")
	}
	return nil, nil
}

// Finish closes a legacy session: the received byte count must equal the
// image size exactly before the boot manager is invoked.
func (s *Session) Finish() error {
	s.mu.Lock()
	res, err := s.finishLocked()
	s.mu.Unlock()
	s.emit(res)
	return err
}

func (s *Session) finishLocked() (*Result, error) {
	if s.status != InProgress {
		return nil, ErrNotInProgress
	}
	s.closeRegionLocked()
	if s.offset != s.imageSize {
		s.log.WithFields(log.Fields{"size": s.imageSize, "received": s.offset}).Error("image size mismatch")
		s.status = Error
		return s.resultLocked(OutcomeError), ErrSizeMismatch
	}
	return s.completeLocked()
}

// completeLocked hands the staged image to the boot manager and settles the
// session. The region is already closed or about to be.
func (s *Session) completeLocked() (*Result, error) {
	s.closeRegionLocked()
	if err := s.bootMgr.RequestUpgrade(); err != nil {
		s.log.WithError(err).Error("failed to request upgrade")
		s.status = Error
		return s.resultLocked(OutcomeError), errors.Wrap(err, "request upgrade")
	}
	s.status = Success
	s.log.WithField("size", s.imageSize).Info("update completed, reboot to apply")
	return s.resultLocked(OutcomeSuccess), nil
}

// Abort closes any open region and resets to Idle. Safe to call at any time.
func (s *Session) Abort() {
	s.mu.Lock()
	wasActive := s.status == InProgress
	s.closeRegionLocked()
	s.status = Idle
	var res *Result
	if wasActive {
		res = s.resultLocked(OutcomeAborted)
	}
	s.mu.Unlock()
	s.emit(res)
	if wasActive {
		s.log.Info("update aborted")
	}
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns bytes committed and the total expected.
func (s *Session) Progress() (offset, size uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, s.imageSize
}

// Packets returns transport-protocol packet bookkeeping.
func (s *Session) Packets() (received, total uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packetsReceived, s.totalPackets
}

func (s *Session) closeRegionLocked() {
	if s.region != nil {
		_ = s.region.Close()
		s.region = nil
	}
}

func (s *Session) resultLocked(o Outcome) *Result {
	return &Result{
		Size:    s.imageSize,
		Offset:  s.offset,
		Packets: s.packetsReceived,
		Outcome: o,
	}
}

func (s *Session) emit(res *Result) {
	if res != nil && s.cb.Finished != nil {
		s.cb.Finished(*res)
	}
}
