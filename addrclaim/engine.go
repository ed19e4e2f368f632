// Package addrclaim arbitrates a node's bus address. The engine announces the
// preferred address, holds a contention window, and yields to any rival whose
// NAME outranks ours, moving to the next free candidate when permitted.
package addrclaim

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/openecu/canup/j1939"
)

var (
	// ErrNoAddressAvailable settles the procedure when no claimable address
	// is left, or the engine may not move off the contested one.
	ErrNoAddressAvailable = errors.New("addrclaim: no address available")

	// ErrProtocolViolation settles the procedure on a rival announcing our
	// exact NAME, which a correct network never produces.
	ErrProtocolViolation = errors.New("addrclaim: duplicate NAME on the bus")

	errTerminated = errors.New("terminated")
)

// State is the arbitration lifecycle state.
type State uint8

const (
	Init        State = iota // no address held
	WaitClaim                // waiting to send the first claim
	Claiming                 // announced, contention window open
	Claimed                  // address held and usable
	CannotClaim              // arbitration exhausted, no address held
	Contention               // rival outranked us, choosing a new address
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case WaitClaim:
		return "wait-claim"
	case Claiming:
		return "claiming"
	case Claimed:
		return "claimed"
	case CannotClaim:
		return "cannot-claim"
	case Contention:
		return "contention"
	default:
		return "unknown"
	}
}

// AnnounceFn broadcasts an address-claimed frame with source as the claimed
// address and name as the payload.
type AnnounceFn func(source j1939.Address, name j1939.Name)

type Callbacks struct {
	// Announce broadcasts an address-claimed announcement.
	Announce AnnounceFn

	// StateChanged fires when the procedure settles into Claimed or
	// CannotClaim. It runs on the engine goroutine.
	StateChanged func(addr j1939.Address, state State)
}

type claimMsg struct {
	source j1939.Address
	name   j1939.Name
}

// Engine owns the claimed-address state machine. Rival announcements arrive
// over a bounded channel and a single goroutine mutates the state, so the
// contention logic never races the claim timer.
type Engine struct {
	cfg      Config
	callback Callbacks
	log      *log.Entry

	claims chan claimMsg
	quit   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	current j1939.Address
	state   State
}

// New creates an engine holding no address. lg may be nil.
func New(lg *log.Logger, cfg Config, callback Callbacks) *Engine {
	if lg == nil {
		lg = log.StandardLogger()
	}
	return &Engine{
		cfg:      cfg,
		callback: callback,
		log:      lg.WithField("module", "addrclaim"),
		claims:   make(chan claimMsg, cfg.MaxQueuedClaims),
		quit:     make(chan struct{}),
		current:  j1939.Null,
		state:    Init,
	}
}

// Start boots the engine and begins claiming the preferred address.
func (e *Engine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loop()
	}()
}

// Stop releases the held address, broadcasting a cannot-claim announcement,
// and waits until the engine goroutine has finished.
func (e *Engine) Stop() {
	close(e.quit)
	e.wg.Wait()
}

// OnClaim feeds a rival address-claimed announcement into the engine.
func (e *Engine) OnClaim(source j1939.Address, name j1939.Name) error {
	select {
	case <-e.quit:
		return errTerminated
	default:
	}
	select {
	case <-e.quit:
		return errTerminated
	case e.claims <- claimMsg{source: source, name: name}:
		return nil
	}
}

// Address returns the held address. ok is true only while the address is
// claimed and usable for addressed communication.
func (e *Engine) Address() (addr j1939.Address, ok bool) {
	addr, state := e.snapshot()
	return addr, state == Claimed
}

// State returns the arbitration state.
func (e *Engine) State() State {
	_, state := e.snapshot()
	return state
}

// Name returns the engine's own NAME.
func (e *Engine) Name() j1939.Name {
	return e.cfg.Name
}

func (e *Engine) loop() {
	timer := time.NewTimer(e.cfg.ClaimTimeout)
	defer timer.Stop()

	e.setState(e.cfg.PreferredAddress, Claiming)
	e.announce(e.cfg.PreferredAddress)
	e.log.WithField("addr", e.cfg.PreferredAddress).Info("claim procedure started")

	for {
		select {
		case <-e.quit:
			e.release()
			return

		case claim := <-e.claims:
			e.onRival(claim, timer)

		case <-timer.C:
			e.onTimeout()
		}
	}
}

// onTimeout fires when the contention window closes with no rival heard.
func (e *Engine) onTimeout() {
	addr, state := e.snapshot()
	if state != Claiming {
		return
	}
	e.setState(addr, Claimed)
	e.log.WithField("addr", addr).Info("address claimed")
	e.notify(addr, Claimed)
}

// onRival resolves a rival announcement. It is only actionable while we are
// claiming and the rival claims the very address we are attempting.
func (e *Engine) onRival(claim claimMsg, timer *time.Timer) {
	addr, state := e.snapshot()
	if state != Claiming || claim.source != addr {
		return
	}

	if e.cfg.Name.Less(claim.name) {
		stopClaimTimer(timer)
		e.setState(addr, Claimed)
		e.log.WithFields(log.Fields{"addr": addr, "rival": claim.name}).Info("won contention, keeping address")
		e.notify(addr, Claimed)
		return
	}

	if claim.name.Less(e.cfg.Name) {
		stopClaimTimer(timer)
		e.setState(addr, Contention)
		e.log.WithFields(log.Fields{"addr": addr, "rival": claim.name}).Warn("lost contention")
		if !e.cfg.ArbitraryCapable {
			e.cannotClaim(ErrNoAddressAvailable)
			return
		}
		next, ok := nextCandidate(addr)
		if !ok {
			e.cannotClaim(ErrNoAddressAvailable)
			return
		}
		e.setState(next, Claiming)
		e.announce(next)
		timer.Reset(e.cfg.ClaimTimeout)
		e.log.WithField("addr", next).Info("trying new address")
		return
	}

	// A NAME is globally unique, so an exact match is a protocol violation.
	stopClaimTimer(timer)
	e.cannotClaim(ErrProtocolViolation)
}

func (e *Engine) cannotClaim(reason error) {
	e.setState(j1939.Null, CannotClaim)
	e.log.WithError(reason).Error("cannot claim an address")
	e.notify(j1939.Null, CannotClaim)
}

// release broadcasts that the address is given up and resets to Init.
func (e *Engine) release() {
	addr, _ := e.snapshot()
	if addr != j1939.Null {
		e.announce(j1939.Null)
	}
	e.setState(j1939.Null, Init)
	e.log.Info("address claim stopped")
}

// nextCandidate scans for the next claimable address after cur, wrapping the
// 8-bit space. The candidate is not checked against addresses other nodes
// already hold; the following contention round settles that.
func nextCandidate(cur j1939.Address) (j1939.Address, bool) {
	for a := cur + 1; a != cur; a++ {
		if a.Unicast() {
			return a, true
		}
	}
	return j1939.Null, false
}

// stopClaimTimer disarms the contention timer. Only the engine goroutine
// touches the timer, so the drain cannot race a concurrent Reset.
func stopClaimTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (e *Engine) setState(addr j1939.Address, state State) {
	e.mu.Lock()
	e.current = addr
	e.state = state
	e.mu.Unlock()
}

func (e *Engine) snapshot() (j1939.Address, State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.state
}

func (e *Engine) announce(source j1939.Address) {
	if e.callback.Announce != nil {
		e.callback.Announce(source, e.cfg.Name)
	}
}

func (e *Engine) notify(addr j1939.Address, state State) {
	if e.callback.StateChanged != nil {
		e.callback.StateChanged(addr, state)
	}
}
