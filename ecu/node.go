// Package ecu assembles the transfer session, the address arbitration
// engine, and the frame dispatcher into one runnable bus node.
package ecu

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openecu/canup/addrclaim"
	"github.com/openecu/canup/boot"
	"github.com/openecu/canup/can"
	"github.com/openecu/canup/devstate"
	"github.com/openecu/canup/dispatch"
	"github.com/openecu/canup/flash"
	"github.com/openecu/canup/j1939"
	"github.com/openecu/canup/transfer"
	"github.com/openecu/canup/utils/cachescale"
)

// Config is a config for the node.
type Config struct {
	// PreferredAddress is claimed first, unless the store remembers an
	// address previously claimed under the node's NAME.
	PreferredAddress j1939.Address

	// ClaimTimeout overrides the arbitration contention window when nonzero.
	ClaimTimeout time.Duration

	Dispatch dispatch.Config
}

// DefaultConfig for production devices.
func DefaultConfig(scale cachescale.Func) Config {
	return Config{
		PreferredAddress: 0x80,
		Dispatch:         dispatch.DefaultConfig(scale),
	}
}

// Node is one updatable device on the bus.
type Node struct {
	name j1939.Name
	log  *log.Entry
	crit func(error)

	bootMgr boot.Manager
	store   *devstate.Store

	session *transfer.Session
	claims  *addrclaim.Engine
	disp    *dispatch.Dispatcher
}

// NewNode wires a transfer session, a claim engine, and a dispatcher over the
// bus. The store seeds the address to claim first and receives the update
// journal and every claimed address. crit escalates unrecoverable storage
// faults. lg may be nil.
func NewNode(lg *log.Logger, bus can.Bus, opener flash.Opener, region flash.RegionID,
	bootMgr boot.Manager, store *devstate.Store, name j1939.Name, cfg Config, crit func(error)) *Node {
	if lg == nil {
		lg = log.StandardLogger()
	}
	n := &Node{
		name:    name,
		log:     lg.WithField("module", "ecu"),
		crit:    crit,
		bootMgr: bootMgr,
		store:   store,
	}

	n.session = transfer.New(lg, opener, bootMgr, transfer.Config{Region: region}, transfer.Callbacks{
		Finished: n.onFinished,
	})

	preferred := cfg.PreferredAddress
	if addr, ok := store.ClaimedAddress(name); ok && addr.Unicast() {
		n.log.WithField("addr", addr).Info("reusing last claimed address")
		preferred = addr
	}

	claimCfg := addrclaim.DefaultConfig(name, preferred)
	if cfg.ClaimTimeout > 0 {
		claimCfg.ClaimTimeout = cfg.ClaimTimeout
	}
	n.claims = addrclaim.New(lg, claimCfg, addrclaim.Callbacks{
		Announce:     n.announceClaim,
		StateChanged: n.onClaimSettled,
	})

	dispCfg := cfg.Dispatch
	dispCfg.OwnAddress = preferred
	n.disp = dispatch.New(lg, dispCfg, bus, n.session, n.claims)

	return n
}

// Start confirms the running image with the boot manager, then begins frame
// dispatch and address arbitration. A failed confirmation is diagnostic; the
// node still serves updates.
func (n *Node) Start() {
	if err := n.bootMgr.ConfirmCurrent(); err != nil {
		n.log.WithError(err).Error("failed to confirm running image")
	}

	n.disp.Start()
	n.claims.Start()
	n.log.WithField("name", n.name).Info("node started")
}

// Stop releases the claimed address, stops frame dispatch, aborts any
// transfer in flight, and closes the state store.
func (n *Node) Stop() {
	n.claims.Stop()
	n.disp.Stop()
	n.session.Abort()
	if err := n.store.Close(); err != nil {
		n.crit(err)
	}
	n.log.Info("node stopped")
}

// Status reports the transfer session lifecycle state.
func (n *Node) Status() transfer.Status {
	return n.session.Status()
}

// Address returns the arbitrated bus address, if one is held.
func (n *Node) Address() (j1939.Address, bool) {
	return n.claims.Address()
}

// Name returns the arbitration NAME the node announces.
func (n *Node) Name() j1939.Name {
	return n.name
}

func (n *Node) announceClaim(source j1939.Address, name j1939.Name) {
	n.disp.AnnounceClaim(source, name)
}

// onFinished journals every settled session.
func (n *Node) onFinished(res transfer.Result) {
	seq := n.store.AppendUpdate(devstate.UpdateRecord{
		Size:    res.Size,
		Offset:  res.Offset,
		Packets: res.Packets,
		Outcome: res.Outcome,
		Time:    uint64(time.Now().Unix()),
	})
	n.log.WithFields(log.Fields{"seq": seq, "outcome": res.Outcome}).Debug("journaled update")
}

// onClaimSettled persists the claimed address so the next start reuses it.
func (n *Node) onClaimSettled(addr j1939.Address, state addrclaim.State) {
	if state != addrclaim.Claimed {
		return
	}
	n.store.SetClaimedAddress(n.name, addr)
}
