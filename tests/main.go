package main

import (
	"fmt"
	"io"

	"github.com/openecu/canup/boot"
	"github.com/openecu/canup/can"
	"github.com/openecu/canup/devstate"
	"github.com/openecu/canup/ecu"
	"github.com/openecu/canup/flash"
	"github.com/openecu/canup/j1939"
	"github.com/openecu/canup/utils/cachescale"
)

func main() {
	crit := func(err error) {
		panic(err)
	}

	hub := can.NewHub()
	node := ecu.NewNode(nil, hub.Join(), flash.NewMemOpener(1024), flash.UpgradeSlot,
		boot.NewRecorder(), devstate.NewMemStore(), j1939.Name(1),
		ecu.DefaultConfig(cachescale.Identity), crit)

	// prevent compiler optimizations
	fmt.Fprint(io.Discard, node == nil)
}
