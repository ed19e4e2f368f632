package dispatch

import (
	"time"

	"github.com/openecu/canup/j1939"
	"github.com/openecu/canup/utils/cachescale"
)

type Config struct {
	OwnAddress  j1939.Address // device address until arbitration claims one
	HostAddress j1939.Address // updater host, destination of acknowledgements
	Priority    uint8         // priority of every outbound frame
	LegacyID    uint32        // 11-bit identifier of the legacy update protocol

	SendTimeout time.Duration // bound on a single outbound submission

	// QueueSize is the inbound frame queue bound. Push drops frames and
	// counts them once the queue is full.
	QueueSize int
}

func DefaultConfig(scale cachescale.Func) Config {
	return Config{
		OwnAddress:  0x80,
		HostAddress: 0x00,
		Priority:    j1939.DefaultPriority,
		LegacyID:    0x123,
		SendTimeout: 100 * time.Millisecond,
		QueueSize:   scale.I(64),
	}
}
