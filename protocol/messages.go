// Package protocol is the wire codec of the firmware-update stack: pure
// decoding of raw frame payloads into typed messages and encoding of the
// outbound messages. It owns no state and never touches the bus.
package protocol

import (
	"github.com/openecu/canup/j1939"
)

// Legacy single-PDU message type codes (payload byte 0, 11-bit frames).
const (
	LegacyTypeStart uint8 = 0x01
	LegacyTypeData  uint8 = 0x02
	LegacyTypeEnd   uint8 = 0x03
	LegacyTypeAbort uint8 = 0x04

	// Reserved by the wire protocol, never emitted or handled.
	LegacyTypeStatus uint8 = 0x05
	LegacyTypeAck    uint8 = 0x06
	LegacyTypeNack   uint8 = 0x07
)

// TP.CM control bytes (payload byte 0, PGN 0xEC00).
const (
	ControlRTS   uint8 = 16
	ControlCTS   uint8 = 17
	ControlEOM   uint8 = 19
	ControlBAM   uint8 = 32
	ControlAbort uint8 = 255
)

// LegacyMsg is one decoded legacy-variant message.
type LegacyMsg interface {
	legacyMsg()
}

// LegacyStart opens a transfer of Size bytes.
type LegacyStart struct {
	Size uint32
}

// LegacyData carries up to 5 image bytes at a zero-based sequence number.
type LegacyData struct {
	Seq     uint16
	Payload []byte
}

// LegacyEnd closes a transfer. The CRC of the full image is present only
// when the sender included all four bytes; this stack decodes it but does
// not verify it.
type LegacyEnd struct {
	CRC    uint32
	HasCRC bool
}

// LegacyAbort cancels a transfer.
type LegacyAbort struct{}

// LegacyUnknown is any other type code, including the reserved ones.
type LegacyUnknown struct {
	Type uint8
}

func (LegacyStart) legacyMsg()   {}
func (LegacyData) legacyMsg()    {}
func (LegacyEnd) legacyMsg()     {}
func (LegacyAbort) legacyMsg()   {}
func (LegacyUnknown) legacyMsg() {}

// TPMsg is one decoded TP.CM message.
type TPMsg interface {
	tpMsg()
}

// RTS requests to send Size bytes in Packets data packets of the group PGN.
type RTS struct {
	Size    uint16
	Packets uint8
	PGN     uint32
}

// CTS authorizes Packets data packets starting at sequence Next.
type CTS struct {
	Packets uint8
	Next    uint8
	PGN     uint32
}

// EOM acknowledges a completed transfer of Bytes bytes in Packets packets.
type EOM struct {
	Bytes   uint16
	Packets uint8
	PGN     uint32
}

// TPAbort cancels the connection.
type TPAbort struct{}

// TPUnknown is any other control byte (BAM included, it is not handled).
type TPUnknown struct {
	Control uint8
}

func (RTS) tpMsg()       {}
func (CTS) tpMsg()       {}
func (EOM) tpMsg()       {}
func (TPAbort) tpMsg()   {}
func (TPUnknown) tpMsg() {}

// TPData is one TP.DT packet: sequence 1..255 and up to 7 image bytes.
type TPData struct {
	Seq     uint8
	Payload []byte
}

// AddressClaimed is a claim (or release, when Source is the null address)
// announcement.
type AddressClaimed struct {
	Source j1939.Address
	Name   j1939.Name
}
