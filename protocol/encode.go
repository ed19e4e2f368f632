package protocol

import (
	"hash/crc32"

	"github.com/openecu/canup/common/littleendian"
	"github.com/openecu/canup/j1939"
)

// Encoders fill every reserved byte with 0xFF, matching the wire layout of
// the reference protocol byte for byte.

// EncodeCTS builds the 8-byte TP.CM clear-to-send payload.
func EncodeCTS(m CTS) []byte {
	out := make([]byte, 8)
	out[0] = ControlCTS
	out[1] = m.Packets
	out[2] = m.Next
	out[3] = 0xFF
	out[4] = 0xFF
	putPacketedPGN(out, m.PGN)
	return out
}

// EncodeEOM builds the 8-byte TP.CM end-of-message payload.
func EncodeEOM(m EOM) []byte {
	out := make([]byte, 8)
	out[0] = ControlEOM
	out[1] = uint8(m.Bytes)
	out[2] = uint8(m.Bytes >> 8)
	out[3] = m.Packets
	out[4] = 0xFF
	putPacketedPGN(out, m.PGN)
	return out
}

// EncodeRTS builds the 8-byte TP.CM request-to-send payload (sender side).
func EncodeRTS(m RTS) []byte {
	out := make([]byte, 8)
	out[0] = ControlRTS
	out[1] = uint8(m.Size)
	out[2] = uint8(m.Size >> 8)
	out[3] = m.Packets
	out[4] = 0xFF
	putPacketedPGN(out, m.PGN)
	return out
}

// EncodeTPAbort builds the 8-byte TP.CM abort payload.
func EncodeTPAbort() []byte {
	out := []byte{ControlAbort, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	putPacketedPGN(out, j1939.PGNFirmwareUpdate)
	return out
}

// EncodeTPData builds a TP.DT payload: sequence byte plus up to 7 data bytes
// (sender side). Short payloads are not padded; padding is the sender's call.
func EncodeTPData(m TPData) []byte {
	out := make([]byte, 1+len(m.Payload))
	out[0] = m.Seq
	copy(out[1:], m.Payload)
	return out
}

// EncodeClaim builds the 8-byte address-claim payload. The claimed address
// travels in the frame identifier, not here.
func EncodeClaim(name j1939.Name) []byte {
	return name.Bytes()
}

// EncodeRequest builds the 3-byte request payload asking for the given group.
func EncodeRequest(pgn uint32) []byte {
	return []byte{uint8(pgn), uint8(pgn >> 8), uint8(pgn >> 16)}
}

// EncodeLegacyStart builds a legacy start payload (sender side).
func EncodeLegacyStart(size uint32) []byte {
	out := make([]byte, 5)
	out[0] = LegacyTypeStart
	copy(out[1:], littleendian.Uint32ToBytes(size))
	return out
}

// EncodeLegacyData builds a legacy data payload (sender side), up to 5 data
// bytes per frame.
func EncodeLegacyData(m LegacyData) []byte {
	out := make([]byte, 3+len(m.Payload))
	out[0] = LegacyTypeData
	copy(out[1:3], littleendian.Uint16ToBytes(m.Seq))
	copy(out[3:], m.Payload)
	return out
}

// EncodeLegacyEnd builds a legacy end payload carrying the image CRC
// (sender side).
func EncodeLegacyEnd(crc uint32) []byte {
	out := make([]byte, 5)
	out[0] = LegacyTypeEnd
	copy(out[1:], littleendian.Uint32ToBytes(crc))
	return out
}

// EncodeLegacyAbort builds a legacy abort payload.
func EncodeLegacyAbort() []byte {
	return []byte{LegacyTypeAbort}
}

// ImageCRC is the checksum carried by the legacy end message.
func ImageCRC(image []byte) uint32 {
	return crc32.ChecksumIEEE(image)
}

func putPacketedPGN(out []byte, pgn uint32) {
	out[5] = uint8(pgn)
	out[6] = uint8(pgn >> 8)
	out[7] = uint8(pgn >> 16)
}
