package protocol

import (
	"github.com/pkg/errors"

	"github.com/openecu/canup/common/littleendian"
	"github.com/openecu/canup/j1939"
)

// ErrMalformed marks a frame shorter than the minimum for its class.
// The dispatcher drops such frames; decoding never raises a fault.
var ErrMalformed = errors.New("protocol: malformed frame")

// DecodeLegacy decodes the payload of an 11-bit update frame.
func DecodeLegacy(data []byte) (LegacyMsg, error) {
	if len(data) < 1 {
		return nil, ErrMalformed
	}
	body := data[1:]
	switch data[0] {
	case LegacyTypeStart:
		if len(body) < 4 {
			return nil, ErrMalformed
		}
		return LegacyStart{Size: littleendian.BytesToUint32(body[:4])}, nil
	case LegacyTypeData:
		if len(body) < 3 {
			return nil, ErrMalformed
		}
		return LegacyData{
			Seq:     littleendian.BytesToUint16(body[:2]),
			Payload: body[2:],
		}, nil
	case LegacyTypeEnd:
		end := LegacyEnd{}
		if len(body) >= 4 {
			end.CRC = littleendian.BytesToUint32(body[:4])
			end.HasCRC = true
		}
		return end, nil
	case LegacyTypeAbort:
		return LegacyAbort{}, nil
	default:
		return LegacyUnknown{Type: data[0]}, nil
	}
}

// DecodeTpCm decodes the payload of a TP.CM frame. TP.CM always uses the
// full 8 data bytes.
func DecodeTpCm(data []byte) (TPMsg, error) {
	if len(data) < 8 {
		return nil, ErrMalformed
	}
	switch data[0] {
	case ControlRTS:
		return RTS{
			Size:    littleendian.BytesToUint16(data[1:3]),
			Packets: data[3],
			PGN:     packetedPGN(data),
		}, nil
	case ControlCTS:
		return CTS{
			Packets: data[1],
			Next:    data[2],
			PGN:     packetedPGN(data),
		}, nil
	case ControlEOM:
		return EOM{
			Bytes:   littleendian.BytesToUint16(data[1:3]),
			Packets: data[3],
			PGN:     packetedPGN(data),
		}, nil
	case ControlAbort:
		return TPAbort{}, nil
	default:
		return TPUnknown{Control: data[0]}, nil
	}
}

// DecodeTpDt decodes the payload of a TP.DT frame.
func DecodeTpDt(data []byte) (TPData, error) {
	if len(data) < 2 {
		return TPData{}, ErrMalformed
	}
	return TPData{Seq: data[0], Payload: data[1:]}, nil
}

// DecodeClaim decodes an address-claim payload. The claimed address is the
// source byte of the frame's identifier, passed in by the caller.
func DecodeClaim(src j1939.Address, data []byte) (AddressClaimed, error) {
	if len(data) < 8 {
		return AddressClaimed{}, ErrMalformed
	}
	return AddressClaimed{
		Source: src,
		Name:   j1939.NameFromBytes(data[:8]),
	}, nil
}

// packetedPGN reads the little-endian group number from TP.CM bytes 5..7.
func packetedPGN(data []byte) uint32 {
	return uint32(data[5]) | uint32(data[6])<<8 | uint32(data[7])<<16
}
