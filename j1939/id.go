// Package j1939 holds the 29-bit identifier layout, parameter group numbers,
// bus addresses and the 64-bit NAME used by the address-claim procedure.
package j1939

const (
	// DefaultPriority is the transmit priority of this stack (0 is highest).
	DefaultPriority uint8 = 6

	// pduThreshold separates destination-addressed groups (PDU1, PF < 240)
	// from broadcast groups (PDU2).
	pduThreshold = 240

	pgnMask = 0x3FFFF
)

// Header is the decoded form of a 29-bit identifier.
type Header struct {
	Priority    uint8
	PGN         uint32
	Source      Address
	Destination Address // Broadcast for PDU2 groups
}

// BuildID packs {priority, PGN, source} into a 29-bit identifier. For PDU1
// groups the destination replaces the low PGN byte (the PS field).
func BuildID(priority uint8, pgn uint32, src, dst Address) uint32 {
	id := uint32(priority&0x07)<<26 | (pgn&pgnMask)<<8 | uint32(src)
	if pduFormat(pgn) < pduThreshold {
		id &^= 0xFF << 8
		id |= uint32(dst) << 8
	}
	return id
}

// SplitID reverses BuildID. For PDU2 groups the PS byte stays part of the PGN
// and the destination reads as Broadcast.
func SplitID(id uint32) Header {
	h := Header{
		Priority: uint8(id>>26) & 0x07,
		Source:   Address(id),
	}
	pf := uint32(id>>16) & 0xFF
	ps := uint32(id>>8) & 0xFF
	dp := uint32(id>>24) & 0x03
	if pf < pduThreshold {
		h.PGN = dp<<16 | pf<<8
		h.Destination = Address(ps)
	} else {
		h.PGN = dp<<16 | pf<<8 | ps
		h.Destination = Broadcast
	}
	return h
}

func pduFormat(pgn uint32) uint32 {
	return (pgn >> 8) & 0xFF
}
