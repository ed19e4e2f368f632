package j1939

import (
	"fmt"

	"github.com/openecu/canup/common/littleendian"
)

// Name is the 64-bit priority key of a node. A numerically smaller NAME wins
// address contention. The value is kept opaque; the accessors below read the
// individual fields of the SAE J1939-81 layout.
type Name uint64

// NameConfig enumerates the NAME fields for construction. Values wider than
// the field are masked.
type NameConfig struct {
	Identity              uint32 // 21 bits, unique per device
	ManufacturerCode      uint16 // 11 bits
	ECUInstance           uint8  // 3 bits
	FunctionInstance      uint8  // 5 bits
	Function              uint8
	VehicleSystem         uint8 // 7 bits
	VehicleSystemInstance uint8 // 4 bits
	IndustryGroup         uint8 // 3 bits
	ArbitraryCapable      bool  // may pick another address on contention
}

// ComposeName packs the fields into the 64-bit layout.
func ComposeName(c NameConfig) Name {
	v := uint64(c.Identity) & 0x1FFFFF
	v |= (uint64(c.ManufacturerCode) & 0x7FF) << 21
	v |= (uint64(c.ECUInstance) & 0x07) << 32
	v |= (uint64(c.FunctionInstance) & 0x1F) << 35
	v |= uint64(c.Function) << 40
	// bit 48 is reserved, always zero
	v |= (uint64(c.VehicleSystem) & 0x7F) << 49
	v |= (uint64(c.VehicleSystemInstance) & 0x0F) << 56
	v |= (uint64(c.IndustryGroup) & 0x07) << 60
	if c.ArbitraryCapable {
		v |= 1 << 63
	}
	return Name(v)
}

func (n Name) Identity() uint32             { return uint32(n) & 0x1FFFFF }
func (n Name) ManufacturerCode() uint16     { return uint16(n>>21) & 0x7FF }
func (n Name) ECUInstance() uint8           { return uint8(n>>32) & 0x07 }
func (n Name) FunctionInstance() uint8      { return uint8(n>>35) & 0x1F }
func (n Name) Function() uint8              { return uint8(n >> 40) }
func (n Name) VehicleSystem() uint8         { return uint8(n>>49) & 0x7F }
func (n Name) VehicleSystemInstance() uint8 { return uint8(n>>56) & 0x0F }
func (n Name) IndustryGroup() uint8         { return uint8(n>>60) & 0x07 }
func (n Name) ArbitraryCapable() bool       { return n>>63 != 0 }

// Less reports whether n outranks other in contention.
func (n Name) Less(other Name) bool {
	return n < other
}

func (n Name) String() string {
	return fmt.Sprintf("%#016x", uint64(n))
}

// Bytes returns the 8-byte little-endian wire form.
func (n Name) Bytes() []byte {
	return littleendian.Uint64ToBytes(uint64(n))
}

// NameFromBytes reads the 8-byte little-endian wire form.
func NameFromBytes(b []byte) Name {
	return Name(littleendian.BytesToUint64(b))
}
