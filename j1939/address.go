package j1939

import "fmt"

// Address is an 8-bit bus address.
type Address uint8

const (
	// Null is the "no address held" sentinel, used as the source of a
	// cannot-claim announcement.
	Null Address = 0xFE
	// Broadcast targets every node.
	Broadcast Address = 0xFF

	MinUnicast Address = 0x00
	MaxUnicast Address = 0xFD
)

// Unicast reports whether a is a claimable node address.
func (a Address) Unicast() bool {
	return a <= MaxUnicast
}

func (a Address) String() string {
	return fmt.Sprintf("%#02x", uint8(a))
}
