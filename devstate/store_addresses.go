package devstate

import (
	"github.com/openecu/canup/common/bigendian"
	"github.com/openecu/canup/j1939"
)

func addressKey(name j1939.Name) []byte {
	return bigendian.Uint64ToBytes(uint64(name))
}

// SetClaimedAddress remembers the address the node holds under its NAME.
// Addresses are read once at start; so no cache.
func (s *Store) SetClaimedAddress(name j1939.Name, addr j1939.Address) {
	if err := s.table.Addresses.Put(addressKey(name), []byte{byte(addr)}); err != nil {
		s.crit(err)
	}
}

// ClaimedAddress returns the address last claimed under the NAME.
func (s *Store) ClaimedAddress(name j1939.Name) (j1939.Address, bool) {
	buf, err := s.table.Addresses.Get(addressKey(name))
	if err != nil {
		s.crit(err)
	}
	if len(buf) != 1 {
		return j1939.Null, false
	}
	return j1939.Address(buf[0]), true
}
