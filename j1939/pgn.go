package j1939

// Parameter group numbers used by this stack.
const (
	PGNTpCm           uint32 = 0xEC00 // transport protocol, connection management
	PGNTpDt           uint32 = 0xEB00 // transport protocol, data transfer
	PGNRequest        uint32 = 0xEA00
	PGNAddressClaimed uint32 = 0xEE00
	PGNFirmwareUpdate uint32 = 0xEF00 // proprietary A, carries the packeted image
)
