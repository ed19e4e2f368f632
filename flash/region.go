// Package flash abstracts the non-volatile region the firmware image is
// staged into. The transfer session holds exactly one open region at a time.
package flash

import (
	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("flash: region not found")
	ErrBusy       = errors.New("flash: region already open")
	ErrIO         = errors.New("flash: i/o failure")
	ErrOutOfRange = errors.New("flash: write out of range")
	ErrClosed     = errors.New("flash: region closed")
)

// RegionID selects a fixed region.
type RegionID int

// UpgradeSlot is the staging region the boot manager swaps in.
const UpgradeSlot RegionID = 1

// Opener hands out exclusive region handles.
type Opener interface {
	// Open fails with ErrNotFound for an unknown id and ErrBusy while a
	// previous handle is still open.
	Open(id RegionID) (Region, error)
}

// Region is an open, exclusively held storage range.
type Region interface {
	// Size is the fixed capacity in bytes.
	Size() uint32

	// EraseAll wipes the full range. Required before the first write.
	EraseAll() error

	// WriteAt stores p at the byte offset. The range [off, off+len(p))
	// must fit the region.
	WriteAt(off uint32, p []byte) error

	// Close releases the handle. Idempotent.
	Close() error
}
