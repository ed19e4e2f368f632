package flash

import (
	"sync"
)

// MemOpener serves a single in-memory region under UpgradeSlot. Handles are
// exclusive: a second Open before Close fails with ErrBusy.
type MemOpener struct {
	mu      sync.Mutex
	region  *MemRegion
	openErr error
}

func NewMemOpener(size uint32) *MemOpener {
	o := &MemOpener{}
	o.region = &MemRegion{
		opener: o,
		data:   make([]byte, size),
	}
	return o
}

func (o *MemOpener) Open(id RegionID) (Region, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		err := o.openErr
		o.openErr = nil
		return nil, err
	}
	if id != UpgradeSlot {
		return nil, ErrNotFound
	}
	o.region.mu.Lock()
	defer o.region.mu.Unlock()
	if o.region.open {
		return nil, ErrBusy
	}
	o.region.open = true
	return o.region, nil
}

// SetOpenErr makes the next Open fail with err.
func (o *MemOpener) SetOpenErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openErr = err
}

// Region exposes the backing region for test inspection, open or not.
func (o *MemOpener) Region() *MemRegion {
	return o.region
}

// MemRegion is a byte-slice region. Erase fills the range with 0xFF like NOR
// flash. It records erase and write counts for test assertions.
type MemRegion struct {
	opener *MemOpener

	mu     sync.Mutex
	data   []byte
	open   bool
	erased bool
	erases int
	writes int
}

var _ Region = (*MemRegion)(nil)

func (r *MemRegion) Size() uint32 {
	return uint32(len(r.data))
}

func (r *MemRegion) EraseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrClosed
	}
	for i := range r.data {
		r.data[i] = 0xFF
	}
	r.erased = true
	r.erases++
	return nil
}

func (r *MemRegion) WriteAt(off uint32, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrClosed
	}
	if uint64(off)+uint64(len(p)) > uint64(len(r.data)) {
		return ErrOutOfRange
	}
	copy(r.data[off:], p)
	r.writes++
	return nil
}

func (r *MemRegion) Close() error {
	r.opener.mu.Lock()
	defer r.opener.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	return nil
}

// Bytes returns a copy of the current content.
func (r *MemRegion) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// Erased reports whether EraseAll ran since creation.
func (r *MemRegion) Erased() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.erased
}

// Counts returns the number of erases and writes so far.
func (r *MemRegion) Counts() (erases, writes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.erases, r.writes
}
