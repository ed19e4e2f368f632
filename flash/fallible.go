package flash

import (
	"sync"
)

// Fallible wraps an opener with a shared write budget. Once the budget is
// spent every write on a region opened through it fails with ErrIO. Used to
// drive storage-failure paths in tests.
type Fallible struct {
	parent Opener

	mu       sync.Mutex
	writes   int
	eraseErr error
}

func Fail(parent Opener) *Fallible {
	return &Fallible{parent: parent}
}

var _ Opener = (*Fallible)(nil)

func (f *Fallible) Open(id RegionID) (Region, error) {
	r, err := f.parent.Open(id)
	if err != nil {
		return nil, err
	}
	return &fallibleRegion{limits: f, Region: r}, nil
}

// SetWriteCount sets the number of writes allowed before ErrIO.
func (f *Fallible) SetWriteCount(writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = writes
}

// GetWriteCount returns the remaining write budget.
func (f *Fallible) GetWriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// SetEraseErr makes the next EraseAll fail with err.
func (f *Fallible) SetEraseErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eraseErr = err
}

type fallibleRegion struct {
	limits *Fallible
	Region
}

func (r *fallibleRegion) EraseAll() error {
	r.limits.mu.Lock()
	err := r.limits.eraseErr
	r.limits.eraseErr = nil
	r.limits.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Region.EraseAll()
}

func (r *fallibleRegion) WriteAt(off uint32, p []byte) error {
	r.limits.mu.Lock()
	if r.limits.writes <= 0 {
		r.limits.mu.Unlock()
		return ErrIO
	}
	r.limits.writes--
	r.limits.mu.Unlock()
	return r.Region.WriteAt(off, p)
}
