package flash

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileOpener serves fixed-size regions backed by files in a directory,
// for host-side agents staging images on disk.
type FileOpener struct {
	dir  string
	size uint32

	mu   sync.Mutex
	held map[RegionID]bool
}

func NewFileOpener(dir string, size uint32) *FileOpener {
	return &FileOpener{
		dir:  dir,
		size: size,
		held: make(map[RegionID]bool),
	}
}

func (o *FileOpener) Open(id RegionID) (Region, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.held[id] {
		return nil, ErrBusy
	}
	path := filepath.Join(o.dir, fmt.Sprintf("region-%d.img", id))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.WithMessage(ErrIO, err.Error())
	}
	o.held[id] = true
	return &fileRegion{opener: o, id: id, f: f, size: o.size}, nil
}

func (o *FileOpener) release(id RegionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.held, id)
}

type fileRegion struct {
	opener *FileOpener
	id     RegionID
	size   uint32

	mu     sync.Mutex
	f      *os.File
	closed bool
}

var _ Region = (*fileRegion)(nil)

func (r *fileRegion) Size() uint32 {
	return r.size
}

func (r *fileRegion) EraseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.f.Truncate(0); err != nil {
		return errors.WithMessage(ErrIO, err.Error())
	}
	blank := make([]byte, r.size)
	for i := range blank {
		blank[i] = 0xFF
	}
	if _, err := r.f.WriteAt(blank, 0); err != nil {
		return errors.WithMessage(ErrIO, err.Error())
	}
	return nil
}

func (r *fileRegion) WriteAt(off uint32, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if uint64(off)+uint64(len(p)) > uint64(r.size) {
		return ErrOutOfRange
	}
	if _, err := r.f.WriteAt(p, int64(off)); err != nil {
		return errors.WithMessage(ErrIO, err.Error())
	}
	return nil
}

func (r *fileRegion) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.opener.release(r.id)
	if err := r.f.Close(); err != nil {
		return errors.WithMessage(ErrIO, err.Error())
	}
	return nil
}
