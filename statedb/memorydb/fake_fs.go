package memorydb

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/openecu/canup/statedb"
)

type fakeFS struct {
	Namespace string
	Files     map[string]statedb.DropableStore

	sync.RWMutex
}

var (
	fakeFSs = make(map[string]*fakeFS)
	fakeFSl = new(sync.Mutex)
)

func newFakeFS(namespace string) *fakeFS {
	if namespace == "" {
		namespace = uniqNamespace()
	}

	fakeFSl.Lock()
	defer fakeFSl.Unlock()

	if fs, ok := fakeFSs[namespace]; ok {
		return fs
	}

	fs := &fakeFS{
		Namespace: namespace,
		Files:     make(map[string]statedb.DropableStore),
	}
	fakeFSs[namespace] = fs
	return fs
}

func uniqNamespace() string {
	return fmt.Sprintf("%016x", rand.Int63())
}

func (fs *fakeFS) ListFakeDBs() []string {
	var ls []string

	fs.RLock()
	defer fs.RUnlock()

	for f := range fs.Files {
		ls = append(ls, f)
	}

	return ls
}

func (fs *fakeFS) OpenFakeDB(name string) statedb.DropableStore {
	fs.Lock()
	defer fs.Unlock()

	if oldDB, ok := fs.Files[name]; ok {
		return oldDB
	}

	drop := func() {
		fs.Lock()
		defer fs.Unlock()
		delete(fs.Files, name)
	}

	db := NewWithDrop(drop)
	fs.Files[name] = db

	return db
}
