package leveldb

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProducer(t *testing.T) {
	require := require.New(t)

	dir, err := ioutil.TempDir("", "leveldb-test")
	require.NoError(err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})

	p := NewProducer(filepath.Join(dir, "dbs"), func(string) int {
		return 16 * 1024
	})

	// the datadir appears on the first OpenDB
	require.Empty(p.Names())

	db, err := p.OpenDB("journal")
	require.NoError(err)
	require.Equal([]string{"journal"}, p.Names())

	require.NoError(db.Put([]byte("k"), []byte("v")))
	require.NoError(db.Close())
	db.Drop()
	require.Empty(p.Names())
}
