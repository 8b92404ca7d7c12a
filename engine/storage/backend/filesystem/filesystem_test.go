package mapstoragefilesystem

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	. "github.com/xiaonanln/mapworld/engine/storage/storage_common"
)

func TestFileSystemMapStorage(t *testing.T) {
	dir, err := ioutil.TempDir("", "test_map_storage")
	assert.Equal(t, nil, err)
	defer os.RemoveAll(dir)

	ms, err := OpenDirectory(filepath.Join(dir, "maps"))
	assert.Equal(t, nil, err)
	gwlog.Infof("TestOpenDirectory: %v", ms)

	data, err := ms.Read("desert")
	assert.Equal(t, ErrNotExist, err)
	assert.T(t, data == nil, "should be nil")
	exists, err := ms.Exists("desert")
	assert.Equal(t, nil, err)
	assert.T(t, !exists, "should not exist")

	assert.Equal(t, nil, ms.Write("desert", []byte{1, 2, 3}))
	assert.Equal(t, nil, ms.Write("desert", []byte{4, 5}))
	assert.Equal(t, nil, ms.Write("jungle", []byte{6}))

	data, err = ms.Read("desert")
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte{4, 5}, data)
	exists, err = ms.Exists("desert")
	assert.Equal(t, nil, err)
	assert.T(t, exists, "should exist")

	// foreign files are not maps
	ioutil.WriteFile(filepath.Join(dir, "maps", "notes.txt"), []byte("x"), 0644)
	names, err := ms.List()
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"desert", "jungle"}, names)
	ms.Close()
}
