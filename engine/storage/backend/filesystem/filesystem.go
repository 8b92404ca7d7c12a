package mapstoragefilesystem

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	. "github.com/xiaonanln/mapworld/engine/storage/storage_common"
)

const mapFileExt = ".map"

// FileSystemMapStorage stores each map in <directory>/<name>.map
type FileSystemMapStorage struct {
	directory string
}

func (ms *FileSystemMapStorage) getFilePath(name string) string {
	return filepath.Join(ms.directory, name+mapFileExt)
}

// Write replaces the map file atomically
func (ms *FileSystemMapStorage) Write(name string, data []byte) error {
	saveFile := ms.getFilePath(name)
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("Saving %d bytes to file %s", len(data), saveFile)
	}

	tmp, err := ioutil.TempFile(ms.directory, "."+name+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file failed")
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s failed", tmpName)
	}
	if err = os.Rename(tmpName, saveFile); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "rename to %s failed", saveFile)
	}
	return nil
}

func (ms *FileSystemMapStorage) Read(name string) ([]byte, error) {
	data, err := ioutil.ReadFile(ms.getFilePath(name))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return data, err
}

func (ms *FileSystemMapStorage) Exists(name string) (exists bool, err error) {
	_, err = os.Stat(ms.getFilePath(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (ms *FileSystemMapStorage) List() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(ms.directory, "*"+mapFileExt))
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(files))
	for _, fpath := range files {
		_, fn := filepath.Split(fpath)
		name := strings.TrimSuffix(fn, mapFileExt)
		if err := CheckName(name); err != nil {
			gwlog.Warnf("ignore map file %s: %s", fpath, err)
			continue
		}
		res = append(res, name)
	}
	return res, nil
}

func (ms *FileSystemMapStorage) Close() {
	// need to do nothing
}

func (ms *FileSystemMapStorage) IsEOF(err error) bool {
	return false
}

// OpenDirectory opens directory as map storage, creating it if needed
func OpenDirectory(directory string) (MapStorage, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, err
	}

	return &FileSystemMapStorage{
		directory: directory,
	}, nil
}
