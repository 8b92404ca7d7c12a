package storage

import (
	"io"
	"io/ioutil"
	"os"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/config"
	"github.com/xiaonanln/mapworld/engine/storage/storage_common"
)

func TestFilesystemStorage(t *testing.T) {
	dir, err := ioutil.TempDir("", "mapworld_storage")
	assert.Equal(t, nil, err)
	defer os.RemoveAll(dir)

	s, err := Open(&config.StorageConfig{Type: "filesystem", Directory: dir})
	assert.Equal(t, nil, err)
	defer s.Close()

	_, err = s.Read("nomap")
	assert.Equal(t, ErrNotExist, err)

	assert.Equal(t, nil, s.Write("b", []byte("second")))
	assert.Equal(t, nil, s.Write("a", []byte("first")))
	names, err := s.List()
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"a", "b"}, names)

	data, err := s.Read("b")
	assert.Equal(t, nil, err)
	assert.Equal(t, "second", string(data))

	exists, err := s.Exists("a")
	assert.Equal(t, nil, err)
	assert.T(t, exists)

	assert.NotEqual(t, nil, s.Write("../escape", []byte("x")))
	_, err = s.Read("")
	assert.NotEqual(t, nil, err)
}

func TestOpenUnknownType(t *testing.T) {
	_, err := Open(&config.StorageConfig{Type: "tape"})
	assert.NotEqual(t, nil, err)
	_, err = Open(&config.StorageConfig{Type: "redis", DB: "zero"})
	assert.NotEqual(t, nil, err)
}

type flakyBackend struct {
	closed bool
	fail   bool
	data   map[string][]byte
}

func (b *flakyBackend) List() ([]string, error) {
	if b.fail {
		return nil, io.EOF
	}
	var names []string
	for name := range b.data {
		names = append(names, name)
	}
	return names, nil
}

func (b *flakyBackend) Write(name string, data []byte) error {
	if b.fail {
		return io.EOF
	}
	b.data[name] = data
	return nil
}

func (b *flakyBackend) Read(name string) ([]byte, error) {
	if b.fail {
		return nil, io.EOF
	}
	data, ok := b.data[name]
	if !ok {
		return nil, storagecommon.ErrNotExist
	}
	return data, nil
}

func (b *flakyBackend) Exists(name string) (bool, error) {
	_, ok := b.data[name]
	return ok, nil
}

func (b *flakyBackend) Close() {
	b.closed = true
}

func (b *flakyBackend) IsEOF(err error) bool {
	return errors.Cause(err) == io.EOF
}

func TestReconnectAfterEOF(t *testing.T) {
	shared := map[string][]byte{}
	var opened []*flakyBackend
	s := New(func() (storagecommon.MapStorage, error) {
		b := &flakyBackend{data: shared}
		opened = append(opened, b)
		return b, nil
	})

	assert.Equal(t, nil, s.Write("m", []byte{1}))
	assert.Equal(t, 1, len(opened))

	opened[0].fail = true
	_, err := s.Read("m")
	assert.NotEqual(t, nil, err)
	assert.Equal(t, io.EOF, errors.Cause(err))
	assert.T(t, opened[0].closed)

	data, err := s.Read("m")
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte{1}, data)
	assert.Equal(t, 2, len(opened))

	s.Close()
	_, err = s.Read("m")
	assert.NotEqual(t, nil, err)
	assert.T(t, opened[1].closed)
}
