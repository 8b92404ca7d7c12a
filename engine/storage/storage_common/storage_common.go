package storagecommon

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
)

// ErrNotExist is returned by Read when no map is stored under the name
var ErrNotExist = errors.New("map does not exist")

// MapStorage defines the interface of map storage backends
type MapStorage interface {
	List() ([]string, error)
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
	Exists(name string) (bool, error)
	Close()
	IsEOF(err error) bool
}

// CheckName checks if name can be used as a map name by every backend
func CheckName(name string) error {
	if name == "" {
		return errors.New("map name is empty")
	}
	if len(name) > consts.MAX_ROOM_NAME_LEN {
		return errors.Errorf("map name longer than %d bytes", consts.MAX_ROOM_NAME_LEN)
	}
	if strings.HasPrefix(name, ".") {
		return errors.Errorf("map name %q starts with a dot", name)
	}
	if strings.ContainsAny(name, "/\\$\x00") {
		return errors.Errorf("map name %q contains invalid characters", name)
	}
	return nil
}
