package storage

import (
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/config"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/opmon"
	"github.com/xiaonanln/mapworld/engine/storage/backend/filesystem"
	"github.com/xiaonanln/mapworld/engine/storage/backend/mongodb"
	"github.com/xiaonanln/mapworld/engine/storage/backend/redis"
	"github.com/xiaonanln/mapworld/engine/storage/backend/redis_cluster"
	"github.com/xiaonanln/mapworld/engine/storage/storage_common"
)

// ErrNotExist is returned by Read when no map is stored under the name
var ErrNotExist = storagecommon.ErrNotExist

// Opener opens a storage backend
type Opener func() (storagecommon.MapStorage, error)

// Storage reads and writes encoded maps by name.
// The backend is reopened on demand after it reports EOF.
type Storage struct {
	open Opener

	lock    sync.Mutex
	backend storagecommon.MapStorage
	closed  bool
}

// New creates a Storage over the backends created by open
func New(open Opener) *Storage {
	return &Storage{open: open}
}

// Open creates a Storage for the configured backend and connects it
func Open(cfg *config.StorageConfig) (*Storage, error) {
	opener, err := NewOpener(cfg)
	if err != nil {
		return nil, err
	}
	s := New(opener)
	if _, err := s.assureBackendReady(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewOpener returns the Opener of the configured backend type
func NewOpener(cfg *config.StorageConfig) (Opener, error) {
	switch cfg.Type {
	case "filesystem":
		return func() (storagecommon.MapStorage, error) {
			return mapstoragefilesystem.OpenDirectory(cfg.Directory)
		}, nil
	case "mongodb":
		return func() (storagecommon.MapStorage, error) {
			return mapstoragemongodb.OpenMongoDB(cfg.Url, cfg.DB)
		}, nil
	case "redis":
		dbindex, err := strconv.Atoi(cfg.DB)
		if err != nil {
			return nil, errors.Wrap(err, "redis db must be integer")
		}
		return func() (storagecommon.MapStorage, error) {
			return mapstorageredis.OpenRedis(cfg.Url, dbindex)
		}, nil
	case "redis_cluster":
		startNodes := cfg.StartNodes.ToList()
		return func() (storagecommon.MapStorage, error) {
			return mapstoragerediscluster.OpenRedisCluster(startNodes)
		}, nil
	}
	return nil, errors.Errorf("unknown storage type: %s", cfg.Type)
}

func (s *Storage) assureBackendReady() (storagecommon.MapStorage, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, errors.New("storage closed")
	}
	if s.backend == nil {
		backend, err := s.open()
		if err != nil {
			return nil, errors.Wrap(err, "storage backend is not ready")
		}
		s.backend = backend
	}
	return s.backend, nil
}

// checkEOF drops the backend after a connection loss so the next operation reconnects
func (s *Storage) checkEOF(backend storagecommon.MapStorage, err error) {
	if err == nil || !backend.IsEOF(err) {
		return
	}
	gwlog.Warnf("storage: connection lost: %s", err)
	s.lock.Lock()
	if s.backend == backend {
		s.backend = nil
		backend.Close()
	}
	s.lock.Unlock()
}

// Read returns the encoded map stored under name
func (s *Storage) Read(name string) ([]byte, error) {
	if err := storagecommon.CheckName(name); err != nil {
		return nil, err
	}
	backend, err := s.assureBackendReady()
	if err != nil {
		return nil, err
	}
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("storage: LOADING %s ...", name)
	}
	monop := opmon.StartOperation("storage.read")
	data, err := backend.Read(name)
	monop.Finish(consts.STORAGE_WARN_THRESHOLD)
	s.checkEOF(backend, err)
	if err != nil && err != ErrNotExist {
		err = errors.Wrapf(err, "storage: read %s failed", name)
	}
	return data, err
}

// Write stores the encoded map under name
func (s *Storage) Write(name string, data []byte) error {
	if err := storagecommon.CheckName(name); err != nil {
		return err
	}
	backend, err := s.assureBackendReady()
	if err != nil {
		return err
	}
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("storage: SAVING %s (%d bytes) ...", name, len(data))
	}
	monop := opmon.StartOperation("storage.write")
	err = backend.Write(name, data)
	monop.Finish(consts.STORAGE_WARN_THRESHOLD)
	s.checkEOF(backend, err)
	return errors.Wrapf(err, "storage: write %s failed", name)
}

// Exists checks if a map is stored under name
func (s *Storage) Exists(name string) (bool, error) {
	if err := storagecommon.CheckName(name); err != nil {
		return false, err
	}
	backend, err := s.assureBackendReady()
	if err != nil {
		return false, err
	}
	monop := opmon.StartOperation("storage.exists")
	exists, err := backend.Exists(name)
	monop.Finish(consts.STORAGE_WARN_THRESHOLD)
	s.checkEOF(backend, err)
	return exists, errors.Wrapf(err, "storage: exists %s failed", name)
}

// List returns the names of all stored maps in ascending order
func (s *Storage) List() ([]string, error) {
	backend, err := s.assureBackendReady()
	if err != nil {
		return nil, err
	}
	monop := opmon.StartOperation("storage.list")
	names, err := backend.List()
	monop.Finish(consts.STORAGE_LIST_WARN_THRESHOLD)
	s.checkEOF(backend, err)
	if err != nil {
		return nil, errors.Wrap(err, "storage: list failed")
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the backend, further operations fail
func (s *Storage) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	if s.backend != nil {
		s.backend.Close()
		s.backend = nil
	}
}
