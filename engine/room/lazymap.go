package room

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/opmon"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

// MapStore is where rooms load and save their maps
type MapStore interface {
	List() ([]string, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Exists(name string) (bool, error)
}

// LazyMap is a stored map that is only kept in memory while it is in use.
// The first access loads it, Unload drops it.
type LazyMap struct {
	name  string
	store MapStore

	lock sync.Mutex
	m    *twmap.Map // nil while unloaded

	saveLock sync.Mutex

	loads   int
	unloads int
}

// NewLazyMap creates an unloaded LazyMap stored under name
func NewLazyMap(name string, store MapStore) *LazyMap {
	return &LazyMap{
		name:  name,
		store: store,
	}
}

func (lm *LazyMap) String() string {
	return "LazyMap<" + lm.name + ">"
}

// With calls f with exclusive access to the map, loading it first if needed.
// f must not keep the map after returning.
func (lm *LazyMap) With(f func(m *twmap.Map) error) error {
	lm.lock.Lock()
	defer lm.lock.Unlock()

	if lm.m == nil {
		m, err := lm.load(lm.name)
		if err != nil {
			return err
		}
		lm.m = m
		lm.loads += 1
	}
	return f(lm.m)
}

func (lm *LazyMap) load(name string) (*twmap.Map, error) {
	monop := opmon.StartOperation("map.load")
	defer monop.Finish(consts.STORAGE_WARN_THRESHOLD)

	data, err := lm.store.Read(name)
	if err != nil {
		gwlog.Errorf("%s: load failed: %s", lm, err)
		return nil, errors.Wrapf(ErrResourceUnavailable, "load %s: %s", name, err)
	}
	m, err := twmap.Decode(data)
	if err != nil {
		gwlog.Errorf("%s: decode failed: %s", lm, err)
		return nil, errors.Wrapf(ErrResourceUnavailable, "decode %s: %s", name, err)
	}
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("%s: loaded %d bytes, %d groups", lm, len(data), len(m.Groups))
	}
	return m, nil
}

// Unload drops the in-memory map. Edits since the last save are lost.
func (lm *LazyMap) Unload() {
	lm.lock.Lock()
	defer lm.lock.Unlock()
	if lm.m == nil {
		return
	}
	lm.m = nil
	lm.unloads += 1
	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("%s: unloaded", lm)
	}
}

// Loaded returns if the map is in memory
func (lm *LazyMap) Loaded() bool {
	lm.lock.Lock()
	defer lm.lock.Unlock()
	return lm.m != nil
}

// Stats returns how many times the map has been loaded and unloaded
func (lm *LazyMap) Stats() (loads, unloads int) {
	lm.lock.Lock()
	defer lm.lock.Unlock()
	return lm.loads, lm.unloads
}

// Snapshot returns a copy of the map, loading it first if needed
func (lm *LazyMap) Snapshot() (*twmap.Map, error) {
	var snapshot *twmap.Map
	err := lm.With(func(m *twmap.Map) error {
		snapshot = m.Clone()
		return nil
	})
	return snapshot, err
}

// loadedSnapshot returns a copy of the map, or nil if it is not loaded
func (lm *LazyMap) loadedSnapshot() *twmap.Map {
	lm.lock.Lock()
	defer lm.lock.Unlock()
	if lm.m == nil {
		return nil
	}
	return lm.m.Clone()
}

// Save writes the map back to storage. An unloaded map has nothing to save.
func (lm *LazyMap) Save() error {
	lm.saveLock.Lock()
	defer lm.saveLock.Unlock()

	snapshot := lm.loadedSnapshot()
	if snapshot == nil {
		return nil
	}
	return lm.write(lm.name, snapshot)
}

// SaveAs writes a copy of the map to storage under another name.
// An unloaded map is copied from storage without loading it.
func (lm *LazyMap) SaveAs(name string) error {
	lm.saveLock.Lock()
	defer lm.saveLock.Unlock()

	if snapshot := lm.loadedSnapshot(); snapshot != nil {
		return lm.write(name, snapshot)
	}

	data, err := lm.store.Read(lm.name)
	if err != nil {
		return errors.Wrapf(ErrResourceUnavailable, "load %s: %s", lm.name, err)
	}
	if err := lm.store.Write(name, data); err != nil {
		return errors.Wrapf(ErrResourceUnavailable, "save %s: %s", name, err)
	}
	return nil
}

func (lm *LazyMap) write(name string, m *twmap.Map) error {
	monop := opmon.StartOperation("map.save")
	defer monop.Finish(consts.STORAGE_WARN_THRESHOLD)

	data, err := twmap.Encode(m)
	if err != nil {
		return errors.Wrapf(ErrResourceUnavailable, "encode %s: %s", name, err)
	}
	if err := lm.store.Write(name, data); err != nil {
		return errors.Wrapf(ErrResourceUnavailable, "save %s: %s", name, err)
	}
	return nil
}
