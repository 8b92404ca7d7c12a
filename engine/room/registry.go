package room

import (
	"sync"

	"github.com/petar/GoLLRB/llrb"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/proto"
	"github.com/xiaonanln/mapworld/engine/storage/storage_common"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

type roomItem struct {
	name string
	room *Room
}

func (it roomItem) Less(than llrb.Item) bool {
	return it.name < than.(roomItem).name
}

// Registry holds every room by name
type Registry struct {
	store MapStore

	// DefaultWidth and DefaultHeight size blank maps created without dimensions
	DefaultWidth  int
	DefaultHeight int

	lock  sync.Mutex
	rooms *llrb.LLRB

	createLock sync.Mutex
}

// NewRegistry creates a room for every map in store
func NewRegistry(store MapStore) (*Registry, error) {
	names, err := store.List()
	if err != nil {
		return nil, errors.Wrap(err, "list maps failed")
	}

	reg := &Registry{
		store:         store,
		DefaultWidth:  consts.DEFAULT_MAP_WIDTH,
		DefaultHeight: consts.DEFAULT_MAP_HEIGHT,
		rooms:         llrb.New(),
	}
	for _, name := range names {
		reg.rooms.ReplaceOrInsert(roomItem{name, NewRoom(name, store)})
	}
	gwlog.Infof("Registry: %d rooms found", reg.rooms.Len())
	return reg, nil
}

// rangeRooms returns all rooms in name order
func (reg *Registry) rangeRooms() []*Room {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	rooms := make([]*Room, 0, reg.rooms.Len())
	reg.rooms.AscendGreaterOrEqual(roomItem{}, func(i llrb.Item) bool {
		rooms = append(rooms, i.(roomItem).room)
		return true
	})
	return rooms
}

// ListRooms returns every room with its user count, sorted by name
func (reg *Registry) ListRooms() []proto.MapInfo {
	rooms := reg.rangeRooms()
	infos := make([]proto.MapInfo, len(rooms))
	for i, r := range rooms {
		infos[i] = proto.MapInfo{Name: r.Name(), Users: r.PeerCount()}
	}
	return infos
}

// Stats returns the number of rooms and loaded maps
func (reg *Registry) Stats() (rooms int, loaded int) {
	for _, r := range reg.rangeRooms() {
		rooms += 1
		if r.Map().Loaded() {
			loaded += 1
		}
	}
	return
}

// FindRoom returns the room named name, or nil
func (reg *Registry) FindRoom(name string) *Room {
	reg.lock.Lock()
	defer reg.lock.Unlock()
	item := reg.rooms.Get(roomItem{name: name})
	if item == nil {
		return nil
	}
	return item.(roomItem).room
}

// JoinRoom moves p into the room named name and acknowledges the join
func (reg *Registry) JoinRoom(p *Peer, name string) error {
	cur := p.Room()
	if cur != nil && cur.Name() == name {
		return p.SendMessage(proto.MT_JOIN, true)
	}
	if cur != nil {
		reg.LeaveRoom(p)
	}

	r := reg.FindRoom(name)
	if r == nil {
		p.SendMessage(proto.MT_JOIN, false)
		return errors.Wrapf(ErrNotFound, "join %s", name)
	}
	p.SendMessage(proto.MT_JOIN, true)
	r.AddPeer(p)
	p.setRoom(r)
	gwlog.Infof("%s joined %s", p, r)
	return nil
}

// LeaveRoom removes p from its current room
func (reg *Registry) LeaveRoom(p *Peer) {
	r := p.Room()
	if r == nil {
		return
	}
	r.RemovePeer(p)
	p.setRoom(nil)
	gwlog.Infof("%s left %s", p, r)
}

// CreateRoom stores a new map and registers a room for it.
// The map is either blank or a copy of another room's map.
func (reg *Registry) CreateRoom(req *proto.CreateMap) (*Room, error) {
	reg.createLock.Lock()
	defer reg.createLock.Unlock()

	name := req.Name
	if err := storagecommon.CheckName(name); err != nil {
		return nil, err
	}
	if reg.FindRoom(name) != nil {
		return nil, errors.Wrap(ErrRoomExists, name)
	}
	if exists, err := reg.store.Exists(name); err != nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "check %s: %s", name, err)
	} else if exists {
		return nil, errors.Wrapf(ErrRoomExists, "%s is in storage", name)
	}

	switch {
	case req.Blank != nil:
		if err := reg.createBlank(name, req.Blank); err != nil {
			return nil, err
		}
	case req.Clone != nil:
		src := reg.FindRoom(req.Clone.Clone)
		if src == nil {
			return nil, errors.Wrapf(ErrNotFound, "clone %s", req.Clone.Clone)
		}
		if err := src.Map().SaveAs(name); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("createmap needs blank or clone")
	}

	r := NewRoom(name, reg.store)
	reg.lock.Lock()
	reg.rooms.ReplaceOrInsert(roomItem{name, r})
	reg.lock.Unlock()
	gwlog.Infof("Registry: created %s", r)
	return r, nil
}

func (reg *Registry) createBlank(name string, blank *proto.BlankMap) error {
	width, height := blank.Width, blank.Height
	if width == 0 {
		width = reg.DefaultWidth
	}
	if height == 0 {
		height = reg.DefaultHeight
	}
	m, err := twmap.NewBlankMap(width, height, blank.DefaultLayers)
	if err != nil {
		return err
	}
	data, err := twmap.Encode(m)
	if err != nil {
		return errors.Wrapf(ErrResourceUnavailable, "encode %s: %s", name, err)
	}
	if err := reg.store.Write(name, data); err != nil {
		return errors.Wrapf(ErrResourceUnavailable, "save %s: %s", name, err)
	}
	return nil
}
