package room

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/netutil"
	"github.com/xiaonanln/mapworld/engine/opmon"
	"github.com/xiaonanln/mapworld/engine/proto"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

// Room is an editing session: the peers editing one stored map
type Room struct {
	name string
	doc  *LazyMap

	peersLock sync.RWMutex
	peers     map[string]*Peer

	// broadcastLock is held from applying an edit until its broadcast is queued,
	// so every peer receives edits in the order they were applied
	broadcastLock sync.Mutex
}

// NewRoom creates an empty room over the map stored under name
func NewRoom(name string, store MapStore) *Room {
	return &Room{
		name:  name,
		doc:   NewLazyMap(name, store),
		peers: map[string]*Peer{},
	}
}

func (r *Room) String() string {
	return "Room<" + r.name + ">"
}

// Name returns the room name
func (r *Room) Name() string {
	return r.name
}

// Map returns the lazily loaded map of the room
func (r *Room) Map() *LazyMap {
	return r.doc
}

// PeerCount returns the number of peers in the room
func (r *Room) PeerCount() int {
	r.peersLock.RLock()
	defer r.peersLock.RUnlock()
	return len(r.peers)
}

// AddPeer adds p to the room and tells everyone the new user count
func (r *Room) AddPeer(p *Peer) {
	r.peersLock.Lock()
	r.peers[p.Addr()] = p
	r.peersLock.Unlock()

	if consts.DEBUG_ROOMS {
		gwlog.Debugf("%s.AddPeer: %s", r, p)
	}
	r.broadcastUsers()
}

// RemovePeer removes p from the room. The map is unloaded when the last peer leaves.
func (r *Room) RemovePeer(p *Peer) {
	r.peersLock.Lock()
	if r.peers[p.Addr()] != p {
		r.peersLock.Unlock()
		return
	}
	delete(r.peers, p.Addr())
	if len(r.peers) == 0 {
		r.doc.Unload()
	}
	r.peersLock.Unlock()

	if consts.DEBUG_ROOMS {
		gwlog.Debugf("%s.RemovePeer: %s", r, p)
	}
	r.broadcastUsers()
}

func (r *Room) broadcastUsers() {
	r.broadcastLock.Lock()
	defer r.broadcastLock.Unlock()
	r.broadcastLocked(proto.MT_USERS, &proto.Users{Count: r.PeerCount()})
}

// broadcastLocked sends a message to every peer; broadcastLock must be held
func (r *Room) broadcastLocked(mt proto.MsgType, content interface{}) {
	data, err := proto.EncodeMessage(mt, content)
	if err != nil {
		gwlog.TraceError("%s: %s", r, err)
		return
	}
	frame := netutil.TextFrame(data)

	r.peersLock.RLock()
	peers := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	r.peersLock.RUnlock()

	for _, p := range peers {
		if err := p.Send(frame); err != nil {
			gwlog.Warnf("%s: send %s to %s failed: %s", r, mt, p, err)
		}
	}
}

// edit applies a change to the map and broadcasts the request when it succeeds
func (r *Room) edit(mt proto.MsgType, request interface{}, apply func(m *twmap.Map) error) error {
	monop := opmon.StartOperation("room." + string(mt))
	defer monop.Finish(consts.ROOM_REQUEST_WARN_THRESHOLD)

	r.broadcastLock.Lock()
	defer r.broadcastLock.Unlock()

	if err := r.doc.With(apply); err != nil {
		gwlog.Warnf("%s: %s %+v rejected: %s", r, mt, request, err)
		return errors.WithMessage(err, string(mt))
	}
	r.broadcastLocked(mt, request)
	return nil
}

// SendMap sends the encoded map to p as a binary frame
func (r *Room) SendMap(p *Peer) error {
	r.broadcastLock.Lock()
	defer r.broadcastLock.Unlock()

	snapshot, err := r.doc.Snapshot()
	if err != nil {
		gwlog.Errorf("%s: send map to %s failed: %s", r, p, err)
		return err
	}
	data, err := twmap.Encode(snapshot)
	if err != nil {
		gwlog.TraceError("%s: encode map failed: %s", r, err)
		return errors.Wrapf(ErrResourceUnavailable, "encode %s: %s", r.name, err)
	}
	return p.Send(netutil.BinaryFrame(data))
}

// SaveMap writes the map to storage
func (r *Room) SaveMap() error {
	if err := r.doc.Save(); err != nil {
		gwlog.Errorf("%s: save failed: %s", r, err)
		return err
	}
	gwlog.Infof("%s: map saved", r)
	return nil
}

// SetTile sets a tile of the game layer
func (r *Room) SetTile(change *proto.TileChange) error {
	return r.edit(proto.MT_TILE_CHANGE, change, func(m *twmap.Map) error {
		return m.SetGameTile(change.X, change.Y, change.ID)
	})
}

// EditGroup changes one property of a group
func (r *Room) EditGroup(change *proto.GroupChange) error {
	return r.edit(proto.MT_GROUP_CHANGE, change, func(m *twmap.Map) error {
		g := change.Group
		group, err := m.Group(g)
		if err != nil {
			return err
		}
		switch {
		case change.Order != nil:
			return m.ReorderGroup(g, *change.Order)
		case change.OffX != nil:
			return m.SetGroupOffset(g, *change.OffX, group.OffsetY)
		case change.OffY != nil:
			return m.SetGroupOffset(g, group.OffsetX, *change.OffY)
		case change.ParaX != nil:
			return m.SetGroupParallax(g, *change.ParaX, group.ParallaxY)
		case change.ParaY != nil:
			return m.SetGroupParallax(g, group.ParallaxX, *change.ParaY)
		case change.Name != nil:
			return m.RenameGroup(g, *change.Name)
		}
		return errors.Wrap(ErrInvalidEdit, "nothing to change")
	})
}

// EditLayer changes one property of a layer
func (r *Room) EditLayer(change *proto.LayerChange) error {
	return r.edit(proto.MT_LAYER_CHANGE, change, func(m *twmap.Map) error {
		g, l := change.Group, change.Layer
		switch {
		case change.Order != nil:
			return m.ReorderLayer(g, l, change.Order.Group, change.Order.Layer)
		case change.Name != nil:
			return m.RenameLayer(g, l, *change.Name)
		case change.Color != nil:
			return m.SetLayerColor(g, l, *change.Color)
		case change.Width != nil:
			return m.SetLayerWidth(g, l, *change.Width)
		case change.Height != nil:
			return m.SetLayerHeight(g, l, *change.Height)
		}
		return errors.Wrap(ErrInvalidEdit, "nothing to change")
	})
}

// CreateGroup appends an empty group
func (r *Room) CreateGroup(create *proto.CreateGroup) error {
	return r.edit(proto.MT_CREATE_GROUP, create, func(m *twmap.Map) error {
		return m.AddGroup(create.Name)
	})
}

// DeleteGroup removes a group and its layers
func (r *Room) DeleteGroup(del *proto.DeleteGroup) error {
	return r.edit(proto.MT_DELETE_GROUP, del, func(m *twmap.Map) error {
		return m.DeleteGroup(del.Group)
	})
}

// CreateLayer appends a tiles or quads layer to a group
func (r *Room) CreateLayer(create *proto.CreateLayer) error {
	return r.edit(proto.MT_CREATE_LAYER, create, func(m *twmap.Map) error {
		return m.AddLayer(create.Group, twmap.ParseLayerKind(create.Kind), create.Name)
	})
}

// DeleteLayer removes a layer
func (r *Room) DeleteLayer(del *proto.DeleteLayer) error {
	return r.edit(proto.MT_DELETE_LAYER, del, func(m *twmap.Map) error {
		return m.DeleteLayer(del.Group, del.Layer)
	})
}
