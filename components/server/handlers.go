package server

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/opmon"
	"github.com/xiaonanln/mapworld/engine/proto"
	"github.com/xiaonanln/mapworld/engine/room"
)

type globalHandler func(cp *ClientProxy, content interface{}) error

type roomHandler func(cp *ClientProxy, r *room.Room, content interface{}) error

var globalHandlers = map[proto.MsgType]globalHandler{
	proto.MT_JOIN: func(cp *ClientProxy, content interface{}) error {
		return cp.server.registry.JoinRoom(cp.peer, *content.(*string))
	},
	proto.MT_MAPS: func(cp *ClientProxy, content interface{}) error {
		return cp.peer.SendMessage(proto.MT_MAPS, cp.server.registry.ListRooms())
	},
	proto.MT_CREATE_MAP: func(cp *ClientProxy, content interface{}) error {
		req := content.(*proto.CreateMap)
		r, err := cp.server.registry.CreateRoom(req)
		if err != nil {
			cp.peer.SendMessage(proto.MT_REFUSED, err.Error())
			return err
		}
		return cp.peer.SendMessage(proto.MT_CREATE_MAP, r.Name())
	},
}

var roomHandlers = map[proto.MsgType]roomHandler{
	proto.MT_TILE_CHANGE: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.SetTile(content.(*proto.TileChange))
	},
	proto.MT_GROUP_CHANGE: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.EditGroup(content.(*proto.GroupChange))
	},
	proto.MT_LAYER_CHANGE: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.EditLayer(content.(*proto.LayerChange))
	},
	proto.MT_CREATE_GROUP: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.CreateGroup(content.(*proto.CreateGroup))
	},
	proto.MT_DELETE_GROUP: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.DeleteGroup(content.(*proto.DeleteGroup))
	},
	proto.MT_CREATE_LAYER: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.CreateLayer(content.(*proto.CreateLayer))
	},
	proto.MT_DELETE_LAYER: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.DeleteLayer(content.(*proto.DeleteLayer))
	},
	proto.MT_MAP: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.SendMap(cp.peer)
	},
	proto.MT_SAVE: func(cp *ClientProxy, r *room.Room, content interface{}) error {
		return r.SaveMap()
	},
}

// handleMessage decodes one client message and runs its handler.
// Rejected requests are logged only, the client gets no answer.
func (cp *ClientProxy) handleMessage(data []byte) {
	req, err := proto.DecodeRequest(data)
	if err != nil {
		gwlog.Warnf("%s: %s", cp, err)
		return
	}

	monop := opmon.StartOperation("client." + string(req.Type))
	defer monop.Finish(consts.ROOM_REQUEST_WARN_THRESHOLD)

	if proto.IsRoomMsgType(req.Type) {
		r := cp.peer.Room()
		if r == nil {
			gwlog.Warnf("%s: %s dropped: %s", cp, req.Type, room.ErrNotInRoom)
			return
		}
		err = roomHandlers[req.Type](cp, r, req.Content)
	} else {
		handler := globalHandlers[req.Type]
		if handler == nil {
			gwlog.Warnf("%s: unexpected request %s", cp, req.Type)
			return
		}
		err = handler(cp, req.Content)
	}

	if err != nil && errors.Cause(err) != room.ErrInvalidEdit {
		gwlog.Warnf("%s: %s failed: %s", cp, req.Type, err)
	}
}
