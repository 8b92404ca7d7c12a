package proto

// MsgType is the type tag of client messages
type MsgType string

// Global message types, handled without a room
const (
	// MT_JOIN joins a room by name, answered by a join acknowledgement
	MT_JOIN MsgType = "join"
	// MT_MAPS lists rooms with their user counts
	MT_MAPS MsgType = "maps"
	// MT_CREATE_MAP creates a new room from a blank map or a clone
	MT_CREATE_MAP MsgType = "createmap"
	// MT_REFUSED tells the client a global request has been refused
	MT_REFUSED MsgType = "refused"
)

// Room message types, handled by the current room of the client
const (
	// MT_TILE_CHANGE sets one tile of the game layer
	MT_TILE_CHANGE MsgType = "tilechange"
	// MT_GROUP_CHANGE edits one property of a group
	MT_GROUP_CHANGE MsgType = "groupchange"
	// MT_LAYER_CHANGE edits one property of a layer
	MT_LAYER_CHANGE MsgType = "layerchange"
	MT_CREATE_GROUP MsgType = "creategroup"
	MT_DELETE_GROUP MsgType = "deletegroup"
	MT_CREATE_LAYER MsgType = "createlayer"
	MT_DELETE_LAYER MsgType = "deletelayer"
	// MT_MAP requests the whole map, answered by a binary frame
	MT_MAP MsgType = "map"
	// MT_SAVE persists the map, no answer
	MT_SAVE MsgType = "save"
	// MT_USERS carries the user count of the room, sent on every join and leave
	MT_USERS MsgType = "users"
)

// IsRoomMsgType returns if messages of the type must be handled by a room
func IsRoomMsgType(mt MsgType) bool {
	switch mt {
	case MT_TILE_CHANGE, MT_GROUP_CHANGE, MT_LAYER_CHANGE, MT_CREATE_GROUP, MT_DELETE_GROUP,
		MT_CREATE_LAYER, MT_DELETE_LAYER, MT_MAP, MT_SAVE:
		return true
	}
	return false
}
