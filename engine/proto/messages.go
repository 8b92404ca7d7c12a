package proto

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/netutil"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

// TileChange sets the id of a game layer tile
type TileChange struct {
	Group int   `json:"group"`
	Layer int   `json:"layer"`
	X     int   `json:"x"`
	Y     int   `json:"y"`
	ID    uint8 `json:"id"`
}

// GroupChange edits exactly one property of group Group
type GroupChange struct {
	Group int     `json:"group"`
	Order *int    `json:"order,omitempty"`
	OffX  *int32  `json:"offX,omitempty"`
	OffY  *int32  `json:"offY,omitempty"`
	ParaX *int32  `json:"paraX,omitempty"`
	ParaY *int32  `json:"paraY,omitempty"`
	Name  *string `json:"name,omitempty"`
}

func (c *GroupChange) validate() error {
	return exactlyOne("groupchange", c.Order != nil, c.OffX != nil, c.OffY != nil, c.ParaX != nil, c.ParaY != nil, c.Name != nil)
}

// LayerOrder is the destination of a layer move
type LayerOrder struct {
	Group int `json:"group"`
	Layer int `json:"layer"`
}

// LayerChange edits exactly one property of layer Layer of group Group
type LayerChange struct {
	Group  int          `json:"group"`
	Layer  int          `json:"layer"`
	Order  *LayerOrder  `json:"order,omitempty"`
	Name   *string      `json:"name,omitempty"`
	Color  *twmap.Color `json:"color,omitempty"`
	Width  *int         `json:"width,omitempty"`
	Height *int         `json:"height,omitempty"`
}

func (c *LayerChange) validate() error {
	return exactlyOne("layerchange", c.Order != nil, c.Name != nil, c.Color != nil, c.Width != nil, c.Height != nil)
}

// CreateGroup appends a group
type CreateGroup struct {
	Name string `json:"name"`
}

// DeleteGroup removes a group
type DeleteGroup struct {
	Group int `json:"group"`
}

// CreateLayer appends a tiles or quads layer to a group
type CreateLayer struct {
	Group int    `json:"group"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
}

// DeleteLayer removes a layer
type DeleteLayer struct {
	Group int `json:"group"`
	Layer int `json:"layer"`
}

// BlankMap describes a new empty map
type BlankMap struct {
	Width         int  `json:"width"`
	Height        int  `json:"height"`
	DefaultLayers bool `json:"defaultLayers"`
}

// CloneMap names the room whose map is copied
type CloneMap struct {
	Clone string `json:"clone"`
}

// CreateMap creates a room named Name from either a blank map or a copy of another room
type CreateMap struct {
	Name  string    `json:"name"`
	Blank *BlankMap `json:"blank,omitempty"`
	Clone *CloneMap `json:"clone,omitempty"`
}

func (c *CreateMap) validate() error {
	return exactlyOne("createmap", c.Blank != nil, c.Clone != nil)
}

// MapInfo is one entry of the room list
type MapInfo struct {
	Name  string `json:"name"`
	Users int    `json:"users"`
}

// Users carries the user count of a room
type Users struct {
	Count int `json:"count"`
}

type validator interface {
	validate() error
}

func exactlyOne(what string, set ...bool) error {
	n := 0
	for _, s := range set {
		if s {
			n += 1
		}
	}
	if n != 1 {
		return errors.Errorf("%s must change exactly one property, got %d", what, n)
	}
	return nil
}

// requestContent creates the content of each request type, nil for types without content
var requestContent = map[MsgType]func() interface{}{
	MT_JOIN:         func() interface{} { return new(string) },
	MT_MAPS:         nil,
	MT_CREATE_MAP:   func() interface{} { return &CreateMap{} },
	MT_TILE_CHANGE:  func() interface{} { return &TileChange{} },
	MT_GROUP_CHANGE: func() interface{} { return &GroupChange{} },
	MT_LAYER_CHANGE: func() interface{} { return &LayerChange{} },
	MT_CREATE_GROUP: func() interface{} { return &CreateGroup{} },
	MT_DELETE_GROUP: func() interface{} { return &DeleteGroup{} },
	MT_CREATE_LAYER: func() interface{} { return &CreateLayer{} },
	MT_DELETE_LAYER: func() interface{} { return &DeleteLayer{} },
	MT_MAP:          nil,
	MT_SAVE:         nil,
}

type envelope struct {
	Type    MsgType         `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Request is a decoded client request. Content is a pointer to the payload type of Type, or nil.
type Request struct {
	Type    MsgType
	Content interface{}
}

// DecodeRequest parses a {"type": ..., "content": ...} client message
func DecodeRequest(data []byte) (*Request, error) {
	var env envelope
	if err := netutil.MSG_PACKER.UnpackMsg(data, &env); err != nil {
		return nil, errors.Wrap(err, "malformed message")
	}
	newContent, ok := requestContent[env.Type]
	if !ok {
		return nil, errors.Errorf("unknown message type %q", env.Type)
	}

	req := &Request{Type: env.Type}
	if newContent == nil {
		return req, nil
	}
	if len(env.Content) == 0 {
		return nil, errors.Errorf("%s: missing content", env.Type)
	}
	req.Content = newContent()
	if err := netutil.MSG_PACKER.UnpackMsg(env.Content, req.Content); err != nil {
		return nil, errors.Wrapf(err, "%s: malformed content", env.Type)
	}
	if v, ok := req.Content.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// EncodeMessage builds a {"type": ..., "content": ...} message. A nil content is omitted.
func EncodeMessage(mt MsgType, content interface{}) ([]byte, error) {
	env := struct {
		Type    MsgType     `json:"type"`
		Content interface{} `json:"content,omitempty"`
	}{mt, content}
	data, err := netutil.MSG_PACKER.PackMsg(env, nil)
	return data, errors.Wrapf(err, "encode %s", mt)
}
