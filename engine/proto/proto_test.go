package proto

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

func TestDecodeGlobalRequests(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"join","content":"desert"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, MT_JOIN, req.Type)
	assert.Equal(t, "desert", *req.Content.(*string))
	assert.T(t, !IsRoomMsgType(req.Type), "join is global")

	req, err = DecodeRequest([]byte(`{"type":"maps"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, MT_MAPS, req.Type)
	assert.Equal(t, nil, req.Content)

	req, err = DecodeRequest([]byte(`{"type":"createmap","content":{"name":"new","blank":{"width":20,"height":10,"defaultLayers":true}}}`))
	assert.Equal(t, nil, err)
	cm := req.Content.(*CreateMap)
	assert.Equal(t, "new", cm.Name)
	assert.Equal(t, BlankMap{Width: 20, Height: 10, DefaultLayers: true}, *cm.Blank)
	assert.T(t, cm.Clone == nil, "clone should be unset")

	req, err = DecodeRequest([]byte(`{"type":"createmap","content":{"name":"copy","clone":{"clone":"desert"}}}`))
	assert.Equal(t, nil, err)
	cm = req.Content.(*CreateMap)
	assert.Equal(t, "copy", cm.Name)
	assert.T(t, cm.Blank == nil, "blank should be unset")
	assert.Equal(t, CloneMap{Clone: "desert"}, *cm.Clone)

	_, err = DecodeRequest([]byte(`{"type":"createmap","content":{"name":"copy","clone":"desert"}}`))
	assert.T(t, err != nil, "bare clone source should be rejected")
}

func TestDecodeRoomRequests(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"tilechange","content":{"group":1,"layer":0,"x":1,"y":1,"id":1}}`))
	assert.Equal(t, nil, err)
	assert.T(t, IsRoomMsgType(req.Type), "tilechange is a room request")
	assert.Equal(t, TileChange{Group: 1, Layer: 0, X: 1, Y: 1, ID: 1}, *req.Content.(*TileChange))

	req, err = DecodeRequest([]byte(`{"type":"groupchange","content":{"group":2,"offX":-5}}`))
	assert.Equal(t, nil, err)
	gc := req.Content.(*GroupChange)
	assert.Equal(t, 2, gc.Group)
	assert.Equal(t, int32(-5), *gc.OffX)

	req, err = DecodeRequest([]byte(`{"type":"layerchange","content":{"group":0,"layer":1,"color":{"r":1,"g":2,"b":3,"a":4}}}`))
	assert.Equal(t, nil, err)
	lc := req.Content.(*LayerChange)
	assert.Equal(t, twmap.Color{R: 1, G: 2, B: 3, A: 4}, *lc.Color)

	req, err = DecodeRequest([]byte(`{"type":"layerchange","content":{"group":0,"layer":1,"order":{"group":2,"layer":0}}}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, LayerOrder{Group: 2, Layer: 0}, *req.Content.(*LayerChange).Order)

	req, err = DecodeRequest([]byte(`{"type":"save"}`))
	assert.Equal(t, nil, err)
	assert.T(t, IsRoomMsgType(req.Type), "save is a room request")
}

func TestDecodeMalformed(t *testing.T) {
	for _, msg := range []string{
		`not json`,
		`{"type":"nosuchtype"}`,
		`{"type":"tilechange"}`,
		`{"type":"tilechange","content":{"x":"a"}}`,
		`{"type":"groupchange","content":{"group":0}}`,
		`{"type":"groupchange","content":{"group":0,"offX":1,"offY":2}}`,
		`{"type":"layerchange","content":{"group":0,"layer":0,"width":1,"height":1}}`,
		`{"type":"createmap","content":{"name":"x"}}`,
		`{"type":"tilechange","content":{"x":1,"y":1,"id":300}}`,
	} {
		_, err := DecodeRequest([]byte(msg))
		assert.Tf(t, err != nil, "%s should be rejected", msg)
	}
}

func TestEncodeMessage(t *testing.T) {
	data, err := EncodeMessage(MT_JOIN, false)
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"type":"join","content":false}`, string(data))

	data, err = EncodeMessage(MT_USERS, Users{Count: 2})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"type":"users","content":{"count":2}}`, string(data))

	data, err = EncodeMessage(MT_MAPS, []MapInfo{{Name: "desert", Users: 1}})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"type":"maps","content":[{"name":"desert","users":1}]}`, string(data))

	name := "Deco"
	data, err = EncodeMessage(MT_GROUP_CHANGE, &GroupChange{Group: 1, Name: &name})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"type":"groupchange","content":{"group":1,"name":"Deco"}}`, string(data))
}

func TestRoundTripTileChange(t *testing.T) {
	in := `{"type":"tilechange","content":{"group":1,"layer":0,"x":1,"y":1,"id":1}}`
	req, err := DecodeRequest([]byte(in))
	assert.Equal(t, nil, err)
	out, err := EncodeMessage(req.Type, req.Content)
	assert.Equal(t, nil, err)
	assert.Equal(t, in, string(out))
}
