package room

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/netutil"
	"github.com/xiaonanln/mapworld/engine/proto"
	"github.com/xiaonanln/mapworld/engine/storage/storage_common"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

type memStore struct {
	lock      sync.Mutex
	maps      map[string][]byte
	reads     int
	failRead  bool
	failWrite bool
}

func newMemStore() *memStore {
	return &memStore{maps: map[string][]byte{}}
}

func (s *memStore) List() ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	names := make([]string, 0, len(s.maps))
	for name := range s.maps {
		names = append(names, name)
	}
	return names, nil
}

func (s *memStore) Read(name string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.reads += 1
	if s.failRead {
		return nil, io.ErrUnexpectedEOF
	}
	data, ok := s.maps[name]
	if !ok {
		return nil, storagecommon.ErrNotExist
	}
	return data, nil
}

func (s *memStore) Write(name string, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.failWrite {
		return io.ErrClosedPipe
	}
	s.maps[name] = data
	return nil
}

func (s *memStore) Exists(name string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.maps[name]
	return ok, nil
}

func (s *memStore) put(t *testing.T, name string, m *twmap.Map) {
	data, err := twmap.Encode(m)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, s.Write(name, data))
}

func (s *memStore) get(t *testing.T, name string) *twmap.Map {
	data, err := s.Read(name)
	assert.Equal(t, nil, err)
	m, err := twmap.Decode(data)
	assert.Equal(t, nil, err)
	return m
}

func blankMap(t *testing.T, width, height int) *twmap.Map {
	m, err := twmap.NewBlankMap(width, height, false)
	assert.Equal(t, nil, err)
	return m
}

type message struct {
	Type    proto.MsgType   `json:"type"`
	Content json.RawMessage `json:"content"`
}

type recorder struct {
	lock   sync.Mutex
	frames []netutil.Frame
}

func (rec *recorder) Send(frame netutil.Frame) error {
	rec.lock.Lock()
	rec.frames = append(rec.frames, frame)
	rec.lock.Unlock()
	return nil
}

func (rec *recorder) messages(t *testing.T) []message {
	rec.lock.Lock()
	defer rec.lock.Unlock()
	var msgs []message
	for _, frame := range rec.frames {
		if frame.Binary {
			continue
		}
		var msg message
		assert.Equal(t, nil, json.Unmarshal(frame.Data, &msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

// edits returns the messages of the given type
func (rec *recorder) edits(t *testing.T, mt proto.MsgType) []string {
	var contents []string
	for _, msg := range rec.messages(t) {
		if msg.Type == mt {
			contents = append(contents, string(msg.Content))
		}
	}
	return contents
}

func (rec *recorder) lastBinary() []byte {
	rec.lock.Lock()
	defer rec.lock.Unlock()
	for i := len(rec.frames) - 1; i >= 0; i-- {
		if rec.frames[i].Binary {
			return rec.frames[i].Data
		}
	}
	return nil
}

func (rec *recorder) reset() {
	rec.lock.Lock()
	rec.frames = nil
	rec.lock.Unlock()
}

func newTestPeer(addr string) (*Peer, *recorder) {
	rec := &recorder{}
	return NewPeer(addr, rec), rec
}

func joinRoom(t *testing.T, reg *Registry, name string, addr string) (*Peer, *recorder) {
	p, rec := newTestPeer(addr)
	assert.Equal(t, nil, reg.JoinRoom(p, name))
	return p, rec
}

func setupDesert(t *testing.T) (*memStore, *Registry) {
	store := newMemStore()
	store.put(t, "desert", blankMap(t, 2, 2))
	reg, err := NewRegistry(store)
	assert.Equal(t, nil, err)
	return store, reg
}

func fetchMap(t *testing.T, r *Room, p *Peer, rec *recorder) *twmap.Map {
	assert.Equal(t, nil, r.SendMap(p))
	m, err := twmap.Decode(rec.lastBinary())
	assert.Equal(t, nil, err)
	return m
}

func TestTileChangeBroadcast(t *testing.T) {
	_, reg := setupDesert(t)
	a, recA := joinRoom(t, reg, "desert", "a:1")
	b, recB := joinRoom(t, reg, "desert", "b:1")
	r := a.Room()
	assert.Equal(t, r, b.Room())

	change := &proto.TileChange{Group: 0, Layer: 0, X: 0, Y: 0, ID: 5}
	assert.Equal(t, nil, r.SetTile(change))

	expected := []string{`{"group":0,"layer":0,"x":0,"y":0,"id":5}`}
	assert.Equal(t, expected, recA.edits(t, proto.MT_TILE_CHANGE))
	assert.Equal(t, expected, recB.edits(t, proto.MT_TILE_CHANGE))

	for _, pr := range []struct {
		p   *Peer
		rec *recorder
	}{{a, recA}, {b, recB}} {
		m := fetchMap(t, r, pr.p, pr.rec)
		game, _, _ := m.GameLayer()
		assert.Equal(t, uint8(5), game.Grid.At(0, 0).ID)
	}
}

func TestTileChangeOutOfRange(t *testing.T) {
	_, reg := setupDesert(t)
	a, recA := joinRoom(t, reg, "desert", "a:1")

	err := a.Room().SetTile(&proto.TileChange{X: 2, Y: 0, ID: 1})
	assert.Equal(t, ErrInvalidEdit, errors.Cause(err))
	err = a.Room().SetTile(&proto.TileChange{X: 0, Y: -1, ID: 1})
	assert.Equal(t, ErrInvalidEdit, errors.Cause(err))
	assert.Equal(t, 0, len(recA.edits(t, proto.MT_TILE_CHANGE)))
}

func TestRenamePhysicsGroupRejected(t *testing.T) {
	_, reg := setupDesert(t)
	a, recA := joinRoom(t, reg, "desert", "a:1")
	r := a.Room()

	name := "lobby"
	err := r.EditGroup(&proto.GroupChange{Group: 0, Name: &name})
	assert.Equal(t, ErrInvalidEdit, errors.Cause(err))
	assert.Equal(t, 0, len(recA.edits(t, proto.MT_GROUP_CHANGE)))

	m := fetchMap(t, r, a, recA)
	assert.Equal(t, "Game", m.Groups[0].Name)
}

func TestReloadAfterLastPeerLeaves(t *testing.T) {
	store, reg := setupDesert(t)
	r := reg.FindRoom("desert")
	a, recA := joinRoom(t, reg, "desert", "a:1")

	assert.Equal(t, nil, r.SetTile(&proto.TileChange{X: 1, Y: 0, ID: 3}))
	assert.Equal(t, nil, r.SaveMap())
	assert.Equal(t, nil, r.SetTile(&proto.TileChange{X: 1, Y: 1, ID: 4}))
	fetchMap(t, r, a, recA)
	loads, unloads := r.Map().Stats()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 0, unloads)

	reg.LeaveRoom(a)
	assert.Equal(t, (*Room)(nil), a.Room())
	assert.T(t, !r.Map().Loaded())
	readsBefore := store.reads

	b, recB := joinRoom(t, reg, "desert", "b:1")
	m := fetchMap(t, r, b, recB)
	assert.Equal(t, readsBefore+1, store.reads)
	game, _, _ := m.GameLayer()
	assert.Equal(t, uint8(3), game.Grid.At(1, 0).ID)
	assert.Equal(t, uint8(0), game.Grid.At(1, 1).ID)

	loads, unloads = r.Map().Stats()
	assert.Equal(t, 2, loads)
	assert.Equal(t, 1, unloads)
}

func TestLazyLifecycle(t *testing.T) {
	_, reg := setupDesert(t)
	r := reg.FindRoom("desert")
	assert.T(t, !r.Map().Loaded())

	a, recA := joinRoom(t, reg, "desert", "a:1")
	b, _ := joinRoom(t, reg, "desert", "b:1")
	assert.T(t, !r.Map().Loaded(), "joining alone must not load")

	fetchMap(t, r, a, recA)
	assert.Equal(t, nil, r.SetTile(&proto.TileChange{X: 0, Y: 0, ID: 1}))
	reg.LeaveRoom(a)
	assert.T(t, r.Map().Loaded(), "must stay loaded while peers remain")
	assert.Equal(t, nil, r.SetTile(&proto.TileChange{X: 0, Y: 1, ID: 1}))

	reg.LeaveRoom(b)
	loads, unloads := r.Map().Stats()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, unloads)

	// leaving twice changes nothing
	r.RemovePeer(b)
	loads, unloads = r.Map().Stats()
	assert.Equal(t, 1, unloads)
	assert.Equal(t, 1, loads)
}

func TestLoadFailure(t *testing.T) {
	store, reg := setupDesert(t)
	a, _ := joinRoom(t, reg, "desert", "a:1")
	store.failRead = true

	err := a.Room().SetTile(&proto.TileChange{X: 0, Y: 0, ID: 1})
	assert.Equal(t, ErrResourceUnavailable, errors.Cause(err))
	assert.T(t, !a.Room().Map().Loaded())

	store.failRead = false
	assert.Equal(t, nil, a.Room().SetTile(&proto.TileChange{X: 0, Y: 0, ID: 1}))
}

func TestCorruptMap(t *testing.T) {
	store := newMemStore()
	assert.Equal(t, nil, store.Write("broken", []byte("not a map")))
	lm := NewLazyMap("broken", store)
	called := false
	err := lm.With(func(m *twmap.Map) error {
		called = true
		return nil
	})
	assert.Equal(t, ErrResourceUnavailable, errors.Cause(err))
	assert.T(t, !called)
}

func TestWithReleasesOnPanic(t *testing.T) {
	store := newMemStore()
	store.put(t, "m", blankMap(t, 2, 2))
	lm := NewLazyMap("m", store)

	func() {
		defer func() {
			assert.NotEqual(t, nil, recover())
		}()
		lm.With(func(m *twmap.Map) error {
			panic("boom")
		})
	}()
	assert.Equal(t, nil, lm.With(func(m *twmap.Map) error { return nil }))
}

func TestSaveFailureKeepsMemory(t *testing.T) {
	store, reg := setupDesert(t)
	a, recA := joinRoom(t, reg, "desert", "a:1")
	r := a.Room()
	assert.Equal(t, nil, r.SetTile(&proto.TileChange{X: 1, Y: 1, ID: 9}))

	store.failWrite = true
	err := r.SaveMap()
	assert.Equal(t, ErrResourceUnavailable, errors.Cause(err))

	m := fetchMap(t, r, a, recA)
	game, _, _ := m.GameLayer()
	assert.Equal(t, uint8(9), game.Grid.At(1, 1).ID)
	stored := store.get(t, "desert")
	game, _, _ = stored.GameLayer()
	assert.Equal(t, uint8(0), game.Grid.At(1, 1).ID)
}

func TestSaveIsolation(t *testing.T) {
	store := newMemStore()
	store.put(t, "iso", blankMap(t, 50, 50))
	lm := NewLazyMap("iso", store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		id := uint8(i + 1)
		go func() {
			defer wg.Done()
			lm.With(func(m *twmap.Map) error {
				game, _, _ := m.GameLayer()
				for j := range game.Grid.Tiles {
					game.Grid.Tiles[j].ID = id
				}
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, nil, lm.Save())
		}()
	}
	wg.Wait()

	// every snapshot was taken between whole edits
	stored := store.get(t, "iso")
	game, _, _ := stored.GameLayer()
	first := game.Grid.Tiles[0].ID
	for _, tile := range game.Grid.Tiles {
		assert.Equal(t, first, tile.ID)
	}
}

func TestBroadcastStaysInRoom(t *testing.T) {
	store, reg := setupDesert(t)
	store.put(t, "forest", blankMap(t, 4, 4))
	reg, err := NewRegistry(store)
	assert.Equal(t, nil, err)

	a, recA := joinRoom(t, reg, "desert", "a:1")
	_, recB := joinRoom(t, reg, "desert", "b:1")
	_, recC := joinRoom(t, reg, "forest", "c:1")

	assert.Equal(t, nil, a.Room().SetTile(&proto.TileChange{X: 1, Y: 1, ID: 2}))
	assert.Equal(t, 1, len(recA.edits(t, proto.MT_TILE_CHANGE)))
	assert.Equal(t, 1, len(recB.edits(t, proto.MT_TILE_CHANGE)))
	assert.Equal(t, 0, len(recC.edits(t, proto.MT_TILE_CHANGE)))
}

func TestConvergence(t *testing.T) {
	_, reg := setupDesert(t)
	const npeers = 4
	const nedits = 50

	peers := make([]*Peer, npeers)
	recs := make([]*recorder, npeers)
	for i := range peers {
		peers[i], recs[i] = joinRoom(t, reg, "desert", fmt.Sprintf("p:%d", i))
	}
	r := reg.FindRoom("desert")

	var wg sync.WaitGroup
	for i := range peers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < nedits; j++ {
				r.SetTile(&proto.TileChange{X: j % 2, Y: (j / 2) % 2, ID: uint8(i*nedits + j)})
			}
		}(i)
	}
	wg.Wait()

	seen := recs[0].edits(t, proto.MT_TILE_CHANGE)
	assert.Equal(t, npeers*nedits, len(seen))
	for _, rec := range recs[1:] {
		assert.Equal(t, seen, rec.edits(t, proto.MT_TILE_CHANGE))
	}

	// replaying the broadcast sequence reproduces the server map
	replay := blankMap(t, 2, 2)
	for _, content := range seen {
		var change proto.TileChange
		assert.Equal(t, nil, json.Unmarshal([]byte(content), &change))
		assert.Equal(t, nil, replay.SetGameTile(change.X, change.Y, change.ID))
	}
	m := fetchMap(t, r, peers[0], recs[0])
	replayGame, _, _ := replay.GameLayer()
	game, _, _ := m.GameLayer()
	assert.Equal(t, replayGame.Grid.Tiles, game.Grid.Tiles)
}

func TestEditLayerResizePhysics(t *testing.T) {
	store := newMemStore()
	m := blankMap(t, 2, 2)
	m.Groups[0].Layers = append(m.Groups[0].Layers, &twmap.Layer{Kind: twmap.LayerFront, Grid: twmap.NewGrid(2, 2)})
	store.put(t, "phys", m)
	reg, err := NewRegistry(store)
	assert.Equal(t, nil, err)
	a, recA := joinRoom(t, reg, "phys", "a:1")
	r := a.Room()

	width := 5
	assert.Equal(t, nil, r.EditLayer(&proto.LayerChange{Group: 0, Layer: 1, Width: &width}))
	got := fetchMap(t, r, a, recA)
	for _, l := range got.Groups[0].Layers {
		assert.Equal(t, 5, l.Grid.Width)
		assert.Equal(t, 2, l.Grid.Height)
	}

	for _, bad := range []int{0, 10001} {
		bad := bad
		err := r.EditLayer(&proto.LayerChange{Group: 0, Layer: 0, Height: &bad})
		assert.Equal(t, ErrInvalidEdit, errors.Cause(err))
	}
	assert.Equal(t, 1, len(recA.edits(t, proto.MT_LAYER_CHANGE)))
}

func TestGroupAndLayerEdits(t *testing.T) {
	_, reg := setupDesert(t)
	a, recA := joinRoom(t, reg, "desert", "a:1")
	r := a.Room()

	assert.Equal(t, nil, r.CreateGroup(&proto.CreateGroup{Name: "Deco"}))
	assert.Equal(t, nil, r.CreateLayer(&proto.CreateLayer{Group: 1, Kind: "tiles", Name: "Rocks"}))
	assert.Equal(t, nil, r.CreateLayer(&proto.CreateLayer{Group: 1, Kind: "quads", Name: "Clouds"}))
	assert.Equal(t, ErrInvalidEdit, errors.Cause(r.CreateLayer(&proto.CreateLayer{Group: 1, Kind: "game"})))
	assert.Equal(t, ErrInvalidEdit, errors.Cause(r.CreateLayer(&proto.CreateLayer{Group: 7, Kind: "tiles"})))

	offX := int32(32)
	assert.Equal(t, nil, r.EditGroup(&proto.GroupChange{Group: 1, OffX: &offX}))
	paraY := int32(50)
	assert.Equal(t, nil, r.EditGroup(&proto.GroupChange{Group: 1, ParaY: &paraY}))
	order := 0
	assert.Equal(t, nil, r.EditGroup(&proto.GroupChange{Group: 1, Order: &order}))

	color := twmap.Color{R: 10, G: 20, B: 30, A: 40}
	assert.Equal(t, nil, r.EditLayer(&proto.LayerChange{Group: 0, Layer: 0, Color: &color}))
	assert.Equal(t, ErrInvalidEdit, errors.Cause(r.EditLayer(&proto.LayerChange{Group: 0, Layer: 1, Color: &color})))
	assert.Equal(t, ErrInvalidEdit, errors.Cause(r.EditLayer(&proto.LayerChange{Group: 1, Layer: 0, Order: &proto.LayerOrder{Group: 0, Layer: 0}})))

	assert.Equal(t, ErrInvalidEdit, errors.Cause(r.DeleteLayer(&proto.DeleteLayer{Group: 1, Layer: 0})))
	assert.Equal(t, ErrInvalidEdit, errors.Cause(r.DeleteGroup(&proto.DeleteGroup{Group: 1})))
	assert.Equal(t, nil, r.DeleteLayer(&proto.DeleteLayer{Group: 0, Layer: 1}))

	m := fetchMap(t, r, a, recA)
	assert.Equal(t, 2, len(m.Groups))
	deco := m.Groups[0]
	assert.Equal(t, "Deco", deco.Name)
	assert.Equal(t, int32(32), deco.OffsetX)
	assert.Equal(t, int32(100), deco.ParallaxX)
	assert.Equal(t, int32(50), deco.ParallaxY)
	assert.Equal(t, 1, len(deco.Layers))
	assert.Equal(t, color, deco.Layers[0].Color)
	assert.Equal(t, 2, deco.Layers[0].Grid.Width)

	assert.Equal(t, nil, r.DeleteGroup(&proto.DeleteGroup{Group: 0}))
	types := map[proto.MsgType]int{}
	for _, msg := range recA.messages(t) {
		types[msg.Type] += 1
	}
	assert.Equal(t, 1, types[proto.MT_CREATE_GROUP])
	assert.Equal(t, 2, types[proto.MT_CREATE_LAYER])
	assert.Equal(t, 3, types[proto.MT_GROUP_CHANGE])
	assert.Equal(t, 1, types[proto.MT_LAYER_CHANGE])
	assert.Equal(t, 1, types[proto.MT_DELETE_LAYER])
	assert.Equal(t, 1, types[proto.MT_DELETE_GROUP])
}
