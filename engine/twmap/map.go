package twmap

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
)

// Color is a RGBA color
type Color struct {
	R uint8 `msgpack:"r" json:"r"`
	G uint8 `msgpack:"g" json:"g"`
	B uint8 `msgpack:"b" json:"b"`
	A uint8 `msgpack:"a" json:"a"`
}

// White is the default color of tiles layers
var White = Color{255, 255, 255, 255}

// Point is a position in map units
type Point struct {
	X int32 `msgpack:"x"`
	Y int32 `msgpack:"y"`
}

// Quad is a textured or colored quadrilateral of a quads layer
type Quad struct {
	Position Point    `msgpack:"pos"`
	Corners  [4]Point `msgpack:"corners"`
	Colors   [4]Color `msgpack:"colors"`
}

// Layer is a layer of a group
type Layer struct {
	Kind  LayerKind `msgpack:"kind"`
	Name  string    `msgpack:"name"`
	Color Color     `msgpack:"color"`
	Grid  *Grid     `msgpack:"grid"`
	Quads []Quad    `msgpack:"quads"`
}

func (l *Layer) String() string {
	if l.Grid != nil {
		return fmt.Sprintf("Layer<%s %q %dx%d>", l.Kind, l.Name, l.Grid.Width, l.Grid.Height)
	}
	return fmt.Sprintf("Layer<%s %q>", l.Kind, l.Name)
}

// Clone returns a deep copy of the layer
func (l *Layer) Clone() *Layer {
	cl := *l
	if l.Grid != nil {
		cl.Grid = l.Grid.Clone()
	}
	if l.Quads != nil {
		cl.Quads = make([]Quad, len(l.Quads))
		copy(cl.Quads, l.Quads)
	}
	return &cl
}

// Group is an ordered list of layers sharing offset and parallax
type Group struct {
	Name      string   `msgpack:"name"`
	OffsetX   int32    `msgpack:"offx"`
	OffsetY   int32    `msgpack:"offy"`
	ParallaxX int32    `msgpack:"parax"`
	ParallaxY int32    `msgpack:"paray"`
	Layers    []*Layer `msgpack:"layers"`
}

// NewGroup creates an empty group with default parallax
func NewGroup(name string) *Group {
	return &Group{
		Name:      name,
		ParallaxX: 100,
		ParallaxY: 100,
		Layers:    []*Layer{},
	}
}

// IsPhysicsGroup returns if the group holds the game layer
func (g *Group) IsPhysicsGroup() bool {
	for _, l := range g.Layers {
		if l.Kind == LayerGame {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the group
func (g *Group) Clone() *Group {
	cg := *g
	cg.Layers = make([]*Layer, len(g.Layers))
	for i, l := range g.Layers {
		cg.Layers[i] = l.Clone()
	}
	return &cg
}

// Map is the editable document: an ordered list of groups
type Map struct {
	Groups []*Group `msgpack:"groups"`
}

// NewBlankMap creates a map whose only group holds a width x height game layer.
// With defaultLayers a background group and a tiles layer are added as well.
func NewBlankMap(width, height int, defaultLayers bool) (*Map, error) {
	if err := checkDimension(width); err != nil {
		return nil, err
	}
	if err := checkDimension(height); err != nil {
		return nil, err
	}

	m := &Map{}
	if defaultLayers {
		bg := NewGroup("Background")
		bg.ParallaxX, bg.ParallaxY = 0, 0
		bg.Layers = append(bg.Layers, &Layer{
			Kind: LayerQuads,
			Name: "Sky",
			Quads: []Quad{{
				Corners: [4]Point{{-800, -600}, {800, -600}, {-800, 600}, {800, 600}},
				Colors:  [4]Color{{94, 132, 174, 255}, {94, 132, 174, 255}, {204, 232, 255, 255}, {204, 232, 255, 255}},
			}},
		})
		m.Groups = append(m.Groups, bg)
	}

	game := NewGroup("Game")
	game.Layers = append(game.Layers, &Layer{Kind: LayerGame, Grid: NewGrid(width, height)})
	if defaultLayers {
		game.Layers = append(game.Layers, &Layer{Kind: LayerTiles, Name: "Tiles", Color: White, Grid: NewGrid(width, height)})
	}
	m.Groups = append(m.Groups, game)
	return m, nil
}

// Clone returns a deep copy of the map
func (m *Map) Clone() *Map {
	cm := &Map{Groups: make([]*Group, len(m.Groups))}
	for i, g := range m.Groups {
		cm.Groups[i] = g.Clone()
	}
	return cm
}

// GameLayer returns the game layer and its position, or nil if the map has none
func (m *Map) GameLayer() (layer *Layer, group int, index int) {
	for gi, g := range m.Groups {
		for li, l := range g.Layers {
			if l.Kind == LayerGame {
				return l, gi, li
			}
		}
	}
	return nil, -1, -1
}

// Group returns the group at index g
func (m *Map) Group(g int) (*Group, error) {
	if g < 0 || g >= len(m.Groups) {
		return nil, errors.Wrapf(ErrInvalidEdit, "group index %d out of range [0, %d)", g, len(m.Groups))
	}
	return m.Groups[g], nil
}

// Layer returns the layer at index l of group g
func (m *Map) Layer(g, l int) (*Layer, error) {
	group, err := m.Group(g)
	if err != nil {
		return nil, err
	}
	if l < 0 || l >= len(group.Layers) {
		return nil, errors.Wrapf(ErrInvalidEdit, "layer index %d out of range [0, %d) in group %d", l, len(group.Layers), g)
	}
	return group.Layers[l], nil
}

// Validate checks the structural rules every stored map must satisfy
func (m *Map) Validate() error {
	games := 0
	var gameGrid *Grid
	physicsGroup := -1
	for gi, g := range m.Groups {
		if g == nil {
			return errors.Errorf("group %d is nil", gi)
		}
		for li, l := range g.Layers {
			if l == nil {
				return errors.Errorf("layer %d of group %d is nil", li, gi)
			}
			if l.Kind > LayerInvalid {
				return errors.Errorf("layer %d of group %d has unknown kind %d", li, gi, l.Kind)
			}
			if l.Kind.HasGrid() != (l.Grid != nil) {
				return errors.Errorf("layer %d of group %d: %s layer grid mismatch", li, gi, l.Kind)
			}
			if l.Grid != nil {
				if err := checkDimension(l.Grid.Width); err != nil {
					return err
				}
				if err := checkDimension(l.Grid.Height); err != nil {
					return err
				}
				if len(l.Grid.Tiles) != l.Grid.Width*l.Grid.Height {
					return errors.Errorf("layer %d of group %d: %d tiles for %dx%d", li, gi, len(l.Grid.Tiles), l.Grid.Width, l.Grid.Height)
				}
			}
			if l.Kind == LayerGame {
				games += 1
				gameGrid = l.Grid
				physicsGroup = gi
			}
		}
	}
	if games != 1 {
		return errors.Errorf("map has %d game layers, expect 1", games)
	}
	// physics layers outside the physics group keep their own shape
	for li, l := range m.Groups[physicsGroup].Layers {
		if l.Kind.IsPhysics() {
			if l.Grid.Width != gameGrid.Width || l.Grid.Height != gameGrid.Height {
				return errors.Errorf("physics layer %d is %dx%d, game layer is %dx%d", li, l.Grid.Width, l.Grid.Height, gameGrid.Width, gameGrid.Height)
			}
		}
	}
	return nil
}

func checkDimension(v int) error {
	if v < consts.MIN_MAP_DIMENSION || v > consts.MAX_MAP_DIMENSION {
		return errors.Wrapf(ErrInvalidEdit, "dimension %d out of range [%d, %d]", v, consts.MIN_MAP_DIMENSION, consts.MAX_MAP_DIMENSION)
	}
	return nil
}
