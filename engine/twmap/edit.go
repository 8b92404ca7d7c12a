package twmap

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/consts"
)

// ErrInvalidEdit is the cause of every rejected edit. A rejected edit leaves the map unchanged.
var ErrInvalidEdit = errors.New("invalid edit")

func checkName(name string, maxLen int) error {
	if !utf8.ValidString(name) {
		return errors.Wrap(ErrInvalidEdit, "name is not valid utf-8")
	}
	if len(name) > maxLen {
		return errors.Wrapf(ErrInvalidEdit, "name %q longer than %d bytes", name, maxLen)
	}
	return nil
}

// SetGameTile sets the id of the game layer tile at (x, y)
func (m *Map) SetGameTile(x, y int, id uint8) error {
	game, _, _ := m.GameLayer()
	if game == nil {
		return errors.Wrap(ErrInvalidEdit, "map has no game layer")
	}
	if !game.Grid.InBounds(x, y) {
		return errors.Wrapf(ErrInvalidEdit, "tile (%d, %d) outside the %dx%d game layer", x, y, game.Grid.Width, game.Grid.Height)
	}
	t := game.Grid.At(x, y)
	t.ID = id
	game.Grid.Set(x, y, t)
	return nil
}

// AddGroup appends an empty group
func (m *Map) AddGroup(name string) error {
	if err := checkName(name, consts.MAX_GROUP_NAME_LEN); err != nil {
		return err
	}
	m.Groups = append(m.Groups, NewGroup(name))
	return nil
}

// DeleteGroup removes group g and its layers. The physics group can not be deleted.
func (m *Map) DeleteGroup(g int) error {
	group, err := m.Group(g)
	if err != nil {
		return err
	}
	if group.IsPhysicsGroup() {
		return errors.Wrap(ErrInvalidEdit, "can not delete the physics group")
	}
	m.Groups = append(m.Groups[:g], m.Groups[g+1:]...)
	return nil
}

// ReorderGroup moves group from to index to
func (m *Map) ReorderGroup(from, to int) error {
	group, err := m.Group(from)
	if err != nil {
		return err
	}
	if _, err := m.Group(to); err != nil {
		return err
	}
	m.Groups = append(m.Groups[:from], m.Groups[from+1:]...)
	m.Groups = insertGroup(m.Groups, to, group)
	return nil
}

// SetGroupOffset sets the offset of group g
func (m *Map) SetGroupOffset(g int, x, y int32) error {
	group, err := m.Group(g)
	if err != nil {
		return err
	}
	group.OffsetX, group.OffsetY = x, y
	return nil
}

// SetGroupParallax sets the parallax of group g
func (m *Map) SetGroupParallax(g int, x, y int32) error {
	group, err := m.Group(g)
	if err != nil {
		return err
	}
	group.ParallaxX, group.ParallaxY = x, y
	return nil
}

// RenameGroup renames group g. The physics group can not be renamed.
func (m *Map) RenameGroup(g int, name string) error {
	group, err := m.Group(g)
	if err != nil {
		return err
	}
	if group.IsPhysicsGroup() {
		return errors.Wrap(ErrInvalidEdit, "can not rename the physics group")
	}
	if err := checkName(name, consts.MAX_GROUP_NAME_LEN); err != nil {
		return err
	}
	group.Name = name
	return nil
}

// AddLayer appends a tiles or quads layer to group g.
// Tiles layers get a grid of the game layer's shape.
func (m *Map) AddLayer(g int, kind LayerKind, name string) error {
	group, err := m.Group(g)
	if err != nil {
		return err
	}
	if kind != LayerTiles && kind != LayerQuads {
		return errors.Wrapf(ErrInvalidEdit, "can not create %s layers", kind)
	}
	if err := checkName(name, consts.MAX_LAYER_NAME_LEN); err != nil {
		return err
	}

	layer := &Layer{Kind: kind, Name: name}
	if kind == LayerTiles {
		game, _, _ := m.GameLayer()
		if game == nil {
			return errors.Wrap(ErrInvalidEdit, "map has no game layer")
		}
		layer.Color = White
		layer.Grid = NewGrid(game.Grid.Width, game.Grid.Height)
	} else {
		layer.Quads = []Quad{}
	}
	group.Layers = append(group.Layers, layer)
	return nil
}

// DeleteLayer removes layer l of group g. The game layer can not be deleted.
func (m *Map) DeleteLayer(g, l int) error {
	layer, err := m.Layer(g, l)
	if err != nil {
		return err
	}
	if layer.Kind == LayerGame {
		return errors.Wrap(ErrInvalidEdit, "can not delete the game layer")
	}
	group := m.Groups[g]
	group.Layers = append(group.Layers[:l], group.Layers[l+1:]...)
	return nil
}

// ReorderLayer moves layer l of group g to index toLayer of group toGroup.
// toLayer indexes the destination layer list after the layer has been taken out.
// The game layer can not leave its group. Other physics layers may move, but only
// back into the physics group when their shape matches the game layer.
func (m *Map) ReorderLayer(g, l, toGroup, toLayer int) error {
	layer, err := m.Layer(g, l)
	if err != nil {
		return err
	}
	dst, err := m.Group(toGroup)
	if err != nil {
		return err
	}
	if toGroup != g && layer.Kind == LayerGame {
		return errors.Wrap(ErrInvalidEdit, "can not move the game layer to another group")
	}
	if toGroup != g && layer.Kind.IsPhysics() && dst.IsPhysicsGroup() {
		game, _, _ := m.GameLayer()
		if game.Grid.Width != layer.Grid.Width || game.Grid.Height != layer.Grid.Height {
			return errors.Wrapf(ErrInvalidEdit, "%s layer is %dx%d, game layer is %dx%d", layer.Kind,
				layer.Grid.Width, layer.Grid.Height, game.Grid.Width, game.Grid.Height)
		}
	}
	maxIndex := len(dst.Layers)
	if toGroup == g {
		maxIndex -= 1
	}
	if toLayer < 0 || toLayer > maxIndex {
		return errors.Wrapf(ErrInvalidEdit, "destination layer index %d out of range [0, %d]", toLayer, maxIndex)
	}

	src := m.Groups[g]
	src.Layers = append(src.Layers[:l], src.Layers[l+1:]...)
	dst.Layers = insertLayer(dst.Layers, toLayer, layer)
	return nil
}

// RenameLayer renames layer l of group g
func (m *Map) RenameLayer(g, l int, name string) error {
	layer, err := m.Layer(g, l)
	if err != nil {
		return err
	}
	if !layer.Kind.HasName() {
		return errors.Wrapf(ErrInvalidEdit, "%s layers have no name", layer.Kind)
	}
	if err := checkName(name, consts.MAX_LAYER_NAME_LEN); err != nil {
		return err
	}
	layer.Name = name
	return nil
}

// SetLayerColor sets the color of tiles layer l of group g
func (m *Map) SetLayerColor(g, l int, c Color) error {
	layer, err := m.Layer(g, l)
	if err != nil {
		return err
	}
	if !layer.Kind.HasColor() {
		return errors.Wrapf(ErrInvalidEdit, "%s layers have no color", layer.Kind)
	}
	layer.Color = c
	return nil
}

// SetLayerWidth resizes layer l of group g to the given width
func (m *Map) SetLayerWidth(g, l int, width int) error {
	return m.resizeLayer(g, l, func(grid *Grid) (int, int) {
		return width, grid.Height
	})
}

// SetLayerHeight resizes layer l of group g to the given height
func (m *Map) SetLayerHeight(g, l int, height int) error {
	return m.resizeLayer(g, l, func(grid *Grid) (int, int) {
		return grid.Width, height
	})
}

// resizeLayer resizes a tiles layer alone, or every physics layer of the group together
func (m *Map) resizeLayer(g, l int, shape func(grid *Grid) (int, int)) error {
	layer, err := m.Layer(g, l)
	if err != nil {
		return err
	}
	if !layer.Kind.HasGrid() {
		return errors.Wrapf(ErrInvalidEdit, "%s layers can not be resized", layer.Kind)
	}
	width, height := shape(layer.Grid)
	if err := checkDimension(width); err != nil {
		return err
	}
	if err := checkDimension(height); err != nil {
		return err
	}

	if !layer.Kind.IsPhysics() {
		layer.Grid.Resize(width, height)
		return nil
	}
	for _, pl := range m.Groups[g].Layers {
		if pl.Kind.IsPhysics() {
			pl.Grid.Resize(width, height)
		}
	}
	return nil
}

func insertGroup(groups []*Group, i int, g *Group) []*Group {
	groups = append(groups, nil)
	copy(groups[i+1:], groups[i:])
	groups[i] = g
	return groups
}

func insertLayer(layers []*Layer, i int, l *Layer) []*Layer {
	layers = append(layers, nil)
	copy(layers[i+1:], layers[i:])
	layers[i] = l
	return layers
}
