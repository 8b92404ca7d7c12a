package twmap

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

// Tile is a single cell of a tile grid
type Tile struct {
	ID    uint8
	Flags uint8
}

// Grid is a Width x Height array of tiles stored row by row
type Grid struct {
	Width  int
	Height int
	Tiles  []Tile
}

// NewGrid creates a grid of empty tiles
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Tiles:  make([]Tile, width*height),
	}
}

// InBounds checks if (x, y) is a cell of the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// At returns the tile at (x, y)
func (g *Grid) At(x, y int) Tile {
	return g.Tiles[y*g.Width+x]
}

// Set sets the tile at (x, y)
func (g *Grid) Set(x, y int, t Tile) {
	g.Tiles[y*g.Width+x] = t
}

// Resize changes the grid shape in place.
// Columns are added or removed at the right edge and rows at the bottom edge,
// so every tile whose coordinates exist in both shapes keeps its position.
func (g *Grid) Resize(width, height int) {
	if width == g.Width && height == g.Height {
		return
	}

	tiles := make([]Tile, width*height)
	copyW := g.Width
	if width < copyW {
		copyW = width
	}
	copyH := g.Height
	if height < copyH {
		copyH = height
	}
	for y := 0; y < copyH; y++ {
		copy(tiles[y*width:y*width+copyW], g.Tiles[y*g.Width:y*g.Width+copyW])
	}
	g.Width, g.Height, g.Tiles = width, height, tiles
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	tiles := make([]Tile, len(g.Tiles))
	copy(tiles, g.Tiles)
	return &Grid{Width: g.Width, Height: g.Height, Tiles: tiles}
}

// EncodeMsgpack writes the grid as [width, height, tile bytes]
func (g *Grid) EncodeMsgpack(enc *msgpack.Encoder) error {
	data := make([]byte, 2*len(g.Tiles))
	for i, t := range g.Tiles {
		data[2*i] = t.ID
		data[2*i+1] = t.Flags
	}
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(g.Width)); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(g.Height)); err != nil {
		return err
	}
	return enc.EncodeBytes(data)
}

// DecodeMsgpack reads a grid written by EncodeMsgpack
func (g *Grid) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 3 {
		return errors.Errorf("grid: expect 3 fields, got %d", n)
	}
	if g.Width, err = dec.DecodeInt(); err != nil {
		return err
	}
	if g.Height, err = dec.DecodeInt(); err != nil {
		return err
	}
	data, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if g.Width < 0 || g.Height < 0 || len(data) != 2*g.Width*g.Height {
		return errors.Errorf("grid: %d bytes of tiles for %dx%d", len(data), g.Width, g.Height)
	}
	g.Tiles = make([]Tile, g.Width*g.Height)
	for i := range g.Tiles {
		g.Tiles[i] = Tile{ID: data[2*i], Flags: data[2*i+1]}
	}
	return nil
}
