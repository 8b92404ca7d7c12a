package twmap

import "strings"

// LayerKind is the kind of a map layer
type LayerKind uint8

const (
	// LayerGame is the game layer, exactly one per map
	LayerGame LayerKind = iota
	LayerFront
	LayerTele
	LayerSpeedup
	LayerSwitch
	LayerTune
	LayerTiles
	LayerQuads
	LayerSounds
	LayerInvalid
)

var layerKindNames = [...]string{
	LayerGame:    "game",
	LayerFront:   "front",
	LayerTele:    "tele",
	LayerSpeedup: "speedup",
	LayerSwitch:  "switch",
	LayerTune:    "tune",
	LayerTiles:   "tiles",
	LayerQuads:   "quads",
	LayerSounds:  "sounds",
	LayerInvalid: "invalid",
}

func (k LayerKind) String() string {
	if k > LayerInvalid {
		return "invalid"
	}
	return layerKindNames[k]
}

// ParseLayerKind parses the lowercase layer kind name, returning LayerInvalid for unknown names
func ParseLayerKind(s string) LayerKind {
	s = strings.ToLower(s)
	for k, name := range layerKindNames {
		if name == s {
			return LayerKind(k)
		}
	}
	return LayerInvalid
}

// IsPhysics returns if layers of this kind take part in the game physics
func (k LayerKind) IsPhysics() bool {
	return k <= LayerTune
}

// HasGrid returns if layers of this kind own a tile grid
func (k LayerKind) HasGrid() bool {
	return k <= LayerTiles
}

// HasName returns if layers of this kind carry an editable name
func (k LayerKind) HasName() bool {
	return k == LayerTiles || k == LayerQuads || k == LayerSounds
}

// HasColor returns if layers of this kind carry a color
func (k LayerKind) HasColor() bool {
	return k == LayerTiles
}
