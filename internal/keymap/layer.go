package keymap

import (
	"errors"
	"fmt"
)

// ErrUnknownLayerID is returned when text does not name a known layer.
var ErrUnknownLayerID = errors.New("unknown layer id")

// LayerID identifies a keyboard layer.
type LayerID uint8

const (
	LayerBase LayerID = iota
	LayerMod
	LayerFn
	LayerMouse
	LayerFn2
	LayerFn3
	LayerFn4
	LayerFn5
	LayerShift
	LayerCtrl
	LayerAlt
	LayerSuper

	// LayerCount is the number of layers.
	LayerCount
)

var layerNames = [LayerCount]string{
	LayerBase:  "base",
	LayerMod:   "mod",
	LayerFn:    "fn",
	LayerMouse: "mouse",
	LayerFn2:   "fn2",
	LayerFn3:   "fn3",
	LayerFn4:   "fn4",
	LayerFn5:   "fn5",
	LayerShift: "shift",
	LayerCtrl:  "ctrl",
	LayerAlt:   "alt",
	LayerSuper: "super",
}

// Valid reports whether id is a known layer.
func (id LayerID) Valid() bool {
	return id < LayerCount
}

// String returns the layer name used in trigger names and documents.
func (id LayerID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("layer(%d)", uint8(id))
	}
	return layerNames[id]
}

// ParseLayerID parses a layer name. Matching is exact and case-sensitive.
func ParseLayerID(s string) (LayerID, error) {
	for i, name := range layerNames {
		if name == s {
			return LayerID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayerID, s)
}

// AllLayers returns every layer in id order.
func AllLayers() []LayerID {
	out := make([]LayerID, 0, LayerCount)
	for id := LayerBase; id < LayerCount; id++ {
		out = append(out, id)
	}
	return out
}
