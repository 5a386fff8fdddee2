// Package module describes per-peripheral module settings carried in the
// configuration stream.
package module

import (
	"fmt"
	"strconv"
)

// ID identifies a peripheral module.
type ID uint8

const (
	RightKeyboardHalf ID = 0
	LeftKeyboardHalf  ID = 1
	KeyClusterLeft    ID = 2
	TrackballRight    ID = 3
	TrackpointRight   ID = 4
	TouchpadRight     ID = 5
)

var idNames = map[ID]string{
	RightKeyboardHalf: "right_half",
	LeftKeyboardHalf:  "left_half",
	KeyClusterLeft:    "key_cluster_left",
	TrackballRight:    "trackball_right",
	TrackpointRight:   "trackpoint_right",
	TouchpadRight:     "touchpad_right",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("module(%d)", uint8(id))
}

// Known reports whether id has a name.
func (id ID) Known() bool {
	_, ok := idNames[id]
	return ok
}

// ParseID parses a module name or a decimal id.
func ParseID(s string) (ID, error) {
	for id, name := range idNames {
		if name == s {
			return id, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return ID(n), nil
	}
	return 0, fmt.Errorf("unknown module %q", s)
}

// RecordSize is the encoded width of a Config.
const RecordSize = 4

// Config holds pointer settings for one module.
// The values are decoded but not applied to any module yet.
type Config struct {
	ID                  ID
	InitialPointerSpeed uint8
	PointerAcceleration uint8
	MaxPointerSpeed     uint8
}
