package parser

import (
	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/module"
)

// parseModuleConfiguration always consumes module.RecordSize bytes so later
// sections stay aligned, even though the values are not applied yet.
func parseModuleConfiguration(b *buffer.Buffer) (module.Config, error) {
	p, err := b.ReadBytes(module.RecordSize)
	if err != nil {
		return module.Config{}, err
	}
	return module.Config{
		ID:                  module.ID(p[0]),
		InitialPointerSpeed: p[1],
		PointerAcceleration: p[2],
		MaxPointerSpeed:     p[3],
	}, nil
}
