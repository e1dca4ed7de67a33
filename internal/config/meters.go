package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/SCRAME314/elehant-water-new/internal/registry"
)

// metersFile is the on-disk shape of the configured meter set:
//
//	[[meters]]
//	serial = "11201"
//	type   = "water"
//	name   = "Cold water"
type metersFile struct {
	Meters []meterEntry `toml:"meters"`
}

type meterEntry struct {
	Serial string `toml:"serial"`
	Type   string `toml:"type"`
	Name   string `toml:"name"`
}

// LoadMeters reads the TOML meter list and builds the registry. An empty
// file is a configuration error: a gateway with nothing to watch is almost
// certainly misconfigured.
func LoadMeters(path string) (*registry.Registry, error) {
	var file metersFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("load meters %s: %w", path, err)
	}
	if len(file.Meters) == 0 {
		return nil, fmt.Errorf("load meters %s: no meters declared", path)
	}

	meters := make([]registry.Meter, 0, len(file.Meters))
	for _, e := range file.Meters {
		meters = append(meters, registry.Meter{
			Serial: e.Serial,
			Type:   registry.MeterType(e.Type),
			Name:   e.Name,
		})
	}
	reg, err := registry.New(meters)
	if err != nil {
		return nil, fmt.Errorf("load meters %s: %w", path, err)
	}
	return reg, nil
}
