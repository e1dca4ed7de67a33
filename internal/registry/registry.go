package registry

import (
	"fmt"
	"strings"
)

// MeterType is the configured kind of a meter, as the user declares it. It is
// cross-checked against the family classified from the BLE address.
type MeterType string

const (
	TypeWater MeterType = "water"
	TypeGas   MeterType = "gas"
)

// Meter is one entry of the configured meter set.
type Meter struct {
	Serial string
	Type   MeterType
	Name   string
}

// Registry is the read-only configured meter set, resolved once at session
// start. Only advertisements from these serials ever reach the reading store.
type Registry struct {
	meters map[string]Meter
	order  []string
}

// New validates and indexes the configured meters. Duplicate serials and
// unknown types are configuration errors.
func New(meters []Meter) (*Registry, error) {
	r := &Registry{meters: make(map[string]Meter, len(meters))}
	for _, m := range meters {
		serial := strings.TrimSpace(m.Serial)
		if serial == "" {
			return nil, fmt.Errorf("meter %q: empty serial", m.Name)
		}
		if _, ok := r.meters[serial]; ok {
			return nil, fmt.Errorf("duplicate meter serial %q", serial)
		}
		switch m.Type {
		case TypeWater, TypeGas:
		default:
			return nil, fmt.Errorf("meter %q: invalid type %q (allowed: water, gas)", serial, m.Type)
		}
		if m.Name == "" {
			m.Name = "Elehant " + serial
		}
		m.Serial = serial
		r.meters[serial] = m
		r.order = append(r.order, serial)
	}
	return r, nil
}

// Lookup returns the configured meter for a serial.
func (r *Registry) Lookup(serial string) (Meter, bool) {
	m, ok := r.meters[serial]
	return m, ok
}

// All returns the configured meters in declaration order.
func (r *Registry) All() []Meter {
	out := make([]Meter, 0, len(r.order))
	for _, serial := range r.order {
		out = append(out, r.meters[serial])
	}
	return out
}

// Len reports the number of configured meters.
func (r *Registry) Len() int {
	return len(r.meters)
}
