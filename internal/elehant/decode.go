package elehant

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrTooShort        = errors.New("payload too short")
	ErrMarkerMismatch  = errors.New("marker byte mismatch")
	ErrFieldOutOfRange = errors.New("field out of range")
	ErrUnknownFamily   = errors.New("unknown meter family")
)

// layout is the per-family wire format, offsets 0-based from payload start.
// Adding a family means adding a table entry, not new control flow. Serial
// and counters are little-endian on the wire; the serial embedded in the BLE
// address is big-endian (see SerialFromAddress).
type layout struct {
	marker byte
	minLen int
	scale  float64 // raw counter units per canonical base unit

	// counter occupies [9:13). Dual-tariff layouts carry a second counter
	// at [13:17) and an optional tariff selector byte at [17].
	dualTariff bool

	batteryAt     int // byte offset, -1 if the layout has no battery field
	temperatureAt int // 2 bytes LE signed, tenths of a degree; -1 if absent
}

var layouts = map[Family]layout{
	FamilyGas: {
		marker: 0x0E, minLen: 13, scale: 1000,
		batteryAt: -1, temperatureAt: -1,
	},
	FamilyWaterTemp: {
		marker: 0x80, minLen: 16, scale: 10,
		batteryAt: 13, temperatureAt: 14,
	},
	FamilyWaterDual: {
		marker: 0x80, minLen: 17, scale: 1000, dualTariff: true,
		batteryAt: -1, temperatureAt: -1,
	},
}

// Marker returns the fixed leading byte expected for the family's payloads.
func Marker(f Family) (byte, bool) {
	l, ok := layouts[f]
	return l.marker, ok
}

// MinLength returns the minimum payload length for the family.
func MinLength(f Family) (int, bool) {
	l, ok := layouts[f]
	return l.minLen, ok
}

// Decode parses a manufacturer-data payload against the declared family's
// layout. It never panics on truncated or garbage input; every failure path
// returns a typed error and no partially populated reading.
func Decode(payload []byte, f Family) (Reading, error) {
	l, ok := layouts[f]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %d", ErrUnknownFamily, int(f))
	}
	if len(payload) < l.minLen {
		return Reading{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTooShort, f, l.minLen, len(payload))
	}
	if payload[0] != l.marker {
		return Reading{}, fmt.Errorf("%w: %s expects 0x%02X, got 0x%02X", ErrMarkerMismatch, f, l.marker, payload[0])
	}

	r := Reading{
		Serial: strconv.FormatUint(uint64(leUint24(payload[6:9])), 10),
		Family: f,
	}

	if l.dualTariff {
		raw1 := binary.LittleEndian.Uint32(payload[9:13])
		raw2 := binary.LittleEndian.Uint32(payload[13:17])
		t1 := float64(raw1) / l.scale
		t2 := float64(raw2) / l.scale
		r.Tariff1 = &t1
		r.Tariff2 = &t2
		r.RawCounter = uint64(raw1) + uint64(raw2)
		r.Value = t1 + t2
		tariff := 1
		if len(payload) > 17 {
			tariff = int(payload[17])
			if tariff != 1 && tariff != 2 {
				return Reading{}, fmt.Errorf("%w: tariff selector %d", ErrFieldOutOfRange, tariff)
			}
		}
		r.CurrentTariff = &tariff
		return r, nil
	}

	raw := binary.LittleEndian.Uint32(payload[9:13])
	r.RawCounter = uint64(raw)
	r.Value = float64(raw) / l.scale

	if l.batteryAt >= 0 {
		battery := int(payload[l.batteryAt])
		if battery > 100 {
			return Reading{}, fmt.Errorf("%w: battery %d%%", ErrFieldOutOfRange, battery)
		}
		r.BatteryPct = &battery
	}
	if l.temperatureAt >= 0 {
		rawTemp := int16(binary.LittleEndian.Uint16(payload[l.temperatureAt : l.temperatureAt+2]))
		temp := float64(rawTemp) / 10
		r.TemperatureC = &temp
	}
	return r, nil
}

func leUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
