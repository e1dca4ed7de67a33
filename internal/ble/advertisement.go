package ble

import (
	"context"
	"strings"
	"time"
)

// Advertisement is a single observed BLE broadcast, as delivered by the radio
// layer. It is consumed per event and never retained by the pipeline.
type Advertisement struct {
	Address          string
	LocalName        string
	RSSI             int16
	ManufacturerData map[uint16][]byte
	ServiceData      map[string][]byte
	SeenAt           time.Time
}

// Stream is the external radio capability: it invokes the handler for every
// observed advertisement until the context is cancelled or the transport
// fails. Implementations must make Listen return promptly after cancellation.
type Stream interface {
	Listen(ctx context.Context, handler func(Advertisement)) error
}

// Elehant payload marker bytes, used as a cheap signature before any real
// decoding happens.
const (
	markerGas   = 0x0E
	markerWater = 0x80
)

// IsCandidate cheaply decides whether an advertisement is worth running
// through the full pipeline. The vast majority of ambient BLE traffic is
// rejected here. It never errors; absent or malformed data means "no".
func IsCandidate(adv Advertisement) bool {
	for _, data := range adv.ManufacturerData {
		if hasKnownMarker(data) {
			return true
		}
	}
	for _, data := range adv.ServiceData {
		if hasKnownMarker(data) {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(adv.LocalName), "ELEHANT")
}

func hasKnownMarker(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return data[0] == markerGas || data[0] == markerWater
}

// Payloads returns every data entry that could hold a meter reading, with
// manufacturer data first. Order between entries of the same map is not
// guaranteed; a meter broadcasts a single entry in practice.
func Payloads(adv Advertisement) [][]byte {
	out := make([][]byte, 0, len(adv.ManufacturerData)+len(adv.ServiceData))
	for _, data := range adv.ManufacturerData {
		if len(data) > 0 {
			out = append(out, data)
		}
	}
	for _, data := range adv.ServiceData {
		if len(data) > 0 {
			out = append(out, data)
		}
	}
	return out
}
