package elehant

import (
	"strconv"
	"strings"
)

// Family identifies one of the mutually incompatible Elehant meter product
// lines. Each family has its own advertisement payload layout; payloads must
// never be decoded against a family inferred from the payload itself.
type Family int

const (
	FamilyGas Family = iota
	FamilyWaterTemp
	FamilyWaterDual
)

func (f Family) String() string {
	switch f {
	case FamilyGas:
		return "gas"
	case FamilyWaterTemp:
		return "water_temp"
	case FamilyWaterDual:
		return "water_dual"
	default:
		return "unknown"
	}
}

// MAC prefix tables per family. Classification is ordered: gas is checked
// before water-with-temperature before dual-tariff, first match wins, so a
// prefix accidentally present in two tables resolves the same way every time.
var familyPrefixes = []struct {
	family   Family
	prefixes []string
}{
	{FamilyGas, []string{"B0:01", "B0:02"}},
	{FamilyWaterTemp, []string{"B0:10", "B0:11"}},
	{FamilyWaterDual, []string{"B0:12"}},
}

// ClassifyFamily matches a BLE address against the per-family MAC prefix
// tables. Returns false if the address belongs to no known family.
func ClassifyFamily(address string) (Family, bool) {
	addr := strings.ToUpper(strings.TrimSpace(address))
	for _, entry := range familyPrefixes {
		for _, prefix := range entry.prefixes {
			if strings.HasPrefix(addr, prefix) {
				return entry.family, true
			}
		}
	}
	return 0, false
}

// SerialFromAddress derives the meter serial from the low three octets of a
// BLE address, interpreted as a big-endian 24-bit integer. Returns false if
// the address is not a well-formed 6-octet MAC.
func SerialFromAddress(address string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(address), ":")
	if len(parts) != 6 {
		return "", false
	}
	var serial uint32
	for _, part := range parts[3:] {
		octet, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return "", false
		}
		serial = serial<<8 | uint32(octet)
	}
	return strconv.FormatUint(uint64(serial), 10), true
}
