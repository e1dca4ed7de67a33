package elehant

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// buildPayload assembles a payload with the shared serial/counter region
// populated and the rest zeroed out to at least length n.
func buildPayload(marker byte, serial uint32, counter uint32, n int) []byte {
	p := make([]byte, n)
	p[0] = marker
	p[6] = byte(serial)
	p[7] = byte(serial >> 8)
	p[8] = byte(serial >> 16)
	binary.LittleEndian.PutUint32(p[9:13], counter)
	return p
}

func TestDecode_WaterTemp(t *testing.T) {
	p := buildPayload(0x80, 11201, 12345, 16)
	p[13] = 87                                  // battery
	binary.LittleEndian.PutUint16(p[14:16], 231) // 23.1 C

	r, err := Decode(p, FamilyWaterTemp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Serial != "11201" {
		t.Errorf("Serial = %q; want 11201", r.Serial)
	}
	if r.Value != 1234.5 {
		t.Errorf("Value = %v; want 1234.5", r.Value)
	}
	if r.RawCounter != 12345 {
		t.Errorf("RawCounter = %d; want 12345", r.RawCounter)
	}
	if r.BatteryPct == nil || *r.BatteryPct != 87 {
		t.Errorf("BatteryPct = %v; want 87", r.BatteryPct)
	}
	if r.TemperatureC == nil || *r.TemperatureC != 23.1 {
		t.Errorf("TemperatureC = %v; want 23.1", r.TemperatureC)
	}
	if r.Tariff1 != nil || r.Tariff2 != nil {
		t.Errorf("tariffs = %v/%v; want nil for single-counter family", r.Tariff1, r.Tariff2)
	}
}

func TestDecode_WaterTemp_NegativeTemperature(t *testing.T) {
	p := buildPayload(0x80, 500, 0, 16)
	neg := int16(-52) // -5.2 C
	binary.LittleEndian.PutUint16(p[14:16], uint16(neg))

	r, err := Decode(p, FamilyWaterTemp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.TemperatureC == nil || *r.TemperatureC != -5.2 {
		t.Errorf("TemperatureC = %v; want -5.2", r.TemperatureC)
	}
}

func TestDecode_Gas(t *testing.T) {
	p := buildPayload(0x0E, 77001, 4250000, 13)

	r, err := Decode(p, FamilyGas)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Serial != "77001" {
		t.Errorf("Serial = %q; want 77001", r.Serial)
	}
	if r.Value != 4250 {
		t.Errorf("Value = %v; want 4250", r.Value)
	}
	if r.BatteryPct != nil || r.TemperatureC != nil {
		t.Errorf("battery/temperature = %v/%v; want nil for gas layout", r.BatteryPct, r.TemperatureC)
	}
}

func TestDecode_WaterDual(t *testing.T) {
	p := buildPayload(0x80, 300999, 123000, 18)
	binary.LittleEndian.PutUint32(p[13:17], 45000)
	p[17] = 2

	r, err := Decode(p, FamilyWaterDual)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Tariff1 == nil || *r.Tariff1 != 123 {
		t.Errorf("Tariff1 = %v; want 123", r.Tariff1)
	}
	if r.Tariff2 == nil || *r.Tariff2 != 45 {
		t.Errorf("Tariff2 = %v; want 45", r.Tariff2)
	}
	if r.Value != 168 {
		t.Errorf("Value = %v; want 168 (tariff sum)", r.Value)
	}
	if r.CurrentTariff == nil || *r.CurrentTariff != 2 {
		t.Errorf("CurrentTariff = %v; want 2", r.CurrentTariff)
	}
}

func TestDecode_WaterDual_DefaultTariff(t *testing.T) {
	// Exactly min length: no trailing selector byte, tariff defaults to 1.
	p := buildPayload(0x80, 300999, 0, 17)

	r, err := Decode(p, FamilyWaterDual)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.CurrentTariff == nil || *r.CurrentTariff != 1 {
		t.Errorf("CurrentTariff = %v; want default 1", r.CurrentTariff)
	}
}

func TestDecode_ScalingRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		family Family
		scale  float64
		raw    uint32
	}{
		{"water zero", FamilyWaterTemp, 10, 0},
		{"water one", FamilyWaterTemp, 10, 1},
		{"water max", FamilyWaterTemp, 10, math.MaxUint32},
		{"gas zero", FamilyGas, 1000, 0},
		{"gas one", FamilyGas, 1000, 1},
		{"gas max", FamilyGas, 1000, math.MaxUint32},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			marker, _ := Marker(tc.family)
			minLen, _ := MinLength(tc.family)
			p := buildPayload(marker, 1, tc.raw, minLen)

			r, err := Decode(p, tc.family)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if want := float64(tc.raw) / tc.scale; r.Value != want {
				t.Errorf("Value = %v; want %v", r.Value, want)
			}
			if r.RawCounter != uint64(tc.raw) {
				t.Errorf("RawCounter = %d; want %d", r.RawCounter, tc.raw)
			}
		})
	}
}

func TestDecode_MarkerMismatch(t *testing.T) {
	for _, family := range []Family{FamilyGas, FamilyWaterTemp, FamilyWaterDual} {
		t.Run(family.String(), func(t *testing.T) {
			minLen, _ := MinLength(family)
			p := buildPayload(0x55, 1, 1, minLen)

			_, err := Decode(p, family)
			if !errors.Is(err, ErrMarkerMismatch) {
				t.Fatalf("Decode error = %v; want ErrMarkerMismatch", err)
			}
		})
	}
}

func TestDecode_TooShort(t *testing.T) {
	for _, family := range []Family{FamilyGas, FamilyWaterTemp, FamilyWaterDual} {
		t.Run(family.String(), func(t *testing.T) {
			marker, _ := Marker(family)
			minLen, _ := MinLength(family)
			for n := 0; n < minLen; n++ {
				p := make([]byte, n)
				if n > 0 {
					p[0] = marker
				}
				_, err := Decode(p, family)
				if !errors.Is(err, ErrTooShort) {
					t.Fatalf("Decode(len=%d) error = %v; want ErrTooShort", n, err)
				}
			}
		})
	}
}

func TestDecode_BatteryOutOfRange(t *testing.T) {
	p := buildPayload(0x80, 1, 1, 16)
	p[13] = 101

	_, err := Decode(p, FamilyWaterTemp)
	if !errors.Is(err, ErrFieldOutOfRange) {
		t.Fatalf("Decode error = %v; want ErrFieldOutOfRange", err)
	}
}

func TestDecode_TariffSelectorOutOfRange(t *testing.T) {
	p := buildPayload(0x80, 1, 1, 18)
	p[17] = 9

	_, err := Decode(p, FamilyWaterDual)
	if !errors.Is(err, ErrFieldOutOfRange) {
		t.Fatalf("Decode error = %v; want ErrFieldOutOfRange", err)
	}
}

func TestDecode_UnknownFamily(t *testing.T) {
	_, err := Decode(make([]byte, 32), Family(99))
	if !errors.Is(err, ErrUnknownFamily) {
		t.Fatalf("Decode error = %v; want ErrUnknownFamily", err)
	}
}

func TestDecode_GarbageNeverPanics(t *testing.T) {
	for n := 0; n < 24; n++ {
		p := make([]byte, n)
		for i := range p {
			p[i] = byte(i * 37)
		}
		for _, family := range []Family{FamilyGas, FamilyWaterTemp, FamilyWaterDual} {
			_, _ = Decode(p, family) // must not panic regardless of outcome
		}
	}
}
