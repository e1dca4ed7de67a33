package elehant

// Reading is a decoded meter advertisement payload. Counter values are
// reported in the canonical base unit for the family (raw counter divided by
// the family scale); optional fields are nil when the family's layout does
// not carry them.
type Reading struct {
	Serial string  `json:"serial"`
	Family Family  `json:"-"`
	Value  float64 `json:"value"`

	// RawCounter preserves the undivided counter so consumers can re-derive
	// the value without accumulating float error. For dual-tariff meters it
	// is the sum of both raw tariff counters.
	RawCounter uint64 `json:"raw_counter"`

	Tariff1       *float64 `json:"tariff_1,omitempty"`
	Tariff2       *float64 `json:"tariff_2,omitempty"`
	CurrentTariff *int     `json:"current_tariff,omitempty"`
	TemperatureC  *float64 `json:"temperature_c,omitempty"`
	BatteryPct    *int     `json:"battery_pct,omitempty"`
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
