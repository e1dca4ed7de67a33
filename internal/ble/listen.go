package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"
)

// Listener implements Stream over a BlueZ adapter.
type Listener struct {
	adapter *bluetooth.Adapter
	name    string
}

// NewListener wraps the given hci adapter ("hci0" by default).
func NewListener(adapterName string) *Listener {
	if adapterName == "" {
		adapterName = "hci0"
	}
	return &Listener{
		adapter: bluetooth.NewAdapter(adapterName),
		name:    adapterName,
	}
}

// Listen enables the adapter and scans until ctx is cancelled or the
// transport errors. adapter.Scan blocks; a watcher goroutine issues StopScan
// on cancellation so Listen returns promptly.
func (l *Listener) Listen(ctx context.Context, handler func(Advertisement)) error {
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", l.name, err)
	}
	slog.Info("ble: adapter enabled", "adapter", l.name)

	go func() {
		<-ctx.Done()
		_ = l.adapter.StopScan()
	}()

	err := l.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		adv := Advertisement{
			Address:   r.Address.String(),
			LocalName: r.LocalName(),
			RSSI:      r.RSSI,
			SeenAt:    time.Now(),
		}
		for _, md := range r.ManufacturerData() {
			if adv.ManufacturerData == nil {
				adv.ManufacturerData = make(map[uint16][]byte)
			}
			adv.ManufacturerData[md.CompanyID] = append([]byte(nil), md.Data...)
		}
		for _, sd := range r.ServiceData() {
			if adv.ServiceData == nil {
				adv.ServiceData = make(map[string][]byte)
			}
			adv.ServiceData[sd.UUID.String()] = append([]byte(nil), sd.Data...)
		}
		handler(adv)
	})

	// If ctx was cancelled, StopScan made Scan return; treat as clean stop.
	if ctx.Err() != nil {
		slog.Info("ble: scanning stopped", "adapter", l.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ble scan (%s): %w", l.name, err)
	}
	return nil
}
