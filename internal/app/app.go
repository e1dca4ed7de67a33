package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SCRAME314/elehant-water-new/internal/ble"
	"github.com/SCRAME314/elehant-water-new/internal/config"
	"github.com/SCRAME314/elehant-water-new/internal/httpapi"
	"github.com/SCRAME314/elehant-water-new/internal/mqtt"
	"github.com/SCRAME314/elehant-water-new/internal/scan"
	"github.com/SCRAME314/elehant-water-new/internal/store"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing gateway",
		"ble_adapter", cfg.BLEAdapter,
		"meters_path", cfg.MetersPath,
		"http_addr", cfg.HTTPAddr,
		"mqtt_enabled", cfg.MQTTEnabled,
	)

	meters, err := config.LoadMeters(cfg.MetersPath)
	if err != nil {
		return err
	}
	for _, m := range meters.All() {
		slog.Info("configured meter", "serial", m.Serial, "type", m.Type, "name", m.Name)
	}

	readings := store.New()
	listener := ble.NewListener(cfg.BLEAdapter)
	orchestrator := scan.New(listener, meters, readings, slog.Default())

	// MQTT is optional: readings are still served over HTTP when the broker
	// is unreachable or publishing is disabled.
	if cfg.MQTTEnabled {
		mqttClient := mqtt.NewClient(cfg, slog.Default())
		go func() {
			if err := mqttClient.Connect(ctx); err != nil {
				slog.Warn("mqtt connect failed (continuing without mqtt)", "error", err)
				return
			}
		}()
		defer mqttClient.Disconnect()

		updates, cancelSub := readings.Subscribe(64)
		defer cancelSub()
		go func() {
			for reading := range updates {
				if !mqttClient.IsConnected() {
					continue
				}
				if err := mqttClient.PublishReading(reading); err != nil {
					slog.Warn("publish reading failed", "serial", reading.Serial, "error", err)
				}
			}
		}()
	}

	if err := orchestrator.Start(ctx); err != nil {
		return err
	}

	mux := httpapi.NewMux(readings, orchestrator)
	srv := httpapi.NewServer(cfg.HTTPAddr, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stopScan(orchestrator, cfg.StopTimeout)
			return err
		}
	}

	slog.Info("gateway shutting down")

	stopScan(orchestrator, cfg.StopTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	return nil
}

func stopScan(o *scan.Orchestrator, timeout time.Duration) {
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.Stop(stopCtx); err != nil {
		slog.Error("scan stop", "error", err)
	}
}
