package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SCRAME314/elehant-water-new/internal/ble"
	"github.com/SCRAME314/elehant-water-new/internal/elehant"
	"github.com/SCRAME314/elehant-water-new/internal/registry"
	"github.com/SCRAME314/elehant-water-new/internal/store"
)

// State of the scan session.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var ErrAlreadyRunning = errors.New("scan session already running")

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	// A subscription that survived this long is considered healthy; the
	// restart backoff resets so a later one-off failure recovers quickly.
	healthyRunTime = time.Minute

	stopTimeout = 5 * time.Second
)

// DropCounters tracks advertisements rejected per pipeline stage. Most BLE
// traffic is unrelated, so these grow fast at the filter stage; they exist
// for diagnosis, not alerting.
type DropCounters struct {
	Filtered         atomic.Uint64
	UnknownFamily    atomic.Uint64
	BadAddress       atomic.Uint64
	Unconfigured     atomic.Uint64
	TypeMismatch     atomic.Uint64
	Malformed        atomic.Uint64
	IdentityMismatch atomic.Uint64
}

// Snapshot returns the current counts keyed by reason.
func (d *DropCounters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"filtered":          d.Filtered.Load(),
		"unknown_family":    d.UnknownFamily.Load(),
		"bad_address":       d.BadAddress.Load(),
		"unconfigured":      d.Unconfigured.Load(),
		"type_mismatch":     d.TypeMismatch.Load(),
		"malformed":         d.Malformed.Load(),
		"identity_mismatch": d.IdentityMismatch.Load(),
	}
}

// Orchestrator owns one scan session: the radio subscription, the
// advertisement pipeline and the reading store it feeds. One session per
// process; Start while not Idle is an error so two subscriptions can never
// race on the same adapter.
type Orchestrator struct {
	stream ble.Stream
	meters *registry.Registry
	store  *store.Store
	logger *slog.Logger

	Drops    DropCounters
	accepted atomic.Uint64

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func New(stream ble.Stream, meters *registry.Registry, st *store.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		stream: stream,
		meters: meters,
		store:  st,
		logger: logger,
	}
}

// State reports the current session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Accepted reports how many advertisements passed the full pipeline.
func (o *Orchestrator) Accepted() uint64 {
	return o.accepted.Load()
}

// DropCounts returns the per-reason drop counters.
func (o *Orchestrator) DropCounts() map[string]uint64 {
	return o.Drops.Snapshot()
}

// Start subscribes to the advertisement stream and keeps the subscription
// alive until Stop or ctx cancellation, restarting with backoff on transport
// failure. Returns ErrAlreadyRunning unless the session is Idle.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyRunning, o.state)
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.state = StateStarting
	o.cancel = cancel
	o.done = make(chan struct{})
	done := o.done
	o.mu.Unlock()

	o.logger.Info("scan session starting", "meters", o.meters.Len())

	go func() {
		defer close(done)
		o.run(runCtx)
		// If the parent context ended the session without an explicit Stop,
		// return to Idle so a later Start is possible. A Stop in progress
		// performs this transition itself after observing done.
		o.setState(StateIdle)
	}()
	return nil
}

func (o *Orchestrator) run(ctx context.Context) {
	backoff := initialBackoff
	for {
		o.setState(StateRunning)
		startedAt := time.Now()
		err := o.stream.Listen(ctx, o.handle)

		if ctx.Err() != nil {
			return
		}
		if time.Since(startedAt) >= healthyRunTime {
			backoff = initialBackoff
		}
		if err != nil {
			o.logger.Error("scan transport failure, restarting", "error", err, "backoff", backoff)
		} else {
			// Stream ended without error or cancellation; re-arm
			// immediately after the same backoff to avoid a tight loop
			// against a broken adapter.
			o.logger.Warn("scan stream ended unexpectedly, restarting", "backoff", backoff)
		}

		o.setState(StateStarting)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Stop cancels the subscription and waits for its orderly teardown, bounded
// by ctx and an internal cap so a hung radio layer cannot wedge shutdown.
// Idempotent: stopping an Idle session is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	switch o.state {
	case StateIdle:
		o.mu.Unlock()
		return nil
	case StateStopping:
		// A concurrent Stop is already draining; wait alongside it.
	default:
		o.state = StateStopping
	}
	cancel := o.cancel
	done := o.done
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("scan stop: %w", ctx.Err())
	case <-time.After(stopTimeout):
		return fmt.Errorf("scan listener did not stop within %s", stopTimeout)
	}

	o.mu.Lock()
	if o.state == StateStopping {
		o.state = StateIdle
	}
	o.mu.Unlock()
	o.logger.Info("scan session stopped")
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	// Never clobber a stop in progress with a run-loop transition.
	if o.state == StateStopping && s != StateIdle {
		o.mu.Unlock()
		return
	}
	o.state = s
	o.mu.Unlock()
}

// handle runs one advertisement through filter → classify → identity →
// decode → cross-check → store. Pure computation, no I/O; drops are logged
// at debug since nearly all ambient traffic is expected to be rejected.
func (o *Orchestrator) handle(adv ble.Advertisement) {
	if !ble.IsCandidate(adv) {
		o.Drops.Filtered.Add(1)
		return
	}

	family, ok := elehant.ClassifyFamily(adv.Address)
	if !ok {
		o.Drops.UnknownFamily.Add(1)
		o.logger.Debug("drop: address matches no family table", "addr", adv.Address)
		return
	}

	serial, ok := elehant.SerialFromAddress(adv.Address)
	if !ok {
		o.Drops.BadAddress.Add(1)
		o.logger.Debug("drop: malformed address", "addr", adv.Address)
		return
	}

	meter, ok := o.meters.Lookup(serial)
	if !ok {
		o.Drops.Unconfigured.Add(1)
		o.logger.Debug("drop: meter not configured", "serial", serial, "family", family)
		return
	}
	if !typeMatches(meter.Type, family) {
		o.Drops.TypeMismatch.Add(1)
		o.logger.Warn("drop: configured type disagrees with classified family",
			"serial", serial, "configured", meter.Type, "family", family)
		return
	}

	reading, err := o.decodeAny(adv, family)
	if err != nil {
		o.Drops.Malformed.Add(1)
		o.logger.Debug("drop: malformed payload", "serial", serial, "family", family, "error", err)
		return
	}

	// Integrity cross-check: the serial embedded in the payload must match
	// the one derived from the address, otherwise the packet may be corrupt
	// or spoofed and must not mutate any state.
	if reading.Serial != serial {
		o.Drops.IdentityMismatch.Add(1)
		o.logger.Warn("drop: payload serial disagrees with address serial",
			"addr_serial", serial, "payload_serial", reading.Serial, "addr", adv.Address)
		return
	}

	observedAt := adv.SeenAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	o.store.Update(store.Reading{
		Reading:    reading,
		FamilyName: family.String(),
		Name:       meter.Name,
		RSSI:       adv.RSSI,
		ObservedAt: observedAt,
	})
	o.accepted.Add(1)
	o.logger.Debug("reading stored",
		"serial", serial, "family", family, "value", reading.Value, "rssi", adv.RSSI)
}

// decodeAny tries every candidate payload against the classified family and
// returns the first successful decode, or the last decode error.
func (o *Orchestrator) decodeAny(adv ble.Advertisement, family elehant.Family) (elehant.Reading, error) {
	payloads := ble.Payloads(adv)
	if len(payloads) == 0 {
		return elehant.Reading{}, fmt.Errorf("%w: no payload", elehant.ErrTooShort)
	}
	var lastErr error
	for _, payload := range payloads {
		reading, err := elehant.Decode(payload, family)
		if err == nil {
			return reading, nil
		}
		lastErr = err
	}
	return elehant.Reading{}, lastErr
}

func typeMatches(t registry.MeterType, f elehant.Family) bool {
	switch f {
	case elehant.FamilyGas:
		return t == registry.TypeGas
	case elehant.FamilyWaterTemp, elehant.FamilyWaterDual:
		return t == registry.TypeWater
	default:
		return false
	}
}
