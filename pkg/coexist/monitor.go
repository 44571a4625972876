package coexist

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/satlink-project/satlink-go/pkg/satellite"
)

// RadioController switches platform radios.
type RadioController interface {
	SetRadioEnabled(kind satellite.RadioKind, on bool) error
}

// Config configures a Monitor.
type Config struct {
	// Required lists the radios that must be off while satellite is enabled.
	Required []satellite.RadioKind

	// Controller switches radios. Nil means the monitor only observes.
	Controller RadioController

	// Logger is optional.
	Logger *slog.Logger
}

type radioState struct {
	mustDisable bool
	currentlyOn bool
}

// Monitor is safe for concurrent use.
type Monitor struct {
	mu sync.Mutex

	radios     map[satellite.RadioKind]*radioState
	controller RadioController
	restore    map[satellite.RadioKind]bool
	logger     *slog.Logger

	onAllDisabled func()
}

// NewMonitor creates a monitor. Radios start in the off state until a
// notification says otherwise.
func NewMonitor(cfg Config) *Monitor {
	m := &Monitor{
		radios:     make(map[satellite.RadioKind]*radioState),
		controller: cfg.Controller,
		restore:    make(map[satellite.RadioKind]bool),
		logger:     cfg.Logger,
	}
	for _, k := range satellite.AllRadioKinds {
		m.radios[k] = &radioState{}
	}
	m.SetRequired(cfg.Required)
	return m
}

// SetRequired replaces the set of radios that must be off.
func (m *Monitor) SetRequired(kinds []satellite.RadioKind) {
	m.mu.Lock()
	before := m.allDisabledLocked()
	for _, r := range m.radios {
		r.mustDisable = false
	}
	for _, k := range kinds {
		m.stateLocked(k).mustDisable = true
	}
	after := m.allDisabledLocked()
	fn := m.onAllDisabled
	m.mu.Unlock()

	if !before && after && fn != nil {
		fn()
	}
}

// Required returns the radios that must be off, sorted.
func (m *Monitor) Required() []satellite.RadioKind {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []satellite.RadioKind
	for k, r := range m.radios {
		if r.mustDisable {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OnAllRadiosDisabled sets the callback invoked when an update makes
// AllRadiosDisabled become true. It runs outside the monitor's lock.
func (m *Monitor) OnAllRadiosDisabled(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAllDisabled = fn
}

// UpdateRadioState records a radio power notification.
func (m *Monitor) UpdateRadioState(kind satellite.RadioKind, on bool) {
	m.mu.Lock()
	r := m.stateLocked(kind)
	before := m.allDisabledLocked()
	r.currentlyOn = on
	after := m.allDisabledLocked()
	fn := m.onAllDisabled
	m.mu.Unlock()

	m.debugLog("coexist: radio state", "radio", kind.String(), "on", on, "allDisabled", after)
	if !before && after && fn != nil {
		fn()
	}
}

// AllRadiosDisabled reports whether every required radio is off.
func (m *Monitor) AllRadiosDisabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allDisabledLocked()
}

// RadioOn reports the last known power state of a radio.
func (m *Monitor) RadioOn(kind satellite.RadioKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(kind).currentlyOn
}

// DisableRequiredRadios asks the controller to switch off every required
// radio that is on, remembering them for RestoreRadios. Completion is
// observed through UpdateRadioState.
func (m *Monitor) DisableRequiredRadios() error {
	m.mu.Lock()
	ctrl := m.controller
	var kinds []satellite.RadioKind
	for k, r := range m.radios {
		if r.mustDisable && r.currentlyOn {
			kinds = append(kinds, k)
			m.restore[k] = true
		}
	}
	m.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		if err := ctrl.SetRadioEnabled(k, false); err != nil {
			return fmt.Errorf("disable %s: %w", k, err)
		}
	}
	return nil
}

// RestoreRadios switches back on the radios DisableRequiredRadios turned off.
func (m *Monitor) RestoreRadios() error {
	m.mu.Lock()
	ctrl := m.controller
	kinds := make([]satellite.RadioKind, 0, len(m.restore))
	for k := range m.restore {
		kinds = append(kinds, k)
	}
	m.restore = make(map[satellite.RadioKind]bool)
	m.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		if err := ctrl.SetRadioEnabled(k, true); err != nil {
			return fmt.Errorf("restore %s: %w", k, err)
		}
	}
	return nil
}

func (m *Monitor) stateLocked(kind satellite.RadioKind) *radioState {
	r, ok := m.radios[kind]
	if !ok {
		r = &radioState{}
		m.radios[kind] = r
	}
	return r
}

func (m *Monitor) allDisabledLocked() bool {
	for _, r := range m.radios {
		if r.mustDisable && r.currentlyOn {
			return false
		}
	}
	return true
}

func (m *Monitor) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
