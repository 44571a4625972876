package arbiter

import (
	"log/slog"
	"sync"
	"time"

	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

// Defaults.
const (
	DefaultEnableTimeout        = 30 * time.Second
	DefaultMaxRequestID  uint64 = 1<<31 - 1

	// MinMaxRequestID leaves room for the two requests that can be
	// outstanding plus the one being submitted.
	MinMaxRequestID uint64 = 3
)

// Preconditions answers the synchronous checks made before a request is
// accepted.
type Preconditions interface {
	SatelliteSupported() bool
	Provisioned() bool
	RadioPowerOn() bool
	RadioPoweringOff() bool
	EmergencyCallActive() bool
}

// Coexistence is the radio coexistence monitor as seen by the arbiter.
type Coexistence interface {
	AllRadiosDisabled() bool
	OnAllRadiosDisabled(fn func())
	DisableRequiredRadios() error
	RestoreRadios() error
}

// Config configures an Arbiter.
type Config struct {
	// Gateway is the modem. Required.
	Gateway modem.Gateway

	// Coexist gates enable completion. Nil means no radios are gated.
	Coexist Coexistence

	// Preconditions is consulted before a request is queued. Nil means
	// everything is ready.
	Preconditions Preconditions

	// EnableTimeout bounds every forwarded command.
	// Zero means DefaultEnableTimeout.
	EnableTimeout time.Duration

	// RadioOffTimeout bounds the wait for required radios after the modem
	// confirmed an enable. Zero means EnableTimeout; negative means no bound.
	RadioOffTimeout time.Duration

	// MaxRequestID is where request ids wrap back to 1.
	// Zero means DefaultMaxRequestID; other values below MinMaxRequestID
	// are rejected.
	MaxRequestID uint64

	// Clock drives deadlines. Nil means the wall clock.
	Clock timer.Clock

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// EventLogger is the optional event trace.
	EventLogger eventlog.Logger
}

// Phase is the externally visible session phase.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseEnablePending
	PhaseWaitingForRadiosOff
	PhaseEnabled
	PhaseDisablePending
	PhaseWaitingForModemOff
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseEnablePending:
		return "ENABLE_PENDING"
	case PhaseWaitingForRadiosOff:
		return "WAITING_FOR_RADIOS_OFF"
	case PhaseEnabled:
		return "ENABLED"
	case PhaseDisablePending:
		return "DISABLE_PENDING"
	case PhaseWaitingForModemOff:
		return "WAITING_FOR_MODEM_OFF"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is a copy of the session state. Request ids are zero for empty
// slots.
type Snapshot struct {
	Phase Phase

	// ConfirmedKnown is false until the modem confirmed any transition.
	ConfirmedKnown   bool
	ConfirmedEnabled bool

	// Attributes are the confirmed demo/emergency flags of the session.
	Attributes satellite.EnableAttributes

	PendingEnable          uint64
	PendingDisable         uint64
	PendingAttributeUpdate uint64
	QueuedAttributeUpdate  uint64

	WaitingForRadiosOff           bool
	WaitingForDisableConfirmation bool
	WaitingForModemOff            bool

	ModemState    satellite.ModemState
	LastRequestID uint64
}

// InFlight reports whether a command is outstanding at the modem.
func (s Snapshot) InFlight() bool {
	return s.PendingEnable != 0 || s.PendingDisable != 0 || s.PendingAttributeUpdate != 0
}

// StaticPreconditions is a settable Preconditions. The zero value reports
// nothing ready; use NewStaticPreconditions for a ready device.
type StaticPreconditions struct {
	mu          sync.RWMutex
	supported   bool
	provisioned bool
	radioOn     bool
	poweringOff bool
	emergency   bool
}

// NewStaticPreconditions returns preconditions that allow every request.
func NewStaticPreconditions() *StaticPreconditions {
	return &StaticPreconditions{supported: true, provisioned: true, radioOn: true}
}

func (p *StaticPreconditions) SatelliteSupported() bool  { return p.get(&p.supported) }
func (p *StaticPreconditions) Provisioned() bool         { return p.get(&p.provisioned) }
func (p *StaticPreconditions) RadioPowerOn() bool        { return p.get(&p.radioOn) }
func (p *StaticPreconditions) RadioPoweringOff() bool    { return p.get(&p.poweringOff) }
func (p *StaticPreconditions) EmergencyCallActive() bool { return p.get(&p.emergency) }

func (p *StaticPreconditions) SetSupported(v bool)     { p.set(&p.supported, v) }
func (p *StaticPreconditions) SetProvisioned(v bool)   { p.set(&p.provisioned, v) }
func (p *StaticPreconditions) SetRadioPowerOn(v bool)  { p.set(&p.radioOn, v) }
func (p *StaticPreconditions) SetPoweringOff(v bool)   { p.set(&p.poweringOff, v) }
func (p *StaticPreconditions) SetEmergencyCall(v bool) { p.set(&p.emergency, v) }

func (p *StaticPreconditions) get(field *bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *field
}

func (p *StaticPreconditions) set(field *bool, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*field = v
}

var _ Preconditions = (*StaticPreconditions)(nil)
