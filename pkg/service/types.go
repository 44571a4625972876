package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/satlink-project/satlink-go/pkg/arbiter"
	"github.com/satlink-project/satlink-go/pkg/coexist"
	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/satellite"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateRunning - service is running normally.
	StateRunning

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// RadioStateReader reports the current state of a platform radio. A gateway
// that implements it seeds the coexistence monitor on Start.
type RadioStateReader interface {
	RadioOn(kind satellite.RadioKind) bool
}

// Config configures a Service.
type Config struct {
	// Gateway is the modem. Required.
	Gateway modem.Gateway

	// RecordStore persists unacknowledged datagrams. Required.
	RecordStore delivery.RecordStore

	// CounterStore persists the dedup id counter. Nil keeps it in memory.
	CounterStore idalloc.CounterStore

	// Preconditions is consulted before enable requests. Nil means ready.
	Preconditions arbiter.Preconditions

	// Radios switches platform radios. Nil uses the gateway when it
	// implements coexist.RadioController.
	Radios coexist.RadioController

	// RequiredRadios must be off while the link is enabled.
	RequiredRadios []satellite.RadioKind

	// EnableTimeout bounds every modem command.
	EnableTimeout time.Duration

	// RadioOffTimeout bounds the wait for required radios. Zero means
	// EnableTimeout; negative waits without a bound.
	RadioOffTimeout time.Duration

	// MaxRequestID is where request ids wrap.
	MaxRequestID uint64

	// RetryInterval is the datagram ack deadline.
	RetryInterval time.Duration

	// MaxAttempts caps deliveries per listener and datagram (0 = unbounded).
	MaxAttempts int

	// MaxID is the dedup id space.
	MaxID uint64

	// AutoPoll polls for more datagrams when a receipt reports some pending.
	AutoPoll bool

	// Clock drives every timer. Nil means the wall clock.
	Clock timer.Clock

	// Logger for debug output (optional).
	Logger *slog.Logger

	// EventLogger receives the event trace (optional). Events are stamped
	// with a per-service session id.
	EventLogger eventlog.Logger
}

// Status is a point-in-time view of the service.
type Status struct {
	State          ServiceState
	Session        arbiter.Snapshot
	Delivery       delivery.Status
	Radios         map[satellite.RadioKind]bool
	RequiredRadios []satellite.RadioKind
	EventSessionID string
}
