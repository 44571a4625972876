package delivery

import (
	"errors"
	"log/slog"
	"time"

	eventlog "github.com/satlink-project/satlink-go/pkg/log"
	"github.com/satlink-project/satlink-go/pkg/modem"
	"github.com/satlink-project/satlink-go/pkg/timer"
)

// DefaultRetryInterval is the default ack deadline before redelivery.
const DefaultRetryInterval = 5 * time.Minute

// Errors.
var (
	ErrNoGateway       = errors.New("delivery: gateway is required")
	ErrNoStore         = errors.New("delivery: record store is required")
	ErrUnknownListener = errors.New("delivery: unknown listener")
	ErrStopped         = errors.New("delivery: manager stopped")
)

// Record is the persisted form of a received datagram.
type Record struct {
	ID           uint64
	Channel      string
	Payload      []byte
	PendingCount int
	ReceivedAt   time.Time
}

// RecordStore persists received datagrams until they are acknowledged.
type RecordStore interface {
	InsertRecord(rec Record) error
	DeleteRecord(id uint64) error
	ListRecords() ([]Record, error)
}

// IDAllocator hands out dedup ids that are not in use.
type IDAllocator interface {
	NextFree(inUse func(id uint64) bool) (uint64, error)
}

// AckFunc acknowledges one delivery. Calling it more than once is harmless.
type AckFunc func()

// Listener consumes datagrams for a channel.
type Listener interface {
	// OnReceived delivers a datagram. The same id may be delivered again
	// until ack is called. It runs on the manager's worker, so it must not
	// block or synchronously call Status, Flush, RegisterListener or
	// UnregisterListener, directly or through the service. ack may be
	// called from anywhere.
	OnReceived(id uint64, payload []byte, pendingCount int, ack AckFunc)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(id uint64, payload []byte, pendingCount int, ack AckFunc)

// OnReceived calls f.
func (f ListenerFunc) OnReceived(id uint64, payload []byte, pendingCount int, ack AckFunc) {
	f(id, payload, pendingCount, ack)
}

// ListenerID identifies a registered listener (a UUID).
type ListenerID string

// Config configures a Manager.
type Config struct {
	// Gateway delivers datagrams. Required.
	Gateway modem.Gateway

	// Store persists records. Required.
	Store RecordStore

	// IDs allocates dedup ids. Nil means an unpersisted allocator with the
	// default id space.
	IDs IDAllocator

	// RetryInterval is the ack deadline. Zero means DefaultRetryInterval.
	// A datagram left unacknowledged for N intervals has been delivered
	// N+1 times: the initial delivery plus N retries.
	RetryInterval time.Duration

	// MaxAttempts caps delivery attempts per listener and datagram.
	// Zero means unbounded.
	MaxAttempts int

	// AutoPoll asks the modem for more datagrams whenever a receipt says
	// some are still pending.
	AutoPoll bool

	// Clock drives retries. Nil means the wall clock.
	Clock timer.Clock

	// Logger is the optional operational logger.
	Logger *slog.Logger

	// EventLogger is the optional event trace.
	EventLogger eventlog.Logger
}

// Status summarizes the manager's state.
type Status struct {
	// Records is the number of unacknowledged datagrams.
	Records int

	// Deliveries is the number of deliveries awaiting an ack.
	Deliveries int

	// Listeners is the listener count per subscribed channel.
	Listeners map[string]int

	// Backlog is the number of receipts waiting for a free id.
	Backlog int

	// LastID is the last dedup id issued, when the allocator reports it.
	LastID uint64
}
