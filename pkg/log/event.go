package log

import (
	"time"
)

// Event is one entry of the event trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the process run that wrote the event (UUID).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Component that emitted the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Request     *RequestEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Datagram    *DatagramEvent    `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Component identifies the emitting component.
type Component uint8

const (
	// ComponentArbiter is the request arbiter.
	ComponentArbiter Component = 0
	// ComponentDelivery is the datagram delivery manager.
	ComponentDelivery Component = 1
	// ComponentCoexist is the radio coexistence monitor.
	ComponentCoexist Component = 2
	// ComponentService is the service orchestrator.
	ComponentService Component = 3
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentArbiter:
		return "ARBITER"
	case ComponentDelivery:
		return "DELIVERY"
	case ComponentCoexist:
		return "COEXIST"
	case ComponentService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryRequest indicates an enable/disable request event.
	CategoryRequest Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryDatagram indicates a datagram delivery event.
	CategoryDatagram Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRequest:
		return "REQUEST"
	case CategoryState:
		return "STATE"
	case CategoryDatagram:
		return "DATAGRAM"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// RequestStage is the lifecycle step of an arbiter request.
type RequestStage uint8

const (
	// RequestSubmitted indicates the request reached the arbiter worker.
	RequestSubmitted RequestStage = 0
	// RequestForwarded indicates the command was sent to the modem.
	RequestForwarded RequestStage = 1
	// RequestCompleted indicates the caller received its result.
	RequestCompleted RequestStage = 2
	// RequestTimedOut indicates the request deadline expired.
	RequestTimedOut RequestStage = 3
)

// String returns the stage name.
func (s RequestStage) String() string {
	switch s {
	case RequestSubmitted:
		return "SUBMITTED"
	case RequestForwarded:
		return "FORWARDED"
	case RequestCompleted:
		return "COMPLETED"
	case RequestTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// RequestEvent captures an arbiter request lifecycle step.
type RequestEvent struct {
	// RequestID is the arbiter-assigned id.
	RequestID uint64 `cbor:"1,keyasint"`

	// Stage of the request.
	Stage RequestStage `cbor:"2,keyasint"`

	Enable    bool `cbor:"3,keyasint,omitempty"`
	DemoMode  bool `cbor:"4,keyasint,omitempty"`
	Emergency bool `cbor:"5,keyasint,omitempty"`

	// Synthetic marks requests created by the arbiter itself.
	Synthetic bool `cbor:"6,keyasint,omitempty"`

	// Result is the result code name (completed requests only).
	Result string `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent captures a session phase or modem state transition.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a session phase change.
	StateEntitySession StateEntity = 0
	// StateEntityModem indicates a modem state notification.
	StateEntityModem StateEntity = 1
	// StateEntityRadio indicates a radio power notification.
	StateEntityRadio StateEntity = 2
	// StateEntityService indicates a service lifecycle change.
	StateEntityService StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityModem:
		return "MODEM"
	case StateEntityRadio:
		return "RADIO"
	case StateEntityService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// DatagramStage is the lifecycle step of an inbound datagram.
type DatagramStage uint8

const (
	// DatagramReceived indicates the datagram was persisted.
	DatagramReceived DatagramStage = 0
	// DatagramDispatched indicates a delivery attempt to a listener.
	DatagramDispatched DatagramStage = 1
	// DatagramAcked indicates a listener acknowledged the datagram.
	DatagramAcked DatagramStage = 2
	// DatagramDeleted indicates the persisted record was removed.
	DatagramDeleted DatagramStage = 3
	// DatagramAbandoned indicates retries stopped for a listener.
	DatagramAbandoned DatagramStage = 4
)

// String returns the stage name.
func (s DatagramStage) String() string {
	switch s {
	case DatagramReceived:
		return "RECEIVED"
	case DatagramDispatched:
		return "DISPATCHED"
	case DatagramAcked:
		return "ACKED"
	case DatagramDeleted:
		return "DELETED"
	case DatagramAbandoned:
		return "ABANDONED"
	default:
		return "UNKNOWN"
	}
}

// DatagramEvent captures a datagram delivery step.
type DatagramEvent struct {
	// DatagramID is the dedup id.
	DatagramID uint64 `cbor:"1,keyasint"`

	// Channel the datagram arrived on.
	Channel string `cbor:"2,keyasint,omitempty"`

	// Stage of the datagram.
	Stage DatagramStage `cbor:"3,keyasint"`

	// ListenerID is the listener involved (dispatch/ack only).
	ListenerID string `cbor:"4,keyasint,omitempty"`

	// Attempt is the 1-based delivery attempt (dispatch only).
	Attempt int `cbor:"5,keyasint,omitempty"`

	// Size is the payload size in bytes.
	Size int `cbor:"6,keyasint,omitempty"`

	// PendingCount is the modem's remaining queue length.
	PendingCount int `cbor:"7,keyasint,omitempty"`
}

// ErrorEventData captures errors in any component.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
