package satellite

import "fmt"

// ResultCode is the terminal outcome of a caller-initiated request.
type ResultCode uint8

const (
	// Success indicates the request completed.
	Success ResultCode = 0

	// InvalidModemState indicates the underlying radio is off or powering off.
	InvalidModemState ResultCode = 1

	// EmergencyCallInProgress indicates an emergency voice call blocks enabling.
	EmergencyCallInProgress ResultCode = 2

	// DisableInProgress indicates an enable was refused because a disable is pending.
	DisableInProgress ResultCode = 3

	// RequestInProgress indicates an equivalent request is already pending.
	RequestInProgress ResultCode = 4

	// InvalidArguments indicates an illegal attribute transition (real to demo mode).
	InvalidArguments ResultCode = 5

	// ModemTimeout indicates the modem did not answer within the configured deadline.
	ModemTimeout ResultCode = 6

	// ModemError indicates the modem rejected or failed the command.
	ModemError ResultCode = 7

	// Aborted indicates the request was superseded by a higher-priority request.
	Aborted ResultCode = 8

	// NotSupported indicates the satellite feature is not supported.
	NotSupported ResultCode = 9

	// NotProvisioned indicates the device is not provisioned for satellite service.
	NotProvisioned ResultCode = 10

	// NoResources indicates an internal resource (e.g. datagram ids) is exhausted.
	NoResources ResultCode = 11
)

// String returns the result code name.
func (c ResultCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case InvalidModemState:
		return "INVALID_MODEM_STATE"
	case EmergencyCallInProgress:
		return "EMERGENCY_CALL_IN_PROGRESS"
	case DisableInProgress:
		return "DISABLE_IN_PROGRESS"
	case RequestInProgress:
		return "REQUEST_IN_PROGRESS"
	case InvalidArguments:
		return "INVALID_ARGUMENTS"
	case ModemTimeout:
		return "MODEM_TIMEOUT"
	case ModemError:
		return "MODEM_ERROR"
	case Aborted:
		return "ABORTED"
	case NotSupported:
		return "NOT_SUPPORTED"
	case NotProvisioned:
		return "NOT_PROVISIONED"
	case NoResources:
		return "NO_RESOURCES"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess reports whether the code is Success.
func (c ResultCode) IsSuccess() bool {
	return c == Success
}

// Err converts the code into an error. Success yields nil.
func (c ResultCode) Err() error {
	if c == Success {
		return nil
	}
	return &ResultError{Code: c}
}

// ResultError carries a non-success ResultCode as an error value.
type ResultError struct {
	Code ResultCode
}

// Error implements the error interface.
func (e *ResultError) Error() string {
	return fmt.Sprintf("satellite request failed: %s", e.Code)
}

// Is matches another *ResultError with the same code, so callers can use
// errors.Is(err, satellite.ModemTimeout.Err()).
func (e *ResultError) Is(target error) bool {
	t, ok := target.(*ResultError)
	return ok && t.Code == e.Code
}
