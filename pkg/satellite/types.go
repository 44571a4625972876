package satellite

import (
	"fmt"
	"strings"
)

// ModemState is the state reported asynchronously by the satellite modem.
type ModemState uint8

const (
	// ModemUnknown is the state before the first modem report.
	ModemUnknown ModemState = iota

	// ModemOff indicates the satellite modem is powered down.
	ModemOff

	// ModemEnablingSatellite indicates the modem is bringing the link up.
	ModemEnablingSatellite

	// ModemIdle indicates the link is up with no traffic.
	ModemIdle

	// ModemListening indicates the modem is listening for inbound datagrams.
	ModemListening

	// ModemDatagramTransferring indicates a datagram transfer is in progress.
	ModemDatagramTransferring

	// ModemDisablingSatellite indicates the modem is taking the link down.
	ModemDisablingSatellite

	// ModemUnavailable indicates the modem cannot be reached.
	ModemUnavailable
)

// String returns the modem state name.
func (s ModemState) String() string {
	switch s {
	case ModemUnknown:
		return "UNKNOWN"
	case ModemOff:
		return "OFF"
	case ModemEnablingSatellite:
		return "ENABLING"
	case ModemIdle:
		return "IDLE"
	case ModemListening:
		return "LISTENING"
	case ModemDatagramTransferring:
		return "TRANSFERRING"
	case ModemDisablingSatellite:
		return "DISABLING"
	case ModemUnavailable:
		return "UNAVAILABLE"
	default:
		return "INVALID"
	}
}

// IsActive reports whether the state means the satellite link is (being) used.
// Off, unavailable, unknown and disabling are not active.
func (s ModemState) IsActive() bool {
	switch s {
	case ModemEnablingSatellite, ModemIdle, ModemListening, ModemDatagramTransferring:
		return true
	default:
		return false
	}
}

// RadioKind identifies another radio that may have to be off while the
// satellite link is in use.
type RadioKind uint8

const (
	// RadioBluetooth is the Bluetooth radio.
	RadioBluetooth RadioKind = iota

	// RadioNFC is the NFC radio.
	RadioNFC

	// RadioUltraWideband is the UWB radio.
	RadioUltraWideband

	// RadioWiFi is the Wi-Fi radio.
	RadioWiFi
)

// AllRadioKinds lists every RadioKind in declaration order.
var AllRadioKinds = []RadioKind{RadioBluetooth, RadioNFC, RadioUltraWideband, RadioWiFi}

// String returns the radio name.
func (k RadioKind) String() string {
	switch k {
	case RadioBluetooth:
		return "bluetooth"
	case RadioNFC:
		return "nfc"
	case RadioUltraWideband:
		return "uwb"
	case RadioWiFi:
		return "wifi"
	default:
		return "unknown"
	}
}

// ParseRadioKind parses a radio name as produced by String. A few common
// aliases are accepted.
func ParseRadioKind(s string) (RadioKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bluetooth", "bt":
		return RadioBluetooth, nil
	case "nfc":
		return RadioNFC, nil
	case "uwb", "ultrawideband", "ultra-wideband":
		return RadioUltraWideband, nil
	case "wifi", "wi-fi", "wlan":
		return RadioWiFi, nil
	default:
		return 0, fmt.Errorf("unknown radio kind %q", s)
	}
}

// EnableAttributes are the attributes of an enable/disable request.
type EnableAttributes struct {
	// Enable requests the satellite link on (true) or off (false).
	Enable bool

	// DemoMode runs the link against a simulated network.
	DemoMode bool

	// Emergency marks the session as used for emergency messaging.
	Emergency bool
}

// String returns a compact description for logs.
func (a EnableAttributes) String() string {
	return fmt.Sprintf("enable=%t demo=%t emergency=%t", a.Enable, a.DemoMode, a.Emergency)
}

// Datagram is one inbound message received over the satellite link.
type Datagram struct {
	// ID is the durable dedup id assigned on receipt.
	ID uint64

	// Channel is the logical channel (e.g. subscription) it arrived on.
	Channel string

	// Payload is the raw message content.
	Payload []byte

	// PendingCount is the number of datagrams still queued at the modem.
	PendingCount int
}
