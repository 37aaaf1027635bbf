package wext

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotStarted is returned when a command other than START is issued
	// before the driver has been started.
	ErrNotStarted = errors.New("driver not started")

	// ErrSSIDTooLong is returned when an SSID exceeds 32 bytes.
	ErrSSIDTooLong = errors.New("SSID too long")

	// ErrBufferTooSmall is returned when an encoded command would not fit
	// in the caller's buffer.
	ErrBufferTooSmall = errors.New("buffer too small for command")

	// ErrNoSupplicant is returned when an operation needs the owning
	// supplicant but the Driver has none.
	ErrNoSupplicant = errors.New("no supplicant attached to driver")

	// ErrNoNetworkConfig is returned when background scan setup finds no
	// network configuration on the supplicant.
	ErrNoNetworkConfig = errors.New("supplicant has no network configuration")
)

// MaxSSIDLen is the maximum length of an SSID in bytes.
const MaxSSIDLen = 32

// A State is the connection state of the owning supplicant, ordered the same
// way as wpa_supplicant's wpa_states.
type State int

// Possible State values.
const (
	StateDisconnected State = iota
	StateInterfaceDisabled
	StateInactive
	StateScanning
	StateAuthenticating
	StateAssociating
	StateAssociated
	StateFourWayHandshake
	StateGroupHandshake
	StateCompleted
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateInterfaceDisabled:
		return "interface disabled"
	case StateInactive:
		return "inactive"
	case StateScanning:
		return "scanning"
	case StateAuthenticating:
		return "authenticating"
	case StateAssociating:
		return "associating"
	case StateAssociated:
		return "associated"
	case StateFourWayHandshake:
		return "4-way handshake"
	case StateGroupHandshake:
		return "group handshake"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// idle reports whether a scan may be started in State s: anything up to and
// including scanning, or an established connection.
func (s State) idle() bool {
	return s <= StateScanning || s >= StateCompleted
}

// A Severity is the level attached to a supplicant notification.
type Severity int

// Possible Severity values.
const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// String returns the string representation of a Severity.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// EventDriverHanged is the notification emitted when the driver is
// considered hung.
const EventDriverHanged = "CTRL-EVENT-DRIVER-STATE HANGED"

// A Profile is a configured network, as read from the supplicant's
// configuration.
type Profile struct {
	// The network's SSID.
	SSID []byte

	// Disabled profiles are never offered to the driver.
	Disabled bool
}

// NetworkConfig is the supplicant's network configuration.
type NetworkConfig struct {
	// Configured networks, in priority order.
	Profiles []Profile
}

// ScanParams are the parameters of a scan request.
type ScanParams struct {
	// An optional SSID to scan for. Empty means all SSIDs.
	SSID []byte

	// An optional channel to restrict the scan to. Zero means all channels.
	Channel int
}

// SignalInfo contains the current link quality of an interface.
type SignalInfo struct {
	// The signal strength, in dBm.
	Signal int

	// The current transmit bitrate, in kbit/s.
	TransmitRate int
}

// Placeholder values reported by Driver.Signal when no SignalSource is
// configured. These are not measurements.
const (
	placeholderSignal       = -60
	placeholderTransmitRate = 150 * 1000
)

// Scan timeout durations.
const (
	// Used until the driver has been seen reporting scan completion itself.
	// Scans over both A and B bands can take this long.
	scanTimeout = 10 * time.Second

	// Used once the driver reports scan completion, to avoid racing the
	// driver's own event with a following association request.
	scanTimeoutWithEvents = 30 * time.Second
)
