package wext

import (
	"fmt"

	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/wext/internal/wireless"
	"github.com/pkg/errors"
)

// errInvalidEvent is returned when a wireless event stream is malformed.
var errInvalidEvent = errors.New("invalid wireless event")

// A WirelessEvent is a wireless-extension event reported by the kernel.
type WirelessEvent struct {
	// The ioctl or IWEV* code which identifies the event.
	Command uint16

	// The event payload, without the length and command fields.
	Data []byte
}

// String returns the string representation of a WirelessEvent.
func (e WirelessEvent) String() string {
	switch e.Command {
	case wireless.SIOCGIWSCAN:
		return "scan complete"
	case wireless.SIOCGIWAP:
		return "access point changed"
	case wireless.IWEVCUSTOM:
		return "custom"
	default:
		return fmt.Sprintf("unknown(%#04x)", e.Command)
	}
}

// parseWirelessEvents parses the iw_event stream carried in an IFLA_WIRELESS
// attribute.
func parseWirelessEvents(b []byte) ([]WirelessEvent, error) {
	var evs []WirelessEvent
	for len(b) > 0 {
		if len(b) < wireless.IW_EV_LCP_LEN {
			return nil, errInvalidEvent
		}

		l := int(nlenc.NativeEndian().Uint16(b[0:2]))
		if l < wireless.IW_EV_LCP_LEN || l > len(b) {
			return nil, errInvalidEvent
		}

		evs = append(evs, WirelessEvent{
			Command: nlenc.NativeEndian().Uint16(b[2:4]),
			Data:    b[wireless.IW_EV_LCP_LEN:l],
		})
		b = b[l:]
	}

	return evs, nil
}

// HandleWirelessEvent processes a wireless event for the Driver's interface.
//
// A scan complete event shows that the driver reports scan completion itself,
// so later scans use the longer fallback timeout.
func (d *Driver) HandleWirelessEvent(ev WirelessEvent) {
	switch ev.Command {
	case wireless.SIOCGIWSCAN:
		if !d.scanCompleteEvents {
			d.log.Debug("driver reports scan completion events")
			d.scanCompleteEvents = true
		}

		d.timeouts.CancelTimeout(d.scanTimeoutID())
		if d.sup != nil {
			d.sup.ScanCompleted()
		}
	default:
		d.log.Debugf("ignoring wireless event: %s", ev)
	}
}
