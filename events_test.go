package wext

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/wext/internal/wireless"
)

func Test_parseWirelessEvents(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		evs  []WirelessEvent
		ok   bool
	}{
		{
			name: "empty",
			ok:   true,
		},
		{
			name: "short header",
			b:    []byte{0x04, 0x00, 0x19},
		},
		{
			name: "length too short",
			b:    iwEvent(0x0002, wireless.SIOCGIWSCAN, nil),
		},
		{
			name: "length too long",
			b:    iwEvent(0x0010, wireless.SIOCGIWSCAN, []byte{1, 2, 3, 4}),
		},
		{
			name: "scan complete",
			b:    iwEvent(0, wireless.SIOCGIWSCAN, nil),
			evs: []WirelessEvent{{
				Command: wireless.SIOCGIWSCAN,
				Data:    []byte{},
			}},
			ok: true,
		},
		{
			name: "multiple",
			b: append(
				iwEvent(0, wireless.IWEVCUSTOM, []byte("hello")),
				iwEvent(0, wireless.SIOCGIWAP, []byte{0x01, 0x00, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad})...,
			),
			evs: []WirelessEvent{
				{
					Command: wireless.IWEVCUSTOM,
					Data:    []byte("hello"),
				},
				{
					Command: wireless.SIOCGIWAP,
					Data:    []byte{0x01, 0x00, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad},
				},
			},
			ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs, err := parseWirelessEvents(tt.b)
			if tt.ok && err != nil {
				t.Fatalf("failed to parse events: %v", err)
			}
			if !tt.ok {
				if err != errInvalidEvent {
					t.Fatalf("unexpected error:\n- want: %v\n-  got: %v",
						errInvalidEvent, err)
				}
				return
			}

			if diff := cmp.Diff(tt.evs, evs); diff != "" {
				t.Fatalf("unexpected events (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWirelessEventString(t *testing.T) {
	tests := []struct {
		c    uint16
		want string
	}{
		{c: wireless.SIOCGIWSCAN, want: "scan complete"},
		{c: wireless.SIOCGIWAP, want: "access point changed"},
		{c: wireless.IWEVCUSTOM, want: "custom"},
		{c: wireless.IWEVQUAL, want: "unknown(0x8c01)"},
	}

	for _, tt := range tests {
		if got := (WirelessEvent{Command: tt.c}).String(); tt.want != got {
			t.Fatalf("unexpected string:\n- want: %q\n-  got: %q", tt.want, got)
		}
	}
}

func TestDriverHandleWirelessEventScanComplete(t *testing.T) {
	d, _, _, to, fs := testDriver(t)

	if err := d.Scan(ScanParams{}); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	if want, got := scanTimeout, to.active[d.scanTimeoutID()]; want != got {
		t.Fatalf("unexpected scan timeout:\n- want: %s\n-  got: %s", want, got)
	}

	d.HandleWirelessEvent(WirelessEvent{Command: wireless.SIOCGIWSCAN})

	if len(to.active) != 0 {
		t.Fatalf("scan timeout should be canceled: %v", to.active)
	}
	if want, got := 1, fs.completed; want != got {
		t.Fatalf("unexpected scan completions:\n- want: %d\n-  got: %d", want, got)
	}

	// Later scans trust the driver's own events.
	if err := d.Scan(ScanParams{}); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	want := map[TimeoutID]time.Duration{d.scanTimeoutID(): scanTimeoutWithEvents}
	if diff := cmp.Diff(want, to.active); diff != "" {
		t.Fatalf("unexpected timeouts (-want +got):\n%s", diff)
	}
}

func TestDriverHandleWirelessEventIgnored(t *testing.T) {
	d, _, _, to, fs := testDriver(t)

	if err := d.Scan(ScanParams{}); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	d.HandleWirelessEvent(WirelessEvent{Command: wireless.IWEVCUSTOM, Data: []byte("x")})

	if want, got := 1, len(to.active); want != got {
		t.Fatalf("unexpected active timeouts:\n- want: %d\n-  got: %d", want, got)
	}
	if fs.completed != 0 {
		t.Fatalf("unexpected scan completions: %d", fs.completed)
	}
	if d.scanCompleteEvents {
		t.Fatal("driver should not report scan completion events")
	}
}

// iwEvent encodes an iw_event. A zero length is computed from data.
func iwEvent(length, cmd uint16, data []byte) []byte {
	if length == 0 {
		length = uint16(wireless.IW_EV_LCP_LEN + len(data))
	}

	b := make([]byte, wireless.IW_EV_LCP_LEN+len(data))
	nlenc.NativeEndian().PutUint16(b[0:2], length)
	nlenc.NativeEndian().PutUint16(b[2:4], cmd)
	copy(b[wireless.IW_EV_LCP_LEN:], data)
	return b
}
