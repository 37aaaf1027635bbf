package wext

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewDriverErrors(t *testing.T) {
	ok := Config{
		Transport: &fakeTransport{},
		Admin:     &fakeAdmin{},
		Timeouts:  newFakeTimeouts(),
	}

	tests := []struct {
		name   string
		ifname string
		cfg    func(cfg Config) Config
	}{
		{
			name:   "no interface",
			ifname: "",
			cfg:    func(cfg Config) Config { return cfg },
		},
		{
			name:   "no transport",
			ifname: "wlan0",
			cfg: func(cfg Config) Config {
				cfg.Transport = nil
				return cfg
			},
		},
		{
			name:   "no admin",
			ifname: "wlan0",
			cfg: func(cfg Config) Config {
				cfg.Admin = nil
				return cfg
			},
		},
		{
			name:   "no timeouts",
			ifname: "wlan0",
			cfg: func(cfg Config) Config {
				cfg.Timeouts = nil
				return cfg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDriver(tt.ifname, tt.cfg(ok)); err == nil {
				t.Fatal("expected an error, but none occurred")
			}
		})
	}
}

func TestDriverCommandNotStarted(t *testing.T) {
	d, ft, _, _, _ := testDriver(t)

	for _, cmd := range []string{"STOP", "RSSI", "CSCAN 6", "BGSCAN-START", "RELOAD", "start-now"} {
		n, err := d.Command(cmd, make([]byte, 64))
		if !errors.Is(err, ErrNotStarted) {
			t.Fatalf("%q: unexpected error:\n- want: %v\n-  got: %v",
				cmd, ErrNotStarted, err)
		}
		if n != 0 {
			t.Fatalf("%q: unexpected length: %d", cmd, n)
		}
	}

	if len(ft.commands) != 0 {
		t.Fatalf("unexpected private commands: %q", ft.commands)
	}
}

func TestDriverCommandStartStop(t *testing.T) {
	d, ft, fa, _, _ := testDriver(t)

	n, err := d.Command("start", make([]byte, 64))
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if n != 0 {
		t.Fatalf("unexpected START length: %d", n)
	}
	if !d.Started() {
		t.Fatal("driver should be started")
	}

	if _, err := d.Command("STOP", make([]byte, 64)); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if d.Started() {
		t.Fatal("driver should be stopped")
	}

	if diff := cmp.Diff([]string{"start", "STOP"}, ft.commands); diff != "" {
		t.Fatalf("unexpected private commands (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, fa.states); diff != "" {
		t.Fatalf("unexpected interface states (-want +got):\n%s", diff)
	}

	if _, err := d.Command("RSSI", make([]byte, 64)); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("unexpected error after STOP:\n- want: %v\n-  got: %v",
			ErrNotStarted, err)
	}
}

func TestDriverCommandStartTransportFailure(t *testing.T) {
	d, ft, fa, _, _ := testDriver(t)
	ft.err = errors.New("operation not supported")

	if _, err := d.Command("START", make([]byte, 64)); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if !d.Started() {
		t.Fatal("driver should be started")
	}
	if diff := cmp.Diff([]bool{true}, fa.states); diff != "" {
		t.Fatalf("unexpected interface states (-want +got):\n%s", diff)
	}
}

func TestDriverCommandQuery(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		response string
		wire     string
		want     int
	}{
		{
			name:     "RSSI approximation",
			cmd:      "RSSI-APPROX",
			response: "-45",
			wire:     "RSSI",
			want:     3,
		},
		{
			name:     "RSSI",
			cmd:      "rssi",
			response: "home rssi -52",
			wire:     "rssi",
			want:     13,
		},
		{
			name:     "link speed",
			cmd:      "LINKSPEED",
			response: "LinkSpeed 54",
			wire:     "LINKSPEED",
			want:     12,
		},
		{
			name:     "MAC address",
			cmd:      "MACADDR",
			response: "Macaddr = 02:00:00:00:00:01",
			wire:     "MACADDR",
			want:     27,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft, _, _, _ := testDriver(t)
			mustStart(t, d)
			ft.response = tt.response

			b := make([]byte, 64)
			n, err := d.Command(tt.cmd, b)
			if err != nil {
				t.Fatalf("failed to issue command: %v", err)
			}

			if tt.want != n {
				t.Fatalf("unexpected response length:\n- want: %d\n-  got: %d",
					tt.want, n)
			}
			if want, got := tt.response, string(b[:n]); want != got {
				t.Fatalf("unexpected response:\n- want: %q\n-  got: %q", want, got)
			}
			if want, got := tt.wire, ft.last(); want != got {
				t.Fatalf("unexpected wire command:\n- want: %q\n-  got: %q", want, got)
			}
			if want, got := len(b), ft.lengths[len(ft.lengths)-1]; want != got {
				t.Fatalf("unexpected payload length:\n- want: %d\n-  got: %d", want, got)
			}
		})
	}
}

func TestDriverCommandRewrites(t *testing.T) {
	tests := []struct {
		cmd  string
		wire string
	}{
		{cmd: "SCAN-CHANNELS 13", wire: "COUNTRY EU"},
		{cmd: "scan-channels 14", wire: "COUNTRY JP"},
		{cmd: "SCAN-CHANNELS 11", wire: "COUNTRY US"},
		{cmd: "SCAN-CHANNELS", wire: "COUNTRY US"},
		{cmd: "BGSCAN-STOP", wire: "PNOFORCE 0"},
		{cmd: "POWERMODE 1", wire: "POWERMODE 1"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			d, ft, _, _, _ := testDriver(t)
			mustStart(t, d)

			n, err := d.Command(tt.cmd, make([]byte, 64))
			if err != nil {
				t.Fatalf("failed to issue command: %v", err)
			}
			if n != 0 {
				t.Fatalf("unexpected length: %d", n)
			}

			if want, got := tt.wire, ft.last(); want != got {
				t.Fatalf("unexpected wire command:\n- want: %q\n-  got: %q", want, got)
			}
		})
	}
}

func TestDriverCommandReload(t *testing.T) {
	d, ft, _, _, fs := testDriver(t)
	mustStart(t, d)

	n, err := d.Command("RELOAD", make([]byte, 64))
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if n != 0 {
		t.Fatalf("unexpected length: %d", n)
	}

	if diff := cmp.Diff([]string{EventDriverHanged}, fs.notifications); diff != "" {
		t.Fatalf("unexpected notifications (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"START"}, ft.commands); diff != "" {
		t.Fatalf("unexpected private commands (-want +got):\n%s", diff)
	}
}

func TestDriverCommandBackgroundScan(t *testing.T) {
	d, ft, _, _, fs := testDriver(t)
	mustStart(t, d)
	fs.config = &NetworkConfig{
		Profiles: []Profile{
			{SSID: []byte("home")},
			{SSID: []byte("work"), Disabled: true},
		},
	}

	if _, err := d.Command("BGSCAN-START", make([]byte, 64)); err != nil {
		t.Fatalf("failed to start background scan: %v", err)
	}
	if !d.BackgroundScan() {
		t.Fatal("background scan should be enabled")
	}

	if _, err := d.Command("BGSCAN-STOP", make([]byte, 64)); err != nil {
		t.Fatalf("failed to stop background scan: %v", err)
	}
	if d.BackgroundScan() {
		t.Fatal("background scan should be disabled")
	}

	want := []string{
		"START",
		"PNOSETUP S120S\x04homeT1eR4M3",
		"PNOFORCE 1",
		"PNOFORCE 0",
	}
	if diff := cmp.Diff(want, ft.commands); diff != "" {
		t.Fatalf("unexpected private commands (-want +got):\n%s", diff)
	}
	if want, got := len("PNOSETUP S120S\x04homeT1eR4M3\x00"), ft.lengths[1]; want != got {
		t.Fatalf("unexpected PNOSETUP length:\n- want: %d\n-  got: %d", want, got)
	}
}

func TestDriverCommandBackgroundScanErrors(t *testing.T) {
	t.Run("no supplicant", func(t *testing.T) {
		d, err := NewDriver("wlan0", Config{
			Transport: &fakeTransport{},
			Admin:     &fakeAdmin{},
			Timeouts:  newFakeTimeouts(),
		})
		if err != nil {
			t.Fatalf("failed to create driver: %v", err)
		}
		mustStart(t, d)

		if _, err := d.Command("BGSCAN-START", make([]byte, 64)); !errors.Is(err, ErrNoSupplicant) {
			t.Fatalf("unexpected error:\n- want: %v\n-  got: %v", ErrNoSupplicant, err)
		}
	})

	t.Run("no network configuration", func(t *testing.T) {
		d, _, _, _, _ := testDriver(t)
		mustStart(t, d)

		if _, err := d.Command("BGSCAN-START", make([]byte, 64)); !errors.Is(err, ErrNoNetworkConfig) {
			t.Fatalf("unexpected error:\n- want: %v\n-  got: %v", ErrNoNetworkConfig, err)
		}
		if d.BackgroundScan() {
			t.Fatal("background scan should not be enabled")
		}
	})
}

func TestDriverBackgroundScanHealth(t *testing.T) {
	d, ft, _, _, fs := testDriver(t)
	mustStart(t, d)
	fs.config = &NetworkConfig{Profiles: []Profile{{SSID: []byte("home")}}}

	errPNO := errors.New("no such device")
	ft.pnoErr = errPNO

	fail := func(i int) {
		t.Helper()

		_, err := d.Command("BGSCAN-START", make([]byte, 64))
		if !errors.Is(err, errPNO) {
			t.Fatalf("attempt %d: unexpected error:\n- want: %v\n-  got: %v",
				i, errPNO, err)
		}
	}

	for i := 1; i <= maxSequentialErrors; i++ {
		fail(i)
	}
	if len(fs.notifications) != 0 {
		t.Fatalf("unexpected notifications after %d failures: %q",
			maxSequentialErrors, fs.notifications)
	}

	fail(maxSequentialErrors + 1)
	if diff := cmp.Diff([]string{EventDriverHanged}, fs.notifications); diff != "" {
		t.Fatalf("unexpected notifications (-want +got):\n%s", diff)
	}
	if want, got := 0, d.health.errors; want != got {
		t.Fatalf("unexpected error count:\n- want: %d\n-  got: %d", want, got)
	}

	// The counter restarted, so the next report needs another full run.
	for i := 1; i <= maxSequentialErrors; i++ {
		fail(i)
	}
	if want, got := 1, len(fs.notifications); want != got {
		t.Fatalf("unexpected notification count:\n- want: %d\n-  got: %d", want, got)
	}

	// Any successful command resets the count.
	if _, err := d.Command("RSSI", make([]byte, 64)); err != nil {
		t.Fatalf("failed to issue command: %v", err)
	}
	if want, got := 0, d.health.errors; want != got {
		t.Fatalf("unexpected error count after success:\n- want: %d\n-  got: %d", want, got)
	}
	if d.BackgroundScan() {
		t.Fatal("background scan should not be enabled")
	}
}

func TestDriverCommandChannelScan(t *testing.T) {
	d, ft, _, to, fs := testDriver(t)
	mustStart(t, d)

	n, err := d.Command("CSCAN 6,TIME=600", make([]byte, 256))
	if err != nil {
		t.Fatalf("failed to issue channel scan: %v", err)
	}
	if n != 0 {
		t.Fatalf("unexpected length: %d", n)
	}

	want := cscanBytes(
		[]byte{'C', 6, 'C', 6, 'C', 6},
		[]byte{'P', 0xfa, 0x00},
	)
	if diff := cmp.Diff(want, ft.payloads[len(ft.payloads)-1]); diff != "" {
		t.Fatalf("unexpected CSCAN payload (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]bool{true}, fs.scanning); diff != "" {
		t.Fatalf("unexpected scanning notifications (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[TimeoutID]time.Duration{d.scanTimeoutID(): scanTimeout}, to.active); diff != "" {
		t.Fatalf("unexpected timeouts (-want +got):\n%s", diff)
	}
}

func TestDriverCommandChannelScanDropped(t *testing.T) {
	tests := []struct {
		name     string
		scanning bool
		state    State
	}{
		{name: "scanning", scanning: true, state: StateDisconnected},
		{name: "authenticating", state: StateAuthenticating},
		{name: "associating", state: StateAssociating},
		{name: "associated", state: StateAssociated},
		{name: "4-way handshake", state: StateFourWayHandshake},
		{name: "group handshake", state: StateGroupHandshake},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ft, _, to, fs := testDriver(t)
			mustStart(t, d)
			fs.isScanning = tt.scanning
			fs.state = tt.state

			n, err := d.Command("CSCAN 6", make([]byte, 256))
			if err != nil {
				t.Fatalf("failed to issue channel scan: %v", err)
			}
			if n != 0 {
				t.Fatalf("unexpected length: %d", n)
			}

			if diff := cmp.Diff([]string{"START"}, ft.commands); diff != "" {
				t.Fatalf("unexpected private commands (-want +got):\n%s", diff)
			}
			if len(fs.scanning) != 0 || len(to.active) != 0 {
				t.Fatal("dropped channel scan should not start a scan")
			}
		})
	}
}

func TestDriverCommandChannelScanIdleStates(t *testing.T) {
	for _, s := range []State{StateDisconnected, StateInterfaceDisabled, StateInactive, StateScanning, StateCompleted} {
		t.Run(s.String(), func(t *testing.T) {
			d, ft, _, _, fs := testDriver(t)
			mustStart(t, d)
			fs.state = s

			if _, err := d.Command("CSCAN", make([]byte, 256)); err != nil {
				t.Fatalf("failed to issue channel scan: %v", err)
			}
			if want, got := 2, len(ft.payloads); want != got {
				t.Fatalf("unexpected private command count:\n- want: %d\n-  got: %d", want, got)
			}
		})
	}
}

func TestDriverCommandBufferTooSmall(t *testing.T) {
	for _, cmd := range []string{"CSCAN 6", "COUNTRY US", "RSSI-APPROX"} {
		t.Run(cmd, func(t *testing.T) {
			d, ft, _, _, _ := testDriver(t)
			mustStart(t, d)

			_, err := d.Command(cmd, make([]byte, 4))
			if !errors.Is(err, ErrBufferTooSmall) {
				t.Fatalf("unexpected error:\n- want: %v\n-  got: %v",
					ErrBufferTooSmall, err)
			}
			if want, got := 1, len(ft.payloads); want != got {
				t.Fatalf("unexpected private command count:\n- want: %d\n-  got: %d", want, got)
			}
		})
	}
}

func TestDriverCommandTransportFailureIgnored(t *testing.T) {
	d, ft, _, _, _ := testDriver(t)
	mustStart(t, d)
	ft.err = errors.New("operation not supported")
	d.health.errors = 3

	n, err := d.Command("SETSUSPENDOPT 1", make([]byte, 64))
	if err != nil {
		t.Fatalf("failed to issue command: %v", err)
	}
	if n != 0 {
		t.Fatalf("unexpected length: %d", n)
	}
	if want, got := 0, d.health.errors; want != got {
		t.Fatalf("unexpected error count:\n- want: %d\n-  got: %d", want, got)
	}
}

func TestDriverSignal(t *testing.T) {
	t.Run("placeholder", func(t *testing.T) {
		d, _, _, _, _ := testDriver(t)

		info, err := d.Signal()
		if err != nil {
			t.Fatalf("failed to get signal: %v", err)
		}

		want := SignalInfo{Signal: -60, TransmitRate: 150000}
		if diff := cmp.Diff(want, info); diff != "" {
			t.Fatalf("unexpected signal info (-want +got):\n%s", diff)
		}
	})

	t.Run("source", func(t *testing.T) {
		want := SignalInfo{Signal: -42, TransmitRate: 866700}

		d, err := NewDriver("wlan0", Config{
			Transport: &fakeTransport{},
			Admin:     &fakeAdmin{},
			Timeouts:  newFakeTimeouts(),
			Signal: signalFunc(func(ifname string) (SignalInfo, error) {
				if ifname != "wlan0" {
					t.Fatalf("unexpected interface: %q", ifname)
				}
				return want, nil
			}),
		})
		if err != nil {
			t.Fatalf("failed to create driver: %v", err)
		}

		info, err := d.Signal()
		if err != nil {
			t.Fatalf("failed to get signal: %v", err)
		}
		if diff := cmp.Diff(want, info); diff != "" {
			t.Fatalf("unexpected signal info (-want +got):\n%s", diff)
		}
	})
}

func Test_responseLen(t *testing.T) {
	tests := []struct {
		b    []byte
		want int
	}{
		{b: nil, want: 0},
		{b: []byte{0, 'a'}, want: 0},
		{b: []byte("-45\x00\x00"), want: 3},
		{b: []byte("unterminated"), want: 12},
	}

	for _, tt := range tests {
		if got := responseLen(tt.b); tt.want != got {
			t.Fatalf("%q: unexpected length:\n- want: %d\n-  got: %d", tt.b, tt.want, got)
		}
	}
}

func testDriver(t *testing.T) (*Driver, *fakeTransport, *fakeAdmin, *fakeTimeouts, *fakeSupplicant) {
	t.Helper()

	var (
		ft = &fakeTransport{}
		fa = &fakeAdmin{}
		to = newFakeTimeouts()
		fs = &fakeSupplicant{}
	)

	d, err := NewDriver("wlan0", Config{
		Transport:  ft,
		Admin:      fa,
		Timeouts:   to,
		Supplicant: fs,
	})
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	return d, ft, fa, to, fs
}

func mustStart(t *testing.T, d *Driver) {
	t.Helper()

	if _, err := d.Command("START", make([]byte, 64)); err != nil {
		t.Fatalf("failed to start driver: %v", err)
	}
}

var _ Transport = &fakeTransport{}

type fakeTransport struct {
	// Requests issued so far.
	commands []string
	payloads [][]byte
	lengths  []int
	scans    []fakeScan

	// Optional response written back for private commands.
	response string

	err    error
	pnoErr error
}

type fakeScan struct {
	Request []byte
	Flags   uint16
}

func (ft *fakeTransport) PrivateCommand(ifname string, b []byte, n int) error {
	p := make([]byte, n)
	copy(p, b[:n])

	cmd := p
	if i := bytes.IndexByte(cmd, 0); i != -1 {
		cmd = cmd[:i]
	}

	ft.commands = append(ft.commands, string(cmd))
	ft.payloads = append(ft.payloads, p)
	ft.lengths = append(ft.lengths, n)

	if ft.pnoErr != nil && bytes.HasPrefix(cmd, []byte("PNOSETUP")) {
		return ft.pnoErr
	}
	if ft.err != nil {
		return ft.err
	}

	if ft.response != "" {
		n := copy(b, ft.response)
		if n < len(b) {
			b[n] = 0
		}
	}

	return nil
}

func (ft *fakeTransport) Scan(ifname string, req []byte, flags uint16) error {
	ft.scans = append(ft.scans, fakeScan{Request: req, Flags: flags})
	return ft.err
}

func (ft *fakeTransport) last() string {
	if len(ft.commands) == 0 {
		return ""
	}
	return ft.commands[len(ft.commands)-1]
}

var _ InterfaceAdmin = &fakeAdmin{}

type fakeAdmin struct {
	states []bool
}

func (fa *fakeAdmin) SetInterfaceUp(_ string, up bool) error {
	fa.states = append(fa.states, up)
	return nil
}

var _ Timeouts = &fakeTimeouts{}

// fakeTimeouts records timeout registrations and fires them on demand.
type fakeTimeouts struct {
	events []string
	active map[TimeoutID]time.Duration
	funcs  map[TimeoutID]func()
}

func newFakeTimeouts() *fakeTimeouts {
	return &fakeTimeouts{
		active: make(map[TimeoutID]time.Duration),
		funcs:  make(map[TimeoutID]func()),
	}
}

func (to *fakeTimeouts) RegisterTimeout(d time.Duration, id TimeoutID, fn func()) {
	to.events = append(to.events, "register "+id.Name+" "+d.String())
	to.active[id] = d
	to.funcs[id] = fn
}

func (to *fakeTimeouts) CancelTimeout(id TimeoutID) int {
	to.events = append(to.events, "cancel "+id.Name)
	if _, ok := to.active[id]; !ok {
		return 0
	}

	delete(to.active, id)
	delete(to.funcs, id)
	return 1
}

func (to *fakeTimeouts) fire(id TimeoutID) bool {
	fn, ok := to.funcs[id]
	if !ok {
		return false
	}

	delete(to.active, id)
	delete(to.funcs, id)
	fn()
	return true
}

var (
	_ Supplicant = &fakeSupplicant{}
	_ Notifier   = &fakeSupplicant{}
)

type fakeSupplicant struct {
	state      State
	isScanning bool
	config     *NetworkConfig

	scanning      []bool
	completed     int
	notifications []string
}

func (fs *fakeSupplicant) State() State                  { return fs.state }
func (fs *fakeSupplicant) Scanning() bool                { return fs.isScanning }
func (fs *fakeSupplicant) NotifyScanning(scanning bool)  { fs.scanning = append(fs.scanning, scanning) }
func (fs *fakeSupplicant) NetworkConfig() *NetworkConfig { return fs.config }
func (fs *fakeSupplicant) ScanCompleted()                { fs.completed++ }

func (fs *fakeSupplicant) Notify(_ Severity, msg string) {
	fs.notifications = append(fs.notifications, msg)
}

type signalFunc func(ifname string) (SignalInfo, error)

func (fn signalFunc) Signal(ifname string) (SignalInfo, error) { return fn(ifname) }
