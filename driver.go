package wext

import (
	"bytes"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Transport issues wireless-extension requests to the kernel.
type Transport interface {
	// PrivateCommand issues a private command with the first n bytes of b as
	// its payload. The driver may write a response into b.
	PrivateCommand(ifname string, b []byte, n int) error

	// Scan requests a scan, with req as an optional iw_scan_req and flags as
	// the IW_SCAN_* request flags.
	Scan(ifname string, req []byte, flags uint16) error
}

// An InterfaceAdmin changes the administrative state of an interface.
type InterfaceAdmin interface {
	SetInterfaceUp(ifname string, up bool) error
}

// A TimeoutID identifies a timeout registration. At most one timeout is
// pending per TimeoutID.
type TimeoutID struct {
	Name      string
	Interface string
}

// Timeouts schedules one-shot timeouts.
type Timeouts interface {
	// RegisterTimeout arranges for fn to run after d, replacing any
	// pending timeout with the same id.
	RegisterTimeout(d time.Duration, id TimeoutID, fn func())

	// CancelTimeout cancels the pending timeout with id and returns the
	// number of timeouts removed.
	CancelTimeout(id TimeoutID) int
}

// A Notifier delivers notifications to the supplicant's control interface.
type Notifier interface {
	Notify(sev Severity, msg string)
}

// A Supplicant is the supplicant instance which owns a Driver.
type Supplicant interface {
	// State returns the current connection state.
	State() State

	// Scanning reports whether the supplicant considers a scan in progress.
	Scanning() bool

	// NotifyScanning informs the supplicant that a scan has started or
	// stopped.
	NotifyScanning(scanning bool)

	// NetworkConfig returns the network configuration, or nil if none is
	// loaded.
	NetworkConfig() *NetworkConfig

	// ScanCompleted is called when a scan has completed, or is assumed to
	// have completed because its timeout expired.
	ScanCompleted()
}

// A SignalSource reports link quality for an interface.
type SignalSource interface {
	Signal(ifname string) (SignalInfo, error)
}

// Config configures a Driver.
type Config struct {
	// Required collaborators.
	Transport Transport
	Admin     InterfaceAdmin
	Timeouts  Timeouts

	// The owning supplicant. Channel scans and background scan setup fail
	// without one.
	Supplicant Supplicant

	// Optional. If nil and Supplicant implements Notifier, Supplicant is
	// used; otherwise notifications are only logged.
	Notifier Notifier

	// Optional. If nil, Signal reports placeholder values.
	Signal SignalSource

	// Optional. If nil, log output is discarded.
	Logger logrus.FieldLogger

	// ScanCompleteEvents indicates that the driver is known to report scan
	// completion itself. It is also set once such an event is handled.
	ScanCompleteEvents bool
}

// A Driver translates driver commands for one wireless interface into
// wireless-extension private commands.
//
// A Driver is not safe for concurrent use; see Loop.
type Driver struct {
	name     string
	t        Transport
	admin    InterfaceAdmin
	timeouts Timeouts
	sup      Supplicant
	notifier Notifier
	signal   SignalSource
	log      logrus.FieldLogger

	started            bool
	backgroundScan     bool
	scanCompleteEvents bool
	health             health
}

// NewDriver creates a Driver for the named interface. The driver starts in
// the stopped state; issue START before any other command.
func NewDriver(ifname string, cfg Config) (*Driver, error) {
	switch {
	case ifname == "":
		return nil, errors.New("wext: interface name is required")
	case cfg.Transport == nil:
		return nil, errors.New("wext: transport is required")
	case cfg.Admin == nil:
		return nil, errors.New("wext: interface admin is required")
	case cfg.Timeouts == nil:
		return nil, errors.New("wext: timeouts are required")
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier, _ = cfg.Supplicant.(Notifier)
	}

	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}

	return &Driver{
		name:               ifname,
		t:                  cfg.Transport,
		admin:              cfg.Admin,
		timeouts:           cfg.Timeouts,
		sup:                cfg.Supplicant,
		notifier:           notifier,
		signal:             cfg.Signal,
		log:                log.WithField("ifname", ifname),
		scanCompleteEvents: cfg.ScanCompleteEvents,
	}, nil
}

// Name returns the interface name.
func (d *Driver) Name() string { return d.name }

// Started reports whether the driver has been started.
func (d *Driver) Started() bool { return d.started }

// BackgroundScan reports whether background scanning is enabled.
func (d *Driver) BackgroundScan() bool { return d.backgroundScan }

// Command issues the driver command text, using b as the command and
// response buffer. It returns the length of the response for query
// commands and 0 otherwise.
//
// This driver family reports failure for private commands it does not
// implement, so transport failures are logged and otherwise ignored. Only
// background scan setup reports transport failures to the caller.
func (d *Driver) Command(text string, b []byte) (int, error) {
	c := ParseCommand(text)
	log := d.log.WithField("cmd", text)
	log.Debugf("driver command (%s), buffer %d bytes", c.Kind, len(b))

	if !d.started && c.Kind != CommandStart {
		log.Error("driver not started")
		return 0, ErrNotStarted
	}

	switch c.Kind {
	case CommandStop:
		if err := d.admin.SetInterfaceUp(d.name, false); err != nil {
			log.WithError(err).Warn("failed to bring interface down")
		}
	case CommandReload:
		log.Debug("reload requested")
		d.notify(SeverityInfo, EventDriverHanged)
		return 0, nil
	case CommandBackgroundScanStart:
		if err := d.setupBackgroundScan(); err != nil {
			return 0, err
		}
		d.backgroundScan = true
	case CommandBackgroundScanStop:
		d.backgroundScan = false
	}

	var (
		n   int
		err error
	)
	if c.Kind == CommandChannelScan {
		if d.sup == nil {
			log.Error("channel scan requires a supplicant")
			return 0, ErrNoSupplicant
		}
		if d.sup.Scanning() || !d.sup.State().idle() {
			log.Errorf("scan already in progress in state %s, dropping request", d.sup.State())
			return 0, nil
		}

		n, err = encodeChannelScan(b, c)
	} else {
		n, err = putCommand(b, c.wire())
	}
	if err != nil {
		log.WithError(err).Error("failed to encode command")
		return 0, err
	}

	if err := d.t.PrivateCommand(d.name, b, n); err != nil {
		log.WithError(err).Debug("private command failed, ignoring")
	}
	d.health.succeed()

	var ret int
	switch {
	case c.query():
		ret = responseLen(b)
	case c.Kind == CommandStart:
		d.started = true
		if err := d.admin.SetInterfaceUp(d.name, true); err != nil {
			log.WithError(err).Warn("failed to bring interface up")
		}
	case c.Kind == CommandStop:
		d.started = false
	case c.Kind == CommandChannelScan:
		d.armScanTimeout()
		d.sup.NotifyScanning(true)
	}

	log.Debugf("driver command returned %d", ret)
	return ret, nil
}

// setupBackgroundScan sends the PNO setup command for the supplicant's
// enabled networks.
func (d *Driver) setupBackgroundScan() error {
	if d.sup == nil {
		d.log.Error("background scan setup requires a supplicant")
		return ErrNoSupplicant
	}

	cfg := d.sup.NetworkConfig()
	if cfg == nil {
		d.log.Error("background scan setup requires a network configuration")
		return ErrNoNetworkConfig
	}

	b := make([]byte, pnoMaxCommandSize)
	n, err := encodePNOSetup(b, cfg.Profiles)
	if err != nil {
		return err
	}

	if err := d.t.PrivateCommand(d.name, b, n); err != nil {
		d.log.WithError(err).Error("PNO setup failed")
		if d.health.fail() {
			d.notify(SeverityInfo, EventDriverHanged)
		}

		return errors.Wrap(err, "PNO setup")
	}

	d.health.succeed()
	return nil
}

// Signal returns the current link quality of the interface.
func (d *Driver) Signal() (SignalInfo, error) {
	if d.signal == nil {
		d.log.Debug("no signal source, reporting placeholder values")
		return SignalInfo{
			Signal:       placeholderSignal,
			TransmitRate: placeholderTransmitRate,
		}, nil
	}

	return d.signal.Signal(d.name)
}

func (d *Driver) notify(sev Severity, msg string) {
	d.log.WithField("severity", sev).Info(msg)
	if d.notifier != nil {
		d.notifier.Notify(sev, msg)
	}
}

// putCommand copies cmd and a terminating NUL into b and returns the
// payload length to send, which is the whole buffer so that the driver may
// write a response.
func putCommand(b []byte, cmd string) (int, error) {
	w := newWriter(b)
	w.writeString(cmd)
	w.writeByte(0)
	if err := w.Err(); err != nil {
		return 0, err
	}

	return len(b), nil
}

// responseLen returns the length of the NUL-terminated response in b.
func responseLen(b []byte) int {
	if i := bytes.IndexByte(b, 0); i != -1 {
		return i
	}

	return len(b)
}
