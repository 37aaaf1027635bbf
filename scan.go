package wext

import (
	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/wext/internal/wireless"
)

// scanTimeoutName names the fallback scan completion timeout.
const scanTimeoutName = "scan-timeout"

// iw_scan_req layout.
const (
	scanReqBSSIDOffset    = 4
	scanReqESSIDOffset    = 20
	scanReqChannelsOffset = scanReqESSIDOffset + wireless.IW_ESSID_MAX_SIZE + 8
	scanReqLen            = scanReqChannelsOffset + wireless.IW_MAX_FREQUENCIES*8

	arphrdEther = 1
)

// Scan requests a scan, optionally limited to one SSID and one channel. It
// fails only if the SSID is too long: a failed request is logged and the
// scan timeout still reports completion to the supplicant.
func (d *Driver) Scan(p ScanParams) error {
	if len(p.SSID) > MaxSSIDLen {
		d.log.Debugf("too long SSID (%d)", len(p.SSID))
		return ErrSSIDTooLong
	}

	req, flags := encodeScanRequest(p)
	if err := d.t.Scan(d.name, req, flags); err != nil {
		d.log.WithError(err).Error("scan request failed")
	}

	d.armScanTimeout()
	return nil
}

// encodeScanRequest encodes an iw_scan_req for p. It returns nil if p does
// not restrict the scan.
func encodeScanRequest(p ScanParams) ([]byte, uint16) {
	if len(p.SSID) == 0 && p.Channel == 0 {
		return nil, wireless.IW_SCAN_DEFAULT
	}

	b := make([]byte, scanReqLen)
	b[0] = wireless.IW_SCAN_TYPE_ACTIVE

	// Broadcast BSSID.
	nlenc.NativeEndian().PutUint16(b[scanReqBSSIDOffset:], arphrdEther)
	for i := 0; i < 6; i++ {
		b[scanReqBSSIDOffset+2+i] = 0xff
	}

	var flags uint16
	if len(p.SSID) > 0 {
		b[1] = byte(len(p.SSID))
		copy(b[scanReqESSIDOffset:], p.SSID)
		flags |= wireless.IW_SCAN_THIS_ESSID
	}

	if p.Channel != 0 {
		// One iw_freq with exponent 0: a mantissa below 1000 is a channel
		// number.
		b[2] = 1
		nlenc.NativeEndian().PutUint32(b[scanReqChannelsOffset:], uint32(int32(p.Channel)))
		flags |= wireless.IW_SCAN_THIS_FREQ
	}

	return b, flags
}

func (d *Driver) scanTimeoutID() TimeoutID {
	return TimeoutID{Name: scanTimeoutName, Interface: d.name}
}

// armScanTimeout replaces any pending scan timeout so that the supplicant
// learns of scan completion even if the driver never reports it.
func (d *Driver) armScanTimeout() {
	timeout := scanTimeout
	if d.scanCompleteEvents {
		timeout = scanTimeoutWithEvents
	}

	d.log.Debugf("scan requested, scan timeout %s", timeout)

	id := d.scanTimeoutID()
	d.timeouts.CancelTimeout(id)
	d.timeouts.RegisterTimeout(timeout, id, d.scanTimedOut)
}

func (d *Driver) scanTimedOut() {
	d.log.Debug("scan timeout, assuming scan completed")
	if d.sup != nil {
		d.sup.ScanCompleted()
	}
}
