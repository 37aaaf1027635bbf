//go:build linux
// +build linux

package wext

import (
	"context"
	"net"
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/wext/internal/wireless"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var _ osClient = &client{}

// Errors which may occur when interacting with the kernel.
var (
	errInvalidCommand       = errors.New("invalid generic netlink response command")
	errInvalidFamilyVersion = errors.New("invalid generic netlink response family version")
	errNoNL80211            = errors.New("nl80211 unavailable, cannot query signal")
	errInvalidLinkMessage   = errors.New("invalid rtnetlink link message")
	errInvalidStationInfo   = errors.New("invalid nl80211 station information")
)

// A client is the Linux implementation of osClient. Wireless-extension
// requests are ioctls on a datagram socket; signal queries use nl80211 over
// generic netlink when it is available.
type client struct {
	fd int

	// Nil if nl80211 is not available.
	c             *genetlink.Conn
	familyID      uint16
	familyVersion uint8
}

// newClient opens the ioctl socket and dials a generic netlink connection.
func newClient() (*client, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	c, err := genetlink.Dial(nil)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return initClient(fd, c)
}

func initClient(fd int, c *genetlink.Conn) (*client, error) {
	family, err := c.GetFamily(unix.NL80211_GENL_NAME)
	if err != nil {
		// Legacy wireless-extension drivers need not register with cfg80211,
		// so a missing nl80211 family only disables signal queries.
		_ = c.Close()
		if !errors.Is(err, os.ErrNotExist) {
			_ = unix.Close(fd)
			return nil, err
		}

		return &client{fd: fd}, nil
	}

	return &client{
		fd:            fd,
		c:             c,
		familyID:      family.ID,
		familyVersion: family.Version,
	}, nil
}

// Close closes the ioctl socket and the generic netlink connection.
func (c *client) Close() error {
	err := unix.Close(c.fd)
	if c.c != nil {
		if cerr := c.c.Close(); err == nil {
			err = cerr
		}
	}

	return err
}

// iwPoint is struct iw_point from linux/wireless.h.
type iwPoint struct {
	pointer unsafe.Pointer
	length  uint16
	flags   uint16
}

// iwreqDataSize is the size of union iwreq_data.
const iwreqDataSize = 16

// iwreq is struct iwreq from linux/wireless.h, with the iw_point member of
// the union.
type iwreq struct {
	name [unix.IFNAMSIZ]byte
	data iwPoint
	_    [iwreqDataSize - unsafe.Sizeof(iwPoint{})]byte
}

// PrivateCommand issues SIOCSIWPRIV with b as the command buffer.
func (c *client) PrivateCommand(ifname string, b []byte, n int) error {
	if n > len(b) {
		return errors.Errorf("private command length %d exceeds buffer of %d bytes", n, len(b))
	}

	return errors.Wrap(c.iwioctl(wireless.SIOCSIWPRIV, ifname, b, n, 0), "ioctl[SIOCSIWPRIV]")
}

// Scan issues SIOCSIWSCAN.
func (c *client) Scan(ifname string, req []byte, flags uint16) error {
	return errors.Wrap(c.iwioctl(wireless.SIOCSIWSCAN, ifname, req, len(req), flags), "ioctl[SIOCSIWSCAN]")
}

// iwioctl issues a wireless-extension ioctl whose argument is an iw_point
// referring to the first n bytes of b.
func (c *client) iwioctl(req uint, ifname string, b []byte, n int, flags uint16) error {
	if len(ifname) >= unix.IFNAMSIZ {
		return errors.Errorf("interface name %q too long", ifname)
	}
	if n > 0xffff {
		return errors.Errorf("ioctl payload of %d bytes too large", n)
	}

	var iwr iwreq
	copy(iwr.name[:], ifname)
	if len(b) > 0 {
		iwr.data.pointer = unsafe.Pointer(&b[0])
	}
	iwr.data.length = uint16(n)
	iwr.data.flags = flags

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(c.fd), uintptr(req), uintptr(unsafe.Pointer(&iwr)))
	runtime.KeepAlive(b)
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}

	return nil
}

// SetInterfaceUp sets or clears IFF_UP on an interface.
func (c *client) SetInterfaceUp(ifname string, up bool) error {
	ifr, err := unix.NewIfreq(ifname)
	if err != nil {
		return err
	}

	if err := unix.IoctlIfreq(c.fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return errors.Wrap(os.NewSyscallError("ioctl", err), "ioctl[SIOCGIFFLAGS]")
	}

	old := ifr.Uint16()
	flags := old
	if up {
		flags |= unix.IFF_UP
	} else {
		flags &^= unix.IFF_UP
	}
	if flags == old {
		return nil
	}

	ifr.SetUint16(flags)
	if err := unix.IoctlIfreq(c.fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return errors.Wrap(os.NewSyscallError("ioctl", err), "ioctl[SIOCSIFFLAGS]")
	}

	return nil
}

// Signal requests that nl80211 return station information for an
// interface, and reports the first station's signal and transmit rate.
func (c *client) Signal(ifname string) (SignalInfo, error) {
	if c.c == nil {
		return SignalInfo{}, errNoNL80211
	}

	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return SignalInfo{}, err
	}

	return c.signal(ifi.Index)
}

// signal performs the station query for Signal by interface index.
func (c *client) signal(ifindex int) (SignalInfo, error) {
	msgs, err := c.get(
		unix.NL80211_CMD_GET_STATION,
		netlink.Dump,
		ifindex,
	)
	if err != nil {
		return SignalInfo{}, err
	}

	for _, m := range msgs {
		if m.Header.Command != unix.NL80211_CMD_NEW_STATION {
			return SignalInfo{}, errInvalidCommand
		}
		if m.Header.Version != c.familyVersion {
			return SignalInfo{}, errInvalidFamilyVersion
		}

		info, err := parseStationInfo(m.Data)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return SignalInfo{}, err
		}

		return info, nil
	}

	// Not associated.
	return SignalInfo{}, os.ErrNotExist
}

// get performs a request/response interaction with nl80211 for the
// interface with the given index.
func (c *client) get(cmd uint8, flags netlink.HeaderFlags, ifindex int) ([]genetlink.Message, error) {
	ae := netlink.NewAttributeEncoder()
	ae.Uint32(unix.NL80211_ATTR_IFINDEX, uint32(ifindex))

	b, err := ae.Encode()
	if err != nil {
		return nil, err
	}

	return c.c.Execute(
		genetlink.Message{
			Header: genetlink.Header{
				Command: cmd,
				Version: c.familyVersion,
			},
			Data: b,
		},
		// Always pass the genetlink family ID and request flag.
		c.familyID,
		netlink.Request|flags,
	)
}

// parseStationInfo parses the signal and transmit rate from a byte slice of
// nl80211 station attributes.
func parseStationInfo(b []byte) (SignalInfo, error) {
	attrs, err := netlink.UnmarshalAttributes(b)
	if err != nil {
		return SignalInfo{}, err
	}

	for _, a := range attrs {
		if a.Type != unix.NL80211_ATTR_STA_INFO {
			continue
		}

		nattrs, err := netlink.UnmarshalAttributes(a.Data)
		if err != nil {
			return SignalInfo{}, err
		}

		var info SignalInfo
		for _, na := range nattrs {
			switch na.Type {
			case unix.NL80211_STA_INFO_SIGNAL:
				//  * @NL80211_STA_INFO_SIGNAL: signal strength of last received PPDU (u8, dBm)
				if len(na.Data) < 1 {
					return SignalInfo{}, errInvalidStationInfo
				}
				info.Signal = int(int8(na.Data[0]))
			case unix.NL80211_STA_INFO_TX_BITRATE:
				rate, err := parseRateInfo(na.Data)
				if err != nil {
					return SignalInfo{}, err
				}
				info.TransmitRate = rate / 1000
			}
		}

		return info, nil
	}

	// No station info found
	return SignalInfo{}, os.ErrNotExist
}

// parseRateInfo parses a bitrate in bits per second from nl80211 rate
// attributes.
func parseRateInfo(b []byte) (int, error) {
	attrs, err := netlink.UnmarshalAttributes(b)
	if err != nil {
		return 0, err
	}

	var bitrate int
	for _, a := range attrs {
		switch a.Type {
		case unix.NL80211_RATE_INFO_BITRATE32:
			bitrate = int(nlenc.Uint32(a.Data))
		}

		// Only use 16-bit counters if the 32-bit counters are not present.
		// If the 32-bit counters appear later in the slice, they will overwrite
		// these values.
		if bitrate == 0 && a.Type == unix.NL80211_RATE_INFO_BITRATE {
			bitrate = int(nlenc.Uint16(a.Data))
		}
	}

	// Scale bitrate to bits/second as base unit instead of 100kbits/second.
	// * @NL80211_RATE_INFO_BITRATE: total bitrate (u16, 100kbit/s)
	return bitrate * 100 * 1000, nil
}

// WirelessEvents listens for rtnetlink link messages and calls fn for each
// wireless event reported for ifname.
func (c *client) WirelessEvents(ctx context.Context, ifname string, fn func(WirelessEvent)) error {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return err
	}

	conn, err := netlink.Dial(unix.NETLINK_ROUTE, &netlink.Config{Groups: unix.RTMGRP_LINK})
	if err != nil {
		return err
	}
	defer conn.Close()

	return listenWirelessEvents(ctx, conn, ifi.Index, fn)
}

// listenWirelessEvents receives from conn until ctx is canceled. The caller
// is responsible for closing conn.
func listenWirelessEvents(ctx context.Context, conn *netlink.Conn, ifindex int, fn func(WirelessEvent)) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			// Unblock Receive.
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	for {
		msgs, err := conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		for _, m := range msgs {
			if m.Header.Type != unix.RTM_NEWLINK {
				continue
			}

			index, data, err := parseLinkMessage(m.Data)
			if err != nil || index != ifindex || data == nil {
				continue
			}

			evs, err := parseWirelessEvents(data)
			if err != nil {
				continue
			}
			for _, ev := range evs {
				fn(ev)
			}
		}
	}
}

// ifinfomsgLen is the size of struct ifinfomsg.
const ifinfomsgLen = 16

// parseLinkMessage parses an RTM_NEWLINK payload and returns the interface
// index and the IFLA_WIRELESS attribute, if present.
func parseLinkMessage(b []byte) (int, []byte, error) {
	if len(b) < ifinfomsgLen {
		return 0, nil, errInvalidLinkMessage
	}

	index := int(int32(nlenc.NativeEndian().Uint32(b[4:8])))

	attrs, err := netlink.UnmarshalAttributes(b[ifinfomsgLen:])
	if err != nil {
		return 0, nil, err
	}

	for _, a := range attrs {
		if a.Type == unix.IFLA_WIRELESS {
			return index, a.Data, nil
		}
	}

	return index, nil, nil
}
