// Package wireless contains Linux wireless-extension constants from
// linux/wireless.h which are not exported by golang.org/x/sys/unix.
package wireless

// Wireless-extension ioctl requests.
//
// WARNING: THESE ARE MANUALLY COPIED FROM linux/wireless.h. THE unix PACKAGE
// DOES NOT GENERATE THE SIOCxIWx FAMILY.
const (
	SIOCSIWPRIV = 0x8b0c
	SIOCGIWAP   = 0x8b15
	SIOCSIWSCAN = 0x8b18
	SIOCGIWSCAN = 0x8b19
)

// Wireless events carried in IFLA_WIRELESS.
const (
	IWEVTXDROP     = 0x8c00
	IWEVQUAL       = 0x8c01
	IWEVCUSTOM     = 0x8c02
	IWEVREGISTERED = 0x8c03
	IWEVEXPIRED    = 0x8c04
)

// iw_scan_req flags and limits.
const (
	IW_SCAN_DEFAULT    = 0x0000
	IW_SCAN_ALL_ESSID  = 0x0001
	IW_SCAN_THIS_ESSID = 0x0002
	IW_SCAN_ALL_FREQ   = 0x0004
	IW_SCAN_THIS_FREQ  = 0x0008

	IW_SCAN_TYPE_ACTIVE  = 0
	IW_SCAN_TYPE_PASSIVE = 1

	IW_ESSID_MAX_SIZE  = 32
	IW_MAX_FREQUENCIES = 32

	// Size of the length and command fields which prefix each iw_event.
	IW_EV_LCP_LEN = 4
)
