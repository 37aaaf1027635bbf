package wext

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// CSCAN command layout.
const (
	cscanHeader = "CSCAN S\x01\x00\x00S\x00"

	cscanSectionChannel     = 'C'
	cscanSectionPassiveTime = 'P'
	cscanSectionHomeTime    = 'H'
	cscanSectionType        = 'T'

	cscanTypePassive = 1

	cscanPassiveDwellDefault = 250
	cscanPassiveDwellMax     = 3000
	cscanHomeDwell           = 130

	// Capacity which must remain before another repeated channel section is
	// appended.
	cscanRepeatReserve = 12
)

// PNOSETUP command layout.
const (
	pnoHeader = "PNOSETUP "

	pnoTLVPrefix     = 'S'
	pnoTLVVersion    = '1'
	pnoTLVSubversion = '2'
	pnoTLVReserved   = '0'

	pnoMaxProfiles = 16

	pnoSectionSSID      = 'S'
	pnoSSIDHeaderSize   = 2
	pnoSectionInterval  = 'T'
	pnoIntervalLength   = 2
	pnoInterval         = 30
	pnoSectionRepeat    = 'R'
	pnoRepeatLength     = 1
	pnoRepeat           = 4
	pnoSectionMaxRepeat = 'M'
	pnoMaxRepeatLength  = 1
	pnoMaxRepeat        = 3

	pnoNonSSIDSize = 1 + pnoIntervalLength + 1 + pnoRepeatLength + 1 + pnoMaxRepeatLength

	// pnoMaxCommandSize holds the header, the TLV version, the maximum
	// number of SSIDs, the trailing sections and a NUL.
	pnoMaxCommandSize = len(pnoHeader) + 4 +
		pnoMaxProfiles*(pnoSSIDHeaderSize+MaxSSIDLen) +
		pnoNonSSIDSize + 1
)

// A writer appends to a fixed-capacity buffer and refuses any write which
// would exceed it.
type writer struct {
	b   []byte
	n   int
	err error
}

func newWriter(b []byte) *writer { return &writer{b: b} }

// Available returns the number of bytes which may still be written.
func (w *writer) Available() int { return len(w.b) - w.n }

// Len returns the number of bytes written.
func (w *writer) Len() int { return w.n }

// Err returns the first capacity error encountered, if any.
func (w *writer) Err() error { return w.err }

func (w *writer) reserve(n int) bool {
	if w.err != nil {
		return false
	}
	if n > w.Available() {
		w.err = errors.Wrapf(ErrBufferTooSmall, "need %d bytes at offset %d, capacity %d",
			n, w.n, len(w.b))
		return false
	}
	return true
}

func (w *writer) writeBytes(b []byte) {
	if !w.reserve(len(b)) {
		return
	}
	w.n += copy(w.b[w.n:], b)
}

func (w *writer) writeString(s string) {
	if !w.reserve(len(s)) {
		return
	}
	w.n += copy(w.b[w.n:], s)
}

func (w *writer) writeByte(c byte) {
	if !w.reserve(1) {
		return
	}
	w.b[w.n] = c
	w.n++
}

// section writes a tag followed by a one-byte value.
func (w *writer) section(tag, v byte) {
	if !w.reserve(2) {
		return
	}
	w.b[w.n] = tag
	w.b[w.n+1] = v
	w.n += 2
}

// section16 writes a tag followed by a little-endian 16-bit value.
func (w *writer) section16(tag byte, v uint16) {
	if !w.reserve(3) {
		return
	}
	w.b[w.n] = tag
	binary.LittleEndian.PutUint16(w.b[w.n+1:], v)
	w.n += 3
}

// sectionHex writes a tag followed by v as exactly width lowercase
// hexadecimal digits.
func (w *writer) sectionHex(tag byte, v, width int) {
	s := fmt.Sprintf("%0*x", width, v)
	if len(s) != width {
		panic(fmt.Sprintf("wext: value %#x does not fit in %d hex digits", v, width))
	}
	if !w.reserve(1 + width) {
		return
	}
	w.b[w.n] = tag
	copy(w.b[w.n+1:], s)
	w.n += 1 + width
}

// cscanRepeats returns the number of extra channel sections which extend a
// single-channel scan to cover dwell milliseconds.
func cscanRepeats(dwell uint16) int {
	if dwell <= cscanPassiveDwellDefault {
		return 0
	}
	return (int(dwell) - 1) / cscanPassiveDwellDefault
}

// encodeChannelScan encodes a CSCAN command into b and returns its length.
//
// A channel scan dwells on its channel for the default passive time once per
// channel section, so longer dwell times repeat the section. Repeats which
// would leave less than cscanRepeatReserve bytes are silently dropped.
func encodeChannelScan(b []byte, c Command) (int, error) {
	dwell := c.Dwell
	if dwell == 0 {
		dwell = cscanPassiveDwellDefault
	}

	w := newWriter(b)
	w.writeString(cscanHeader)
	w.section(cscanSectionChannel, c.Channel)

	if c.Channel != 0 {
		for i := cscanRepeats(dwell); i > 0 && w.Err() == nil; i-- {
			if w.Available() < cscanRepeatReserve {
				break
			}
			w.section(cscanSectionChannel, c.Channel)
		}

		dwell = cscanPassiveDwellDefault
	} else if dwell > cscanPassiveDwellMax {
		dwell = cscanPassiveDwellMax
	}

	w.section16(cscanSectionPassiveTime, dwell)
	w.section16(cscanSectionHomeTime, cscanHomeDwell)
	w.section(cscanSectionType, cscanTypePassive)

	if err := w.Err(); err != nil {
		return 0, err
	}
	return w.Len(), nil
}

// encodePNOSetup encodes a PNOSETUP command for the enabled profiles into b
// and returns its length, including the terminating NUL.
//
// Profiles are taken in order until pnoMaxProfiles have been written or the
// buffer could not hold another maximum-length SSID along with the trailing
// sections, so earlier profiles win and no profile is ever partially written.
func encodePNOSetup(b []byte, profiles []Profile) (int, error) {
	w := newWriter(b)
	w.writeString(pnoHeader)
	w.writeBytes([]byte{pnoTLVPrefix, pnoTLVVersion, pnoTLVSubversion, pnoTLVReserved})

	var n int
	for _, p := range profiles {
		if n == pnoMaxProfiles || w.Err() != nil {
			break
		}
		if p.Disabled || len(p.SSID) > MaxSSIDLen {
			continue
		}
		if w.Available() < pnoSSIDHeaderSize+MaxSSIDLen+pnoNonSSIDSize+1 {
			break
		}

		w.section(pnoSectionSSID, byte(len(p.SSID)))
		w.writeBytes(p.SSID)
		n++
	}

	w.sectionHex(pnoSectionInterval, pnoInterval, pnoIntervalLength)
	w.sectionHex(pnoSectionRepeat, pnoRepeat, pnoRepeatLength)
	w.sectionHex(pnoSectionMaxRepeat, pnoMaxRepeat, pnoMaxRepeatLength)
	w.writeByte(0)

	if err := w.Err(); err != nil {
		return 0, err
	}
	return w.Len(), nil
}
