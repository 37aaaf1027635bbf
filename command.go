package wext

import (
	"fmt"
	"math"
	"strings"
)

// A CommandKind identifies a driver command decoded by ParseCommand.
type CommandKind int

// Possible CommandKind values.
const (
	// CommandPrivate is passed through to the driver unchanged.
	CommandPrivate CommandKind = iota
	CommandStart
	CommandStop
	CommandReload
	CommandRSSIApprox
	CommandScanChannels
	CommandBackgroundScanStart
	CommandBackgroundScanStop
	CommandChannelScan

	// CommandQuery commands return a response string from the driver.
	CommandQuery
)

// String returns the string representation of a CommandKind.
func (k CommandKind) String() string {
	switch k {
	case CommandPrivate:
		return "private"
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandReload:
		return "reload"
	case CommandRSSIApprox:
		return "RSSI approximation"
	case CommandScanChannels:
		return "scan channels"
	case CommandBackgroundScanStart:
		return "background scan start"
	case CommandBackgroundScanStop:
		return "background scan stop"
	case CommandChannelScan:
		return "channel scan"
	case CommandQuery:
		return "query"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Private command strings understood by the driver.
const (
	cmdRSSI       = "RSSI"
	cmdLinkSpeed  = "LINKSPEED"
	cmdPNOForceOn = "PNOFORCE 1"
	cmdPNOForceOf = "PNOFORCE 0"
)

// queries are the commands whose response string length is returned to the
// caller.
var queries = []string{cmdRSSI, cmdLinkSpeed, "MACADDR", "GETPOWER", "GETBAND"}

// A Command is a decoded driver command.
type Command struct {
	Kind CommandKind

	// The command as given by the caller.
	Text string

	// Channel count for CommandScanChannels.
	Channels int

	// Channel and passive dwell time in milliseconds for
	// CommandChannelScan. A zero Channel scans all channels; a zero Dwell
	// selects the default.
	Channel uint8
	Dwell   uint16
}

// ParseCommand decodes a textual driver command. Matching is
// case-insensitive.
func ParseCommand(text string) Command {
	c := Command{Kind: CommandPrivate, Text: text}

	switch {
	case strings.EqualFold(text, "START"):
		c.Kind = CommandStart
	case strings.EqualFold(text, "STOP"):
		c.Kind = CommandStop
	case strings.EqualFold(text, "RELOAD"):
		c.Kind = CommandReload
	case strings.EqualFold(text, "RSSI-APPROX"):
		c.Kind = CommandRSSIApprox
	case hasPrefixFold(text, "SCAN-CHANNELS"):
		c.Kind = CommandScanChannels
		c.Channels = atoi(text[len("SCAN-CHANNELS"):])
	case strings.EqualFold(text, "BGSCAN-START"):
		c.Kind = CommandBackgroundScanStart
	case strings.EqualFold(text, "BGSCAN-STOP"):
		c.Kind = CommandBackgroundScanStop
	case hasPrefixFold(text, "CSCAN"):
		c.Kind = CommandChannelScan
		args := text[len("CSCAN"):]
		if i := strings.Index(args, ",TIME="); i != -1 {
			c.Dwell = uint16(atoi(args[i+len(",TIME="):]))
			args = args[:i]
		}
		// The driver ABI carries an 8-bit channel number.
		c.Channel = uint8(atoi(args))
	default:
		for _, q := range queries {
			if strings.EqualFold(text, q) {
				c.Kind = CommandQuery
				break
			}
		}
	}

	return c
}

// wire returns the command string sent to the driver for c.
func (c Command) wire() string {
	switch c.Kind {
	case CommandRSSIApprox:
		return cmdRSSI
	case CommandScanChannels:
		return "COUNTRY " + CountryCode(c.Channels)
	case CommandBackgroundScanStart:
		return cmdPNOForceOn
	case CommandBackgroundScanStop:
		return cmdPNOForceOf
	default:
		return c.Text
	}
}

// query reports whether the driver answers c with a response string.
func (c Command) query() bool {
	return c.Kind == CommandQuery || c.Kind == CommandRSSIApprox
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// atoi parses a leading decimal integer from s after optional spaces and
// sign, ignoring any trailing text. It returns 0 if no digits are present.
// Magnitudes beyond math.MaxInt32 are clamped to it.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t\n\v\f\r")

	neg := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := int(s[i] - '0')
		if n > (math.MaxInt32-d)/10 {
			n = math.MaxInt32
			break
		}
		n = n*10 + d
	}

	if neg {
		return -n
	}
	return n
}
