package wext

import (
	"context"
)

var (
	_ Transport      = &Client{}
	_ InterfaceAdmin = &Client{}
	_ SignalSource   = &Client{}
)

// osClient is the interface implemented by each operating system's client.
type osClient interface {
	Close() error
	PrivateCommand(ifname string, b []byte, n int) error
	Scan(ifname string, req []byte, flags uint16) error
	SetInterfaceUp(ifname string, up bool) error
	Signal(ifname string) (SignalInfo, error)
	WirelessEvents(ctx context.Context, ifname string, fn func(WirelessEvent)) error
}

// A Client is a type which can issue wireless-extension requests using
// operating system-specific operations. It implements Transport,
// InterfaceAdmin and SignalSource for use in a Driver's Config.
type Client struct {
	c osClient
}

// New creates a new Client.
func New() (*Client, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}

	return &Client{
		c: c,
	}, nil
}

// Close releases resources used by a Client.
func (c *Client) Close() error {
	return c.c.Close()
}

// PrivateCommand issues a SIOCSIWPRIV private command with the first n bytes
// of b as its payload. The driver may write a response into b.
func (c *Client) PrivateCommand(ifname string, b []byte, n int) error {
	return c.c.PrivateCommand(ifname, b, n)
}

// Scan issues a SIOCSIWSCAN request with an optional iw_scan_req.
func (c *Client) Scan(ifname string, req []byte, flags uint16) error {
	return c.c.Scan(ifname, req, flags)
}

// SetInterfaceUp brings an interface administratively up or down.
func (c *Client) SetInterfaceUp(ifname string, up bool) error {
	return c.c.SetInterfaceUp(ifname, up)
}

// Signal retrieves the signal strength and transmit rate of the station an
// interface is connected to.
func (c *Client) Signal(ifname string) (SignalInfo, error) {
	return c.c.Signal(ifname)
}

// WirelessEvents calls fn for each wireless event reported for an interface
// until ctx is canceled or an error occurs.
func (c *Client) WirelessEvents(ctx context.Context, ifname string, fn func(WirelessEvent)) error {
	return c.c.WirelessEvents(ctx, ifname, fn)
}
