//go:build !linux
// +build !linux

package wext

import (
	"context"
	"fmt"
	"runtime"
)

var _ osClient = &client{}

// errUnimplemented is returned by all functions on platforms that
// do not have package wext implemented.
var errUnimplemented = fmt.Errorf("package wext not implemented on %s/%s",
	runtime.GOOS, runtime.GOARCH)

// A client is the no-op implementation of the wireless-extension client.
type client struct{}

func newClient() (*client, error) { return nil, errUnimplemented }

func (*client) Close() error                                   { return errUnimplemented }
func (*client) PrivateCommand(_ string, _ []byte, _ int) error { return errUnimplemented }
func (*client) Scan(_ string, _ []byte, _ uint16) error        { return errUnimplemented }
func (*client) SetInterfaceUp(_ string, _ bool) error          { return errUnimplemented }
func (*client) Signal(_ string) (SignalInfo, error)            { return SignalInfo{}, errUnimplemented }
func (*client) WirelessEvents(_ context.Context, _ string, _ func(WirelessEvent)) error {
	return errUnimplemented
}
