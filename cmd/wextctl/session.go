package main

import (
	"context"

	"github.com/mdlayher/wext"
	"github.com/mdlayher/wext/internal/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// A session is one Driver running on its own Loop.
type session struct {
	c   *wext.Client
	l   *wext.Loop
	d   *wext.Driver
	sup *supplicant
}

// do runs fn on the session's Loop, where the Driver may be used.
func (s *session) do(ctx context.Context, fn func(d *wext.Driver) error) error {
	var err error
	if lerr := s.l.Do(ctx, func() { err = fn(s.d) }); lerr != nil {
		return lerr
	}

	return err
}

// listen delivers the interface's wireless events to the Driver until ctx is
// canceled. Each event is also passed to fn, if set.
func (s *session) listen(ctx context.Context, fn func(wext.WirelessEvent)) error {
	err := s.c.WirelessEvents(ctx, s.d.Name(), func(ev wext.WirelessEvent) {
		s.l.Post(func() {
			s.d.HandleWirelessEvent(ev)
			if fn != nil {
				fn(ev)
			}
		})
	})
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "failed to listen for wireless events")
	}

	return nil
}

// withSession opens a Client and runs fn with a Driver for the configured
// interface. The Loop runs until fn returns.
func withSession(ctx context.Context, c *config.Config, fn func(ctx context.Context, s *session) error) error {
	client, err := wext.New()
	if err != nil {
		return errors.Wrap(err, "failed to open wireless client")
	}
	defer client.Close()

	logger := log.StandardLogger()

	l := wext.NewLoop()
	sup := newSupplicant(c.NetworkConfig(), logger)

	d, err := wext.NewDriver(c.Interface, wext.Config{
		Transport:          client,
		Admin:              client,
		Timeouts:           l,
		Supplicant:         sup,
		Signal:             client,
		Logger:             logger,
		ScanCompleteEvents: c.Driver.ScanCompleteEvents,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	lctx, stop := context.WithCancel(gctx)

	g.Go(func() error {
		// Run only returns once lctx is done.
		_ = l.Run(lctx)
		return nil
	})

	g.Go(func() error {
		defer stop()
		return fn(gctx, &session{c: client, l: l, d: d, sup: sup})
	})

	return g.Wait()
}
