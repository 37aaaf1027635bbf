package main

import (
	"sync"

	"github.com/mdlayher/wext"
	"github.com/sirupsen/logrus"
)

var (
	_ wext.Supplicant = &supplicant{}
	_ wext.Notifier   = &supplicant{}
)

// A supplicant is the minimal supplicant wextctl runs a Driver under. It never
// associates, so it remains disconnected and only tracks scans.
type supplicant struct {
	log      logrus.FieldLogger
	networks *wext.NetworkConfig

	mu       sync.Mutex
	scanning bool

	// Receives a value for each completed scan.
	scanDone chan struct{}
}

func newSupplicant(networks *wext.NetworkConfig, log logrus.FieldLogger) *supplicant {
	return &supplicant{
		log:      log,
		networks: networks,
		scanDone: make(chan struct{}, 1),
	}
}

func (s *supplicant) State() wext.State { return wext.StateDisconnected }

func (s *supplicant) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

func (s *supplicant) NotifyScanning(scanning bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = scanning
}

func (s *supplicant) NetworkConfig() *wext.NetworkConfig { return s.networks }

func (s *supplicant) ScanCompleted() {
	s.NotifyScanning(false)
	s.log.Info("scan completed")

	select {
	case s.scanDone <- struct{}{}:
	default:
	}
}

// Notify logs a control interface notification at the matching level.
func (s *supplicant) Notify(sev wext.Severity, msg string) {
	l := s.log.WithField("severity", sev)

	switch sev {
	case wext.SeverityDebug:
		l.Debug(msg)
	case wext.SeverityWarning:
		l.Warn(msg)
	case wext.SeverityError:
		l.Error(msg)
	default:
		l.Info(msg)
	}
}
