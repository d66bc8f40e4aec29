// Package discovery optionally advertises the satellite's TCP listener
// over mDNS/DNS-SD, using github.com/brutella/dnssd the way teacher's
// src/dns_sd.go advertises a TNC's AGWPE port.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// Config names the service instance to advertise.
type Config struct {
	Name string
	Host string
	Port int
}

// Registrar owns the lifetime of a zeroconf registration.
type Registrar struct {
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// Register starts advertising cfg's service and returns a Registrar the
// caller must Shutdown when the satellite stops. Registration failure is
// not logged here: it returns a non-nil error, which the caller logs at
// WARN and otherwise ignores per spec.md §7 error-kind 3 (discovery is
// never fatal) - see SPEC_FULL.md §4.11.
func Register(ctx context.Context, cfg Config, logger *log.Logger) (*Registrar, error) {
	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("discovery: new responder: %w", err)
	}

	cfgEntry := dnssd.Config{
		Name: cfg.Name,
		Type: "_wyoming._tcp",
		Port: cfg.Port,
		Host: cfg.Host,
	}
	svc, err := dnssd.NewService(cfgEntry)
	if err != nil {
		return nil, fmt.Errorf("discovery: new service: %w", err)
	}

	if _, err := responder.Add(svc); err != nil {
		return nil, fmt.Errorf("discovery: add service: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := responder.Respond(runCtx); err != nil && runCtx.Err() == nil {
			logger.Warn("zeroconf responder stopped", "error", err)
		}
	}()

	return &Registrar{responder: responder, cancel: cancel}, nil
}

// Shutdown stops advertising.
func (r *Registrar) Shutdown() {
	if r == nil {
		return
	}
	r.cancel()
}
