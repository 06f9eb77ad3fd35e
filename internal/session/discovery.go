package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const discoveryInterval = 3 * time.Second

// Discovery polls a HostProbe on a fixed interval and emits edge-
// triggered connect/disconnect callbacks. Every tick runs on the same
// goroutine, so there is never a reentrant tick by construction.
type Discovery struct {
	probe    HostProbe
	logger   *zap.Logger
	interval time.Duration

	onConnected    func(Credentials)
	onDisconnected func()

	credentialed bool
	last         Credentials
}

func NewDiscovery(probe HostProbe, logger *zap.Logger, onConnected func(Credentials), onDisconnected func()) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{
		probe:          probe,
		logger:         logger,
		interval:       discoveryInterval,
		onConnected:    onConnected,
		onDisconnected: onDisconnected,
	}
}

// Run blocks, polling until ctx is cancelled. Call it in its own
// goroutine.
func (d *Discovery) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick performs one discovery pass. Process-detect failures are an
// expected, quiet steady state while no client is running — nothing
// ever propagates out of tick itself.
func (d *Discovery) tick() {
	dir, found := d.probe.FindInstallDir()
	if !found {
		d.markNotFound()
		return
	}

	raw, found := d.probe.ReadHandoffFile(dir)
	if !found {
		d.markNotFound()
		return
	}

	creds, ok := ParseHandoff(raw)
	if !ok {
		d.logger.Debug("session: malformed handoff file, treating as not found")
		d.markNotFound()
		return
	}

	if !d.credentialed {
		d.credentialed = true
		d.last = creds
		d.logger.Debug("session: client discovered", zap.Int("port", creds.Port))
		if d.onConnected != nil {
			d.onConnected(creds)
		}
	}
}

func (d *Discovery) markNotFound() {
	if d.credentialed {
		d.credentialed = false
		d.logger.Debug("session: client no longer reachable")
		if d.onDisconnected != nil {
			d.onDisconnected()
		}
	}
}
