package transport

import (
	"context"
	"time"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

// Mode is the resolved transport: an ephemeral subprocess per call or a
// persistent server session.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeCLI    Mode = "cli"
	ModeServer Mode = "server"
)

// Resolver decides which transport an adapter activates. Probe and
// Start are injected so tests never touch a real network or process.
type Resolver struct {
	// Probe performs one bounded liveness check of the server.
	Probe func(ctx context.Context) bool
	// Start spawns the server process. Nil means autostart is disabled.
	Start func(ctx context.Context) error
	// StartHint is the exact command a human would run to start the
	// server; used in the autostart-disabled error.
	StartHint string

	// Polling policy after an autostart. Worst-case startup latency is
	// bounded by PollAttempts * PollInterval.
	PollInterval time.Duration
	PollAttempts int
}

const (
	defaultPollInterval = time.Second
	defaultPollAttempts = 30
)

// Resolve maps the requested mode to an active one. CLI never probes.
// SERVER must bring a reachable server up or fail initialization. AUTO
// probes once and falls back to CLI; fallback happens only here, never
// mid-request.
func (r *Resolver) Resolve(ctx context.Context, requested Mode) (Mode, error) {
	switch requested {
	case ModeCLI:
		return ModeCLI, nil

	case ModeServer:
		if r.Probe(ctx) {
			return ModeServer, nil
		}
		if r.Start == nil {
			return "", domain.Errorf(domain.FailEnvironment, "",
				"server not reachable and autostart is disabled. Start it with: %s", r.StartHint)
		}
		if err := r.Start(ctx); err != nil {
			return "", domain.WrapErr(domain.FailEnvironment, "starting server", err)
		}
		if err := r.awaitReady(ctx); err != nil {
			return "", err
		}
		return ModeServer, nil

	case ModeAuto:
		if r.Probe(ctx) {
			return ModeServer, nil
		}
		return ModeCLI, nil

	default:
		return "", domain.Errorf(domain.FailEnvironment, "", "unknown transport mode %q", requested)
	}
}

// awaitReady polls the probe at a fixed interval up to the attempt
// ceiling. First success wins; exhausting the ceiling is fatal.
func (r *Resolver) awaitReady(ctx context.Context) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := r.PollAttempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return domain.WrapErr(domain.FailEnvironment, "waiting for server", ctx.Err())
		case <-ticker.C:
		}
		if r.Probe(ctx) {
			return nil
		}
	}
	return domain.Errorf(domain.FailEnvironment, "",
		"server did not become reachable within %s", time.Duration(attempts)*interval)
}
