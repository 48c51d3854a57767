// Package agent implements the shared adapter core: one state machine
// driving a backend profile over whichever transport the mode resolver
// activates.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/stagehand-dev/stagehand/internal/bridge"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/domain"
	"github.com/stagehand-dev/stagehand/internal/extract"
	"github.com/stagehand-dev/stagehand/internal/ports"
	"github.com/stagehand-dev/stagehand/internal/promptkit"
	"github.com/stagehand-dev/stagehand/internal/transport"
)

// State of the adapter lifecycle. Execution is per-call and does not
// change the lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateCleanedUp     State = "cleaned_up"
)

// serverStopGrace bounds the wait between the graceful terminate of an
// adapter-owned server process and the forceful kill.
const serverStopGrace = 5 * time.Second

// Deps are the adapter's constructor-injected collaborators. Zero
// values select the real implementations; tests substitute fakes
// without touching process or network boundaries.
type Deps struct {
	Process  transport.ProcessRunner
	Server   transport.ServerTransport
	Bridge   ports.ToolBridge
	LookPath func(binary, installHint string) (string, error)
}

// Adapter drives one backend profile behind the uniform Agent surface.
type Adapter struct {
	profile Profile
	cfg     config.AgentConfig
	deps    Deps

	mu         sync.Mutex
	state      State
	activeMode transport.Mode
	server     transport.ServerTransport
	sessionID  string
	serverProc *exec.Cmd     // server process this adapter auto-started
	serverDone chan struct{} // closed once serverProc is reaped
	toolBridge ports.ToolBridge
	ownsBridge bool
}

// New builds an adapter for the profile. It performs no I/O; call
// Initialize (or let ExecuteStep initialize lazily).
func New(profile Profile, cfg config.AgentConfig, deps Deps) *Adapter {
	if deps.Process == nil {
		deps.Process = transport.ExecRunner{}
	}
	if deps.LookPath == nil {
		deps.LookPath = transport.LookPath
	}
	return &Adapter{
		profile: profile,
		cfg:     cfg,
		deps:    deps,
		state:   StateUninitialized,
	}
}

func (a *Adapter) Name() string {
	return a.profile.Name
}

func (a *Adapter) Capabilities() domain.Capabilities {
	return a.profile.Capabilities
}

// State reports the lifecycle state, for callers that surface it.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ActiveMode reports the resolved transport mode; empty before
// initialization.
func (a *Adapter) ActiveMode() transport.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeMode
}

// Initialize brings the adapter to READY: backend-presence check, mode
// resolution, session creation in server mode, tool-bridge startup.
// Idempotent; calling it when READY is a no-op. Any failure releases
// whatever was acquired and restores UNINITIALIZED so the caller may
// retry after fixing the environment.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateReady:
		return nil
	case StateCleanedUp:
		return domain.Errorf(domain.FailEnvironment, "", "adapter %s was cleaned up", a.profile.Name)
	}

	a.state = StateInitializing
	if err := a.initLocked(ctx); err != nil {
		a.releaseLocked()
		a.state = StateUninitialized
		return err
	}
	a.state = StateReady
	return nil
}

func (a *Adapter) initLocked(ctx context.Context) error {
	if _, err := a.deps.LookPath(a.binary(), a.profile.InstallHint); err != nil {
		return err
	}

	requested := transport.Mode(a.cfg.Mode)
	if requested == "" {
		requested = transport.ModeAuto
	}

	if !a.profile.ServerSupported {
		if requested == transport.ModeServer {
			return domain.Errorf(domain.FailEnvironment, "",
				"backend %s supports only cli mode", a.profile.Name)
		}
		a.activeMode = transport.ModeCLI
	} else {
		server := a.deps.Server
		if server == nil {
			server = transport.NewClient(a.serverURL(), a.cfg.Timeout())
		}

		resolver := &transport.Resolver{
			Probe:     server.Alive,
			StartHint: a.startHint(),
		}
		if a.cfg.ServerAutostart {
			resolver.Start = a.startServerLocked
		}

		mode, err := resolver.Resolve(ctx, requested)
		if err != nil {
			return err
		}
		a.activeMode = mode

		if mode == transport.ModeServer {
			sessionID, err := server.CreateSession(ctx)
			if err != nil {
				return fmt.Errorf("connecting to %s server: %w", a.profile.Name, err)
			}
			a.server = server
			a.sessionID = sessionID
		} else if a.deps.Server == nil {
			server.Close()
		}
	}

	if a.deps.Bridge != nil {
		a.toolBridge = a.deps.Bridge
	} else if a.cfg.ToolBridge != nil {
		tb, err := bridge.New(ctx, a.cfg.ToolBridge)
		if err != nil {
			return err
		}
		a.toolBridge = tb
		a.ownsBridge = true
	}

	return nil
}

// releaseLocked undoes a partial initialization: only what was actually
// acquired is released.
func (a *Adapter) releaseLocked() {
	if a.server != nil {
		a.server.Close()
		a.server = nil
	}
	a.sessionID = ""
	a.stopServerProcLocked()
	if a.ownsBridge && a.toolBridge != nil {
		a.toolBridge.Close()
	}
	a.toolBridge = nil
	a.ownsBridge = false
	a.activeMode = ""
}

// ExecuteStep is the uniform entry point a workflow engine calls. It
// never propagates an error: every failure inside the dispatched
// operation becomes a FAILED StepResult carrying the failure kind, with
// timestamps populated regardless of outcome.
func (a *Adapter) ExecuteStep(ctx context.Context, step *domain.Step, ec domain.Context) *domain.StepResult {
	result := &domain.StepResult{
		StepID:    step.ID,
		StartedAt: time.Now(),
	}

	output, err := a.dispatch(ctx, step, ec)
	result.CompletedAt = time.Now()

	if err != nil {
		result.Status = domain.StepFailed
		result.Error = err.Error()
		result.ErrorKind = domain.KindOf(err)
		return result
	}
	result.Status = domain.StepCompleted
	result.Output = output
	return result
}

func (a *Adapter) dispatch(ctx context.Context, step *domain.Step, ec domain.Context) (any, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	op, err := step.Operation()
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case domain.OpAnalyze:
		schema, _ := step.Inputs["output_schema"].(map[string]any)
		return a.Analyze(ctx, promptkit.BuildAnalysis(step, ec), schema)
	case domain.OpGenerateResponse:
		return a.Generate(ctx, promptkit.BuildGeneration(step, ec))
	case domain.OpGenerateReport:
		return a.Generate(ctx, promptkit.BuildReport(step, ec))
	case domain.OpToolCall:
		return a.CallTool(ctx, op.Tool, op.ToolOp, step.Inputs)
	default:
		// OpKind is closed; reaching here is a programming error.
		return nil, domain.Errorf(domain.FailInternal, "", "unhandled operation kind %d", op.Kind)
	}
}

// Analyze sends the prompt and normalizes the response against the
// schema. Schema-typed results are best-effort: unparsable output comes
// back as text, never as an error.
func (a *Adapter) Analyze(ctx context.Context, prompt string, schema map[string]any) (any, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	raw, err := a.execute(ctx, promptkit.WithSchema(prompt, schema), len(schema) > 0)
	if err != nil {
		return nil, err
	}
	return extract.Normalize(raw, schema), nil
}

// Generate sends the prompt and returns the raw text reply.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	if err := a.Initialize(ctx); err != nil {
		return "", err
	}
	return a.execute(ctx, prompt, false)
}

// GenerateStream yields reply fragments. In server mode fragments
// arrive as the server emits them; in CLI mode the channel yields
// exactly one item holding the full result, so callers can always
// iterate regardless of mode.
func (a *Adapter) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	mode, server, sessionID := a.transportState()
	if mode == transport.ModeServer {
		return server.StreamMessage(ctx, sessionID, prompt)
	}

	full, err := a.execute(ctx, prompt, false)
	if err != nil {
		return nil, err
	}
	out := make(chan string, 1)
	out <- full
	close(out)
	return out, nil
}

// CallTool answers the call from the tool bridge when it advertises the
// qualified name, bypassing the backend entirely. Otherwise the call is
// rephrased as a natural-language instruction and routed through
// Generate; whether the backend actually executes the tool well is the
// backend's business, not this layer's.
func (a *Adapter) CallTool(ctx context.Context, tool, operation string, params map[string]any) (any, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	a.mu.Lock()
	tb := a.toolBridge
	a.mu.Unlock()

	if tb != nil {
		qualified := tool + "." + operation
		names, err := tb.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		if slices.Contains(names, qualified) {
			return tb.CallTool(ctx, qualified, params)
		}
	}

	return a.Generate(ctx, promptkit.ToolDelegation(tool, operation, params))
}

// Cleanup releases the session handle, terminates an adapter-owned
// server process (graceful, then forceful after a bounded wait) and
// tears down the tool bridge. Safe to call after a partially failed
// initialization and safe to call twice.
func (a *Adapter) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateCleanedUp {
		return nil
	}

	var errs []error
	if a.server != nil {
		if err := a.server.Close(); err != nil {
			errs = append(errs, err)
		}
		a.server = nil
	}
	a.stopServerProcLocked()
	if a.ownsBridge && a.toolBridge != nil {
		if err := a.toolBridge.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.toolBridge = nil
	a.state = StateCleanedUp
	return errors.Join(errs...)
}

// execute routes one request through the active transport.
func (a *Adapter) execute(ctx context.Context, prompt string, jsonFormat bool) (string, error) {
	mode, server, sessionID := a.transportState()

	if mode == transport.ModeServer {
		return server.SendMessage(ctx, sessionID, prompt)
	}

	out, err := a.deps.Process.Run(ctx, transport.Command{
		Path:    a.binary(),
		Args:    a.profile.RunArgs(a.cfg.Model, prompt, jsonFormat),
		Dir:     a.cfg.WorkingDir,
		Timeout: a.cfg.Timeout(),
	})
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

func (a *Adapter) transportState() (transport.Mode, transport.ServerTransport, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeMode, a.server, a.sessionID
}

func (a *Adapter) binary() string {
	if a.cfg.Binary != "" {
		return a.cfg.Binary
	}
	return a.profile.DefaultBinary
}

func (a *Adapter) serverURL() string {
	if a.cfg.ServerURL != "" {
		return a.cfg.ServerURL
	}
	return a.profile.DefaultServerURL
}

func (a *Adapter) serverPort() (string, error) {
	u, err := url.Parse(a.serverURL())
	if err != nil || u.Port() == "" {
		return "", domain.Errorf(domain.FailEnvironment, "",
			"cannot determine server port from %q", a.serverURL())
	}
	return u.Port(), nil
}

func (a *Adapter) startHint() string {
	port := "<port>"
	if p, err := a.serverPort(); err == nil {
		port = p
	}
	if a.profile.StartHint == nil {
		return a.binary()
	}
	return a.profile.StartHint(a.binary(), port)
}

// startServerLocked spawns the backend server. The adapter owns the
// process and is responsible for reaping it at cleanup.
func (a *Adapter) startServerLocked(ctx context.Context) error {
	port, err := a.serverPort()
	if err != nil {
		return err
	}

	// Deliberately not CommandContext: the server outlives the
	// initialization context and is stopped at cleanup.
	cmd := exec.Command(a.binary(), a.profile.ServeArgs(port)...)
	if err := cmd.Start(); err != nil {
		return domain.WrapErr(domain.FailEnvironment, "starting "+a.profile.Name+" server", err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	a.serverProc = cmd
	a.serverDone = done
	return nil
}

// stopServerProcLocked terminates an owned server process: SIGTERM,
// bounded wait, then SIGKILL. Always waits for the reap to finish.
func (a *Adapter) stopServerProcLocked() {
	if a.serverProc == nil {
		return
	}

	a.serverProc.Process.Signal(syscall.SIGTERM)
	select {
	case <-a.serverDone:
	case <-time.After(serverStopGrace):
		a.serverProc.Process.Kill()
		<-a.serverDone
	}
	a.serverProc = nil
	a.serverDone = nil
}

var _ ports.Agent = (*Adapter)(nil)
