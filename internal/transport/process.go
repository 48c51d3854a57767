package transport

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

// Command describes one subprocess invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Stdin   string
	Timeout time.Duration // zero disables the wall-clock bound
}

// Output carries the trimmed streams of a finished subprocess.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ProcessRunner runs one subprocess per call. Each call owns its own
// process; concurrent calls never share mutable process state.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner is the real ProcessRunner over os/exec.
type ExecRunner struct{}

// Run spawns the command, feeds stdin, and collects stdout and stderr
// separately so failure diagnostics retain both streams. On timeout the
// process is killed and fully reaped before the failure surfaces; Run
// never leaves a zombie behind.
func (ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound the wait after the kill signal so a grandchild holding the
	// output pipes cannot stall the reap.
	cmd.WaitDelay = time.Second

	err := cmd.Run()

	out := Output{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return out, domain.Errorf(domain.FailTimeout, "run "+c.Path,
			"timed out after %s; process terminated", c.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, domain.Errorf(domain.FailTransport, "run "+c.Path,
				"exit code %d\nstdout: %s\nstderr: %s", out.ExitCode, out.Stdout, out.Stderr)
		}
		return out, domain.WrapErr(domain.FailEnvironment, "run "+c.Path, err)
	}

	return out, nil
}

// LookPath verifies the backend executable is reachable. The returned
// error names the missing binary and where to install it from.
func LookPath(binary, installHint string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", domain.Errorf(domain.FailEnvironment, "",
			"%q not found on PATH. Install from: %s", binary, installHint)
	}
	return path, nil
}
