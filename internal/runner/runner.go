// Package runner provides timeout-bounded subprocess execution for the
// external synthesis and audio tools.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Common failure classes for external invocations.
var (
	// ErrLaunch means the external tool could not be started at all
	// (missing binary, permission problem).
	ErrLaunch = errors.New("failed to launch external process")
	// ErrExit means the process ran but exited non-zero.
	ErrExit = errors.New("external process exited with an error")
	// ErrTimeout means the invocation exceeded its time budget.
	ErrTimeout = errors.New("external process timed out")
)

// DefaultTimeout bounds a single external invocation when the request
// does not carry its own budget.
const DefaultTimeout = 300 * time.Second

// Request describes one external invocation.
type Request struct {
	Name    string
	Args    []string
	Stdin   string
	Timeout time.Duration
}

// Result captures the diagnostic output of one invocation. It is
// populated on failure too, so callers can record stderr in their
// result trees.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}

// Runner executes a single external command bounded by a timeout.
// Implementations must be safe for sequential reuse.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ExecRunner runs commands via os/exec with stdin wired up before the
// process starts.
type ExecRunner struct {
	defaultTimeout time.Duration
}

// NewExecRunner creates a runner with the given default timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{defaultTimeout: timeout}
}

// Run executes the request and classifies the outcome as ErrLaunch,
// ErrExit, or ErrTimeout. A nil error means a zero exit.
func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Name, req.Args...)

	// Stdin must be attached before Start to avoid the write race.
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{Elapsed: time.Since(start)},
			fmt.Errorf("%w: %s: %v", ErrLaunch, req.Name, err)
	}

	waitErr := cmd.Wait()
	res := Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, fmt.Errorf("%w: %s after %v", ErrTimeout, req.Name, timeout)
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s canceled: %w", req.Name, ctx.Err())
	}

	if waitErr != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if s := strings.TrimSpace(res.Stderr); s != "" {
			return res, fmt.Errorf("%w: %s (exit %d): %s", ErrExit, req.Name, res.ExitCode, s)
		}
		return res, fmt.Errorf("%w: %s (exit %d)", ErrExit, req.Name, res.ExitCode)
	}

	return res, nil
}

// LookBinary reports whether a binary can be found in PATH.
func LookBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: binary %q not found in PATH", ErrLaunch, name)
	}
	return nil
}
