// Package shell runs declared commands as child processes.
package shell

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// waitDelay bounds how long Wait blocks on output pipes after the process
// was killed by context cancellation.
const waitDelay = 2 * time.Second

// ptyDrainTimeout bounds how long output is still copied from a PTY after
// the command exited. Background processes it left behind may keep the
// terminal open indefinitely.
const ptyDrainTimeout = 250 * time.Millisecond

// Option configures an Executor.
type Option func(*Executor)

// WithPTY runs commands under a pseudo-terminal when enabled. Output of a
// PTY is a single merged stream that is copied to stdout.
func WithPTY(enabled bool) Option {
	return func(e *Executor) {
		e.usePTY = enabled
	}
}

// Executor implements ports.Executor using os/exec and, optionally, a PTY.
type Executor struct {
	usePTY bool
}

// NewExecutor creates a new Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs cmd.Argv without a shell in the current working directory,
// with the ambient environment, and waits for it to exit.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if len(cmd.Argv) == 0 || cmd.Argv[0] == "" {
		return zerr.With(zerr.Wrap(domain.ErrEmptyInvocation, "nothing to execute"), "command", cmd.Name)
	}

	proc := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...) //nolint:gosec // Declared by the user
	proc.WaitDelay = waitDelay

	if e.usePTY {
		return runPTY(proc, stdout)
	}

	proc.Stdout = stdout
	proc.Stderr = stderr
	return runPiped(proc)
}

func runPiped(proc *exec.Cmd) error {
	if err := proc.Start(); err != nil {
		return startError(proc, err)
	}
	return exitError(proc.Wait())
}

func runPTY(proc *exec.Cmd, stdout io.Writer) error {
	ptmx, err := pty.Start(proc)
	if err != nil {
		return startError(proc, err)
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// Reading the master fails with EIO once the child side is closed.
		_, _ = io.Copy(stdout, ptmx)
	}()

	waitErr := proc.Wait()
	drain := time.NewTimer(ptyDrainTimeout)
	defer drain.Stop()
	select {
	case <-ioDone:
	case <-drain.C:
	}
	_ = ptmx.Close()
	select {
	case <-ioDone:
	case <-time.After(ptyDrainTimeout):
	}

	return exitError(waitErr)
}

func startError(proc *exec.Cmd, err error) error {
	return zerr.With(
		zerr.Wrap(domain.Classify(domain.ErrProcessStartFailed, err), "failed to start command"),
		"executable", proc.Args[0],
	)
}

func exitError(err error) error {
	if err == nil {
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return zerr.With(zerr.Wrap(domain.Classify(domain.ErrProcessExited, err), "command failed"), "exit_code", exitCode)
}
