// Package testrun executes test suites as real processes and classifies their output.
package testrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"devpilot/pkg/logx"
)

// ExecOpts configures one command execution.
type ExecOpts struct {
	// Dir is the working directory. Required.
	Dir string

	// Env holds "KEY=VALUE" overrides merged over the inherited environment.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs argv-style commands. argv is never passed through a shell.
//
// The exit code is valid even when the command ran and failed; err is reserved for
// failures to start or wait, and for context cancellation.
type Executor interface {
	Run(ctx context.Context, argv []string, opts ExecOpts) (exitCode int, err error)
	Name() string
}

// HostExecutor runs commands directly on the host.
type HostExecutor struct {
	logger *logx.Logger
}

func NewHostExecutor() *HostExecutor {
	return &HostExecutor{logger: logx.NewLogger("host-executor")}
}

func (h *HostExecutor) Name() string {
	return "host"
}

// Run executes argv in opts.Dir and waits for it to exit.
func (h *HostExecutor) Run(ctx context.Context, argv []string, opts ExecOpts) (int, error) {
	if len(argv) == 0 {
		return -1, fmt.Errorf("command cannot be empty")
	}
	if opts.Stdout == nil || opts.Stderr == nil {
		return -1, fmt.Errorf("stdout and stderr writers are required")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	// Setting Env at all replaces the environment, so only do it with overrides.
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	h.logger.Debug("Executing in %s: %s", opts.Dir, strings.Join(argv, " "))

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	return -1, fmt.Errorf("failed to execute %s: %w", argv[0], err)
}
