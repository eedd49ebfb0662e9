package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/vk/radarize/internal/command"
	"github.com/vk/radarize/internal/ctxlog"
)

// waitDelay bounds how long Wait keeps draining pipes after the process was
// killed or exited while grandchildren still hold them open.
const waitDelay = 10 * time.Second

// Process executes commands as child processes of the driver.
//
// With nil Stdout/Stderr the output is captured into the Result. With
// writers set, output is streamed to them and nothing is captured; the driver
// uses this for long-running blocking stages.
type Process struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// NewCapturing returns a Process that keeps stdout and stderr in the Result.
func NewCapturing() *Process {
	return &Process{}
}

// NewStreaming returns a Process that forwards child output to the writers.
func NewStreaming(stdout, stderr io.Writer) *Process {
	return &Process{Stdout: stdout, Stderr: stderr}
}

// Execute implements Executor.
func (p *Process) Execute(ctx context.Context, spec command.Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)
	argv := spec.Argv()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = p.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	if p.Stdout != nil {
		cmd.Stdout = p.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	if p.Stderr != nil {
		cmd.Stderr = p.Stderr
	} else {
		cmd.Stderr = &stderr
	}

	logger.Debug("Starting command.", "argv", argv)
	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Argv:     argv,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err == nil {
		logger.Debug("Command finished.", "argv", argv, "duration", result.Duration)
		return result, nil
	}

	result.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("command %s interrupted: %w", argv[0], ctx.Err())
	}

	return result, &CommandError{
		Argv:     argv,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Err:      err,
	}
}
