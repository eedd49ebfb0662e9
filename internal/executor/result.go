package executor

import (
	"fmt"
	"strings"
	"time"
)

// Result captures one finished invocation.
type Result struct {
	Argv     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// CommandError reports an invocation that could not start or exited non-zero.
type CommandError struct {
	Argv     []string
	ExitCode int
	Stderr   []byte
	Err      error
}

// Error formats the failure with the last line of captured stderr, if any.
func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	program := ""
	if len(e.Argv) > 0 {
		program = e.Argv[0]
	}

	msg := fmt.Sprintf("command %s exited with status %d", program, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("command %s failed to run", program)
	}
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
