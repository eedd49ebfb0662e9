// Package executor defines how a single external tool invocation is run.
package executor

import (
	"context"

	"github.com/vk/radarize/internal/command"
)

// Executor runs one command to completion. Implementations must return a
// non-nil *CommandError when the process exits with a non-zero status.
type Executor interface {
	Execute(ctx context.Context, spec command.Spec) (*Result, error)
}
