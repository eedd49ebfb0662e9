package config

import (
	"context"

	"github.com/vk/radarize/internal/command"
)

// ExperimentLoader builds the experiment configuration from a file plus
// KEY VALUE overrides.
type ExperimentLoader interface {
	Load(ctx context.Context, path string, overrides []string) (*Experiment, error)
}

// PipelineLoader reads a pipeline definition, translates it into the
// format-agnostic model, and returns a matching Converter.
type PipelineLoader interface {
	Load(ctx context.Context, filename string, src []byte) (*Pipeline, Converter, error)
}

// Converter turns a stage into a concrete command for a given scope. For
// batch stages it is called once per input path.
type Converter interface {
	Command(ctx context.Context, stage *Stage, scope Scope) (command.Spec, error)
}
