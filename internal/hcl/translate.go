// This file contains the logic for translating HCL schema structs into the
// format-agnostic pipeline model, validating them on the way.

package hcl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/radarize/internal/config"
	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/schema"
)

const (
	rootRun  = "run"
	rootEach = "each"
)

// scopeAttributes lists the attributes each variable root exposes.
var scopeAttributes = map[string]map[string]struct{}{
	rootRun:  {"cfg": {}, "n_proc": {}, "tools_dir": {}},
	rootEach: {"path": {}},
}

// translatePipeline converts the decoded schema into the agnostic model.
func (l *Loader) translatePipeline(ctx context.Context, raw *schema.PipelineConfig) (*config.Pipeline, error) {
	if len(raw.Stages) == 0 {
		return nil, errors.New("no stages defined")
	}

	p := &config.Pipeline{Stages: make([]*config.Stage, 0, len(raw.Stages))}
	seen := make(map[string]struct{}, len(raw.Stages))
	for _, s := range raw.Stages {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("stage %q defined more than once", s.Name)
		}
		seen[s.Name] = struct{}{}

		stage, err := l.translateStage(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		p.Stages = append(p.Stages, stage)
	}
	return p, nil
}

// translateStage converts one `stage` block.
func (l *Loader) translateStage(ctx context.Context, s *schema.Stage) (*config.Stage, error) {
	logger := ctxlog.FromContext(ctx)

	mode, err := config.ParseStageMode(s.Mode)
	if err != nil {
		return nil, err
	}

	stage := &config.Stage{
		Name:        s.Name,
		Description: s.Description,
		Mode:        mode,
		Program:     s.Program,
	}

	switch {
	case mode == config.ModeBatch && s.Inputs == nil:
		return nil, errors.New("batch stages require an inputs block")
	case mode == config.ModeSingle && s.Inputs != nil:
		return nil, errors.New("single stages must not declare inputs")
	case s.Inputs != nil:
		inputs, err := translateInputs(s.Inputs)
		if err != nil {
			return nil, err
		}
		stage.Inputs = inputs
	}

	allowEach := mode == config.ModeBatch
	if err := checkReferences(s.Program, allowEach); err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}

	seen := make(map[string]struct{}, len(s.Flags))
	for _, f := range s.Flags {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("flag %q declared more than once", f.Name)
		}
		seen[f.Name] = struct{}{}

		if err := checkReferences(f.Value, allowEach); err != nil {
			return nil, fmt.Errorf("flag %q: %w", f.Name, err)
		}
		stage.Flags = append(stage.Flags, &config.Flag{Name: f.Name, Value: f.Value})
	}

	logger.Debug("Translated stage.", "stage", stage.Name, "mode", stage.Mode, "flags", len(stage.Flags))
	return stage, nil
}

func translateInputs(in *schema.Inputs) (*config.InputSet, error) {
	source, err := config.ParseInputSource(in.Source)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(in.Extension, ".") || len(in.Extension) < 2 {
		return nil, fmt.Errorf("inputs extension %q must start with a dot", in.Extension)
	}
	if in.SkipIfExists != "" {
		if !strings.HasPrefix(in.SkipIfExists, ".") || len(in.SkipIfExists) < 2 {
			return nil, fmt.Errorf("skip_if_exists %q must start with a dot", in.SkipIfExists)
		}
		if in.SkipIfExists == in.Extension {
			return nil, fmt.Errorf("skip_if_exists %q must differ from the input extension", in.SkipIfExists)
		}
	}
	return &config.InputSet{
		Source:       source,
		Extension:    in.Extension,
		SkipIfExists: in.SkipIfExists,
	}, nil
}

// checkReferences makes sure an expression only refers to known scope
// attributes, and to `each` only where a current input exists.
func checkReferences(expr hcl.Expression, allowEach bool) error {
	for _, tr := range expr.Variables() {
		root := tr.RootName()
		attrs, known := scopeAttributes[root]
		if !known {
			return fmt.Errorf("unknown variable %q", root)
		}
		if root == rootEach && !allowEach {
			return errors.New("`each` is only available in batch stages")
		}
		if len(tr) < 2 {
			return fmt.Errorf("%q must be used with an attribute", root)
		}
		attr, ok := tr[1].(hcl.TraverseAttr)
		if !ok {
			return fmt.Errorf("invalid reference into %q", root)
		}
		if _, ok := attrs[attr.Name]; !ok {
			return fmt.Errorf("unknown attribute %s.%s", root, attr.Name)
		}
	}
	return nil
}
