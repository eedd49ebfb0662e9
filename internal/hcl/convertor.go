package hcl

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/radarize/internal/command"
	"github.com/vk/radarize/internal/config"
	"github.com/vk/radarize/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Command evaluates the stage's program and flags for scope and returns a
// validated command spec.
func (c *Converter) Command(ctx context.Context, stage *config.Stage, scope config.Scope) (command.Spec, error) {
	logger := ctxlog.FromContext(ctx)
	evalCtx := buildEvalContext(scope)

	program, err := c.evalString(stage.Program, evalCtx)
	if err != nil {
		return command.Spec{}, fmt.Errorf("stage %s: failed to evaluate program: %w", stage.Name, err)
	}

	flags := make([]command.Flag, 0, len(stage.Flags))
	for _, f := range stage.Flags {
		v, err := c.evalString(f.Value, evalCtx)
		if err != nil {
			return command.Spec{}, fmt.Errorf("stage %s: failed to evaluate flag %q: %w", stage.Name, f.Name, err)
		}
		flags = append(flags, command.Flag{Name: f.Name, Value: v})
	}

	spec := command.New(program, flags...)
	if err := spec.Validate(); err != nil {
		return command.Spec{}, fmt.Errorf("stage %s: %w", stage.Name, err)
	}
	logger.Debug("Built command.", "stage", stage.Name, "argv", spec.Argv())
	return spec, nil
}

// buildEvalContext exposes `run` always and `each` only when an input is set.
func buildEvalContext(scope config.Scope) *hcl.EvalContext {
	vars := map[string]cty.Value{
		rootRun: cty.ObjectVal(map[string]cty.Value{
			"cfg":       cty.StringVal(scope.ConfigFile),
			"n_proc":    cty.NumberIntVal(int64(scope.Workers)),
			"tools_dir": cty.StringVal(scope.ToolsDir),
		}),
	}
	if scope.Input != "" {
		vars[rootEach] = cty.ObjectVal(map[string]cty.Value{
			"path": cty.StringVal(scope.Input),
		})
	}
	return &hcl.EvalContext{Variables: vars}
}

// evalString evaluates expr and converts the result to a string.
func (c *Converter) evalString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	if expr == nil {
		return "", errors.New("expression is missing")
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	if !val.IsWhollyKnown() || val.IsNull() {
		return "", errors.New("value must be known and not null")
	}

	converted, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("cannot convert %s to string: %w", val.Type().FriendlyName(), err)
	}
	return converted.AsString(), nil
}
