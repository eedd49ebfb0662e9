package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/radarize/internal/config"
	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/schema"
)

// Loader is the HCL implementation of config.PipelineLoader.
type Loader struct{}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses a pipeline definition, validates it and translates it into the
// format-agnostic model.
func (l *Loader) Load(ctx context.Context, filename string, src []byte) (*config.Pipeline, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing pipeline definition.", "file", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to parse pipeline definition %s: %w", filename, diags)
	}

	var raw schema.PipelineConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, nil, fmt.Errorf("failed to decode pipeline definition %s: %w", filename, diags)
	}

	pipeline, err := l.translatePipeline(ctx, &raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pipeline definition %s: %w", filename, err)
	}

	logger.Debug("Pipeline definition loaded.", "file", filename, "stages", len(pipeline.Stages))
	return pipeline, NewConverter(), nil
}
