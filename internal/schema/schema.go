// Package schema holds the HCL decoding targets for pipeline definition files.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Flag represents a `flag "<name>" { value = ... }` block. Blocks keep their
// declaration order, which is the order flags are passed to the tool.
type Flag struct {
	Name  string         `hcl:"name,label"`
	Value hcl.Expression `hcl:"value"`
}

// Inputs represents the `inputs` block of a batch stage.
type Inputs struct {
	Source       string `hcl:"source"`
	Extension    string `hcl:"extension"`
	SkipIfExists string `hcl:"skip_if_exists,optional"`
}

// Stage represents a `stage` block: one step of the pipeline.
type Stage struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Mode        string         `hcl:"mode"`
	Program     hcl.Expression `hcl:"program"`
	Inputs      *Inputs        `hcl:"inputs,block"`
	Flags       []*Flag        `hcl:"flag,block"`
}

// PipelineConfig is the top-level structure of a pipeline definition file.
type PipelineConfig struct {
	Stages []*Stage `hcl:"stage,block"`
}
