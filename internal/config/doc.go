// Package config defines the format-agnostic models the driver works with,
// along with the interfaces (ExperimentLoader, PipelineLoader, Converter)
// for loading and interpreting them.
//
// Experiment is the read-only experiment configuration shared with the
// external tools. Pipeline is the ordered list of stages the driver runs.
// Concrete implementations live in the yamlconfig and hcl packages.
package config
