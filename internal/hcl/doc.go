// Package hcl provides the concrete HCL implementation of the pipeline
// loading and command conversion interfaces defined in the `config` package.
// It is responsible for parsing and validating pipeline definitions and for
// evaluating program and flag expressions into command specs.
package hcl
