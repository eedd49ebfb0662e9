// Package app contains the core application logic. It wires the experiment
// configuration, the pipeline definition, the process runners and the
// optional healthcheck and progress notifiers together, decoupled from any
// specific entrypoint like a CLI.
package app
