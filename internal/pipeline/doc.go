// Package pipeline drives the experiment: it walks the stages of a pipeline
// definition strictly in order, turns each one into commands, and hands them
// to the parallel runner (batch stages) or runs them directly (single
// stages).
//
// The first failing stage aborts the run. Nothing is retried and no later
// stage starts, so a rerun picks up where the previous one stopped: the
// preprocessing stage skips every recording whose derived output already
// exists.
package pipeline
