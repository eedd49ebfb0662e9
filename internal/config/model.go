package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// --- Experiment configuration ---

// Dataset is the DATASET section of the experiment configuration.
type Dataset struct {
	Path       string
	TrainSplit []string
	TestSplit  []string
}

// Experiment is the resolved experiment configuration. It is built once at
// startup and never modified; accessors hand out copies.
type Experiment struct {
	file    string
	dataset Dataset
	values  map[string]any
}

// NewExperiment assembles an Experiment. values is the full resolved tree,
// keyed by dotted path (e.g. "DATASET.PATH").
func NewExperiment(file string, dataset Dataset, values map[string]any) *Experiment {
	flat := make(map[string]any, len(values))
	for k, v := range values {
		flat[k] = v
	}
	return &Experiment{
		file: file,
		dataset: Dataset{
			Path:       dataset.Path,
			TrainSplit: append([]string(nil), dataset.TrainSplit...),
			TestSplit:  append([]string(nil), dataset.TestSplit...),
		},
		values: flat,
	}
}

// File is the configuration file the experiment was loaded from. It is the
// value handed to every tool as --cfg.
func (e *Experiment) File() string {
	return e.file
}

// Dataset returns a copy of the DATASET section.
func (e *Experiment) Dataset() Dataset {
	return Dataset{
		Path:       e.dataset.Path,
		TrainSplit: append([]string(nil), e.dataset.TrainSplit...),
		TestSplit:  append([]string(nil), e.dataset.TestSplit...),
	}
}

// Lookup returns the leaf value at a dotted key.
func (e *Experiment) Lookup(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Keys returns every leaf key, sorted.
func (e *Experiment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Pipeline definition ---

// StageMode selects how a stage runs its command.
type StageMode string

const (
	// ModeBatch runs one command per input path on the parallel runner.
	ModeBatch StageMode = "batch"
	// ModeSingle runs one blocking command.
	ModeSingle StageMode = "single"
)

// InputSource names where a batch stage takes its input paths from.
type InputSource string

const (
	SourceRecordings InputSource = "recordings"
	SourceTrainSplit InputSource = "train_split"
	SourceTestSplit  InputSource = "test_split"
)

// ParseStageMode validates a mode string.
func ParseStageMode(s string) (StageMode, error) {
	switch m := StageMode(strings.ToLower(s)); m {
	case ModeBatch, ModeSingle:
		return m, nil
	}
	return "", fmt.Errorf("invalid stage mode %q: must be %q or %q", s, ModeBatch, ModeSingle)
}

// ParseInputSource validates an input source string.
func ParseInputSource(s string) (InputSource, error) {
	switch src := InputSource(strings.ToLower(s)); src {
	case SourceRecordings, SourceTrainSplit, SourceTestSplit:
		return src, nil
	}
	return "", fmt.Errorf("invalid input source %q: must be one of %q, %q, %q", s, SourceRecordings, SourceTrainSplit, SourceTestSplit)
}

// Pipeline is the ordered list of stages.
type Pipeline struct {
	Stages []*Stage
}

// Stage is the format-agnostic representation of a `stage` block.
type Stage struct {
	Name        string
	Description string
	Mode        StageMode
	Program     hcl.Expression
	Inputs      *InputSet
	Flags       []*Flag
}

// InputSet describes the input paths of a batch stage.
type InputSet struct {
	Source InputSource
	// Extension is the recording extension for SourceRecordings and the
	// extension appended to split entries otherwise.
	Extension string
	// SkipIfExists, when set, is the derived-output extension that marks an
	// input as already processed.
	SkipIfExists string
}

// Flag is one `flag` block; Value is evaluated per command.
type Flag struct {
	Name  string
	Value hcl.Expression
}

// Scope holds the values a stage's expressions can see.
type Scope struct {
	ConfigFile string
	Workers    int
	ToolsDir   string
	// Input is the current path for batch stages and empty for single ones.
	Input string
}
