package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/vk/radarize/internal/command"
	"github.com/vk/radarize/internal/config"
	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/dataset"
	"github.com/vk/radarize/internal/executor"
	"github.com/vk/radarize/internal/notify"
)

// BatchRunner runs a batch of independent commands; runner.Runner is the
// production implementation.
type BatchRunner interface {
	Run(ctx context.Context, specs []command.Spec) ([]*executor.Result, error)
}

// Options carries the driver's collaborators and run parameters.
type Options struct {
	// Workers is forwarded to tools as run.n_proc.
	Workers int
	// ToolsDir is forwarded to the pipeline definition as run.tools_dir.
	ToolsDir string
	RunID    string

	Batch  BatchRunner
	Single executor.Executor

	// Notifier receives progress events. Nil means notify.Nop.
	Notifier notify.Notifier
	// Exists reports whether a derived output exists. Nil means the real
	// filesystem.
	Exists func(string) bool
	// Now is the event clock. Nil means time.Now.
	Now func() time.Time
}

// Driver runs a pipeline against one experiment configuration.
type Driver struct {
	pipeline  *config.Pipeline
	converter config.Converter
	exp       *config.Experiment
	opts      Options

	// splits caches split paths per source and extension. They are derived
	// from the immutable configuration, so every stage sees the same list.
	splits map[splitKey][]string
}

type splitKey struct {
	source config.InputSource
	ext    string
}

// New creates a Driver.
func New(p *config.Pipeline, conv config.Converter, exp *config.Experiment, opts Options) *Driver {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Driver{
		pipeline:  p,
		converter: conv,
		exp:       exp,
		opts:      opts,
		splits:    make(map[splitKey][]string),
	}
}

// Run executes every stage in order and stops at the first failure, which
// is returned as a *StageError.
func (d *Driver) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	total := len(d.pipeline.Stages)

	logger.Info("🚀 Starting pipeline.", "stages", total, "config", d.exp.File())
	d.emit(ctx, notify.Event{Kind: notify.PipelineStarted, Total: total})

	for i, stage := range d.pipeline.Stages {
		if err := ctx.Err(); err != nil {
			d.emit(ctx, notify.Event{Kind: notify.PipelineFailed, Stage: stage.Name, Index: i, Total: total, Error: err.Error()})
			return fmt.Errorf("pipeline interrupted before stage %s: %w", stage.Name, err)
		}

		stageCtx := ctxlog.With(ctx, "stage", stage.Name)
		if err := d.runStage(stageCtx, i, stage); err != nil {
			logFailure(stageCtx, err)
			d.emit(ctx, notify.Event{Kind: notify.StageFailed, Stage: stage.Name, Index: i, Total: total, Error: err.Error()})
			d.emit(ctx, notify.Event{Kind: notify.PipelineFailed, Stage: stage.Name, Index: i, Total: total, Error: err.Error()})
			return &StageError{Stage: stage.Name, Err: err}
		}
	}

	logger.Info("🏁 Pipeline finished.", "stages", total)
	d.emit(ctx, notify.Event{Kind: notify.PipelineFinished, Index: total, Total: total})
	return nil
}

func (d *Driver) runStage(ctx context.Context, index int, stage *config.Stage) error {
	switch stage.Mode {
	case config.ModeBatch:
		return d.runBatch(ctx, index, stage)
	case config.ModeSingle:
		return d.runSingle(ctx, index, stage)
	}
	return fmt.Errorf("unsupported stage mode %q", stage.Mode)
}

func (d *Driver) runBatch(ctx context.Context, index int, stage *config.Stage) error {
	logger := ctxlog.FromContext(ctx)
	total := len(d.pipeline.Stages)

	inputs, err := d.resolveInputs(ctx, stage.Inputs)
	if err != nil {
		return err
	}

	pending := inputs
	skipped := 0
	if ext := stage.Inputs.SkipIfExists; ext != "" {
		part := dataset.PartitionByOutput(inputs, ext, d.opts.Exists)
		for _, path := range part.Skipped {
			logger.Info("⏭️ Skipping recording, already processed.", "file", filepath.Base(path), "output", filepath.Base(dataset.DerivedPath(path, ext)))
		}
		for _, path := range part.Pending {
			logger.Info("Will process recording.", "file", filepath.Base(path))
		}
		pending = part.Pending
		skipped = len(part.Skipped)
	}

	if len(pending) == 0 {
		logger.Info("⏭️ No new files to process.", "skipped", skipped)
		d.emit(ctx, notify.Event{Kind: notify.StageSkipped, Stage: stage.Name, Index: index, Total: total, Skipped: skipped})
		return nil
	}

	specs := make([]command.Spec, 0, len(pending))
	for _, path := range pending {
		spec, err := d.converter.Command(ctx, stage, d.scope(path))
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	logger.Info("▶️ "+d.title(stage), "commands", len(specs), "skipped", skipped)
	d.emit(ctx, notify.Event{Kind: notify.StageStarted, Stage: stage.Name, Index: index, Total: total, Commands: len(specs), Skipped: skipped})

	start := time.Now()
	if _, err := d.opts.Batch.Run(ctx, specs); err != nil {
		return err
	}

	logger.Info("✅ Stage finished.", "commands", len(specs), "duration", time.Since(start).Round(time.Millisecond))
	d.emit(ctx, notify.Event{Kind: notify.StageFinished, Stage: stage.Name, Index: index, Total: total, Commands: len(specs), Skipped: skipped})
	return nil
}

func (d *Driver) runSingle(ctx context.Context, index int, stage *config.Stage) error {
	logger := ctxlog.FromContext(ctx)
	total := len(d.pipeline.Stages)

	spec, err := d.converter.Command(ctx, stage, d.scope(""))
	if err != nil {
		return err
	}

	logger.Info("▶️ "+d.title(stage), "command", spec.String())
	d.emit(ctx, notify.Event{Kind: notify.StageStarted, Stage: stage.Name, Index: index, Total: total, Commands: 1})

	start := time.Now()
	if _, err := d.opts.Single.Execute(ctx, spec); err != nil {
		return err
	}

	logger.Info("✅ Stage finished.", "duration", time.Since(start).Round(time.Millisecond))
	d.emit(ctx, notify.Event{Kind: notify.StageFinished, Stage: stage.Name, Index: index, Total: total, Commands: 1})
	return nil
}

// resolveInputs returns the input paths of a batch stage.
func (d *Driver) resolveInputs(ctx context.Context, in *config.InputSet) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	ds := d.exp.Dataset()

	switch in.Source {
	case config.SourceRecordings:
		paths, err := dataset.Recordings(ds.Path, in.Extension)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Dataset directory does not exist, no recordings to process.", "dir", ds.Path)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		logger.Info("Found recordings.", "count", len(paths), "extension", in.Extension, "dir", ds.Path)
		return paths, nil

	case config.SourceTrainSplit, config.SourceTestSplit:
		return d.splitPaths(ctx, in.Source, in.Extension), nil
	}
	return nil, fmt.Errorf("unsupported input source %q", in.Source)
}

// splitPaths computes both splits for ext on first use and serves later
// stages from the cache.
func (d *Driver) splitPaths(ctx context.Context, source config.InputSource, ext string) []string {
	if paths, ok := d.splits[splitKey{source, ext}]; ok {
		return paths
	}

	logger := ctxlog.FromContext(ctx)
	ds := d.exp.Dataset()
	train, dupTrain := dataset.SplitPaths(ds.Path, ds.TrainSplit, ext)
	test, dupTest := dataset.SplitPaths(ds.Path, ds.TestSplit, ext)
	for _, name := range dupTrain {
		logger.Warn("Duplicate split entry ignored.", "split", "train", "entry", name)
	}
	for _, name := range dupTest {
		logger.Warn("Duplicate split entry ignored.", "split", "test", "entry", name)
	}
	d.splits[splitKey{config.SourceTrainSplit, ext}] = train
	d.splits[splitKey{config.SourceTestSplit, ext}] = test

	logger.Info("Prepared training and testing datasets.", "train", len(train), "test", len(test))
	return d.splits[splitKey{source, ext}]
}

func (d *Driver) scope(input string) config.Scope {
	return config.Scope{
		ConfigFile: d.exp.File(),
		Workers:    d.opts.Workers,
		ToolsDir:   d.opts.ToolsDir,
		Input:      input,
	}
}

func (d *Driver) title(stage *config.Stage) string {
	if stage.Description != "" {
		return stage.Description
	}
	return stage.Name
}

func (d *Driver) emit(ctx context.Context, ev notify.Event) {
	ev.RunID = d.opts.RunID
	ev.Time = d.opts.Now()
	d.opts.Notifier.Notify(ctx, ev)
}

// logFailure logs a stage failure, including the captured stderr of the
// failing command when there is one.
func logFailure(ctx context.Context, err error) {
	logger := ctxlog.FromContext(ctx)
	var cmdErr *executor.CommandError
	if errors.As(err, &cmdErr) && len(cmdErr.Stderr) > 0 {
		logger.Error("❌ Stage failed.", "error", err, "stderr", string(cmdErr.Stderr))
		return
	}
	logger.Error("❌ Stage failed.", "error", err)
}
