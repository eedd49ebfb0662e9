package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vk/radarize/internal/config"
	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/pipeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	runID  string

	experiment *config.Experiment
	pipeline   *config.Pipeline
	converter  config.Converter

	status     *statusBoard
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It builds the logger,
// loads the experiment configuration and the pipeline definition, and
// returns an App ready to Run.
func NewApp(outW io.Writer, cfg *Config, expLoader config.ExperimentLoader, pipeLoader config.PipelineLoader) (*App, error) {
	runID := uuid.NewString()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW).With("run_id", runID)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	exp, err := expLoader.Load(ctx, cfg.ConfigFile, cfg.Overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment configuration: %w", err)
	}
	ds := exp.Dataset()
	logger.Debug("Experiment configuration loaded.", "file", exp.File(), "keys", len(exp.Keys()), "dataset", ds.Path, "train", len(ds.TrainSplit), "test", len(ds.TestSplit))
	for i := 0; i+1 < len(cfg.Overrides); i += 2 {
		key := cfg.Overrides[i]
		value, _ := exp.Lookup(key)
		logger.Info("Config override applied.", "key", key, "value", value)
	}

	p, conv, err := pipeLoader.Load(ctx, pipeline.DefinitionName, pipeline.DefaultDefinition())
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline definition: %w", err)
	}
	logger.Debug("Pipeline definition loaded.", "stages", len(p.Stages))

	return &App{
		outW:       outW,
		logger:     logger,
		cfg:        cfg,
		runID:      runID,
		experiment: exp,
		pipeline:   p,
		converter:  conv,
		status:     newStatusBoard(runID, len(p.Stages)),
	}, nil
}

// RunID returns the identifier attached to this run's logs and events.
func (a *App) RunID() string {
	return a.runID
}

// Experiment returns the resolved experiment configuration.
func (a *App) Experiment() *config.Experiment {
	return a.experiment
}

// Status returns a snapshot of the run's progress.
func (a *App) Status() Status {
	return a.status.Snapshot()
}
