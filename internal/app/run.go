package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/vk/radarize/internal/ctxlog"
	"github.com/vk/radarize/internal/executor"
	"github.com/vk/radarize/internal/notify"
	"github.com/vk/radarize/internal/notify/socketio"
	"github.com/vk/radarize/internal/pipeline"
	"github.com/vk/radarize/internal/runner"
)

// notifyDialTimeout bounds how long Run waits for the progress dashboard.
const notifyDialTimeout = 10 * time.Second

// Run executes the pipeline. It returns the first stage failure, or nil when
// every stage succeeded.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	batch := runner.New(executor.NewCapturing(), a.cfg.Workers)
	a.logger.Info(fmt.Sprintf("Running with %d processes (out of %d available cores)", batch.Workers(), runtime.NumCPU()))

	if a.cfg.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(ctx, a.cfg.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	} else {
		a.logger.Debug("Health check server disabled.")
	}

	notifier := a.buildNotifier(ctx)
	defer func() {
		if err := notifier.Close(); err != nil {
			a.logger.Warn("Failed to close notifiers.", "error", err)
		}
	}()

	driver := pipeline.New(a.pipeline, a.converter, a.experiment, pipeline.Options{
		Workers:  a.cfg.Workers,
		ToolsDir: a.cfg.ToolsDir,
		RunID:    a.runID,
		Batch:    batch,
		Single:   executor.NewStreaming(a.outW, a.outW),
		Notifier: notifier,
	})

	if err := driver.Run(ctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// buildNotifier always includes the status board. A dashboard that cannot be
// reached is reported and skipped; it never fails the run.
func (a *App) buildNotifier(ctx context.Context) notify.Notifier {
	notifiers := notify.Multi{a.status}
	if a.cfg.NotifyURL == "" {
		return notifiers
	}

	pub, err := socketio.Dial(ctx, a.cfg.NotifyURL, socketio.Options{Timeout: notifyDialTimeout})
	if err != nil {
		a.logger.Warn("Progress dashboard unavailable, continuing without it.", "url", a.cfg.NotifyURL, "error", err)
		return notifiers
	}
	return append(notifiers, pub)
}
