package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/radarize/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Arguments left after the flags are KEY VALUE configuration overrides.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("radarize", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Radarize - runs the radar odometry and mapping experiment pipeline.

Usage:
  radarize [options] [KEY VALUE ...]

Arguments:
  KEY VALUE
    Configuration overrides applied on top of the --cfg file, for example
    DATASET.PATH /data/run1 TRAIN.EPOCHS 20. Keys must exist in the file.

Options:
`)
		flagSet.PrintDefaults()
	}

	cfgFlag := flagSet.String("cfg", "configs/default.yaml", "Path to the experiment configuration file.")
	nProcFlag := flagSet.Int("n_proc", 1, "Number of processes used by parallel stages and passed to the tools.")
	toolsDirFlag := flagSet.String("tools-dir", "tools", "Directory containing the tool scripts.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and status server. 0 is disabled.")
	notifyURLFlag := flagSet.String("notify-url", "", "Socket.IO endpoint that receives progress events. Empty is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	overrides := flagSet.Args()
	if len(overrides)%2 != 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("configuration overrides must be KEY VALUE pairs, got %d arguments", len(overrides))}
	}

	if *nProcFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid n_proc: must be at least 1"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigFile:      *cfgFlag,
		Overrides:       overrides,
		Workers:         *nProcFlag,
		ToolsDir:        *toolsDirFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		NotifyURL:       *notifyURLFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
