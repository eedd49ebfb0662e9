package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/radarize/internal/app"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := Parse(nil, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, &app.Config{
		ConfigFile: "configs/default.yaml",
		Overrides:  nil,
		Workers:    1,
		ToolsDir:   "tools",
		LogFormat:  "text",
		LogLevel:   "info",
	}, cfg)
}

func TestParse_FlagsAndOverrides(t *testing.T) {
	args := []string{
		"--cfg", "configs/exp.yaml",
		"--n_proc", "8",
		"--tools-dir", "/opt/radarize/tools",
		"--log-format", "JSON",
		"--log-level", "debug",
		"--healthcheck-port", "8080",
		"--notify-url", "http://localhost:3000/socket.io/",
		"DATASET.PATH", "/data/run1",
		"TRAIN.EPOCHS", "20",
	}

	cfg, exit, err := Parse(args, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "configs/exp.yaml", cfg.ConfigFile)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/opt/radarize/tools", cfg.ToolsDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.HealthcheckPort)
	assert.Equal(t, "http://localhost:3000/socket.io/", cfg.NotifyURL)
	assert.Equal(t, []string{"DATASET.PATH", "/data/run1", "TRAIN.EPOCHS", "20"}, cfg.Overrides)
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}

	cfg, exit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "-n_proc")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"--bogus"}, "flag provided but not defined"},
		{"odd overrides", []string{"DATASET.PATH"}, "must be KEY VALUE pairs"},
		{"zero workers", []string{"--n_proc", "0"}, "invalid n_proc"},
		{"bad log format", []string{"--log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "trace"}, "invalid log-level"},
		{"bad port", []string{"--healthcheck-port", "70000"}, "invalid healthcheck port"},
		{"empty config path", []string{"--cfg", ""}, "ConfigFile is a required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})

			require.Error(t, err)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
