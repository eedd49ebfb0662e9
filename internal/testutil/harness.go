package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/radarize/internal/app"
	"github.com/vk/radarize/internal/hcl"
	"github.com/vk/radarize/internal/yamlconfig"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// RunPipeline runs the whole application against ws with a background
// context. Options may adjust the app configuration before it is validated.
func RunPipeline(t *testing.T, ws *Workspace, opts ...func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunPipelineWithContext(context.Background(), t, ws, opts...)
}

// RunPipelineWithContext is RunPipeline with a caller-provided context.
func RunPipelineWithContext(ctx context.Context, t *testing.T, ws *Workspace, opts ...func(*app.Config)) *HarnessResult {
	t.Helper()

	raw := app.Config{
		ConfigFile: ws.ConfigFile,
		Workers:    2,
		ToolsDir:   ws.ToolsDir,
		LogFormat:  "text",
		LogLevel:   "debug",
	}
	for _, opt := range opts {
		opt(&raw)
	}
	appConfig, err := app.NewConfig(raw)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	defer func() {
		if os.Getenv("RADARIZE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	}()

	var testApp *app.App
	var startErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				startErr = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		testApp, startErr = app.NewApp(logBuffer, appConfig, yamlconfig.NewLoader(), hcl.NewLoader())
	}()
	if startErr != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: startErr}
	}

	runErr := testApp.Run(ctx)
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
