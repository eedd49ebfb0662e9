package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/vk/radarize/internal/hcl"
	"github.com/vk/radarize/internal/yamlconfig"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance with the production loaders and a
// debug-level logger writing into the returned buffer.
func SetupAppTest(t *testing.T, appConfig *Config) (*App, *SafeBuffer, error) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	appConfig.LogLevel = "debug"
	testApp, err := NewApp(logBuffer, appConfig, yamlconfig.NewLoader(), hcl.NewLoader())

	t.Cleanup(func() {
		if os.Getenv("RADARIZE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer, err
}
