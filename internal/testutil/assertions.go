package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStageRan checks the log output within a HarnessResult to confirm
// that a stage ran to completion.
func AssertStageRan(t *testing.T, result *HarnessResult, stage string) {
	t.Helper()
	require.True(t,
		hasStageLine(result.LogOutput, stage, "Stage finished"),
		"expected stage %q to finish, but no completion was logged", stage,
	)
}

// AssertStageSkipped confirms that a batch stage found nothing to do.
func AssertStageSkipped(t *testing.T, result *HarnessResult, stage string) {
	t.Helper()
	require.True(t,
		hasStageLine(result.LogOutput, stage, "No new files to process"),
		"expected stage %q to be skipped", stage,
	)
}

// AssertStageNotStarted confirms that nothing was logged for a stage.
func AssertStageNotStarted(t *testing.T, result *HarnessResult, stage string) {
	t.Helper()
	require.False(t,
		hasStageLine(result.LogOutput, stage, ""),
		"expected stage %q not to start", stage,
	)
}

func hasStageLine(logs, stage, msg string) bool {
	attr := "stage=" + stage
	for _, line := range strings.Split(logs, "\n") {
		if !strings.Contains(line, msg) {
			continue
		}
		for _, field := range strings.Fields(line) {
			if field == attr {
				return true
			}
		}
	}
	return false
}
