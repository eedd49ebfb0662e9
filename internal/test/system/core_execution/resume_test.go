package system

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/radarize/internal/testutil"
)

// Test for: recordings with an existing .npz are not preprocessed again.
func TestCoreExecution_ResumeSkipsProcessedRecordings(t *testing.T) {
	// --- Arrange ---
	ws := testutil.NewWorkspace(t, testutil.WorkspaceSpec{
		Recordings: []string{"a", "b", "c"},
		Processed:  []string{"a"},
	})

	// --- Act ---
	first := testutil.RunPipeline(t, ws)

	// --- Assert ---
	require.NoError(t, first.Err)
	assert.ElementsMatch(t, []string{
		"create_dataset.py --cfg=" + ws.ConfigFile + " --bag_path=" + ws.Data("b.bag"),
		"create_dataset.py --cfg=" + ws.ConfigFile + " --bag_path=" + ws.Data("c.bag"),
	}, ws.InvocationsOf(t, "create_dataset.py"))
	assert.Equal(t, 1, strings.Count(first.LogOutput, "Skipping recording"))
	assert.Equal(t, 2, strings.Count(first.LogOutput, "Will process recording"))

	// --- Act again: everything is processed now ---
	second := testutil.RunPipeline(t, ws)

	require.NoError(t, second.Err)
	assert.Len(t, ws.InvocationsOf(t, "create_dataset.py"), 2, "no recording may be preprocessed twice")
	assert.Equal(t, 3, strings.Count(second.LogOutput, "Skipping recording"))
	testutil.AssertStageSkipped(t, second, "preprocess")
}
