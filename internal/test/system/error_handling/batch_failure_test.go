package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/radarize/internal/app"
	"github.com/vk/radarize/internal/executor"
	"github.com/vk/radarize/internal/fsutil"
	"github.com/vk/radarize/internal/pipeline"
	"github.com/vk/radarize/internal/testutil"
)

// Test for: a failing batch command aborts the pipeline before the next stage.
func TestErrorHandling_BatchFailureStopsPipeline(t *testing.T) {
	// --- Arrange ---
	ws := testutil.NewWorkspace(t, testutil.WorkspaceSpec{
		Recordings: []string{"b", "c"},
		Processed:  []string{"b", "c"},
		Test:       []string{"b", "c"},
	})
	ws.SetTool(t, "extract_gt.py", `case "$*" in
  *c.npz*) echo "corrupt file" >&2; exit 3 ;;
esac
`)

	// --- Act ---
	result := testutil.RunPipeline(t, ws)

	// --- Assert ---
	require.Error(t, result.Err)

	var stageErr *pipeline.StageError
	require.ErrorAs(t, result.Err, &stageErr)
	assert.Equal(t, "extract_gt", stageErr.Stage)

	var cmdErr *executor.CommandError
	require.ErrorAs(t, result.Err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Contains(t, result.Err.Error(), "corrupt file")

	assert.Empty(t, ws.InvocationsOf(t, "train_flow.py"), "no stage may start after a failed one")
	testutil.AssertStageNotStarted(t, result, "train_flow")

	status := result.App.Status()
	assert.Equal(t, app.StateFailed, status.State)
	assert.Equal(t, "extract_gt", status.FailedStage)
}

// Test for: commands already running when a sibling fails are allowed to
// finish, so the outputs they write are complete.
func TestErrorHandling_RunningSiblingsFinish(t *testing.T) {
	ws := testutil.NewWorkspace(t, testutil.WorkspaceSpec{
		Recordings: []string{"a", "b"},
	})
	ws.SetTool(t, "create_dataset.py", `for arg in "$@"; do
  case "$arg" in
    --bag_path=*) bag="${arg#--bag_path=}" ;;
  esac
done
case "$bag" in
  *a.bag) exit 1 ;;
esac
sleep 0.5
: > "${bag%.bag}.npz"
`)

	result := testutil.RunPipeline(t, ws)

	require.Error(t, result.Err)
	assert.False(t, fsutil.Exists(ws.Data("a.npz")))
	assert.True(t, fsutil.Exists(ws.Data("b.npz")), "the sibling must run to completion")
	assert.Empty(t, ws.InvocationsOf(t, "extract_gt.py"))
}
