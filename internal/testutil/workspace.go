package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// ToolNames lists every tool script the built-in pipeline invokes.
var ToolNames = []string{
	"create_dataset.py",
	"extract_gt.py",
	"train_flow.py",
	"test_flow.py",
	"train_rot.py",
	"test_rot.py",
	"test_odom.py",
	"train_unet.py",
	"test_unet.py",
	"run_carto.py",
}

// createDatasetBody writes the derived .npz next to the recording, like the
// real preprocessing tool does.
const createDatasetBody = `for arg in "$@"; do
  case "$arg" in
    --bag_path=*) bag="${arg#--bag_path=}" ;;
  esac
done
: > "${bag%.bag}.npz"
`

// WorkspaceSpec describes the dataset a Workspace starts with.
type WorkspaceSpec struct {
	// Recordings are base names; each becomes DataDir/<name>.bag.
	Recordings []string
	// Processed are base names whose DataDir/<name>.npz already exists.
	Processed []string
	Train     []string
	Test      []string
	// Extra is merged into the top level of the YAML configuration.
	Extra map[string]any
}

// Workspace is a throwaway experiment: a dataset directory, a configuration
// file pointing at it, and stub tool scripts that record every invocation
// in a journal.
type Workspace struct {
	Root        string
	DataDir     string
	ToolsDir    string
	ConfigFile  string
	JournalFile string
}

// NewWorkspace lays out a Workspace under t.TempDir().
func NewWorkspace(t *testing.T, spec WorkspaceSpec) *Workspace {
	t.Helper()

	root := t.TempDir()
	ws := &Workspace{
		Root:        root,
		DataDir:     filepath.Join(root, "data"),
		ToolsDir:    filepath.Join(root, "tools"),
		ConfigFile:  filepath.Join(root, "configs", "default.yaml"),
		JournalFile: filepath.Join(root, "journal.log"),
	}
	require.NoError(t, os.MkdirAll(ws.DataDir, 0o755))
	require.NoError(t, os.MkdirAll(ws.ToolsDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(ws.ConfigFile), 0o755))

	for _, name := range spec.Recordings {
		require.NoError(t, os.WriteFile(filepath.Join(ws.DataDir, name+".bag"), nil, 0o644))
	}
	for _, name := range spec.Processed {
		require.NoError(t, os.WriteFile(filepath.Join(ws.DataDir, name+".npz"), nil, 0o644))
	}

	for _, tool := range ToolNames {
		body := ""
		if tool == "create_dataset.py" {
			body = createDatasetBody
		}
		ws.SetTool(t, tool, body)
	}

	cfg := map[string]any{}
	for k, v := range spec.Extra {
		cfg[k] = v
	}
	cfg["DATASET"] = map[string]any{
		"PATH":        ws.DataDir,
		"TRAIN_SPLIT": nonNil(spec.Train),
		"TEST_SPLIT":  nonNil(spec.Test),
	}
	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ws.ConfigFile, out, 0o644))

	return ws
}

// SetTool replaces a tool script. The script always records its invocation
// first, then runs body.
func (ws *Workspace) SetTool(t *testing.T, name, body string) {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\necho \"%s $*\" >> %q\n%s", name, ws.JournalFile, body)
	require.NoError(t, os.WriteFile(ws.Tool(name), []byte(script), 0o755))
}

// Tool returns the path of a tool script.
func (ws *Workspace) Tool(name string) string {
	return filepath.Join(ws.ToolsDir, name)
}

// Data returns the path of a file inside the dataset directory.
func (ws *Workspace) Data(name string) string {
	return filepath.Join(ws.DataDir, name)
}

// Invocations returns the journal, one "tool args..." line per invocation,
// in start order.
func (ws *Workspace) Invocations(t *testing.T) []string {
	t.Helper()
	f, err := os.Open(ws.JournalFile)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	require.NoError(t, sc.Err())
	return lines
}

// InvocationsOf returns the journal lines of one tool.
func (ws *Workspace) InvocationsOf(t *testing.T, tool string) []string {
	t.Helper()
	var out []string
	for _, line := range ws.Invocations(t) {
		if strings.HasPrefix(line, tool+" ") || line == tool {
			out = append(out, line)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
