package hcl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/radarize/internal/config"
)

const validDefinition = `
stage "preprocess" {
  description = "Converting recordings"
  mode        = "batch"
  program     = "${run.tools_dir}/create_dataset.py"

  inputs {
    source         = "recordings"
    extension      = ".bag"
    skip_if_exists = ".npz"
  }

  flag "cfg"      { value = run.cfg }
  flag "bag_path" { value = each.path }
}

stage "train" {
  mode    = "single"
  program = "python"

  flag "script" { value = "${run.tools_dir}/train.py" }
  flag "cfg"    { value = run.cfg }
  flag "n_proc" { value = run.n_proc }
}
`

func load(t *testing.T, src string) (*config.Pipeline, config.Converter, error) {
	t.Helper()
	return NewLoader().Load(context.Background(), "test.hcl", []byte(src))
}

func TestLoader_ValidDefinition(t *testing.T) {
	p, conv, err := load(t, validDefinition)
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, p.Stages, 2)

	pre := p.Stages[0]
	assert.Equal(t, "preprocess", pre.Name)
	assert.Equal(t, config.ModeBatch, pre.Mode)
	assert.Equal(t, &config.InputSet{Source: config.SourceRecordings, Extension: ".bag", SkipIfExists: ".npz"}, pre.Inputs)
	assert.Len(t, pre.Flags, 2)

	train := p.Stages[1]
	assert.Equal(t, config.ModeSingle, train.Mode)
	assert.Nil(t, train.Inputs)
	assert.Empty(t, train.Description)
}

func TestLoader_InvalidDefinitions(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax error",
			src:     `stage "a" {`,
			wantErr: "failed to parse",
		},
		{
			name:    "unknown attribute",
			src: `
stage "a" {
  mode    = "single"
  program = "p"
  color   = "red"
}`,
			wantErr: "failed to decode",
		},
		{
			name:    "no stages",
			src:     ``,
			wantErr: "no stages defined",
		},
		{
			name: "duplicate stage",
			src: `
stage "a" {
  mode = "single"
  program = "p"
}
stage "a" {
  mode = "single"
  program = "p"
}`,
			wantErr: `stage "a" defined more than once`,
		},
		{
			name: "bad mode",
			src: `
stage "a" {
  mode    = "parallel"
  program = "p"
}`,
			wantErr: "invalid stage mode",
		},
		{
			name: "batch without inputs",
			src: `
stage "a" {
  mode    = "batch"
  program = "p"
}`,
			wantErr: "batch stages require an inputs block",
		},
		{
			name: "single with inputs",
			src: `
stage "a" {
  mode    = "single"
  program = "p"
  inputs {
    source    = "test_split"
    extension = ".npz"
  }
}`,
			wantErr: "single stages must not declare inputs",
		},
		{
			name: "bad input source",
			src: `
stage "a" {
  mode    = "batch"
  program = "p"
  inputs {
    source    = "validation_split"
    extension = ".npz"
  }
}`,
			wantErr: "invalid input source",
		},
		{
			name: "extension without dot",
			src: `
stage "a" {
  mode    = "batch"
  program = "p"
  inputs {
    source    = "recordings"
    extension = "bag"
  }
}`,
			wantErr: "must start with a dot",
		},
		{
			name: "skip extension equals input extension",
			src: `
stage "a" {
  mode    = "batch"
  program = "p"
  inputs {
    source         = "recordings"
    extension      = ".bag"
    skip_if_exists = ".bag"
  }
}`,
			wantErr: "must differ from the input extension",
		},
		{
			name: "each in single stage",
			src: `
stage "a" {
  mode    = "single"
  program = "p"
  flag "x" { value = each.path }
}`,
			wantErr: "`each` is only available in batch stages",
		},
		{
			name: "unknown variable",
			src: `
stage "a" {
  mode    = "single"
  program = "p"
  flag "x" { value = env.HOME }
}`,
			wantErr: `unknown variable "env"`,
		},
		{
			name: "unknown attribute of run",
			src: `
stage "a" {
  mode    = "single"
  program = "${run.python}"
}`,
			wantErr: "unknown attribute run.python",
		},
		{
			name: "bare root",
			src: `
stage "a" {
  mode    = "single"
  program = "p"
  flag "x" { value = run }
}`,
			wantErr: `"run" must be used with an attribute`,
		},
		{
			name: "duplicate flag",
			src: `
stage "a" {
  mode    = "single"
  program = "p"
  flag "x" { value = "1" }
  flag "x" { value = "2" }
}`,
			wantErr: `flag "x" declared more than once`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := load(t, tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConverter_Command(t *testing.T) {
	p, conv, err := load(t, validDefinition)
	require.NoError(t, err)

	scope := config.Scope{ConfigFile: "configs/default.yaml", Workers: 8, ToolsDir: "tools"}

	t.Run("batch stage uses the current input", func(t *testing.T) {
		s := scope
		s.Input = "/data/run_1.bag"
		spec, err := conv.Command(context.Background(), p.Stages[0], s)
		require.NoError(t, err)

		want := []string{"tools/create_dataset.py", "--cfg=configs/default.yaml", "--bag_path=/data/run_1.bag"}
		if diff := cmp.Diff(want, spec.Argv()); diff != "" {
			t.Errorf("argv mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("numbers render as decimal strings", func(t *testing.T) {
		spec, err := conv.Command(context.Background(), p.Stages[1], scope)
		require.NoError(t, err)

		want := []string{"python", "--script=tools/train.py", "--cfg=configs/default.yaml", "--n_proc=8"}
		if diff := cmp.Diff(want, spec.Argv()); diff != "" {
			t.Errorf("argv mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("batch stage without input fails", func(t *testing.T) {
		_, err := conv.Command(context.Background(), p.Stages[0], scope)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bag_path")
	})
}

func TestConverter_RejectsNonStringValues(t *testing.T) {
	p, conv, err := load(t, `
stage "a" {
  mode    = "single"
  program = "p"
  flag "x" { value = ["a", "b"] }
}`)
	require.NoError(t, err)

	_, err = conv.Command(context.Background(), p.Stages[0], config.Scope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `flag "x"`)
}
