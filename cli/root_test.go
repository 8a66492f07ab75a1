package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bricoler/bricoler/engine/core"
	"github.com/bricoler/bricoler/engine/task"
	"github.com/bricoler/bricoler/pkg/config"
)

// demoTask lives in the default registry so the commands under test can
// resolve it the way a builtin would be resolved.
var demoTask = task.MustDefine(task.Spec{
	Name:        "demo-build",
	Description: "Build a demo artifact",
	Parameters: map[string]task.ParameterSpec{
		"jobs":   {Type: task.Int, Default: 1},
		"target": {Required: true},
		"mode":   {Type: task.Enum("fast", "safe"), Default: "fast", Choices: []any{"fast", "safe"}},
	},
	Outputs: map[string]task.ValueType{"artifact": task.String},
	Run: func(_ context.Context, t *task.Instance) (core.Output, error) {
		return core.Output{"artifact": t.String("target")}, nil
	},
})

func Test_RootCmd(t *testing.T) {
	t.Run("Should register the run, show and tasks commands", func(t *testing.T) {
		root := RootCmd()
		for _, name := range []string{"run", "show", "tasks"} {
			cmd, _, err := root.Find([]string{name})
			require.NoError(t, err, name)
			assert.Equal(t, name, cmd.Name())
		}
		assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
		assert.NotNil(t, root.PersistentFlags().Lookup("log-json"))
	})
}

func Test_LoadConfig(t *testing.T) {
	t.Run("Should anchor a relative workdir to the invocation directory", func(t *testing.T) {
		base := t.TempDir()
		t.Chdir(base)
		cmd := RunCmd()
		require.NoError(t, cmd.Flags().Set("workdir", "nested/work"))
		cfg, err := loadConfig(cmd)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(cfg.Workdir))
		assert.Equal(t, filepath.Join(base, "nested", "work"), cfg.Workdir)
	})
	t.Run("Should keep an absolute workdir as given", func(t *testing.T) {
		workdir := t.TempDir()
		cmd := RunCmd()
		require.NoError(t, cmd.Flags().Set("workdir", workdir))
		cfg, err := loadConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, workdir, cfg.Workdir)
	})
}

func Test_RunCommand(t *testing.T) {
	t.Run("Should run a schedule end to end", func(t *testing.T) {
		t.Chdir(t.TempDir())
		root := RootCmd()
		root.SetArgs([]string{"run", "demo-build", "-w", t.TempDir(), "demo-build/target=kernel"})
		require.NoError(t, root.Execute())
	})
	t.Run("Should fail on unknown tasks", func(t *testing.T) {
		root := RootCmd()
		root.SetArgs([]string{"run", "no-such-task", "-w", t.TempDir()})
		root.SetErr(&bytes.Buffer{})
		err := root.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown task")
	})
	t.Run("Should fail on malformed parameter tokens", func(t *testing.T) {
		root := RootCmd()
		root.SetArgs([]string{"run", "demo-build", "-w", t.TempDir(), "target=kernel"})
		root.SetErr(&bytes.Buffer{})
		err := root.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MALFORMED_PARAMETER")
	})
	t.Run("Should record an alias and replay it", func(t *testing.T) {
		t.Chdir(t.TempDir())
		workdir := t.TempDir()
		root := RootCmd()
		root.SetArgs([]string{"run", "demo-build", "-w", workdir, "-a", "nightly", "demo-build/target=world"})
		require.NoError(t, root.Execute())

		state, err := config.LoadState(workdir)
		require.NoError(t, err)
		alias, ok := state.LookupAlias("nightly")
		require.True(t, ok)
		assert.Equal(t, "demo-build", alias.Task)
		assert.Equal(t, []string{"demo-build/target=world"}, alias.Parameters)

		replay := RootCmd()
		replay.SetArgs([]string{"run", "nightly", "-w", workdir})
		require.NoError(t, replay.Execute())
	})
}

func Test_ResolveTarget(t *testing.T) {
	t.Run("Should prefer registered tasks over aliases", func(t *testing.T) {
		state, err := config.LoadState(t.TempDir())
		require.NoError(t, err)
		def, tokens, err := resolveTarget(state, []string{"demo-build", "demo-build/jobs=2"})
		require.NoError(t, err)
		assert.Same(t, demoTask, def)
		assert.Equal(t, []string{"demo-build/jobs=2"}, tokens)
	})
	t.Run("Should prepend alias tokens before the invocation's own", func(t *testing.T) {
		state, err := config.LoadState(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, state.AddAlias("nightly", "demo-build", []string{"demo-build/target=world"}))
		def, tokens, err := resolveTarget(state, []string{"nightly", "demo-build/jobs=2"})
		require.NoError(t, err)
		assert.Same(t, demoTask, def)
		assert.Equal(t, []string{"demo-build/target=world", "demo-build/jobs=2"}, tokens)
	})
	t.Run("Should fail when an alias names a task that no longer exists", func(t *testing.T) {
		state, err := config.LoadState(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, state.AddAlias("stale", "gone-task", nil))
		_, _, err = resolveTarget(state, []string{"stale"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gone-task")
	})
}

func Test_ShowCommand(t *testing.T) {
	t.Run("Should list task names and descriptions", func(t *testing.T) {
		var out bytes.Buffer
		root := RootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"show"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "demo-build")
		assert.Contains(t, out.String(), "Build a demo artifact")
	})
	t.Run("Should print the parameter table for one task", func(t *testing.T) {
		var out bytes.Buffer
		root := RootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"show", "demo-build", "-w", t.TempDir()})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "PARAMETER")
		assert.Contains(t, out.String(), "demo-build/jobs")
		assert.Contains(t, out.String(), "demo-build/target")
		assert.Contains(t, out.String(), string(task.SourceDefault))
		assert.Contains(t, out.String(), "CHOICES")
		assert.Contains(t, out.String(), "fast|safe")
	})
	t.Run("Should list bare names for completion", func(t *testing.T) {
		var out bytes.Buffer
		root := RootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"tasks"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "demo-build\n")
	})
}
