package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomancy/geo/pkg/exec"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	resetFlags(rootCmd)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// unsetEnv clears name for the test and restores it afterwards.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

const passingChecks = `
[Environment]
desc = "Environment"

[Environment.User]
checkEnv = "GEO_CLI_USER"
`

func TestVersionFlag(t *testing.T) {
	output, err := executeCommand("--version")
	require.NoError(t, err)
	assert.Contains(t, output, "geo version")
}

func TestCheck_Passes(t *testing.T) {
	t.Setenv("GEO_CLI_USER", "ada")
	file := writeTempFile(t, "geomancy.toml", passingChecks)

	for _, args := range [][]string{{file}, {"check", file}} {
		output, err := executeCommand(args...)
		require.NoError(t, err, args)
		assert.Contains(t, output, "[OK] Environment")
		assert.Contains(t, output, "value: ada")
		assert.Contains(t, output, "PASSED 1 passed, 0 failed")
	}
}

func TestCheck_Fails(t *testing.T) {
	unsetEnv(t, "GEO_CLI_USER")
	file := writeTempFile(t, "geomancy.toml", passingChecks)

	output, err := executeCommand(file)
	require.ErrorIs(t, err, ErrCheckFailed)
	assert.Equal(t, exitFailed, exitCode(err))
	assert.Contains(t, output, "[FAIL] Check environment variable 'GEO_CLI_USER' (missing)")
}

func TestCheck_YAMLAndMultipleFiles(t *testing.T) {
	t.Setenv("GEO_CLI_USER", "ada")
	dir := t.TempDir()
	toml := writeTempFile(t, "a.toml", passingChecks)
	yml := writeTempFile(t, "b.yaml", "Paths:\n  Temp:\n    checkPath: "+dir+"\n    type: dir\n")

	output, err := executeCommand(toml, yml)
	require.NoError(t, err)
	assert.Contains(t, output, "[OK] Checking 2 files")
	assert.Contains(t, output, "[OK] a.toml")
	assert.Contains(t, output, "[OK] b.yaml")
}

func TestCheck_Discovery(t *testing.T) {
	t.Setenv("GEO_CLI_USER", "ada")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(`
[project]
name = "app"

[tool.geomancy.Env]
checkEnv = "GEO_CLI_USER"
`), 0o600))
	t.Chdir(dir)

	output, err := executeCommand()
	require.NoError(t, err)
	assert.Contains(t, output, "[OK] pyproject.toml")
}

func TestCheck_Errors(t *testing.T) {
	empty := writeTempFile(t, "empty.toml", "title = \"nothing here\"\n")
	bad := writeTempFile(t, "bad.toml", "[A]\ncheckEnv = \"X\"\ncheckPath = \"/tmp\"\n")
	unknownSetting := writeTempFile(t, "settings.toml", "[config]\nthreads = 4\n"+passingChecks)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no checks", []string{empty}, "no checks were found in " + empty},
		{"ambiguous type", []string{bad}, "only one check type may be specified"},
		{"unknown setting", []string{unknownSetting}, "threads"},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.toml")}, "check file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, errors.Is(err, ErrCheckFailed))
		})
	}
}

func TestCheck_NothingDiscovered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o700))
	t.Chdir(dir)

	_, err := executeCommand("check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no check file found (looked for pyproject.toml")
}

func TestEnvFiles(t *testing.T) {
	unsetEnv(t, "GEO_CLI_USER")
	envFile := writeTempFile(t, "test.env", "GEO_CLI_USER=from-file\n")
	file := writeTempFile(t, "geomancy.toml", passingChecks)

	output, err := executeCommand("-e", envFile, file)
	require.NoError(t, err)
	assert.Contains(t, output, "value: from-file")
}

func TestEnvFiles_Overwrite(t *testing.T) {
	t.Setenv("GEO_CLI_USER", "original")
	envFile := writeTempFile(t, "test.env", "GEO_CLI_USER=replaced\n")
	file := writeTempFile(t, "geomancy.toml", passingChecks)

	output, err := executeCommand("-e", envFile, file)
	require.NoError(t, err)
	assert.Contains(t, output, "value: original")

	output, err = executeCommand("-e", envFile, "--overwrite", file)
	require.NoError(t, err)
	assert.Contains(t, output, "value: replaced")
}

func TestOverwriteWithoutEnv(t *testing.T) {
	_, err := executeCommand("--overwrite")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
	assert.Contains(t, err.Error(), "--overwrite requires --env")
}

func TestConfigCommand(t *testing.T) {
	file := writeTempFile(t, "geomancy.toml", "[config]\nworkers = 3\ntimeout = \"10s\"\n\n[config.aws]\nkey_age = 30\n"+passingChecks)

	output, err := executeCommand("config", file)
	require.NoError(t, err)
	assert.Contains(t, output, "[config]")
	assert.Contains(t, output, "workers = 3")
	assert.Contains(t, output, "timeout = '10s'")
	assert.Contains(t, output, "key_age = 30")

	output, err = executeCommand("config", "--yaml", "-w", "8", file)
	require.NoError(t, err)
	assert.Contains(t, output, "config:\n")
	assert.Contains(t, output, "workers: 8")

	_, err = executeCommand("config", "--yaml", "--toml")
	assert.Error(t, err)
}

func TestConfigCommand_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	output, err := executeCommand("config", "--disable-color")
	require.NoError(t, err)
	assert.Contains(t, output, "poll_interval = '500ms'")
	assert.Contains(t, output, "color = false")
	assert.Contains(t, output, "python = 'python3'")
}

type recordingExecutor struct {
	name string
	args []string
	env  string
}

func (e *recordingExecutor) Exec(name string, args []string) error {
	e.name, e.args = name, args
	e.env = os.Getenv("GEO_CLI_RUN")
	return nil
}

func TestRunCommand(t *testing.T) {
	unsetEnv(t, "GEO_CLI_RUN")
	rec := &recordingExecutor{}
	original := executor
	executor = rec
	t.Cleanup(func() { executor = original })

	envFile := writeTempFile(t, "run.env", "GEO_CLI_RUN=yes\n")

	_, err := executeCommand("run", "-e", envFile, "--", "python", "-m", "app")
	require.NoError(t, err)
	assert.Equal(t, "python", rec.name)
	assert.Equal(t, []string{"-m", "app"}, rec.args)
	assert.Equal(t, "yes", rec.env)

	_, err = executeCommand("run", "ls", "-la")
	require.NoError(t, err)
	assert.Equal(t, "ls", rec.name)
	assert.Equal(t, []string{"-la"}, rec.args)

	_, err = executeCommand("run")
	require.ErrorIs(t, err, exec.ErrNoCommand)
	assert.Equal(t, exitUsage, exitCode(err))
}
