package exec

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorInterface(t *testing.T) {
	var _ Executor = &RealExecutor{}
}

func TestSplit(t *testing.T) {
	name, args, err := Split([]string{"python", "-m", "app"})
	require.NoError(t, err)
	assert.Equal(t, "python", name)
	assert.Equal(t, []string{"-m", "app"}, args)

	name, args, err = Split([]string{"env"})
	require.NoError(t, err)
	assert.Equal(t, "env", name)
	assert.Empty(t, args)

	_, _, err = Split(nil)
	assert.ErrorIs(t, err, ErrNoCommand)

	_, _, err = Split([]string{""})
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestRealExecutor_CommandNotFound(t *testing.T) {
	e := &RealExecutor{}
	err := e.Exec("nonexistent-command-that-does-not-exist-12345", []string{})
	assert.Error(t, err)
}

func TestLookPath_NotFound(t *testing.T) {
	_, err := lookPath("nonexistent-command-xyz-12345")
	assert.Error(t, err)
}

func TestEnviron_IncludesLoadedVariables(t *testing.T) {
	t.Setenv("GEO_EXEC_TEST", "loaded")

	found := false
	for _, e := range environ() {
		if strings.HasPrefix(e, "GEO_EXEC_TEST=") {
			found = e == "GEO_EXEC_TEST=loaded"
		}
	}
	assert.True(t, found)
	assert.NotEmpty(t, os.Environ())
}
