package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bibcite/internal/ir"
)

// executeCommand runs the root command with args and returns stdout,
// stderr and the error.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "bibcite", cmd.Use)
	assert.Contains(t, cmd.Long, "first appearance")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"parse", "validate", "resolve", "test", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestResolveCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	resolveCmd, _, err := cmd.Find([]string{"resolve"})
	require.NoError(t, err)

	for _, name := range []string{"bib", "db", "context"} {
		assert.NotNil(t, resolveCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := executeCommand(t, "--format", "xml", "parse", "testdata/olah.bib")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewLogger_Level(t *testing.T) {
	buf := &bytes.Buffer{}
	quiet := newLogger(&RootOptions{}, buf)
	quiet.Info("hidden")
	quiet.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	loud := newLogger(&RootOptions{Verbose: true}, buf)
	loud.Debug("details")
	assert.Contains(t, buf.String(), "details")
}

func TestVersionFlag(t *testing.T) {
	out, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "bibcite version "+ir.ToolVersion+"\n", out)
}
