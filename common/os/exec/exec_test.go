package exec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	cmd := NewOsExec().Command("sh", "-c", "echo hello")
	out := &bytes.Buffer{}
	cmd.SetStdout(out)
	require.NoError(t, cmd.Run())
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, []string{"sh", "-c", "echo hello"}, cmd.Args())
}

func TestExitError(t *testing.T) {
	cmd := NewOsExec().Command("sh", "-c", "exit 7")
	require.NoError(t, cmd.Start())
	err := cmd.Wait()
	exitErr, ok := err.(ExitError)
	require.True(t, ok, "%T is not an ExitError", err)
	assert.True(t, exitErr.Exited())
	assert.False(t, exitErr.Signaled())
	assert.Equal(t, 7, exitErr.ExitStatus())
	assert.Equal(t, []string{"sh", "-c", "exit 7"}, exitErr.Args())
}

func TestStartFailureIsNotExitError(t *testing.T) {
	err := NewOsExec().Command("/no/such/binary").Start()
	require.Error(t, err)
	_, ok := err.(ExitError)
	assert.False(t, ok)
}

func TestFakeExec(t *testing.T) {
	fail := &FakeExitError{Status: 2, Cmd: []string{"make", "fail"}}
	f := NewFakeExec(map[string]error{"make fail": fail})
	assert.NoError(t, f.Command("make", "ok").Run())
	assert.Equal(t, fail, f.Command("make", "fail").Run())

	cmd := f.Command("make")
	assert.Error(t, cmd.Wait())
	assert.Equal(t, []string{"make ok", "make fail"}, f.Ran())
}
