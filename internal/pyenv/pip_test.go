package pyenv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// recordedCall captures one invocation passed to the injected runFunc.
type recordedCall struct {
	name string
	args []string
}

// recordingRun builds a runFunc that appends every invocation to calls and
// returns the given output/error.
func recordingRun(calls *[]recordedCall, out string, err error) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		return []byte(out), err
	}
}

// TestInstaller_Install verifies command construction: a single process per
// call, targeting "<python> -m pip install", with extra args between the
// subcommand and the requirements.
func TestInstaller_Install(t *testing.T) {
	var calls []recordedCall
	inst := NewInstaller("/usr/bin/python3", []string{"--index-url", "http://mirror.local/simple"})
	inst.run = recordingRun(&calls, "", nil)

	err := inst.Install(context.Background(), []string{"sounddevice", "vosk==0.3.45"})
	require.NoError(t, err)

	require.Len(t, calls, 1, "one Install call must map to exactly one installer invocation")
	assert.Equal(t, "/usr/bin/python3", calls[0].name)
	assert.Equal(t,
		[]string{"-m", "pip", "install", "--index-url", "http://mirror.local/simple", "sounddevice", "vosk==0.3.45"},
		calls[0].args)
}

// TestInstaller_Install_Empty verifies an empty requirement list is
// rejected before any process is spawned.
func TestInstaller_Install_Empty(t *testing.T) {
	var calls []recordedCall
	inst := NewInstaller("python", nil)
	inst.run = recordingRun(&calls, "", nil)

	err := inst.Install(context.Background(), nil)
	assert.Error(t, err)
	assert.Empty(t, calls)
}

// TestInstaller_Install_Failure verifies failures surface as CLIError with
// the pip exit code and carry the tail of pip's output for diagnosis.
func TestInstaller_Install_Failure(t *testing.T) {
	var calls []recordedCall
	inst := NewInstaller("python", nil)
	inst.run = recordingRun(&calls,
		"Collecting pjsua2\nERROR: No matching distribution found for pjsua2\n",
		errors.New("exit status 1"))

	err := inst.Install(context.Background(), []string{"pjsua2"})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitPipFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "No matching distribution found")
}

// TestInstaller_CheckImport verifies the import probe runs the interpreter
// with a bare import statement and reports failures with context.
func TestInstaller_CheckImport(t *testing.T) {
	var calls []recordedCall
	inst := NewInstaller("python", nil)
	inst.run = recordingRun(&calls, "", nil)

	require.NoError(t, inst.CheckImport(context.Background(), "sounddevice"))
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-c", "import sounddevice"}, calls[0].args)

	inst.run = recordingRun(&calls, "ModuleNotFoundError: No module named 'pjsua2'\n", errors.New("exit status 1"))
	err := inst.CheckImport(context.Background(), "pjsua2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ModuleNotFoundError")
}

// TestInstaller_PipVersion verifies the pip presence probe and its output
// trimming.
func TestInstaller_PipVersion(t *testing.T) {
	var calls []recordedCall
	inst := NewInstaller("python", nil)
	inst.run = recordingRun(&calls, "pip 24.0 from /usr/lib/python3/dist-packages/pip (python 3.11)\n", nil)

	got, err := inst.PipVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pip 24.0 from /usr/lib/python3/dist-packages/pip (python 3.11)", got)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-m", "pip", "--version"}, calls[0].args)
}

// TestOutputTail verifies tail extraction keeps only the last lines and
// stays empty for empty output.
func TestOutputTail(t *testing.T) {
	assert.Equal(t, "", outputTail(nil))
	assert.Equal(t, ": one", outputTail([]byte("one\n")))
	assert.Equal(t, ": b / c / d / e / f", outputTail([]byte("a\nb\nc\nd\ne\nf\n")))
}
