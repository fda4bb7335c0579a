package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdialer/dialer-setup/internal/model"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("python", "", "")
	fs.StringSlice("pip-arg", nil, "")
	fs.Bool("skip-sip", false, "")
	fs.String("api-level", "", "")
	fs.String("sdk-root", "", "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	s, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, s.Python)
	assert.Empty(t, s.PipArgs)
	assert.False(t, s.SkipSIP)
	assert.Equal(t, "34", s.APILevel)
	assert.Empty(t, FileUsed())
}

func TestLoad_FileDiscovery(t *testing.T) {
	chdir(t, t.TempDir())
	content := "python: /opt/python/bin/python3\napi_level: \"33\"\n"
	require.NoError(t, os.WriteFile("dialer-setup.yaml", []byte(content), 0o644))

	s, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/python/bin/python3", s.Python)
	assert.Equal(t, "33", s.APILevel)
	assert.Equal(t, "dialer-setup.yaml", FileUsed())
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("nonexistent.yaml", nil)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("dialer-setup.yaml", []byte("sdk_root: /from/file\n"), 0o644))
	t.Setenv("DIALER_SETUP_SDK_ROOT", "/from/env")

	s, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", s.SDKRoot)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DIALER_SETUP_PYTHON", "/from/env")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--python", "/from/flag", "--skip-sip"}))

	s, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", s.Python)
	assert.True(t, s.SkipSIP)
}

func TestLoad_PipArgFlagMapsToList(t *testing.T) {
	chdir(t, t.TempDir())

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--pip-arg", "--index-url=https://mirror.internal/simple", "--pip-arg", "--no-cache-dir"}))

	s, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"--index-url=https://mirror.internal/simple", "--no-cache-dir"}, s.PipArgs)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("dialer-setup.yaml", []byte("api_level: \"35\"\n"), 0o644))

	fs := newFlagSet()
	require.NoError(t, fs.Parse(nil))

	s, err := Load("", fs)
	require.NoError(t, err)
	// The flag default must not clobber the file value.
	assert.Equal(t, "35", s.APILevel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("dialer-setup.yaml", []byte("python: [unclosed\n"), 0o644))

	_, err := Load("", nil)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
