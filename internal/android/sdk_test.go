package android

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// sdkCall captures one invocation passed to the injected commandRunner.
type sdkCall struct {
	stdin string
	env   []string
	name  string
	args  []string
}

// newTestSDK creates an SDK rooted in a temp directory with a recording
// runner that returns the given output/error.
func newTestSDK(t *testing.T, calls *[]sdkCall, out string, err error) *SDK {
	t.Helper()
	sdk := New(t.TempDir(), "34")
	sdk.goos = "linux"
	sdk.run = func(_ context.Context, stdin string, env []string, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, sdkCall{stdin: stdin, env: env, name: name, args: args})
		return []byte(out), err
	}
	return sdk
}

// installFakeTool creates an empty file at path so presence probes see the
// component as installed.
func installFakeTool(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}

// TestDefaultRoot verifies the environment variable precedence and the
// platform fallback.
func TestDefaultRoot(t *testing.T) {
	t.Setenv("ANDROID_HOME", "/opt/android-sdk")
	t.Setenv("ANDROID_SDK_ROOT", "/elsewhere")
	assert.Equal(t, "/opt/android-sdk", DefaultRoot(), "ANDROID_HOME should win")

	t.Setenv("ANDROID_HOME", "")
	assert.Equal(t, "/elsewhere", DefaultRoot(), "ANDROID_SDK_ROOT is the fallback")

	t.Setenv("ANDROID_SDK_ROOT", "")
	assert.NotEmpty(t, DefaultRoot(), "platform default should be non-empty")
}

// TestToolPaths verifies platform-specific launcher naming: batch scripts
// on Windows for the java-based tools, .exe for native binaries.
func TestToolPaths(t *testing.T) {
	sdk := New("/sdk", "34")

	sdk.goos = "linux"
	assert.Equal(t, filepath.Join("/sdk", "cmdline-tools", "latest", "bin", "sdkmanager"), sdk.SdkmanagerPath())
	assert.Equal(t, filepath.Join("/sdk", "platform-tools", "adb"), sdk.AdbPath())
	assert.Equal(t, filepath.Join("/sdk", "emulator", "emulator"), sdk.EmulatorPath())

	sdk.goos = "windows"
	assert.Equal(t, filepath.Join("/sdk", "cmdline-tools", "latest", "bin", "sdkmanager.bat"), sdk.SdkmanagerPath())
	assert.Equal(t, filepath.Join("/sdk", "cmdline-tools", "latest", "bin", "avdmanager.bat"), sdk.AvdmanagerPath())
	assert.Equal(t, filepath.Join("/sdk", "platform-tools", "adb.exe"), sdk.AdbPath())
	assert.Equal(t, filepath.Join("/sdk", "emulator", "emulator.exe"), sdk.EmulatorPath())
}

// TestSystemImagePackage verifies the sdkmanager package identifier for
// the configured API level.
func TestSystemImagePackage(t *testing.T) {
	assert.Equal(t, "system-images;android-34;google_apis;x86_64", New("/sdk", "34").SystemImagePackage())
	assert.Equal(t, "system-images;android-35;google_apis;x86_64", New("/sdk", "35").SystemImagePackage())
}

// TestRunSdkmanager verifies license answers are piped to stdin and the
// SDK environment variables are set for the child process.
func TestRunSdkmanager(t *testing.T) {
	var calls []sdkCall
	sdk := newTestSDK(t, &calls, "", nil)
	installFakeTool(t, sdk.SdkmanagerPath())

	require.NoError(t, sdk.RunSdkmanager(context.Background(), "platform-tools"))

	require.Len(t, calls, 1)
	assert.Equal(t, sdk.SdkmanagerPath(), calls[0].name)
	assert.Equal(t, []string{"platform-tools"}, calls[0].args)
	assert.Equal(t, licenseAnswers, calls[0].stdin)
	assert.Contains(t, calls[0].env, "ANDROID_HOME="+sdk.Root)
	assert.Contains(t, calls[0].env, "ANDROID_SDK_ROOT="+sdk.Root)
}

// TestRunSdkmanager_Missing verifies a missing sdkmanager is reported with
// the Android exit code and bootstrap guidance, without spawning anything.
func TestRunSdkmanager_Missing(t *testing.T) {
	var calls []sdkCall
	sdk := newTestSDK(t, &calls, "", nil)

	err := sdk.RunSdkmanager(context.Background(), "emulator")
	require.Error(t, err)
	assert.Empty(t, calls)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitAndroidSDKError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "android install")
}

// TestProvision_SkipsInstalledComponents verifies idempotency: components
// whose on-disk probe succeeds are not handed to sdkmanager again.
func TestProvision_SkipsInstalledComponents(t *testing.T) {
	var calls []sdkCall
	sdk := newTestSDK(t, &calls, "", nil)

	// Everything except the platform package is already on disk.
	installFakeTool(t, sdk.SdkmanagerPath())
	installFakeTool(t, sdk.AdbPath())
	installFakeTool(t, sdk.EmulatorPath())
	require.NoError(t, os.MkdirAll(sdk.systemImageDir(), 0o755))

	require.NoError(t, sdk.Provision(context.Background(), nil))

	// Only the platform install (no cheap presence probe) runs.
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"platforms;android-34"}, calls[0].args)
}

// TestProvision_InstallsMissingComponents verifies the full component
// sequence when only the command line tools are present.
func TestProvision_InstallsMissingComponents(t *testing.T) {
	var calls []sdkCall
	sdk := newTestSDK(t, &calls, "", nil)
	installFakeTool(t, sdk.SdkmanagerPath())

	var statuses []string
	sdk.Status = func(msg string) { statuses = append(statuses, msg) }

	require.NoError(t, sdk.Provision(context.Background(), nil))

	require.Len(t, calls, 4)
	assert.Equal(t, []string{"platform-tools"}, calls[0].args)
	assert.Equal(t, []string{"emulator"}, calls[1].args)
	assert.Equal(t, []string{"platforms;android-34"}, calls[2].args)
	assert.Equal(t, []string{"system-images;android-34;google_apis;x86_64"}, calls[3].args)
	assert.NotEmpty(t, statuses)
}
