package android

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// DefaultAPILevel is the Android platform the dialer's emulator images
// target (Android 14).
const DefaultAPILevel = "34"

// licenseAnswers is fed to sdkmanager's stdin so component installs do not
// hang on interactive license prompts.
const licenseAnswers = "y\ny\ny\ny\ny\n"

// commandRunner executes an external command with the given stdin and
// extra environment entries, returning combined output. Injectable so
// tests can record invocations without an SDK present.
type commandRunner func(ctx context.Context, stdin string, extraEnv []string, name string, args ...string) ([]byte, error)

// runSDKCommand is the real commandRunner.
func runSDKCommand(ctx context.Context, stdin string, extraEnv []string, name string, args ...string) ([]byte, error) {
	// #nosec G204 — name is a path computed under the SDK root, args are
	// fixed package identifiers.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	return cmd.CombinedOutput()
}

// SDK represents an Android SDK installation root and knows how to inspect
// and extend it.
type SDK struct {
	// Root is the SDK installation directory (ANDROID_HOME).
	Root string

	// APILevel is the Android platform version to provision, e.g. "34".
	APILevel string

	// Status, when set, receives human-readable progress messages.
	Status func(message string)

	// goos selects platform-specific tool names and archive URLs.
	// Defaults to runtime.GOOS; overridden in tests.
	goos string

	// cmdlineToolsURL overrides the download URL when non-empty.
	// Tests point it at a local httptest server.
	cmdlineToolsURL string

	run commandRunner
}

// New creates an SDK for the given root. An empty root falls back to
// DefaultRoot; an empty apiLevel falls back to DefaultAPILevel.
func New(root, apiLevel string) *SDK {
	if root == "" {
		root = DefaultRoot()
	}
	if apiLevel == "" {
		apiLevel = DefaultAPILevel
	}
	return &SDK{
		Root:     root,
		APILevel: apiLevel,
		goos:     runtime.GOOS,
		run:      runSDKCommand,
	}
}

// DefaultRoot resolves the SDK root the way the SDK tools themselves do:
// ANDROID_HOME, then ANDROID_SDK_ROOT, then the per-platform default
// location used by Android Studio.
func DefaultRoot() string {
	if home := os.Getenv("ANDROID_HOME"); home != "" {
		return home
	}
	if root := os.Getenv("ANDROID_SDK_ROOT"); root != "" {
		return root
	}
	return defaultRootFor(runtime.GOOS)
}

// defaultRootFor returns the Android Studio default SDK location for the
// given platform.
func defaultRootFor(goos string) string {
	switch goos {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Android", "Sdk")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Android", "sdk")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Android", "Sdk")
	}
}

// scriptName appends the batch extension on Windows, where the SDK ships
// its launchers as .bat scripts.
func scriptName(base, goos string) string {
	if goos == "windows" {
		return base + ".bat"
	}
	return base
}

// exeName appends .exe on Windows for native SDK binaries.
func exeName(base, goos string) string {
	if goos == "windows" {
		return base + ".exe"
	}
	return base
}

// SdkmanagerPath returns the sdkmanager launcher path under the SDK root.
func (s *SDK) SdkmanagerPath() string {
	return filepath.Join(s.Root, "cmdline-tools", "latest", "bin", scriptName("sdkmanager", s.goos))
}

// AvdmanagerPath returns the avdmanager launcher path under the SDK root.
func (s *SDK) AvdmanagerPath() string {
	return filepath.Join(s.Root, "cmdline-tools", "latest", "bin", scriptName("avdmanager", s.goos))
}

// EmulatorPath returns the emulator binary path under the SDK root.
func (s *SDK) EmulatorPath() string {
	return filepath.Join(s.Root, "emulator", exeName("emulator", s.goos))
}

// AdbPath returns the adb binary path under the SDK root.
func (s *SDK) AdbPath() string {
	return filepath.Join(s.Root, "platform-tools", exeName("adb", s.goos))
}

// SystemImagePackage returns the sdkmanager package identifier for the
// dialer's emulator system image.
func (s *SDK) SystemImagePackage() string {
	return fmt.Sprintf("system-images;android-%s;google_apis;x86_64", s.APILevel)
}

// systemImageDir is where the system image lands once installed.
func (s *SDK) systemImageDir() string {
	return filepath.Join(s.Root, "system-images", "android-"+s.APILevel, "google_apis", "x86_64")
}

// CmdlineToolsInstalled reports whether the command line tools launcher
// exists under the SDK root.
func (s *SDK) CmdlineToolsInstalled() bool {
	return fileExists(s.SdkmanagerPath())
}

// PlatformToolsInstalled reports whether adb is installed.
func (s *SDK) PlatformToolsInstalled() bool {
	return fileExists(s.AdbPath())
}

// EmulatorInstalled reports whether the emulator binary is installed.
func (s *SDK) EmulatorInstalled() bool {
	return fileExists(s.EmulatorPath())
}

// SystemImageInstalled reports whether the target system image directory
// exists.
func (s *SDK) SystemImageInstalled() bool {
	return fileExists(s.systemImageDir())
}

// envVars returns the environment entries the SDK tools need to resolve
// their own installation.
func (s *SDK) envVars() []string {
	return []string{
		"ANDROID_HOME=" + s.Root,
		"ANDROID_SDK_ROOT=" + s.Root,
	}
}

// RunSdkmanager invokes sdkmanager with the given package arguments,
// answering license prompts affirmatively. Callers bound execution time
// through ctx; component downloads can take minutes.
func (s *SDK) RunSdkmanager(ctx context.Context, args ...string) error {
	manager := s.SdkmanagerPath()
	if !fileExists(manager) {
		return model.NewCLIError(model.ExitAndroidSDKError,
			fmt.Sprintf("sdkmanager not found at %s (run \"dialer-setup android install\" to bootstrap the command line tools)", manager))
	}

	s.status("Running sdkmanager %s", strings.Join(args, " "))
	out, err := s.run(ctx, licenseAnswers, s.envVars(), manager, args...)
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError,
			fmt.Sprintf("sdkmanager %s failed%s", strings.Join(args, " "), outputTail(out)), err)
	}
	return nil
}

// InstallPlatformTools installs adb and fastboot.
func (s *SDK) InstallPlatformTools(ctx context.Context) error {
	return s.RunSdkmanager(ctx, "platform-tools")
}

// InstallEmulator installs the Android emulator.
func (s *SDK) InstallEmulator(ctx context.Context) error {
	return s.RunSdkmanager(ctx, "emulator")
}

// InstallPlatform installs the Android platform for the configured API level.
func (s *SDK) InstallPlatform(ctx context.Context) error {
	return s.RunSdkmanager(ctx, "platforms;android-"+s.APILevel)
}

// InstallSystemImage installs the emulator system image for the configured
// API level.
func (s *SDK) InstallSystemImage(ctx context.Context) error {
	return s.RunSdkmanager(ctx, s.SystemImagePackage())
}

// Provision brings the SDK to the state the dialer needs, skipping steps
// that are already satisfied so re-runs are cheap. The HTTP client is used
// only when the command line tools themselves are missing.
func (s *SDK) Provision(ctx context.Context, client *http.Client) error {
	if err := s.EnsureCmdlineTools(ctx, client); err != nil {
		return err
	}

	steps := []struct {
		name      string
		installed func() bool
		install   func(context.Context) error
	}{
		{"platform-tools", s.PlatformToolsInstalled, s.InstallPlatformTools},
		{"emulator", s.EmulatorInstalled, s.InstallEmulator},
		// The platform package has no cheap on-disk probe that survives
		// partial installs, so it is always handed to sdkmanager, which
		// is itself a no-op for present packages.
		{"platform android-" + s.APILevel, func() bool { return false }, s.InstallPlatform},
		{"system image", s.SystemImageInstalled, s.InstallSystemImage},
	}

	for _, step := range steps {
		if step.installed() {
			s.status("%s already installed, skipping", step.name)
			continue
		}
		s.status("Installing %s", step.name)
		if err := step.install(ctx); err != nil {
			return err
		}
	}

	s.status("Android SDK ready at %s", s.Root)
	return nil
}

// status reports progress through the Status callback when one is set.
func (s *SDK) status(format string, args ...any) {
	if s.Status != nil {
		s.Status(fmt.Sprintf(format, args...))
	}
}

// fileExists reports whether the path exists (file or directory).
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// outputTail formats the last lines of tool output for error messages.
func outputTail(out []byte) string {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return ": " + strings.Join(lines, " / ")
}
