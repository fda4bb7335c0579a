// Package android provisions the Android SDK pieces the dialer's emulator
// accounts depend on: the command line tools, platform tools, the emulator,
// and the Android 14 system image, plus AVD creation and display tuning.
//
// This package wraps the SDK's own command line tools (sdkmanager,
// avdmanager) via os/exec rather than talking to any repository format
// directly — the SDK tools own component resolution and licensing, and
// bypassing them is unsupported by Google. The one thing the tools cannot
// do is install themselves, so the initial command line tools archive is
// fetched over HTTP and unpacked into the SDK root.
//
// All errors are wrapped in model.CLIError with ExitAndroidSDKError so the
// CLI layer reports a consistent exit code for SDK trouble.
package android
