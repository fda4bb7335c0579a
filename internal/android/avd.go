package android

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// avdDevice is the hardware profile AVDs are created from. The Pixel 6
// profile matches the 1080x2400 display the dialer's tap coordinates
// were calibrated against.
const avdDevice = "pixel_6"

// DefaultResolution is the display resolution AVDs are tuned to.
const DefaultResolution = "1080x2400"

// firstEmulatorPort is the console port of the first emulator instance.
// adb assigns emulator serials as "emulator-<port>" with consecutive
// even ports.
const firstEmulatorPort = 5554

// AccountAssignment pairs a dialer account index with the AVD and
// emulator console port provisioned for it.
type AccountAssignment struct {
	// Index is the 1-based dialer account number.
	Index int `json:"index"`

	// AVDName is the virtual device created for the account.
	AVDName string `json:"avdName"`

	// EmulatorPort is the emulator console port the account's instance
	// should bind, consecutive even numbers from 5554.
	EmulatorPort int `json:"emulatorPort"`
}

// AVDManager creates and inspects Android Virtual Devices through
// avdmanager, and post-tunes their config.ini for the dialer's display
// requirements.
type AVDManager struct {
	sdk *SDK

	// avdHome is where AVD data directories live (~/.android/avd).
	avdHome string

	run commandRunner
}

// NewAVDManager creates an AVDManager for the given SDK.
func NewAVDManager(sdk *SDK) *AVDManager {
	home, _ := os.UserHomeDir()
	return &AVDManager{
		sdk:     sdk,
		avdHome: filepath.Join(home, ".android", "avd"),
		run:     sdk.run,
	}
}

// Create creates (or recreates) an AVD with the given name, based on the
// configured system image and the Pixel 6 hardware profile, then pins its
// display configuration to the given "WxH" resolution.
//
// avdmanager prompts "Do you wish to create a custom hardware profile?";
// feeding "no" keeps the device profile's defaults, which the config.ini
// rewrite then adjusts.
func (m *AVDManager) Create(ctx context.Context, name, resolution string) error {
	if err := model.ValidateAVDName(name); err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "cannot create AVD", err)
	}

	manager := m.sdk.AvdmanagerPath()
	if !fileExists(manager) {
		return model.NewCLIError(model.ExitAndroidSDKError,
			fmt.Sprintf("avdmanager not found at %s (run \"dialer-setup android install\" first)", manager))
	}

	m.sdk.status("Creating AVD %s (%s, %s)", name, avdDevice, resolution)
	args := []string{
		"create", "avd",
		"--name", name,
		"--package", m.sdk.SystemImagePackage(),
		"--device", avdDevice,
		"--force",
	}
	out, err := m.run(ctx, "no\n", m.sdk.envVars(), manager, args...)
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError,
			fmt.Sprintf("avdmanager create avd %s failed%s", name, outputTail(out)), err)
	}

	if err := m.tuneDisplay(name, resolution); err != nil {
		return err
	}

	m.sdk.status("AVD %s created", name)
	return nil
}

// List returns the names of existing AVDs as reported by
// "avdmanager list avd".
func (m *AVDManager) List(ctx context.Context) ([]string, error) {
	manager := m.sdk.AvdmanagerPath()
	if !fileExists(manager) {
		// No tools means no AVDs; doctor treats this as an empty list
		// rather than an error.
		return nil, nil
	}

	out, err := m.run(ctx, "", m.sdk.envVars(), manager, "list", "avd")
	if err != nil {
		return nil, model.WrapCLIError(model.ExitAndroidSDKError,
			fmt.Sprintf("avdmanager list avd failed%s", outputTail(out)), err)
	}
	return parseAVDList(string(out)), nil
}

// CreateForAccounts provisions one AVD per dialer account, named
// "<base>_Account_<n>", and returns the resulting account assignments so
// the app config can be updated to match.
func (m *AVDManager) CreateForAccounts(ctx context.Context, base, resolution string, count int) ([]AccountAssignment, error) {
	if count < 1 {
		return nil, fmt.Errorf("account count must be at least 1, got %d", count)
	}

	assignments := AccountAssignments(base, count)
	for _, a := range assignments {
		if err := m.Create(ctx, a.AVDName, resolution); err != nil {
			return nil, err
		}
	}
	return assignments, nil
}

// AccountAssignments computes the per-account AVD names and emulator
// console ports without touching the SDK. Ports advance in steps of two
// because each emulator instance claims a console/adb port pair.
func AccountAssignments(base string, count int) []AccountAssignment {
	assignments := make([]AccountAssignment, 0, count)
	for i := 1; i <= count; i++ {
		assignments = append(assignments, AccountAssignment{
			Index:        i,
			AVDName:      fmt.Sprintf("%s_Account_%d", base, i),
			EmulatorPort: firstEmulatorPort + (i-1)*2,
		})
	}
	return assignments
}

// tuneDisplay rewrites the AVD's config.ini so the emulator renders the
// exact resolution the dialer's automation coordinates assume.
func (m *AVDManager) tuneDisplay(name, resolution string) error {
	settings, err := displaySettings(resolution)
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "invalid resolution", err)
	}

	configPath := filepath.Join(m.avdHome, name+".avd", "config.ini")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// avdmanager succeeded but laid the AVD out elsewhere
			// (ANDROID_AVD_HOME override). Leave the defaults alone.
			m.sdk.status("config.ini not found for %s, skipping display tuning", name)
			return nil
		}
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to read AVD config", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	updated := updateConfigINI(lines, settings)

	content := strings.Join(updated, "\n") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to write AVD config", err)
	}
	return nil
}

// displaySettings expands a "WxH" resolution into the config.ini keys to
// pin. The key set matches what the emulator consults for LCD geometry
// and rendering.
func displaySettings(resolution string) (map[string]string, error) {
	width, height, ok := strings.Cut(resolution, "x")
	if !ok || width == "" || height == "" {
		return nil, fmt.Errorf("resolution must be WIDTHxHEIGHT, got %q", resolution)
	}
	for _, part := range []string{width, height} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return nil, fmt.Errorf("resolution must be numeric, got %q", resolution)
			}
		}
	}

	return map[string]string{
		"hw.lcd.width":   width,
		"hw.lcd.height":  height,
		"hw.lcd.density": "440",
		"skin.name":      resolution,
		"skin.path":      resolution,
		"hw.device.name": avdDevice,
		"hw.gpu.enabled": "yes",
		"hw.gpu.mode":    "auto",
	}, nil
}

// updateConfigINI applies settings to config.ini lines: existing keys are
// replaced in place, new keys are appended in sorted order so the output
// is deterministic. Lines that are not key=value pairs pass through
// untouched.
func updateConfigINI(lines []string, settings map[string]string) []string {
	remaining := make(map[string]string, len(settings))
	for k, v := range settings {
		remaining[k] = v
	}

	updated := make([]string, 0, len(lines)+len(settings))
	for _, line := range lines {
		key, _, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if ok {
			if value, hit := remaining[key]; hit {
				updated = append(updated, key+"="+value)
				delete(remaining, key)
				continue
			}
		}
		updated = append(updated, line)
	}

	missing := make([]string, 0, len(remaining))
	for k := range remaining {
		missing = append(missing, k)
	}
	sort.Strings(missing)
	for _, k := range missing {
		updated = append(updated, k+"="+remaining[k])
	}

	return updated
}

// parseAVDList extracts AVD names from "avdmanager list avd" output,
// which reports each device in an indented block starting with
// "Name: <avd>".
func parseAVDList(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "Name:"); ok {
			name := strings.TrimSpace(rest)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
