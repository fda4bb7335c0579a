// Package config loads dialer-setup's own tool settings. These are
// distinct from the dialer application's config.json (internal/appconfig):
// settings here steer how the setup tool runs, not how the dialer behaves.
//
// Precedence, highest to lowest: command-line flags, DIALER_SETUP_*
// environment variables, a dialer-setup.yaml file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// envPrefix namespaces the environment variables the tool reads, e.g.
// DIALER_SETUP_PYTHON=C:\Python312\python.exe.
const envPrefix = "DIALER_SETUP_"

// configFileNames are searched in order in the working directory when no
// --settings path is given.
var configFileNames = []string{"dialer-setup.yaml", "dialer-setup.yml"}

// Settings holds the tool's resolved configuration.
type Settings struct {
	// Python forces a specific interpreter path instead of searching PATH.
	Python string `koanf:"python"`
	// PipArgs are extra arguments appended to every pip install invocation,
	// e.g. --index-url for an internal mirror.
	PipArgs []string `koanf:"pip_args"`
	// SkipSIP leaves the SIP binding uninstalled.
	SkipSIP bool `koanf:"skip_sip"`

	// Manifest is the path to a requirements.yaml overriding the built-in
	// package list. Empty means search the working directory.
	Manifest string `koanf:"manifest"`
	// AppConfig is where the dialer's config.json lives.
	AppConfig string `koanf:"app_config"`

	// SDKRoot overrides the Android SDK location.
	SDKRoot string `koanf:"sdk_root"`
	// APILevel selects the Android platform to provision.
	APILevel string `koanf:"api_level"`

	Verbose bool `koanf:"verbose"`
	JSON    bool `koanf:"json"`
}

// fileUsed records which settings file the last Load consumed, for
// "config path" style reporting.
var fileUsed string

// FileUsed returns the settings file the most recent Load read, or empty.
func FileUsed() string {
	return fileUsed
}

// findSettingsFile resolves the settings file to read. An explicit path
// must exist; otherwise the well-known names are probed.
func findSettingsFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("settings file %s not found", explicit), err)
		}
		return explicit, nil
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// Load resolves the tool settings from defaults, the settings file, the
// environment, and the given flag set. flags may be nil; only flags the
// user actually changed override lower layers.
func Load(settingsFile string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"python":     "",
		"pip_args":   []string{},
		"skip_sip":   false,
		"manifest":   "",
		"app_config": "",
		"sdk_root":   "",
		"api_level":  "34",
		"verbose":    false,
		"json":       false,
	}, "."), nil); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to load default settings", err)
	}

	path, err := findSettingsFile(settingsFile)
	if err != nil {
		return nil, err
	}
	fileUsed = path
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to read settings file %s", path), err)
		}
	}

	// DIALER_SETUP_SDK_ROOT -> sdk_root
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read environment settings", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// The flag is singular (--pip-arg, repeatable); the setting
			// holds the collected list.
			if key == "pip_arg" {
				key = "pip_args"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError, "failed to apply flag settings", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to decode settings", err)
	}
	return &s, nil
}
