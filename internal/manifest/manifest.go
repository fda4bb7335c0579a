// Package manifest defines the dependency manifest for the dialer's Python
// environment: which packages the setup command installs, the interpreter
// version floor, and the remediation guidance shown when the SIP binding
// cannot be installed from the default package channel.
//
// The default manifest is defined in code so the tool works with no files
// present. A requirements.yaml next to the working directory (or an explicit
// --manifest path) overrides individual sections.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// DefaultFilenames are the manifest filenames probed in the working
// directory when no explicit path is given, in priority order.
var DefaultFilenames = []string{"requirements.yaml", "requirements.yml"}

// Manifest describes the Python dependencies of the dialer.
type Manifest struct {
	// PythonMin is the minimum interpreter version, as "major.minor".
	PythonMin string `yaml:"python_min"`

	// Packages is the general dependency list installed in a single
	// installer invocation.
	Packages []model.PackageSpec `yaml:"packages"`

	// SIPBinding is the SIP library binding, installed separately because
	// its failure is non-fatal and carries its own remediation guidance.
	SIPBinding SIPBinding `yaml:"sip_binding"`
}

// SIPBinding describes the SIP telephony binding package and what to tell
// the user when installing it from the default channel fails.
type SIPBinding struct {
	Package model.PackageSpec `yaml:"package"`

	// Remediation lines are printed verbatim, one per line, when the
	// binding's installer invocation reports failure.
	Remediation []string `yaml:"remediation"`
}

// Default returns the built-in manifest. The package list and remediation
// text match what the dialer's install script has always used.
func Default() *Manifest {
	return &Manifest{
		PythonMin: "3.8",
		Packages: []model.PackageSpec{
			{Name: "sounddevice"},
			{Name: "vosk"},
			{Name: "requests"},
			{Name: "numpy"},
			{Name: "pyautogui"},
			{Name: "datetime"},
			{Name: "pyaudio"},
		},
		SIPBinding: SIPBinding{
			Package: model.PackageSpec{Name: "pjsua2"},
			Remediation: []string{
				"pjsua2 could not be installed from the default package channel.",
				"You can try one of the following instead:",
				"  - download a prebuilt pjsua2 wheel for your platform and install it manually",
				"  - install it from an alternate channel, e.g. conda install -c conda-forge pjsua2",
				"  - build pjproject from source with the Python SWIG bindings enabled",
				"The dialer will run without SIP support until pjsua2 is available.",
			},
		},
	}
}

// Load reads a manifest file and merges it over the defaults. Sections the
// file omits keep their default values, so a manifest that only pins one
// package version stays short.
//
// When path is empty, the default filenames are probed in the working
// directory; if none exists the built-in defaults are returned as-is.
// An explicit path that does not exist is an error.
func Load(path string) (*Manifest, error) {
	explicit := path != ""
	if !explicit {
		for _, name := range DefaultFilenames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("failed to read manifest %s", path), err)
	}

	var loaded Manifest
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("failed to parse manifest %s", path), err)
	}

	merged := Default()
	if loaded.PythonMin != "" {
		merged.PythonMin = loaded.PythonMin
	}
	if len(loaded.Packages) > 0 {
		merged.Packages = loaded.Packages
	}
	if loaded.SIPBinding.Package.Name != "" {
		merged.SIPBinding.Package = loaded.SIPBinding.Package
	}
	if len(loaded.SIPBinding.Remediation) > 0 {
		merged.SIPBinding.Remediation = loaded.SIPBinding.Remediation
	}

	if err := merged.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("invalid manifest %s", path), err)
	}
	return merged, nil
}

// Validate checks the manifest for values the rest of the tool relies on.
func (m *Manifest) Validate() error {
	if _, err := model.ParsePythonVersion(m.PythonMin); err != nil {
		return fmt.Errorf("python_min: %w", err)
	}
	if len(m.Packages) == 0 {
		return fmt.Errorf("packages list must not be empty")
	}
	for _, p := range m.Packages {
		if p.Name == "" {
			return fmt.Errorf("package entry with empty name")
		}
	}
	if m.SIPBinding.Package.Name == "" {
		return fmt.Errorf("sip_binding package name must not be empty")
	}
	return nil
}

// MinPythonVersion returns the parsed interpreter version floor.
// Validate guarantees the stored string parses.
func (m *Manifest) MinPythonVersion() model.PythonVersion {
	v, _ := model.ParsePythonVersion(m.PythonMin)
	return v
}

// Requirements renders the general package list in installer requirement
// syntax, in declaration order.
func (m *Manifest) Requirements() []string {
	reqs := make([]string, 0, len(m.Packages))
	for _, p := range m.Packages {
		reqs = append(reqs, p.Requirement())
	}
	return reqs
}
