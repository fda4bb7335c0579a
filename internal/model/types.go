// Package model defines the domain types for the dialer-setup CLI.
//
// All entities in this package represent the host-environment facts that
// the setup tool discovers and acts on: which Python interpreter is
// available, which packages the dialer needs, and how individual
// environment checks turned out.
package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ComponentStatus represents the observed state of a single environment
// component (interpreter, package, SDK tool) as reported by the doctor
// command.
type ComponentStatus string

const (
	// StatusOK indicates the component is present and usable.
	StatusOK ComponentStatus = "ok"

	// StatusMissing indicates the component could not be found at all.
	StatusMissing ComponentStatus = "missing"

	// StatusOutdated indicates the component is present but older than
	// the minimum supported version.
	StatusOutdated ComponentStatus = "outdated"

	// StatusFailed indicates the component exists but a probe of it
	// returned an error (e.g. an import check that raised).
	StatusFailed ComponentStatus = "failed"
)

// String returns the string representation of ComponentStatus.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s ComponentStatus) String() string {
	return string(s)
}

// IsValid checks whether the ComponentStatus value is one of the
// predefined valid states.
func (s ComponentStatus) IsValid() bool {
	switch s {
	case StatusOK, StatusMissing, StatusOutdated, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseComponentStatus converts a string to a ComponentStatus.
// Returns an error if the string does not match any valid status.
func ParseComponentStatus(s string) (ComponentStatus, error) {
	status := ComponentStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid component status: %q (valid: ok, missing, outdated, failed)", s)
	}
	return status, nil
}

// CheckResult records the outcome of a single doctor check.
// A slice of these is rendered as the doctor command's table or JSON output.
type CheckResult struct {
	// Component is the name of what was checked, e.g. "python" or
	// "package pyaudio".
	Component string `json:"component"`

	// Status is the observed state of the component.
	Status ComponentStatus `json:"status"`

	// Detail is an optional human-readable note: a resolved path,
	// a version string, or the first line of a probe error.
	Detail string `json:"detail,omitempty"`

	// Required marks checks whose failure makes the dialer unusable.
	// Optional components (e.g. the Android emulator) only produce
	// warnings when missing.
	Required bool `json:"required"`
}

// PackageSpec describes one Python package the dialer depends on.
type PackageSpec struct {
	// Name is the package name as known to the package installer
	// (the pip distribution name).
	Name string `json:"name" yaml:"name"`

	// Version optionally pins the package to an exact version.
	// Empty means "latest".
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// ImportName is the module name used to verify the package is
	// importable, when it differs from Name. Doctor probes use
	// EffectiveImportName, which falls back to Name.
	ImportName string `json:"import_name,omitempty" yaml:"import_name,omitempty"`
}

// Requirement renders the package in pip's requirement syntax:
// "name" or "name==version".
func (p PackageSpec) Requirement() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "==" + p.Version
}

// EffectiveImportName returns the module name to import when probing
// the package, defaulting to the distribution name.
func (p PackageSpec) EffectiveImportName() string {
	if p.ImportName != "" {
		return p.ImportName
	}
	return p.Name
}

// PythonVersion is a parsed interpreter version. Patch may be zero when
// the interpreter reports only "major.minor".
type PythonVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// versionRegex matches a dotted version with an optional patch component,
// e.g. "3.8" or "3.11.4".
var versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?$`)

// ParsePythonVersion parses a bare dotted version string ("3.11.4").
// Extracting the version token from interpreter output is the caller's
// job (see pyenv); this function only understands the token itself.
func ParsePythonVersion(s string) (PythonVersion, error) {
	m := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return PythonVersion{}, fmt.Errorf("invalid python version %q", s)
	}

	// The regex guarantees the captures are digit runs, so Atoi cannot fail.
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return PythonVersion{Major: major, Minor: minor, Patch: patch}, nil
}

// String returns the dotted form of the version, always including
// the patch component.
func (v PythonVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether the version is >= major.minor. The patch
// component is intentionally ignored: the dialer's floor is expressed
// as "3.8", never "3.8.1".
func (v PythonVersion) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// PythonInfo describes a resolved Python interpreter.
type PythonInfo struct {
	// Path is the absolute path of the interpreter executable
	// as resolved from the search path.
	Path string `json:"path"`

	// Version is the version the interpreter reported via --version.
	Version PythonVersion `json:"version"`
}

// avdNameRegex validates Android Virtual Device names. The avdmanager
// tool accepts letters, digits, dots, underscores and hyphens.
var avdNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateAVDName checks if the given name is acceptable to avdmanager.
func ValidateAVDName(name string) error {
	if name == "" {
		return fmt.Errorf("AVD name must not be empty")
	}
	if !avdNameRegex.MatchString(name) {
		return fmt.Errorf("invalid AVD name %q: must start with an alphanumeric character and contain only alphanumerics, dots, underscores and hyphens", name)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts
// and CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitPythonNotFound indicates no usable Python interpreter was
	// found on the search path (or the one found is below the minimum
	// supported version).
	ExitPythonNotFound ExitCode = 2

	// ExitPipFailed indicates a package installer invocation failed in a
	// context where the failure is fatal (e.g. doctor --strict).
	ExitPipFailed ExitCode = 3

	// ExitManifestError indicates the dependency manifest could not be
	// read or parsed.
	ExitManifestError ExitCode = 4

	// ExitAndroidSDKError indicates an Android SDK operation
	// (download, sdkmanager, avdmanager) failed.
	ExitAndroidSDKError ExitCode = 5

	// ExitConfigError indicates the application or tool configuration
	// could not be read or written.
	ExitConfigError ExitCode = 6

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
