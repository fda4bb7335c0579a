package pyenv

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// NotFoundMessage is the user-facing text printed when no usable
// interpreter is on the search path. The setup command aborts with
// model.ExitPythonNotFound after printing it.
const NotFoundMessage = "Python was not found on your PATH. Please install Python 3.8 or newer " +
	"from https://www.python.org/downloads/ and make sure the installer adds it to PATH."

// defaultCandidates are the interpreter names probed on the search path,
// in order. "py" is the Windows launcher.
var defaultCandidates = []string{"python", "python3", "py"}

// pythonVersionRegex extracts the version token from interpreter output
// like "Python 3.11.4". Old interpreters print this line to stderr, so
// callers probe combined output.
var pythonVersionRegex = regexp.MustCompile(`Python\s+(\d+\.\d+(?:\.\d+)?)`)

// runFunc executes an external command and returns its combined output.
// It exists so tests can substitute a recorder for real process execution.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// runCombined is the real runFunc, backed by exec.CommandContext.
func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 — the command name comes from LookPath or operator config,
	// never from untrusted input.
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Finder resolves a usable Python interpreter from the search path.
//
// The zero value is not usable; construct with NewFinder.
type Finder struct {
	// Override, when non-empty, is tried before the default candidates.
	// It may be a bare name (resolved via PATH) or a full path.
	Override string

	lookPath func(string) (string, error)
	run      runFunc
}

// NewFinder creates a Finder. override may be empty, in which case only
// the default candidate names are probed.
func NewFinder(override string) *Finder {
	return &Finder{
		Override: override,
		lookPath: exec.LookPath,
		run:      runCombined,
	}
}

// Find locates the first interpreter candidate that resolves on the search
// path and successfully reports a version. It returns a CLIError with
// ExitPythonNotFound when no candidate works — the caller is expected to
// stop hard before attempting any package installation.
//
// Find does NOT gate on the minimum version; that is CheckVersion's job,
// so the caller can produce a distinct "too old" message with the found
// version in it.
func (f *Finder) Find(ctx context.Context) (*model.PythonInfo, error) {
	candidates := f.candidates()

	for _, name := range candidates {
		path, err := f.lookPath(name)
		if err != nil {
			continue
		}

		version, err := f.queryVersion(ctx, path)
		if err != nil {
			// Resolved but not runnable (broken shim, Windows Store
			// alias). Keep probing the remaining candidates.
			continue
		}

		return &model.PythonInfo{Path: path, Version: version}, nil
	}

	return nil, model.NewCLIError(model.ExitPythonNotFound, NotFoundMessage)
}

// CheckVersion gates a found interpreter against the manifest's version
// floor. A too-old interpreter is reported with the same exit code as a
// missing one: either way setup cannot proceed.
func (f *Finder) CheckVersion(info *model.PythonInfo, min model.PythonVersion) error {
	if info.Version.AtLeast(min.Major, min.Minor) {
		return nil
	}
	return model.NewCLIError(model.ExitPythonNotFound,
		fmt.Sprintf("found Python %s at %s, but version %d.%d or newer is required. Please upgrade your Python installation.",
			info.Version, info.Path, min.Major, min.Minor))
}

// candidates returns the probe order, with the override (if any) first.
func (f *Finder) candidates() []string {
	if f.Override == "" {
		return defaultCandidates
	}
	return append([]string{f.Override}, defaultCandidates...)
}

// queryVersion runs "<python> --version" and parses the reported version.
func (f *Finder) queryVersion(ctx context.Context, path string) (model.PythonVersion, error) {
	out, err := f.run(ctx, path, "--version")
	if err != nil {
		return model.PythonVersion{}, fmt.Errorf("%s --version failed: %w", path, err)
	}
	return extractVersion(string(out))
}

// extractVersion pulls the version out of "--version" output. The "Python"
// prefix is matched case-sensitively; every CPython since 2.5 prints it.
func extractVersion(output string) (model.PythonVersion, error) {
	m := pythonVersionRegex.FindStringSubmatch(output)
	if m == nil {
		return model.PythonVersion{}, fmt.Errorf("unrecognized interpreter version output %q", strings.TrimSpace(output))
	}
	return model.ParsePythonVersion(m[1])
}
