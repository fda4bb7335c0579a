package pyenv

import (
	"context"
	"fmt"
	"strings"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// Installer drives pip through a specific, already-verified interpreter.
//
// Every invocation goes through "<python> -m pip" so that the packages are
// installed for the interpreter Find resolved, regardless of what a bare
// "pip" on PATH would target.
type Installer struct {
	// Python is the interpreter executable path or name.
	Python string

	// ExtraArgs are appended to every "pip install" invocation, e.g.
	// "--index-url http://mirror.local/simple" or "--user".
	ExtraArgs []string

	run runFunc
}

// NewInstaller creates an Installer for the given interpreter.
func NewInstaller(python string, extraArgs []string) *Installer {
	return &Installer{
		Python:    python,
		ExtraArgs: extraArgs,
		run:       runCombined,
	}
}

// Install runs a single "pip install" invocation for the given
// requirements. One call maps to exactly one installer process: the setup
// command relies on this to install the general dependency list and the
// SIP binding in separate, individually observable invocations.
//
// On failure the error message carries the tail of pip's output, which is
// where pip puts the actual cause.
func (i *Installer) Install(ctx context.Context, requirements []string) error {
	if len(requirements) == 0 {
		return fmt.Errorf("no requirements given")
	}

	args := []string{"-m", "pip", "install"}
	args = append(args, i.ExtraArgs...)
	args = append(args, requirements...)

	out, err := i.run(ctx, i.Python, args...)
	if err != nil {
		return model.WrapCLIError(model.ExitPipFailed,
			fmt.Sprintf("pip install %s failed%s", strings.Join(requirements, " "), outputTail(out)),
			err)
	}
	return nil
}

// CheckImport verifies a package is importable by the interpreter.
// Used by the doctor command; never modifies the environment.
func (i *Installer) CheckImport(ctx context.Context, module string) error {
	out, err := i.run(ctx, i.Python, "-c", "import "+module)
	if err != nil {
		return fmt.Errorf("import %s failed%s: %w", module, outputTail(out), err)
	}
	return nil
}

// PipVersion returns pip's self-reported version line, verifying that the
// pip module is present at all for this interpreter.
func (i *Installer) PipVersion(ctx context.Context) (string, error) {
	out, err := i.run(ctx, i.Python, "-m", "pip", "--version")
	if err != nil {
		return "", fmt.Errorf("pip is not available for %s%s: %w", i.Python, outputTail(out), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// outputTail formats the last few lines of process output for inclusion in
// an error message, or an empty string when there was no output.
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
