// Package cli — setup.go implements the "dialer-setup setup" command.
//
// Setup is the primary user-facing operation. It mirrors what the dialer's
// original install procedure did, in order:
//  1. Locate a Python interpreter and verify it meets the version floor
//  2. Install the general dependency list in a single pip invocation
//  3. Separately install the pjsua2 SIP binding (failure is non-fatal)
//  4. Print the completion message and usage hint
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sipdialer/dialer-setup/internal/config"
	"github.com/sipdialer/dialer-setup/internal/manifest"
	"github.com/sipdialer/dialer-setup/internal/model"
	"github.com/sipdialer/dialer-setup/internal/pyenv"
)

// packageInstaller abstracts pip so tests can count invocations without a
// Python interpreter on the machine.
type packageInstaller interface {
	Install(ctx context.Context, requirements []string) error
}

// setupDeps are the injection points for runSetup. Production wiring comes
// from defaultSetupDeps; tests substitute fakes.
type setupDeps struct {
	findPython   func(ctx context.Context, override string) (*model.PythonInfo, error)
	checkVersion func(info *model.PythonInfo, min model.PythonVersion) error
	newInstaller func(python string, extraArgs []string) packageInstaller
}

func defaultSetupDeps() setupDeps {
	return setupDeps{
		findPython: func(ctx context.Context, override string) (*model.PythonInfo, error) {
			return pyenv.NewFinder(override).Find(ctx)
		},
		checkVersion: func(info *model.PythonInfo, min model.PythonVersion) error {
			return pyenv.NewFinder("").CheckVersion(info, min)
		},
		newInstaller: func(python string, extraArgs []string) packageInstaller {
			return pyenv.NewInstaller(python, extraArgs)
		},
	}
}

// NewSetupCommand creates the "setup" cobra command.
func NewSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install the dialer's Python dependencies and SIP binding",
		Long: `Install everything the SIP Dialer needs to run.

The command checks for a Python 3.8+ interpreter on PATH, installs the
dialer's Python dependencies in one pip invocation, and then installs the
pjsua2 SIP binding separately. A pjsua2 failure is not fatal: the dialer
runs without SIP support until the binding is available, and the command
prints what to try instead.

Examples:
  dialer-setup setup
  dialer-setup setup --skip-sip
  dialer-setup setup --python C:\Python312\python.exe
  dialer-setup setup --pip-arg --index-url=https://mirror.internal/simple`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}
			m, err := manifest.Load(settings.Manifest)
			if err != nil {
				return err
			}
			return runSetup(cmd.Context(), cmd.OutOrStdout(), settings, m, defaultSetupDeps())
		},
	}

	// Values land in config.Settings via the koanf flag layer; only flags
	// the user actually set override the settings file and environment.
	cmd.Flags().Bool("skip-sip", false, "Install the general dependencies only, skip the SIP binding")
	cmd.Flags().String("python", "", "Path to the Python interpreter to use")
	cmd.Flags().StringSlice("pip-arg", nil, "Extra argument passed to every pip install (repeatable)")
	cmd.Flags().String("manifest", "", "Path to a requirements.yaml overriding the built-in package list")

	return cmd
}

// runSetup is the main orchestration function for the setup command.
func runSetup(ctx context.Context, out io.Writer, settings *config.Settings, m *manifest.Manifest, deps setupDeps) error {
	// Step 1: Interpreter. A missing or too-old Python is a hard stop
	// before anything gets installed.
	info, err := deps.findPython(ctx, settings.Python)
	if err != nil {
		return err
	}
	if err := deps.checkVersion(info, m.MinPythonVersion()); err != nil {
		return err
	}
	logger.Debug("interpreter resolved", "path", info.Path, "version", info.Version.String())
	fmt.Fprintf(out, "Using %s (Python %s)\n", info.Path, info.Version)

	installer := deps.newInstaller(info.Path, settings.PipArgs)

	// Step 2: General dependencies, one pip invocation for the whole list.
	// The dialer has always tolerated failures here, so a non-zero pip
	// status is reported but does not stop the installation.
	fmt.Fprintf(out, "Installing dialer dependencies (%d packages)...\n", len(m.Packages))
	if err := installer.Install(ctx, m.Requirements()); err != nil {
		logger.Debug("general dependency install failed", "err", err)
		fmt.Fprintln(out, warnStyle.Render("Warning: some dialer dependencies failed to install."))
		fmt.Fprintf(out, "%v\n", err)
	}

	// Step 3: SIP binding, installed separately because its failure has
	// its own remediation path.
	if settings.SkipSIP {
		logger.Debug("skipping SIP binding install")
	} else {
		fmt.Fprintf(out, "Installing the SIP binding (%s)...\n", m.SIPBinding.Package.Name)
		if err := installer.Install(ctx, []string{m.SIPBinding.Package.Requirement()}); err != nil {
			logger.Debug("SIP binding install failed", "err", err)
			fmt.Fprintln(out)
			for _, line := range m.SIPBinding.Remediation {
				fmt.Fprintln(out, line)
			}
		}
	}

	// Step 4: Completion. This prints even when the SIP binding failed;
	// the dialer is usable without it.
	fmt.Fprintln(out)
	fmt.Fprintln(out, successStyle.Render("Installation completed"))
	fmt.Fprintln(out, hintStyle.Render("Start the dialer with: python main.py"))
	return nil
}
