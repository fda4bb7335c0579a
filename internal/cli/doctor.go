// Package cli — doctor.go implements the "dialer-setup doctor" command.
//
// Doctor inspects the machine without changing anything: interpreter, pip,
// each Python package's importability, the SIP binding, the Android SDK
// components, and the dialer's config file. The exit code is non-zero only
// when a required component is missing, so "doctor" works as a CI gate.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sipdialer/dialer-setup/internal/android"
	"github.com/sipdialer/dialer-setup/internal/appconfig"
	"github.com/sipdialer/dialer-setup/internal/config"
	"github.com/sipdialer/dialer-setup/internal/manifest"
	"github.com/sipdialer/dialer-setup/internal/model"
	"github.com/sipdialer/dialer-setup/internal/pyenv"
)

// importProber abstracts the per-package probes so tests can run doctor
// without a Python interpreter.
type importProber interface {
	CheckImport(ctx context.Context, module string) error
	PipVersion(ctx context.Context) (string, error)
}

// doctorDeps are the injection points for runDoctor.
type doctorDeps struct {
	findPython func(ctx context.Context, override string) (*model.PythonInfo, error)
	newProber  func(python string) importProber
	newSDK     func(root, apiLevel string) *android.SDK
}

func defaultDoctorDeps() doctorDeps {
	return doctorDeps{
		findPython: func(ctx context.Context, override string) (*model.PythonInfo, error) {
			return pyenv.NewFinder(override).Find(ctx)
		},
		newProber: func(python string) importProber {
			return pyenv.NewInstaller(python, nil)
		},
		newSDK: android.New,
	}
}

// NewDoctorCommand creates the "doctor" cobra command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the dialer's runtime environment",
		Long: `Check every component the SIP Dialer depends on and report its state.

Nothing is installed or modified. The command exits non-zero only when a
required component is missing, so it can gate automation.`,

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
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), settings, m, defaultDoctorDeps())
		},
	}

	return cmd
}

// runDoctor gathers all check results and renders them.
func runDoctor(ctx context.Context, out io.Writer, settings *config.Settings, m *manifest.Manifest, deps doctorDeps) error {
	results := pythonChecks(ctx, settings, m, deps)
	results = append(results, sdkChecks(settings, deps)...)
	results = append(results, appConfigCheck(settings.AppConfig))

	printDoctorResults(out, results)

	for _, r := range results {
		if r.Required && r.Status != model.StatusOK {
			return model.NewCLIError(model.ExitGeneralError, "the dialer's environment is not ready")
		}
	}
	return nil
}

// pythonChecks probes the interpreter, pip, every manifest package, and
// the SIP binding. When no interpreter is found the dependent probes are
// reported as missing rather than run.
func pythonChecks(ctx context.Context, settings *config.Settings, m *manifest.Manifest, deps doctorDeps) []model.CheckResult {
	info, err := deps.findPython(ctx, settings.Python)
	if err != nil {
		results := []model.CheckResult{{
			Component: "python",
			Status:    model.StatusMissing,
			Detail:    "no interpreter found on PATH",
			Required:  true,
		}}
		for _, pkg := range m.Packages {
			results = append(results, model.CheckResult{
				Component: pkg.Name,
				Status:    model.StatusMissing,
				Detail:    "needs a Python interpreter",
				Required:  true,
			})
		}
		results = append(results, model.CheckResult{
			Component: m.SIPBinding.Package.Name,
			Status:    model.StatusMissing,
			Detail:    "needs a Python interpreter",
		})
		return results
	}

	pythonStatus := model.StatusOK
	detail := fmt.Sprintf("%s (Python %s)", info.Path, info.Version)
	if !info.Version.AtLeast(m.MinPythonVersion().Major, m.MinPythonVersion().Minor) {
		pythonStatus = model.StatusOutdated
		detail = fmt.Sprintf("%s is Python %s, need %s or newer", info.Path, info.Version, m.PythonMin)
	}
	results := []model.CheckResult{{
		Component: "python",
		Status:    pythonStatus,
		Detail:    detail,
		Required:  true,
	}}

	prober := deps.newProber(info.Path)

	pipResult := model.CheckResult{Component: "pip", Required: true}
	if pipVersion, pipErr := prober.PipVersion(ctx); pipErr != nil {
		pipResult.Status = model.StatusMissing
		pipResult.Detail = "python -m pip is not available"
	} else {
		pipResult.Status = model.StatusOK
		pipResult.Detail = pipVersion
	}
	results = append(results, pipResult)

	for _, pkg := range m.Packages {
		results = append(results, importCheck(ctx, prober, pkg, true))
	}
	results = append(results, importCheck(ctx, prober, m.SIPBinding.Package, false))
	return results
}

// importCheck reports whether one package imports cleanly.
func importCheck(ctx context.Context, prober importProber, pkg model.PackageSpec, required bool) model.CheckResult {
	result := model.CheckResult{Component: pkg.Name, Required: required}
	if err := prober.CheckImport(ctx, pkg.EffectiveImportName()); err != nil {
		result.Status = model.StatusMissing
		result.Detail = fmt.Sprintf("import %s failed", pkg.EffectiveImportName())
	} else {
		result.Status = model.StatusOK
	}
	return result
}

// sdkChecks probes the Android SDK components on disk. The Android side is
// optional: the dialer places calls without it, so nothing here is marked
// required.
func sdkChecks(settings *config.Settings, deps doctorDeps) []model.CheckResult {
	sdk := deps.newSDK(settings.SDKRoot, settings.APILevel)

	probes := []struct {
		component string
		installed bool
		hint      string
	}{
		{"android cmdline-tools", sdk.CmdlineToolsInstalled(), "run dialer-setup android install"},
		{"android platform-tools", sdk.PlatformToolsInstalled(), "run dialer-setup android install"},
		{"android emulator", sdk.EmulatorInstalled(), "run dialer-setup android install"},
		{"android system image", sdk.SystemImageInstalled(), "run dialer-setup android install"},
	}

	results := make([]model.CheckResult, 0, len(probes))
	for _, p := range probes {
		r := model.CheckResult{Component: p.component}
		if p.installed {
			r.Status = model.StatusOK
			r.Detail = sdk.Root
		} else {
			r.Status = model.StatusMissing
			r.Detail = p.hint
		}
		results = append(results, r)
	}
	return results
}

// appConfigCheck reports whether the dialer's config.json exists.
func appConfigCheck(path string) model.CheckResult {
	if path == "" {
		path = appconfig.DefaultPath
	}
	result := model.CheckResult{Component: "config.json"}
	if _, err := os.Stat(path); err != nil {
		result.Status = model.StatusMissing
		result.Detail = "run dialer-setup config init"
	} else {
		result.Status = model.StatusOK
		if abs, absErr := filepath.Abs(path); absErr == nil {
			result.Detail = abs
		} else {
			result.Detail = path
		}
	}
	return result
}

// printDoctorResults renders the checks as JSON or a table.
func printDoctorResults(out io.Writer, results []model.CheckResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]any{"checks": results}, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Status", "Required", "Detail"})
	for _, r := range results {
		required := ""
		if r.Required {
			required = "yes"
		}
		t.AppendRow(table.Row{r.Component, r.Status.String(), required, r.Detail})
	}
	t.Render()
}
