// Package cli implements the cobra-based CLI commands for dialer-setup.
//
// Each subcommand (setup, doctor, android, config) is defined in its own
// file within this package. This file defines the root command that serves
// as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// Global flag variables shared across all subcommands. Bound to cobra
// persistent flags on the root command, so every subcommand sees them.
var (
	// jsonOutput switches command output to structured JSON for machine
	// consumption. Default is human-readable text.
	jsonOutput bool

	// verbose enables step-by-step progress logging on stderr.
	verbose bool

	// settingsFile is an explicit path to the tool's settings file. Empty
	// means search the working directory for dialer-setup.yaml.
	settingsFile string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// logger is the shared progress logger. Commands log step-by-step detail
// at debug level; it only becomes visible with --verbose. User-facing
// results always go to stdout, never through the logger.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "dialer-setup",
	Level:  log.WarnLevel,
})

// Output styles shared by the subcommands.
var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. Actual
// functionality is provided by subcommands (setup, doctor, android,
// config).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dialer-setup",
		Short: "Environment bootstrapper for the SIP Dialer",
		Long: `dialer-setup prepares everything the SIP Dialer needs to run: the Python
interpreter check, the dialer's Python dependencies, the optional pjsua2 SIP
binding, the Android SDK with per-account emulator images, and the dialer's
config.json.

Run "dialer-setup setup" for the standard installation, or "dialer-setup
doctor" to see what is already in place.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Path to the dialer-setup settings file")

	rootCmd.AddCommand(NewSetupCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewAndroidCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
