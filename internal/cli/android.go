// Package cli — android.go implements the "dialer-setup android" command
// group.
//
// The dialer drives one Android emulator per SIP account for its WhatsApp
// call automation. These commands provision the SDK (command line tools,
// platform-tools, emulator, system image) and create the per-account
// virtual devices with the display geometry the automation coordinates
// assume.
package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/sipdialer/dialer-setup/internal/android"
	"github.com/sipdialer/dialer-setup/internal/appconfig"
	"github.com/sipdialer/dialer-setup/internal/config"
)

// NewAndroidCommand creates the "android" command group.
func NewAndroidCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "android",
		Short: "Provision the Android SDK and per-account emulators",
	}

	// Shared by every android subcommand; resolved through the settings
	// layer so DIALER_SETUP_SDK_ROOT and the settings file also work.
	cmd.PersistentFlags().String("sdk-root", "", "Android SDK location (default: ANDROID_HOME or the platform default)")
	cmd.PersistentFlags().String("api-level", "", "Android platform API level to provision")

	cmd.AddCommand(newAndroidInstallCommand())
	cmd.AddCommand(newAVDCommand())

	return cmd
}

func newAndroidInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the Android SDK components the dialer needs",
		Long: `Install the Android command line tools, platform-tools, emulator, platform,
and system image.

Missing command line tools are downloaded from Google's repository first.
Components that are already installed are skipped, so re-running is cheap.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}

			sdk := android.New(settings.SDKRoot, settings.APILevel)
			sdk.Status = func(message string) {
				fmt.Fprintln(cmd.OutOrStdout(), message)
			}

			// No client timeout: the system image download is large and
			// cancellation comes through the command context.
			return sdk.Provision(cmd.Context(), &http.Client{})
		},
	}
}

func newAVDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avd",
		Short: "Manage the dialer's Android virtual devices",
	}

	cmd.AddCommand(newAVDCreateCommand())
	cmd.AddCommand(newAVDListCommand())

	return cmd
}

// avdCreateFlags holds the flag values for "android avd create".
type avdCreateFlags struct {
	name       string
	resolution string
	count      int
}

func newAVDCreateCommand() *cobra.Command {
	flags := &avdCreateFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create Android virtual device(s) for the dialer",
		Long: `Create one AVD, or with --count one AVD per dialer account.

Per-account devices are named <name>_Account_<n> and paired to consecutive
emulator console ports starting at 5554; the dialer's config.json account
entries are updated to match.

Examples:
  dialer-setup android avd create --name SipDialer
  dialer-setup android avd create --name SipDialer --count 2
  dialer-setup android avd create --name Tall --resolution 1080x2640`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}

			sdk := android.New(settings.SDKRoot, settings.APILevel)
			manager := android.NewAVDManager(sdk)
			out := cmd.OutOrStdout()

			if flags.count < 1 {
				if err := manager.Create(cmd.Context(), flags.name, flags.resolution); err != nil {
					return err
				}
				fmt.Fprintf(out, "Created AVD %q (%s)\n", flags.name, flags.resolution)
				return nil
			}

			assignments, err := manager.CreateForAccounts(cmd.Context(), flags.name, flags.resolution, flags.count)
			if err != nil {
				return err
			}

			// Point each dialer account at its emulator.
			cfg, err := appconfig.Load(settings.AppConfig)
			if err != nil {
				return err
			}
			for _, a := range assignments {
				cfg.SetAccountEmulator(a.Index, a.AVDName, a.EmulatorPort)
			}
			path := settings.AppConfig
			if path == "" {
				path = appconfig.DefaultPath
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			for _, a := range assignments {
				fmt.Fprintf(out, "Account %d: AVD %q on emulator port %d\n", a.Index, a.AVDName, a.EmulatorPort)
			}
			fmt.Fprintf(out, "Updated %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "SipDialer", "AVD name, or the base name with --count")
	cmd.Flags().StringVar(&flags.resolution, "resolution", android.DefaultResolution, "Display resolution as WIDTHxHEIGHT")
	cmd.Flags().IntVar(&flags.count, "count", 0, "Create one AVD per dialer account")

	return cmd
}

func newAVDListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing Android virtual devices",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}

			sdk := android.New(settings.SDKRoot, settings.APILevel)
			names, err := android.NewAVDManager(sdk).List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				data, _ := json.MarshalIndent(map[string]any{"avds": names}, "", "  ")
				fmt.Fprintln(out, string(data))
				return nil
			}

			if len(names) == 0 {
				fmt.Fprintln(out, "No AVDs found.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
