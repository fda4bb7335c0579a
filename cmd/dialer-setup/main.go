// Package main is the entry point for the dialer-setup CLI.
//
// This binary prepares the SIP Dialer's runtime environment: the Python
// dependencies, the pjsua2 SIP binding, the Android SDK with per-account
// emulators, and the dialer's config.json. It delegates all functionality
// to the internal/cli package, which defines cobra commands.
package main

import (
	"github.com/sipdialer/dialer-setup/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
