// Package model defines the domain types and value objects for the
// dialer-setup CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (PackageSpec, PythonInfo, CheckResult, etc.) describe the
// state of the host environment as observed at runtime — there are no
// persistent state files owned by this package.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
