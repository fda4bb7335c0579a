package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// TestDefault verifies the built-in manifest carries the dialer's fixed
// dependency list and the separate SIP binding entry.
func TestDefault(t *testing.T) {
	m := Default()

	require.NoError(t, m.Validate())
	assert.Equal(t, "3.8", m.PythonMin)
	assert.Equal(t, model.PythonVersion{Major: 3, Minor: 8}, m.MinPythonVersion())

	assert.Equal(t,
		[]string{"sounddevice", "vosk", "requests", "numpy", "pyautogui", "datetime", "pyaudio"},
		m.Requirements())

	assert.Equal(t, "pjsua2", m.SIPBinding.Package.Name)
	assert.NotEmpty(t, m.SIPBinding.Remediation, "SIP binding must carry remediation guidance")
}

// TestLoad_NoFile verifies that with no manifest file present the defaults
// are returned unchanged.
func TestLoad_NoFile(t *testing.T) {
	// Run from an empty directory so the default filename probe finds nothing.
	chdir(t, t.TempDir())

	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), m)
}

// TestLoad_ExplicitMissing verifies that an explicitly named manifest that
// does not exist is an error rather than a silent fallback.
func TestLoad_ExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitManifestError, cliErr.Code)
}

// TestLoad_PartialOverride verifies section-level merging: a manifest that
// only overrides the package list keeps the default SIP binding and
// remediation text.
func TestLoad_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.yaml")
	content := `
packages:
  - name: vosk
    version: 0.3.45
  - name: pyaudio
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"vosk==0.3.45", "pyaudio"}, m.Requirements())
	assert.Equal(t, "3.8", m.PythonMin, "python floor should keep its default")
	assert.Equal(t, "pjsua2", m.SIPBinding.Package.Name, "SIP binding should keep its default")
	assert.NotEmpty(t, m.SIPBinding.Remediation)
}

// TestLoad_OverrideSIPBinding verifies the SIP binding section can be
// replaced wholesale, including the remediation lines.
func TestLoad_OverrideSIPBinding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.yaml")
	content := `
sip_binding:
  package:
    name: pjsua2
    version: 2.14.1
  remediation:
    - custom guidance line
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pjsua2==2.14.1", m.SIPBinding.Package.Requirement())
	assert.Equal(t, []string{"custom guidance line"}, m.SIPBinding.Remediation)
}

// TestLoad_InvalidYAML verifies parse failures surface as manifest errors.
func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages: [unterminated"), 0o644))

	_, err := Load(path)
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitManifestError, cliErr.Code)
}

// TestValidate rejects manifests that would break the setup pipeline.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{name: "bad python floor", mutate: func(m *Manifest) { m.PythonMin = "latest" }},
		{name: "empty package list", mutate: func(m *Manifest) { m.Packages = nil }},
		{name: "unnamed package", mutate: func(m *Manifest) { m.Packages[0].Name = "" }},
		{name: "unnamed sip binding", mutate: func(m *Manifest) { m.SIPBinding.Package.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Default()
			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
