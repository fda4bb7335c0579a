package android

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sipdialer/dialer-setup/internal/model"
)

// cmdlineToolsURLs maps GOOS to the Google-hosted command line tools
// archive for that platform.
var cmdlineToolsURLs = map[string]string{
	"windows": "https://dl.google.com/android/repository/commandlinetools-win-11076708_latest.zip",
	"darwin":  "https://dl.google.com/android/repository/commandlinetools-mac-11076708_latest.zip",
	"linux":   "https://dl.google.com/android/repository/commandlinetools-linux-11076708_latest.zip",
}

// CmdlineToolsURL returns the archive URL for the SDK's platform.
// Overridable per SDK instance via cmdlineToolsURL for tests.
func (s *SDK) CmdlineToolsURL() (string, error) {
	if s.cmdlineToolsURL != "" {
		return s.cmdlineToolsURL, nil
	}
	url, ok := cmdlineToolsURLs[s.goos]
	if !ok {
		return "", fmt.Errorf("no command line tools archive for platform %q", s.goos)
	}
	return url, nil
}

// EnsureCmdlineTools installs the SDK command line tools if they are not
// already present: download the platform archive, unpack it under the SDK
// root, and move the unpacked "cmdline-tools" directory to the "latest"
// slot that sdkmanager's own directory convention requires.
func (s *SDK) EnsureCmdlineTools(ctx context.Context, client *http.Client) error {
	if s.CmdlineToolsInstalled() {
		s.status("command line tools already installed, skipping")
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	url, err := s.CmdlineToolsURL()
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "cannot locate command line tools archive", err)
	}

	tmpDir, err := os.MkdirTemp("", "dialer-setup-sdk-")
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to create temporary directory", err)
	}
	defer os.RemoveAll(tmpDir)

	zipPath := filepath.Join(tmpDir, "commandlinetools.zip")
	if err := s.downloadFile(ctx, client, url, zipPath); err != nil {
		return err
	}

	toolsDir := filepath.Join(s.Root, "cmdline-tools")
	if err := os.MkdirAll(toolsDir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to create SDK directory", err)
	}

	s.status("Extracting command line tools")
	if err := extractZip(zipPath, toolsDir); err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to extract command line tools", err)
	}

	// The archive unpacks to cmdline-tools/cmdline-tools; sdkmanager
	// expects cmdline-tools/latest.
	unpacked := filepath.Join(toolsDir, "cmdline-tools")
	latest := filepath.Join(toolsDir, "latest")
	if fileExists(unpacked) {
		if fileExists(latest) {
			if err := os.RemoveAll(latest); err != nil {
				return model.WrapCLIError(model.ExitAndroidSDKError, "failed to replace existing command line tools", err)
			}
		}
		if err := os.Rename(unpacked, latest); err != nil {
			return model.WrapCLIError(model.ExitAndroidSDKError, "failed to install command line tools", err)
		}
	}

	s.status("Command line tools installed")
	return nil
}

// downloadFile fetches url to destPath, reporting percentage progress
// through the Status callback when the server provides a length.
func (s *SDK) downloadFile(ctx context.Context, client *http.Client, url, destPath string) error {
	s.status("Downloading %s", filepath.Base(url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to build download request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NewCLIError(model.ExitAndroidSDKError,
			fmt.Sprintf("download failed: server returned %s for %s", resp.Status, url))
	}

	f, err := os.Create(destPath)
	if err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "failed to create download file", err)
	}
	defer f.Close()

	progress := &progressWriter{
		total: resp.ContentLength,
		report: func(pct int) {
			s.status("Downloading %s: %d%%", filepath.Base(url), pct)
		},
	}

	if _, err := io.Copy(f, io.TeeReader(resp.Body, progress)); err != nil {
		return model.WrapCLIError(model.ExitAndroidSDKError, "download interrupted", err)
	}
	return nil
}

// progressWriter counts bytes and reports whole-percent changes. With an
// unknown total (ContentLength < 0) it stays silent.
type progressWriter struct {
	total   int64
	written int64
	lastPct int
	report  func(pct int)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total > 0 {
		pct := int(p.written * 100 / p.total)
		if pct != p.lastPct {
			p.lastPct = pct
			p.report(pct)
		}
	}
	return len(b), nil
}

// extractZip unpacks a zip archive into destDir, refusing entries that
// would escape it.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(entry.Name))

		// Zip-slip guard: the joined path must stay under destDir.
		rel, err := filepath.Rel(destDir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("archive entry %q escapes destination directory", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", target, err)
		}

		if err := extractZipEntry(entry, target); err != nil {
			return err
		}
	}
	return nil
}

// extractZipEntry writes one archive file to disk, preserving the
// executable bit (the SDK launchers need it on unix).
func extractZipEntry(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
