package poppler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	u "pdfconvert/internal/utils"
)

// ErrNoInstallMarker signals that the installer ran but its output did not
// contain the installed path marker.
var ErrNoInstallMarker = errors.New("installer output missing path marker")

// candidateDirs are probed in order under the configured base directory.
// The first existing directory wins. The versioned layout matches the
// poppler-windows release archives.
var candidateDirs = []string{
	filepath.Join("poppler", "poppler-23.11.0", "Library", "bin"),
	filepath.Join("poppler", "Library", "bin"),
	filepath.Join("poppler", "bin"),
	filepath.Join("poppler-23.11.0", "Library", "bin"),
}

var installMarker = regexp.MustCompile(`Poppler installed at: (.+)`)

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func probe(baseDir string, dirs []string) string {
	for _, dir := range dirs {
		p := filepath.Join(baseDir, dir)
		if dirExists(p) {
			return p
		}
	}
	return ""
}

// Probe checks all candidate directories under baseDir and returns the first
// existing one, or "" when none exist.
func Probe(baseDir string) string {
	return probe(baseDir, candidateDirs)
}

// QuickProbe checks only the two most likely candidate directories. Request
// handlers use it to recover when startup resolution failed.
func QuickProbe(baseDir string) string {
	return probe(baseDir, candidateDirs[:2])
}

// Install runs the configured installer script and parses its stdout for the
// installed path marker. Malformed output or a non-zero exit leaves the
// toolchain unresolved.
func Install(ctx context.Context, script string) (string, error) {
	if _, err := os.Stat(script); err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, script).Output()
	if err != nil {
		return "", err
	}

	m := installMarker.FindSubmatch(out)
	if m == nil {
		return "", ErrNoInstallMarker
	}
	return strings.TrimSpace(string(m[1])), nil
}

// Locate resolves the Poppler toolchain directory once at startup: manual
// override first, then filesystem probing, then the installer fallback.
// An empty result is not fatal; rasterization falls back to $PATH lookup.
func Locate(cfg u.PopplerConfig) string {
	if cfg.Path != "" {
		if dirExists(cfg.Path) {
			u.Info("Using configured Poppler path", "path", cfg.Path)
			return cfg.Path
		}
		u.Warn("Configured Poppler path does not exist", "path", cfg.Path)
	}

	if p := Probe(cfg.BaseDir); p != "" {
		u.Info("Found Poppler", "path", p)
		return p
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	u.Info("Poppler not found, attempting install", "script", cfg.InstallScript)
	p, err := Install(ctx, cfg.InstallScript)
	if err != nil {
		u.Warn("Poppler install failed, conversions will rely on $PATH", "error", err)
		return ""
	}
	u.Info("Poppler installed", "path", p)
	return p
}

// EnsurePath revalidates a previously resolved toolchain path at request
// time: an empty path triggers a re-probe of the most likely directories and
// a stale path is discarded.
func EnsurePath(path, baseDir string) string {
	if path == "" {
		path = QuickProbe(baseDir)
	}
	if path != "" && !dirExists(path) {
		u.Warn("Cached Poppler path no longer exists", "path", path)
		return ""
	}
	return path
}
