package poppler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe_FirstCandidateWins(t *testing.T) {
	base := t.TempDir()
	first := filepath.Join(base, "poppler", "poppler-23.11.0", "Library", "bin")
	third := filepath.Join(base, "poppler", "bin")
	if err := os.MkdirAll(first, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(third, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	assert.Equal(t, first, Probe(base))
}

func TestProbe_LaterCandidate(t *testing.T) {
	base := t.TempDir()
	last := filepath.Join(base, "poppler-23.11.0", "Library", "bin")
	if err := os.MkdirAll(last, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	assert.Equal(t, last, Probe(base))
}

func TestProbe_NotFound(t *testing.T) {
	assert.Equal(t, "", Probe(t.TempDir()))
}

func TestQuickProbe_SkipsUnlikelyCandidates(t *testing.T) {
	base := t.TempDir()
	// Only a low-priority candidate exists; the quick probe must not see it.
	if err := os.MkdirAll(filepath.Join(base, "poppler", "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	assert.Equal(t, "", QuickProbe(base))
	assert.NotEqual(t, "", Probe(base))
}

func TestEnsurePath_ReprobesWhenEmpty(t *testing.T) {
	base := t.TempDir()
	likely := filepath.Join(base, "poppler", "Library", "bin")
	if err := os.MkdirAll(likely, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	assert.Equal(t, likely, EnsurePath("", base))
}

func TestEnsurePath_DiscardsStalePath(t *testing.T) {
	base := t.TempDir()
	stale := filepath.Join(base, "gone")

	assert.Equal(t, "", EnsurePath(stale, base))
}

func TestEnsurePath_KeepsValidPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, EnsurePath(dir, t.TempDir()))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("installer script tests require a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "install_poppler.sh")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

func TestInstall_ParsesMarker(t *testing.T) {
	script := writeScript(t, `echo "Poppler installed at: /opt/poppler/bin"`)

	path, err := Install(context.Background(), script)
	assert.NoError(t, err)
	assert.Equal(t, "/opt/poppler/bin", path)
}

func TestInstall_MissingMarker(t *testing.T) {
	script := writeScript(t, `echo "done"`)

	_, err := Install(context.Background(), script)
	assert.ErrorIs(t, err, ErrNoInstallMarker)
}

func TestInstall_ScriptFailure(t *testing.T) {
	script := writeScript(t, `exit 3`)

	_, err := Install(context.Background(), script)
	assert.Error(t, err)
}

func TestInstall_ScriptMissing(t *testing.T) {
	_, err := Install(context.Background(), filepath.Join(t.TempDir(), "nope.sh"))
	assert.Error(t, err)
}
