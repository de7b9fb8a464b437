package poppler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// ErrNoPages signals that the toolchain produced no page images.
var ErrNoPages = errors.New("no pages rendered")

// Options selects the rendering backend and bounds for one rasterization
// attempt.
type Options struct {
	// UseCairo selects pdftocairo (higher quality) over pdftoppm.
	UseCairo bool
	// Timeout bounds the toolchain invocation. Zero means no limit.
	Timeout time.Duration
	// ToolchainPath is the Poppler bin directory. Empty relies on $PATH.
	ToolchainPath string
	// DPI is the render resolution.
	DPI int
}

func (o Options) tool() (string, error) {
	name := "pdftoppm"
	if o.UseCairo {
		name = "pdftocairo"
	}
	if o.ToolchainPath != "" {
		return filepath.Join(o.ToolchainPath, name), nil
	}
	return exec.LookPath(name)
}

// Rasterize renders every page of the PDF to an image using the Poppler
// toolchain. Pages are always rendered as PNG; output encoding is decided by
// the caller.
func Rasterize(ctx context.Context, pdf []byte, opts Options) ([]image.Image, error) {
	tool, err := opts.tool()
	if err != nil {
		return nil, fmt.Errorf("toolchain not available: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "pdfconvert-raster-")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("cannot write temp pdf: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 150
	}

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, tool, "-png", "-r", strconv.Itoa(dpi), pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", filepath.Base(tool), err, strings.TrimSpace(string(out)))
	}

	return loadPages(tmpDir)
}

// RasterizeWithFallback tries the given option variants in order and returns
// the pages from the first successful attempt.
func RasterizeWithFallback(ctx context.Context, pdf []byte, variants []Options) ([]image.Image, error) {
	var lastErr error
	for _, opts := range variants {
		pages, err := Rasterize(ctx, pdf, opts)
		if err == nil {
			return pages, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNoPages
	}
	return nil, lastErr
}

// loadPages reads the rendered page images in page order. Poppler names
// output files page-1.png or page-01.png depending on version and page
// count, so ordering is numeric, not lexical.
func loadPages(dir string) ([]image.Image, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoPages
	}

	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})

	pages := make([]image.Image, 0, len(matches))
	for _, path := range matches {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot load rendered page %s: %w", filepath.Base(path), err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

func pageNumber(path string) int {
	base := filepath.Base(path)
	base = strings.TrimPrefix(base, "page")
	base = strings.TrimPrefix(base, "-")
	base = strings.TrimSuffix(base, ".png")
	n, _ := strconv.Atoi(base)
	return n
}
