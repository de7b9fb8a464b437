// Package convert assembles uploaded images into PDF documents and packages
// rasterized PDF pages into downloadable results.
package convert

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// FormatJPG and FormatPNG are the supported raster output formats.
const (
	FormatJPG = "jpg"
	FormatPNG = "png"
)

// NormalizeFormat validates the requested output format. Matching is
// case-insensitive and the empty string selects jpg.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatJPG:
		return FormatJPG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported format %q: must be jpg or png", format)
	}
}

// ImagesToPDF concatenates the given images into a single PDF, one page per
// image, preserving input order.
func ImagesToPDF(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}

	readers := make([]io.Reader, 0, len(images))
	for _, img := range images {
		readers = append(readers, bytes.NewReader(img))
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, nil, nil); err != nil {
		return nil, fmt.Errorf("image import failed: %w", err)
	}
	return buf.Bytes(), nil
}
