package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Result is a fully assembled conversion output ready to be written to the
// HTTP response. It is either a single file or a zip archive; the caller
// serializes both the same way.
type Result struct {
	ContentType string
	Filename    string
	Body        []byte
}

// EncodePage encodes a single page image in the given normalized format.
// PNG favors speed over size, JPEG uses quality 95.
func EncodePage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed))
	case FormatJPG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95))
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("page encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// PackagePages turns rasterized pages into a Result: a single image for a
// one-page document, a zip archive with page_{n}.{format} entries otherwise.
func PackagePages(pages []image.Image, format string) (*Result, error) {
	switch len(pages) {
	case 0:
		return nil, fmt.Errorf("no pages to package")
	case 1:
		body, err := EncodePage(pages[0], format)
		if err != nil {
			return nil, err
		}
		return &Result{
			ContentType: "image/" + format,
			Filename:    "converted." + format,
			Body:        body,
		}, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, page := range pages {
		body, err := EncodePage(page, format)
		if err != nil {
			return nil, err
		}
		entry, err := zw.Create(fmt.Sprintf("page_%d.%s", i+1, format))
		if err != nil {
			return nil, fmt.Errorf("zip entry failed: %w", err)
		}
		if _, err := entry.Write(body); err != nil {
			return nil, fmt.Errorf("zip write failed: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close failed: %w", err)
	}

	return &Result{
		ContentType: "application/zip",
		Filename:    "converted.zip",
		Body:        buf.Bytes(),
	}, nil
}
