package handlers

import (
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"pdfconvert/internal/convert"
	"pdfconvert/internal/poppler"
	u "pdfconvert/internal/utils"
)

// ConvertService bundles configuration and dependencies for the conversion
// endpoints. The resolved toolchain path is the only state shared across
// requests; the mutex avoids redundant probing under concurrent cold starts.
type ConvertService struct {
	Config *u.Config
	Redis  *redis.Client

	pathMu       sync.Mutex
	popplerPath  string
	pathResolved bool
}

// NewConvertService creates a new ConvertService instance.
func NewConvertService(cfg u.Config, rdb *redis.Client) *ConvertService {
	return &ConvertService{
		Config: &cfg, // convert value to pointer
		Redis:  rdb,
	}
}

// ResolveToolchain resolves the Poppler toolchain once at startup, including
// the installer fallback. Failure is not fatal; see toolchainPath.
func (svc *ConvertService) ResolveToolchain() {
	svc.pathMu.Lock()
	defer svc.pathMu.Unlock()
	svc.popplerPath = poppler.Locate(svc.Config.Poppler)
	svc.pathResolved = true
}

// toolchainPath returns the current toolchain path, re-probing the most
// likely directories when unset and discarding a path that went missing.
func (svc *ConvertService) toolchainPath() string {
	svc.pathMu.Lock()
	defer svc.pathMu.Unlock()
	if !svc.pathResolved {
		svc.popplerPath = poppler.Locate(svc.Config.Poppler)
		svc.pathResolved = true
	}
	svc.popplerPath = poppler.EnsurePath(svc.popplerPath, svc.Config.Poppler.BaseDir)
	return svc.popplerPath
}

// HandleImagesToPDF concatenates the uploaded images into a single PDF, one
// page per image in upload order.
func (svc *ConvertService) HandleImagesToPDF(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No images provided")
	}
	files := form.File["images"]

	var total int64
	for _, fh := range files {
		total += fh.Size
	}
	if total > int64(svc.Config.Limits.MaxUploadBytes) {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Upload exceeds allowed size")
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Conversion failed: "+err.Error())
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Conversion failed: "+err.Error())
		}
		images = append(images, data)
	}

	key := resultCacheKey(images, "pdf")
	if cached := svc.getCachedResult(c, key); cached != nil {
		return sendResult(c, cached)
	}

	pdfBytes, err := convert.ImagesToPDF(images)
	if err != nil {
		u.Error("Image to PDF conversion failed", "images", len(images), "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Conversion failed: "+err.Error())
	}

	u.Info("Images converted to PDF", "images", len(images), "pdf_bytes", len(pdfBytes))

	res := &convert.Result{
		ContentType: "application/pdf",
		Filename:    "converted.pdf",
		Body:        pdfBytes,
	}
	svc.setCachedResult(c, key, res)
	return sendResult(c, res)
}

// HandlePDFToImages rasterizes the uploaded PDF into images: a single file
// for one-page documents, a zip archive otherwise.
func (svc *ConvertService) HandlePDFToImages(c *fiber.Ctx) error {
	fh, err := c.FormFile("pdf")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No PDF file uploaded")
	}

	format, err := convert.NormalizeFormat(c.FormValue("format"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if fh.Size > int64(svc.Config.Limits.MaxUploadBytes) {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Upload exceeds allowed size")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Conversion failed: "+err.Error())
	}
	pdfBytes, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Conversion failed: "+err.Error())
	}

	u.Info("Processing PDF conversion",
		"filename", fh.Filename,
		"format", format,
		"size_mb", fmt.Sprintf("%.2f", float64(len(pdfBytes))/(1024*1024)),
	)

	key := resultCacheKey([][]byte{pdfBytes}, format)
	if cached := svc.getCachedResult(c, key); cached != nil {
		return sendResult(c, cached)
	}

	pages, err := svc.rasterize(c, pdfBytes)
	if err != nil {
		u.Error("PDF rasterization failed", "filename", fh.Filename, "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError,
			"PDF conversion failed. The PDF might be corrupted, password-protected, or Poppler is not properly installed.")
	}

	res, err := convert.PackagePages(pages, format)
	if err != nil {
		u.Error("Result packaging failed", "pages", len(pages), "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Conversion failed: "+err.Error())
	}

	u.Info("PDF converted", "pages", len(pages), "format", format, "output_bytes", len(res.Body))

	svc.setCachedResult(c, key, res)
	return sendResult(c, res)
}

// rasterize runs the two-variant toolchain fallback: pdftocairo with a
// bounded timeout first, then pdftoppm without one. No further retries.
func (svc *ConvertService) rasterize(c *fiber.Ctx, pdfBytes []byte) ([]image.Image, error) {
	path := svc.toolchainPath()
	dpi := svc.Config.Poppler.RasterDPI
	variants := []poppler.Options{
		{
			UseCairo:      true,
			Timeout:       time.Duration(svc.Config.Poppler.TimeoutSecs) * time.Second,
			ToolchainPath: path,
			DPI:           dpi,
		},
		{
			UseCairo:      false,
			ToolchainPath: path,
			DPI:           dpi,
		},
	}
	return poppler.RasterizeWithFallback(c.Context(), pdfBytes, variants)
}

// HandleProbe answers availability checks without attempting a conversion.
func (svc *ConvertService) HandleProbe(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// HandleHealth is the liveness probe.
func (svc *ConvertService) HandleHealth(c *fiber.Ctx) error {
	return c.SendString("OK")
}

func sendResult(c *fiber.Ctx, res *convert.Result) error {
	c.Set("Content-Type", res.ContentType)
	c.Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	return c.Send(res.Body)
}
