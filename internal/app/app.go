package app

import (
	"pdfconvert/internal/handlers"
	u "pdfconvert/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"
)

// SetupApp creates and configures a new Fiber app instance
func SetupApp(cfg u.Config, redis *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		BodyLimit:             cfg.Limits.MaxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			// Clients consume error bodies as plain text.
			return c.Status(code).SendString(msg)
		},
	})

	RegisterMiddleware(app, cfg)
	RegisterRoutes(app, cfg, redis)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg u.Config, redis *redis.Client) {
	// One shared service instance so both conversion routes share the
	// resolved toolchain path.
	svc := handlers.NewConvertService(cfg, redis)
	svc.ResolveToolchain()

	app.Post("/jpg-to-pdf/", svc.HandleImagesToPDF)
	app.Post("/pdf-to-jpg/", svc.HandlePDFToImages)
	app.Head("/pdf-to-jpg/", svc.HandleProbe)
	app.Get("/health/", svc.HandleHealth)

	app.Get("/monitor", monitor.New())
}
