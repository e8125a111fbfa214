// Package httpapi binds the Variation Pipeline and Muse Hub VCS core to
// fiber routes, mapping conversationId/projectId/repoId at the request
// boundary rather than inside any component.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/internal/registry"
	"github.com/cgcardona/maestro/internal/statestore"
	"github.com/cgcardona/maestro/internal/variation/pipeline"
	"github.com/cgcardona/maestro/pkg/mhttp"
	"github.com/cgcardona/maestro/pkg/mlog"
)

// Dependencies are every component the HTTP surface binds to. Built once
// in cmd/maestro and passed to NewRouter.
type Dependencies struct {
	Pipeline     *pipeline.Pipeline
	States       *statestore.Manager
	Registries   *registry.Manager
	MuseHub      *musehub.Service
	Logger       mlog.Logger
	JWT          mhttp.JWTConfig
	Version      string
	SSEHeartbeat int // seconds
}

// NewRouter builds the fiber app and registers every route.
func NewRouter(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Use(withRequestLogger(deps.Logger))

	app.Get("/health", mhttp.Ping)
	app.Get("/version", mhttp.Version(deps.Version))
	app.Get("/", mhttp.Welcome("maestro", "music version control and real-time composition orchestration"))
	app.Get("/robots.txt", robotsTxt)
	app.Get("/sitemap.xml", sitemapXML)

	v1 := app.Group("/api/v1")
	v1.Get("/openapi.json", openAPIJSON)

	registerVariationRoutes(v1, deps)
	registerMuseHubRoutes(v1, deps)

	return app
}

func robotsTxt(c *fiber.Ctx) error {
	return c.Type("txt").SendString("User-agent: *\nAllow: /\n")
}

func sitemapXML(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.SendString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>/</loc></url></urlset>`)
}

func openAPIJSON(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"openapi": "3.1.0",
		"info": fiber.Map{
			"title":   "Maestro API",
			"version": "1.0.0",
		},
		"paths": fiber.Map{},
	})
}
