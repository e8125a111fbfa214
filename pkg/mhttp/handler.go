package mhttp

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Ping returns HTTP 200 with a liveness body.
func Ping(c *fiber.Ctx) error {
	return c.SendString("healthy")
}

// Version returns HTTP 200 with the running build's version.
func Version(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     version,
			"buildNumber": os.Getenv("BUILD_NUMBER"),
			"requestDate": time.Now().UTC(),
		})
	}
}

// Welcome returns HTTP 200 with service identification.
func Welcome(service, description string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     service,
			"description": description,
		})
	}
}

// NotImplementedEndpoint returns HTTP 501.
func NotImplementedEndpoint(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "not implemented"})
}
