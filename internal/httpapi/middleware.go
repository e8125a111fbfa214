package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cgcardona/maestro/pkg/mlog"
)

const headerCorrelationID = "X-Correlation-Id"

// withRequestLogger stamps every request with a correlation id, carries a
// correlation-scoped logger on the request context, and logs method,
// path, status, and duration on completion.
func withRequestLogger(base mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(headerCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}

		c.Set(headerCorrelationID, cid)

		logger := base.WithFields("correlationId", cid)
		c.SetUserContext(mlog.ContextWithLogger(c.UserContext(), logger))

		start := time.Now()
		err := c.Next()

		logger.Infof("%s %s -> %d (%s)", c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))

		return err
	}
}
