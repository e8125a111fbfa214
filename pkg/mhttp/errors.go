package mhttp

import (
	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/cgcardona/maestro/pkg/mlog"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WithError maps a domain error to its HTTP representation. Handlers
// should funnel every returned error through this single place rather
// than switching on status codes themselves.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case merrors.NotFoundError:
		return NotFound(c, "NOT_FOUND", e.EntityType, e.Error())
	case merrors.ValidationError:
		return BadRequest(c, e.Code, "Validation Error", e.Error())
	case merrors.ConflictError:
		return Conflict(c, e.Code, "Conflict", e.Error(), e.Details)
	case merrors.UnauthorizedError:
		return Unauthorized(c, "UNAUTHORIZED", "Unauthorized", e.Error())
	case merrors.ForbiddenError:
		return Forbidden(c, "FORBIDDEN", "Forbidden", e.Error())
	case merrors.BudgetExhaustedError:
		return PaymentRequired(c, e.BudgetRemaining)
	case merrors.UnavailableError:
		return ServiceUnavailable(c, "UNAVAILABLE", "Service Unavailable", e.Error())
	case merrors.InternalError:
		logger := mlog.FromContext(c.UserContext())
		logger.Errorf("internal error trace=%s: %v", e.TraceID, e.Err)

		return InternalServerError(c, e.TraceID)
	default:
		traceID := uuid.NewString()
		logger := mlog.FromContext(c.UserContext())
		logger.Errorf("unhandled error trace=%s: %v", traceID, err)

		return InternalServerError(c, traceID)
	}
}
