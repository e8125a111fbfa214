package mhttp

import "github.com/gofiber/fiber/v2"

// ResponseError is the JSON shape returned to clients on every error path.
type ResponseError struct {
	Code    string         `json:"code,omitempty"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func send(c *fiber.Ctx, status int, code, title, message string, details map[string]any) error {
	return c.Status(status).JSON(ResponseError{
		Code:    code,
		Title:   title,
		Message: message,
		Details: details,
	})
}

func BadRequest(c *fiber.Ctx, code, title, message string) error {
	return send(c, fiber.StatusBadRequest, code, title, message, nil)
}

func NotFound(c *fiber.Ctx, code, title, message string) error {
	return send(c, fiber.StatusNotFound, code, title, message, nil)
}

func Conflict(c *fiber.Ctx, code, title, message string, details map[string]any) error {
	return send(c, fiber.StatusConflict, code, title, message, details)
}

func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return send(c, fiber.StatusUnauthorized, code, title, message, nil)
}

func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return send(c, fiber.StatusForbidden, code, title, message, nil)
}

func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return send(c, fiber.StatusUnprocessableEntity, code, title, message, nil)
}

func PaymentRequired(c *fiber.Ctx, budgetRemaining float64) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
		"code":            "BUDGET_EXHAUSTED",
		"message":         "insufficient budget",
		"budgetRemaining": budgetRemaining,
	})
}

func ServiceUnavailable(c *fiber.Ctx, code, title, message string) error {
	return send(c, fiber.StatusServiceUnavailable, code, title, message, nil)
}

func InternalServerError(c *fiber.Ctx, traceID string) error {
	return send(c, fiber.StatusInternalServerError, "INTERNAL", "Internal Server Error", "an unexpected error occurred", map[string]any{
		"traceId": traceID,
	})
}
