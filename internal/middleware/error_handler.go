package middleware

import (
	"bluecarbon-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Message, e.Code, map[string]interface{}{})
	}
	return response.FromError(c, err)
}
