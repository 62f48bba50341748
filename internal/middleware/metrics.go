package middleware

import (
	"strconv"
	"time"

	"bluecarbon-backend/internal/metrics"
	"bluecarbon-backend/internal/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request duration into the shared histogram.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Method(), strconv.Itoa(responseStatus(c.Response().StatusCode(), err))).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// responseStatus resolves the status the request will be answered with. An
// error returned from a handler has not passed through the app error handler
// yet, so the raw response code still reads 200; map the error here the same
// way the error handler will.
func responseStatus(status int, err error) int {
	if err == nil {
		return status
	}
	if e, ok := err.(*fiber.Error); ok {
		return e.Code
	}
	return apperrors.HTTPStatus(err)
}
