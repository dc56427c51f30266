package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Logger logs each HTTP request as one structured entry with the fields
// request_id, method, path, status and latency (milliseconds, float).
// For streamed downloads the entry is written when the handler returns,
// before the body has finished sending.
func Logger(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		entry := log.WithFields(logrus.Fields{
			"request_id": RequestIDFromCtx(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		})
		if status >= fiber.StatusInternalServerError {
			entry.Warn("request")
		} else {
			entry.Info("request")
		}

		return err
	}
}
