package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"pdfgate/internal/http/middleware"
	"pdfgate/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code,omitempty"`
}

// writeError writes a standardized JSON error response.
//
// Parameters:
// - status: HTTP status code to return
// - message: short human-readable summary (e.g., "Upload failed")
// - details: underlying cause, safe to show to the caller
// - code: upstream store error code when one is known
func writeError(c *fiber.Ctx, status int, message, details, code string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error:     message,
		Details:   details,
		Code:      code,
	})
}

// writeServiceError translates a service error into a status code and JSON body.
// message is the endpoint-specific summary used for failures.
func writeServiceError(c *fiber.Ctx, log logrus.FieldLogger, message string, err error) error {
	status := statusFor(err)
	code := ""
	var se *service.StoreError
	if errors.As(err, &se) {
		code = se.Code()
	}

	entry := log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFromCtx(c),
		"path":       c.Path(),
		"status":     status,
	})
	if status >= fiber.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}

	return writeError(c, status, message, err.Error(), code)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrPayloadTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnsupportedMediaType):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "Bad request", "", "")
		case fiber.StatusNotFound:
			return writeError(c, status, "Not found", "", "")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "Method not allowed", "", "")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "Payload too large", "", "")
		default:
			return writeError(c, status, "Internal server error", "", "")
		}
	}
}
